package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const fileName = "daemon.lock"

// HeldError is returned when another daemon already owns the session.
type HeldError struct {
	PID   int
	Since string
	Path  string
}

func (e *HeldError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("session already in use by PID %d since %s (%s)", e.PID, e.Since, e.Path)
	}
	return fmt.Sprintf("session already in use (%s)", e.Path)
}

// Lock guards a session directory so a single daemon syncs it at a time.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive flock on the session's lock file, creating the
// directory if needed. A HeldError carries the owning PID when readable.
func Acquire(sessionDir string) (*Lock, error) {
	if err := os.MkdirAll(sessionDir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	path := filepath.Join(sessionDir, fileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		data, _ := os.ReadFile(path)
		pid, since := parseOwner(string(data))
		_ = f.Close()
		return nil, &HeldError{PID: pid, Since: since, Path: path}
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	owner := fmt.Sprintf("pid=%d\nsince=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := f.WriteString(owner); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Lock{file: f, path: path}, nil
}

// Release drops the lock and removes the file. Safe on a nil receiver and
// safe to call twice.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

func parseOwner(content string) (pid int, since string) {
	for _, line := range strings.Split(content, "\n") {
		if after, ok := strings.CutPrefix(line, "pid="); ok {
			pid, _ = strconv.Atoi(after)
		}
		if after, ok := strings.CutPrefix(line, "since="); ok {
			since = after
		}
	}
	return pid, since
}
