package session

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.pychat.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pychat")
}

// Dir returns the session-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "sessions", name)
}

// CookiePath returns the file holding the session cookie for a session.
// Obtaining the cookie (login) is external to this program.
func CookiePath(name string) string {
	return filepath.Join(Dir(name), "cookie")
}

// LogDir returns the log directory for a session.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "pychatd.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the session directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

// LoadCookie reads the stored session cookie, returning "" when absent.
func LoadCookie(name string) string {
	data, err := os.ReadFile(CookiePath(name))
	if err != nil {
		return ""
	}
	return string(trimNewline(data))
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
