package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := &Config{DefaultSession: "work", ServerURL: "https://chat.example.com"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
	if loaded.ServerURL != "https://chat.example.com" {
		t.Errorf("ServerURL = %q", loaded.ServerURL)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Save(path, &Config{DefaultSession: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestSocketDerivedFromServer(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"https://chat.example.com", "wss://chat.example.com/socket"},
		{"http://localhost:5000", "ws://localhost:5000/socket"},
	}
	for _, tt := range tests {
		cfg := &Config{ServerURL: tt.server}
		if got := cfg.Socket(); got != tt.want {
			t.Errorf("Socket() for %q = %q, want %q", tt.server, got, tt.want)
		}
	}
}

func TestSocketExplicitOverride(t *testing.T) {
	cfg := &Config{ServerURL: "https://a", SocketURL: "wss://push.example.com"}
	if got := cfg.Socket(); got != "wss://push.example.com" {
		t.Errorf("Socket() = %q, want explicit override", got)
	}
}
