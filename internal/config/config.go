package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultServerURL is used when config.toml carries no server_url.
const DefaultServerURL = "https://pychat.herokuapp.com"

// Config represents the global ~/.pychat/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`
	ServerURL      string `toml:"server_url"`
	// SocketURL is the websocket push endpoint. Derived from ServerURL
	// when empty.
	SocketURL string `toml:"socket_url"`
}

// Load reads config from the given path. Returns an error if the file is
// missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Server returns the configured server URL or the default.
func (c *Config) Server() string {
	if c.ServerURL != "" {
		return c.ServerURL
	}
	return DefaultServerURL
}

// Socket returns the websocket push endpoint, deriving wss:// or ws:// from
// the server URL when not set explicitly.
func (c *Config) Socket() string {
	if c.SocketURL != "" {
		return c.SocketURL
	}
	server := c.Server()
	switch {
	case len(server) > 8 && server[:8] == "https://":
		return "wss://" + server[8:] + "/socket"
	case len(server) > 7 && server[:7] == "http://":
		return "ws://" + server[7:] + "/socket"
	default:
		return server + "/socket"
	}
}
