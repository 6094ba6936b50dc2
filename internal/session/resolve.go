package session

import "github.com/paulologeh/pychat/internal/config"

// DefaultSessionName is used when neither the flag nor the config names one.
const DefaultSessionName = "main"

// Resolve picks the active session name. A non-empty flagOverride wins;
// otherwise the config file's default_session; otherwise "main". A missing
// or unreadable config file is not an error here, it just falls through.
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if cfg, err := config.Load(ConfigPath()); err == nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}
