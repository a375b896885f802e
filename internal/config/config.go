package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerEnv overrides the document service URL when set.
const ServerEnv = "DOCVAULT_SERVER"

// ClientConfig holds configuration for the docvault CLI and web front end.
type ClientConfig struct {
	Server     string        `yaml:"server"`      // Document service base URL
	Listen     string        `yaml:"listen"`      // Web front end listen address (default "127.0.0.1:5173")
	TokenStore string        `yaml:"token_store"` // Credential slot backend: file, sqlite, memory
	StateDir   string        `yaml:"state_dir"`   // Directory for credentials.json / state.db (default ~/.docvault)
	LogLevel   string        `yaml:"log_level"`   // Log level: debug, info, warn, error
	LogFormat  string        `yaml:"log_format"`  // Log format: text, json
	Timeout    time.Duration `yaml:"timeout"`     // Per-request HTTP timeout
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Server:     "http://127.0.0.1:8000",
		Listen:     "127.0.0.1:5173",
		TokenStore: "file",
		LogLevel:   "info",
		LogFormat:  "text",
		Timeout:    30 * time.Second,
	}
}

// Load returns the defaults overlaid with the YAML file at path (if it
// exists) and then with the DOCVAULT_SERVER environment variable.
// An empty path means DefaultPath(); a missing default file is not an error.
func Load(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
		default:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if s := os.Getenv(ServerEnv); s != "" {
		cfg.Server = s
	}
	return cfg, nil
}

// DefaultStateDir returns ~/.docvault.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".docvault"), nil
}

// DefaultPath returns ~/.docvault/config.yaml.
func DefaultPath() (string, error) {
	dir, err := DefaultStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ResolveStateDir returns StateDir, falling back to DefaultStateDir.
func (c ClientConfig) ResolveStateDir() (string, error) {
	if c.StateDir != "" {
		return c.StateDir, nil
	}
	return DefaultStateDir()
}
