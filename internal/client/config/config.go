package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the idgate CLI.
//
// Fields:
//   - ServerURL: base URL of the idgate REST API.
//   - RequestTimeout: upper bound for a single HTTP call, uploads included.
//   - SessionPath: SQLite file remembering the login between runs.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	SessionPath    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 60 * time.Second
	c.SessionPath = "idgate-session.db"
}

// LoadConfig applies defaults, then the JSON file named by -c/-config, then
// flags. Later sources take precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}

	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server url is empty")
	}
	return cfg, nil
}
