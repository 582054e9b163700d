// Package config loads client settings from a YAML file with environment
// variable overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pemira/evote/internal/errors"
)

const (
	// MinPollInterval is the floor for the voting-status poll.  Anything
	// faster just hammers the server without improving the countdown,
	// which ticks locally at 1s regardless.
	MinPollInterval = time.Second

	defaultPollInterval = 10 * time.Second
)

// Config captures everything the CLI and SDK need to talk to an election
// server.  Tokens are not configuration; they live in the session store.
type Config struct {
	BaseURL      string        `yaml:"base_url"`
	PollInterval time.Duration `yaml:"poll_interval"`
	StatePath    string        `yaml:"state_path"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
}

func Default() Config {
	return Config{
		BaseURL:      "http://localhost:5000",
		PollInterval: defaultPollInterval,
		StatePath:    defaultStatePath(),
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "evote-state.db"
	}
	return filepath.Join(dir, "evote", "state.db")
}

// Load reads the YAML file at path when it exists, then applies EVOTE_*
// environment overrides.  A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	const op errors.Op = "config.Load"

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, errors.E(op, err, errors.KindBadRequest, "could not parse config file")
			}
		case os.IsNotExist(err):
			// fall through to defaults
		default:
			return Config{}, errors.E(op, err, "could not read config file")
		}
	}

	cfg.applyEnv()

	if cfg.PollInterval < MinPollInterval {
		cfg.PollInterval = MinPollInterval
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("EVOTE_BASE_URL")); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EVOTE_POLL_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.PollInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("EVOTE_STATE_PATH")); v != "" {
		c.StatePath = v
	}
	if v := strings.TrimSpace(os.Getenv("EVOTE_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("EVOTE_LOG_FORMAT")); v != "" {
		c.LogFormat = v
	}
}
