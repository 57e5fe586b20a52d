// Package config loads client settings from a TOML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/himanishpuri/GenreGenius/pkg/genregenius"
)

const (
	EnvConfig   = "GENREGENIUS_CONFIG"
	EnvEndpoint = "GENREGENIUS_ENDPOINT"
)

type Config struct {
	Client  ClientConfig  `toml:"client"`
	Log     LogConfig     `toml:"log"`
	Journal JournalConfig `toml:"journal"`
}

type ClientConfig struct {
	Endpoint string `toml:"endpoint"`
	// OpenTimeout bounds connecting and receiving response headers, e.g.
	// "10s". The stream itself has no deadline.
	OpenTimeout string `toml:"open_timeout"`
}

type LogConfig struct {
	Level    string `toml:"level"`
	Colorize bool   `toml:"colorize"`
}

// JournalConfig enables the operator journal when Path is set.
type JournalConfig struct {
	Path string `toml:"path"`
}

func DefaultConfig() Config {
	return Config{
		Client: ClientConfig{
			Endpoint:    genregenius.DefaultEndpoint,
			OpenTimeout: "10s",
		},
		Log: LogConfig{
			Level:    "info",
			Colorize: true,
		},
	}
}

// DefaultPath returns $GENREGENIUS_CONFIG, or config.toml under the user
// config directory.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "genregenius.toml"
	}
	return filepath.Join(dir, "genregenius", "config.toml")
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				return cfg, fmt.Errorf("unknown keys in %s: %v", path, undecoded)
			}
		}
	}

	if ep := os.Getenv(EnvEndpoint); ep != "" {
		cfg.Client.Endpoint = ep
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Client.Endpoint == "" {
		return errors.New("client.endpoint is required")
	}
	if _, err := c.OpenTimeout(); err != nil {
		return err
	}
	return nil
}

// OpenTimeout parses Client.OpenTimeout. Empty or "0" disables it.
func (c Config) OpenTimeout() (time.Duration, error) {
	if c.Client.OpenTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Client.OpenTimeout)
	if err != nil {
		return 0, fmt.Errorf("client.open_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("client.open_timeout must not be negative: %s", d)
	}
	return d, nil
}
