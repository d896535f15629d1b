package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// EnvPath overrides the config file location.
const EnvPath = "CHATMERGE_CONFIG"

type Config struct {
	Sources       []string `toml:"sources"`
	DBPath        string   `toml:"db_path"`
	Workers       int      `toml:"workers"`
	SkipMalformed bool     `toml:"skip_malformed"`
	TopN          int      `toml:"top_n"`
	LogLevel      string   `toml:"log_level"`
	MetricsFile   string   `toml:"metrics_file"`
}

// Path returns the config file location: $CHATMERGE_CONFIG or
// ~/.config/chatmerge/config.toml.
func Path() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "chatmerge", "config.toml"), nil
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	cfgPath, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(cfgPath, home)
}

// LoadFile reads cfgPath over the defaults. A missing file leaves the defaults.
func LoadFile(cfgPath, home string) (*Config, error) {
	cfg := &Config{
		DBPath:   filepath.Join(home, ".config", "chatmerge", "chatmerge.db"),
		TopN:     20,
		LogLevel: "info",
	}

	if _, err := os.Stat(cfgPath); err == nil {
		md, err := toml.DecodeFile(cfgPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse config %s: unknown keys %v", cfgPath, undecoded)
		}
	}

	// expand ~ in paths
	for i, s := range cfg.Sources {
		cfg.Sources[i] = expandHome(s, home)
	}
	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.MetricsFile = expandHome(cfg.MetricsFile, home)

	if cfg.Workers < 0 {
		return nil, fmt.Errorf("parse config %s: workers must not be negative", cfgPath)
	}
	return cfg, nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
