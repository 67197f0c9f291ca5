package hxwire

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of a Manager and the server that hosts it.
type Config struct {
	Secret     string   `yaml:"secret"`
	Seal       bool     `yaml:"seal"`
	Locale     string   `yaml:"locale"`
	UpdatePath string   `yaml:"update_path"`
	Listen     string   `yaml:"listen"`
	LogLevel   string   `yaml:"log_level"`  // debug | info | warn | error
	LogFormat  string   `yaml:"log_format"` // text | json
	JSFeatures []string `yaml:"js_features"`
}

// DefaultConfig returns sane defaults. Secret has no default and must be
// provided.
func DefaultConfig() *Config {
	return &Config{
		Locale:     "en",
		UpdatePath: "/hxwire/update",
		Listen:     ":8080",
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// SecretEnv names the environment variable that overrides Config.Secret.
const SecretEnv = "HXWIRE_SECRET"

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig merged
// with the file and the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields set in the environment.
func (c *Config) ApplyEnv() {
	if s := os.Getenv(SecretEnv); s != "" {
		c.Secret = s
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("secret must be at least 16 bytes")
	}
	if c.Locale == "" {
		return fmt.Errorf("locale is required")
	}
	if !strings.HasPrefix(c.UpdatePath, "/") {
		return fmt.Errorf("update_path must start with /")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log_format %q (use text or json)", c.LogFormat)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unsupported log_level %q", s)
	}
	return lvl, nil
}
