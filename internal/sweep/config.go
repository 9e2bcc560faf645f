package sweep

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var allowedManagers = map[string]struct{}{
	"conda":  {},
	"docker": {},
	"host":   {},
}

// Config carries run defaults that flags may override. All fields are
// optional in the YAML file; zero values fall back to defaults.
type Config struct {
	Manager     string `yaml:"manager"`
	CondaBinary string `yaml:"conda_binary"`
	Timeout     string `yaml:"timeout"`
	FailFast    bool   `yaml:"fail_fast"`
	Report      string `yaml:"report"`
}

// LoadConfig reads a YAML config file, applies defaults and validates.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DefaultConfig returns the built-in defaults, honoring SWEEPRUN_MANAGER and
// SWEEPRUN_CONDA_BIN from the process environment.
func DefaultConfig() *Config {
	c := &Config{
		Manager:     os.Getenv("SWEEPRUN_MANAGER"),
		CondaBinary: os.Getenv("SWEEPRUN_CONDA_BIN"),
	}
	applyDefaults(c)
	return c
}

func applyDefaults(c *Config) {
	if c.Manager == "" {
		c.Manager = "conda"
	}
	if c.CondaBinary == "" {
		c.CondaBinary = "conda"
	}
	if c.Timeout == "" {
		c.Timeout = "0"
	}
}

func (c *Config) Validate() error {
	if _, ok := allowedManagers[c.Manager]; !ok {
		return fmt.Errorf("invalid manager %q; allowed: conda, docker, host", c.Manager)
	}
	d, err := c.JobTimeout()
	if err != nil {
		return err
	}
	if d < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// JobTimeout parses the per-job timeout. "0" (the default) means no timeout:
// a hung job blocks the sweep indefinitely.
func (c *Config) JobTimeout() (time.Duration, error) {
	if c.Timeout == "" || c.Timeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}
