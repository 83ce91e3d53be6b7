package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultGreeting is served when no configuration file overrides it
	DefaultGreeting = "Hello, World! Deployed via CI/CD Pipeline! This is Change A"

	defaultListen          = "0.0.0.0:5000"
	defaultShutdownTimeout = 10 * time.Second
)

// RateLimitConfig configures the token bucket in front of the router.
// A zero RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

// Config represents the server configuration
type Config struct {
	Server struct {
		Listen          string        `yaml:"listen"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Greeting string `yaml:"greeting"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	WAF struct {
		Enabled         bool   `yaml:"enabled"`
		CoreRuleSet     bool   `yaml:"core_rule_set"`
		CustomRulesPath string `yaml:"custom_rules_path"`
	} `yaml:"waf"`

	Debug struct {
		PprofListen string `yaml:"pprof_listen"`
	} `yaml:"debug"`
}

// defaultConfig returns the configuration used when no file is given
func defaultConfig() Config {
	var config Config
	config.Server.Listen = defaultListen
	config.Server.ShutdownTimeout = defaultShutdownTimeout
	config.Greeting = DefaultGreeting
	config.WAF.CoreRuleSet = true
	return config
}

// loadConfig loads the configuration from the specified file on top of the defaults.
// An empty path yields the defaults.
func loadConfig(path string) (Config, error) {
	config := defaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("error reading config file: %w", err)
	}

	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return config, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return config, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return config, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen must not be empty"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must not be negative"))
	}
	if c.Greeting == "" {
		errs = append(errs, errors.New("greeting must not be empty"))
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate_limit values must not be negative"))
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate_limit.burst must be at least 1 when rate limiting is enabled"))
	}
	return errors.Join(errs...)
}
