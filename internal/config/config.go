// Package config loads and validates the tarn.yml configuration file that
// tells tarn commands which Redis server and lake instance to talk to, and
// which blob registries are available for external payloads.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// instanceNamePattern limits instance names to what is safe inside Redis
// key namespaces.
var instanceNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// TarnConfig represents the top-level tarn.yml configuration
type TarnConfig struct {
	Version    string            `yaml:"version"`
	Instance   string            `yaml:"instance"`
	Redis      RedisConfig       `yaml:"redis"`
	Registries map[string]string `yaml:"registries,omitempty"` // name -> registry URI
}

// RedisConfig specifies the connection to the backing Redis server
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// Load reads and validates a tarn.yml file.
func Load(path string) (*TarnConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg TarnConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks the configuration for required fields and well-formed
// registry URIs.
func (c *TarnConfig) Validate() error {
	if c.Version != "1" && c.Version != "1.0" {
		return fmt.Errorf("unsupported config version: %q (expected \"1.0\")", c.Version)
	}

	if c.Instance == "" {
		return fmt.Errorf("instance name is required")
	}
	if !instanceNamePattern.MatchString(c.Instance) {
		return fmt.Errorf("invalid instance name %q: use lowercase letters, digits and hyphens", c.Instance)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}

	for name, uri := range c.Registries {
		u, err := url.Parse(uri)
		if err != nil {
			return fmt.Errorf("registry %q: invalid URI: %w", name, err)
		}
		if u.Scheme == "" {
			return fmt.Errorf("registry %q: URI %q has no scheme", name, uri)
		}
	}

	return nil
}
