package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the gateway configuration
type Config struct {
	Backend struct {
		BaseURL        string `yaml:"base_url"`
		SocketURL      string `yaml:"socket_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"backend"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Token     string `yaml:"token"`
	} `yaml:"auth"`
	Gateway struct {
		Port int `yaml:"port"`
	} `yaml:"gateway"`
	MetricsConfig struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
	Reconcile struct {
		KitchenPollSeconds int `yaml:"kitchen_poll_seconds"`
	} `yaml:"reconcile"`
	History struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"history"`
	LogLevel string `yaml:"log_level"`
}

// Load reads the yaml configuration from path. The backend token and JWT
// secret can be supplied via COMANDA_TOKEN and COMANDA_JWT_SECRET so they
// stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if tok := os.Getenv("COMANDA_TOKEN"); tok != "" {
		cfg.Auth.Token = tok
	}
	if secret := os.Getenv("COMANDA_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend.base_url is required")
	}
	if cfg.Backend.SocketURL == "" {
		return nil, fmt.Errorf("backend.socket_url is required")
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Backend.TimeoutSeconds = 10
	cfg.Gateway.Port = 8080
	cfg.MetricsConfig.Enabled = true
	cfg.MetricsConfig.Port = 9090
	cfg.Reconcile.KitchenPollSeconds = 15
	cfg.History.DBPath = "comanda.db"
	cfg.LogLevel = "info"
	return cfg
}

// Timeout returns the backend request timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// KitchenPoll returns the fallback refresh period for the kitchen queue
func (c *Config) KitchenPoll() time.Duration {
	return time.Duration(c.Reconcile.KitchenPollSeconds) * time.Second
}
