package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the configuration for the HTTP API server.
type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	HistoryDB   string `yaml:"history_db"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

// ScannerConfig holds the configuration for the live scan engine.
type ScannerConfig struct {
	ScanIntervalSeconds int `yaml:"scan_interval_seconds"`
	MaxResults          int `yaml:"max_results"`
}

// SMTPConfig holds the configuration for the email notifier.
type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// ClientConfig holds the defaults used by the CLI client.
type ClientConfig struct {
	BaseURL          string `yaml:"base_url"`
	PollIntervalMS   int    `yaml:"poll_interval_ms"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Scanner ScannerConfig `yaml:"scanner"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	Client  ClientConfig  `yaml:"client"`
}

// Default returns a configuration with working values for a local
// single-node deployment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:  ":8000",
			HistoryDB:   "anubis_history.db",
			MaxUploadMB: 100,
		},
		Scanner: ScannerConfig{
			ScanIntervalSeconds: 5,
			MaxResults:          10000,
		},
		Client: ClientConfig{
			BaseURL:          "http://localhost:8000",
			PollIntervalMS:   2000,
			RequestTimeoutMS: 30000,
		},
	}
}

// LoadConfig reads the configuration from a YAML file and returns a Config
// struct. Missing fields keep their defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return cfg, nil
}

// ScanInterval returns the scan engine tick period.
func (c *ScannerConfig) ScanInterval() time.Duration {
	if c.ScanIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

// PollInterval returns the client poll period.
func (c *ClientConfig) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// RequestTimeout returns the per-request client timeout.
func (c *ClientConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}
