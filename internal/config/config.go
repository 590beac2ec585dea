package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"alert-agent/pkg/logger"

	"go.uber.org/zap"
)

// Config holds all agent configuration settings
type Config struct {
	Server struct {
		Port int    `json:"port"`
		Host string `json:"host"`
	} `json:"server"`
	Database struct {
		DSN string `json:"dsn"`
	} `json:"database"`
	Sync struct {
		BaseURL        string        `json:"base_url"`
		RequestTimeout time.Duration `json:"request_timeout"`
		DrainSchedule  string        `json:"drain_schedule"`
		PruneKeep      int           `json:"prune_keep"`
		ProbeInterval  time.Duration `json:"probe_interval"`
	} `json:"sync"`
	Voice struct {
		BaseURL string `json:"base_url"`
	} `json:"voice"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Logging struct {
		Path string `json:"path"`
	} `json:"logging"`
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	// Validate path to prevent directory traversal
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("config path must be absolute")
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config file error: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("config path is not a regular file")
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("Failed to close config file", zap.Error(closeErr))
		}
	}()

	var config Config
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	config := &Config{}
	config.Server.Port = 8087
	config.Server.Host = "127.0.0.1"
	config.Database.DSN = "file:alert-agent.db?cache=shared&mode=rwc"
	config.Sync.BaseURL = "https://alerts.example.com"
	config.Sync.RequestTimeout = 30 * time.Second
	config.Sync.DrainSchedule = "@every 15m"
	config.Sync.PruneKeep = 100
	config.Sync.ProbeInterval = 30 * time.Second
	config.Voice.BaseURL = "https://voice.example.com"
	config.User.ID = ""
	config.Logging.Path = "alert-agent.log"
	return config
}
