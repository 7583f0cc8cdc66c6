package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// LoadConfig loads the configuration from config.json.
// If the file doesn't exist, it returns default configuration.
// If the file is corrupted, it returns an error.
// Missing fields (absent from JSON) are silently defaulted.
func LoadConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return loadConfigFile(path)
}

func loadConfigFile(path string) (*Config, error) {
	jsonBytes, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := &Config{}
	if err := json.Unmarshal(jsonBytes, config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	// Apply defaults only for fields that are absent from the file
	ApplyMissingDefaults(config, detectPresentKeys(jsonBytes))

	return config, nil
}

// SaveConfig saves the configuration to config.json atomically
func SaveConfig(config *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	return AtomicWriteJSON(path, config)
}

// CreateConfigIfMissing creates a default config.json if it doesn't exist
func CreateConfigIfMissing() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return SaveConfig(DefaultConfig())
	}

	return nil
}

// ApplyEnv overrides the core settings from M64UI_* environment variables.
// Unset variables leave the file values alone.
func ApplyEnv(config *Config) error {
	if err := env.Parse(&config.Core); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
