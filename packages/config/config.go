// Package config loads apiprobe configuration from a JSON file and
// merges it with CLI overrides.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config represents the apiprobe configuration
type Config struct {
	BaseURL     string            `json:"baseURL,omitempty"`
	Timeout     int               `json:"timeout,omitempty"` // milliseconds
	MaxAttempts int               `json:"maxAttempts,omitempty"`
	RetryDelay  int               `json:"retryDelay,omitempty"` // milliseconds
	Parallelism int               `json:"parallelism,omitempty"`
	Rate        float64           `json:"rate,omitempty"`       // scenario starts per second
	RunTimeout  int               `json:"runTimeout,omitempty"` // milliseconds, whole run
	Headers     map[string]string `json:"headers,omitempty"`    // Default headers for all requests
	Reporters   []string          `json:"reporters,omitempty"`
	OutputDir   string            `json:"outputDir,omitempty"`
	HistoryDB   string            `json:"historyDB,omitempty"` // SQLite file for run history
	Proxy       string            `json:"proxy,omitempty"`
	ValidateSSL *bool             `json:"validateSSL,omitempty"`
	NoColor     *bool             `json:"noColor,omitempty"`
	Verbose     *bool             `json:"verbose,omitempty"`
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".apiprobe.config.json",
	"apiprobe.config.json",
	".apiproberc",
}

// LoadConfig loads configuration from the specified path or searches for
// config files in the current directory.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.BaseURL != "" {
		result.BaseURL = other.BaseURL
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxAttempts > 0 {
		result.MaxAttempts = other.MaxAttempts
	}
	if other.RetryDelay > 0 {
		result.RetryDelay = other.RetryDelay
	}
	if other.Parallelism > 0 {
		result.Parallelism = other.Parallelism
	}
	if other.Rate > 0 {
		result.Rate = other.Rate
	}
	if other.RunTimeout > 0 {
		result.RunTimeout = other.RunTimeout
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}
	if other.HistoryDB != "" {
		result.HistoryDB = other.HistoryDB
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}

	// Boolean flags only override when explicitly set
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}

	if len(other.Headers) > 0 {
		merged := make(map[string]string, len(c.Headers)+len(other.Headers))
		for k, v := range c.Headers {
			merged[k] = v
		}
		for k, v := range other.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}

	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
