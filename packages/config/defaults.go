package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:     30000, // 30 seconds per call
		MaxAttempts: 1,
		RetryDelay:  1000, // 1 second backoff unit
		Parallelism: 1,
		Reporters:   []string{"console"},
	}
}
