package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the complete system configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Storage  StorageConfig  `json:"storage"`
	Pipeline PipelineConfig `json:"pipeline"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// MetricsConfig controls batch metrics delivery. The pipeline binaries
// exit before any scrape could reach them, so they push to a gateway
// when one is configured; empty disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `json:"pushgateway_url"`
}

// ServerConfig contains HTTP server settings for the query service
type ServerConfig struct {
	Port         string   `json:"port"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
	IdleTimeout  Duration `json:"idle_timeout"`
	RateLimit    float64  `json:"rate_limit_per_second"`
	RateBurst    int      `json:"rate_burst"`
}

// StorageConfig selects and configures the table store backend
type StorageConfig struct {
	Provider string      `json:"provider"` // "filesystem" or "redis"
	DataPath string      `json:"data_path"`
	Redis    RedisConfig `json:"redis"`
}

// RedisConfig contains settings for the Redis table store backend
type RedisConfig struct {
	Addr        string   `json:"addr"`
	Password    string   `json:"password"`
	DB          int      `json:"db"`
	DialTimeout Duration `json:"dial_timeout"`
}

// PipelineConfig contains batch pipeline settings
type PipelineConfig struct {
	SalesPath    string `json:"sales_path"`
	FeaturesPath string `json:"features_path"`
	StoresPath   string `json:"stores_path"`

	HorizonPeriods int    `json:"horizon_periods"`
	Workers        int    `json:"workers"`
	Model          string `json:"model"` // "linear" or "seasonal_naive"

	// Fail fast on duplicate store ids in the static attributes feed.
	// When disabled the first occurrence wins and a warning is logged.
	AssertUniqueStoreKeys bool `json:"assert_unique_store_keys"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			ReadTimeout:  Duration{30 * time.Second},
			WriteTimeout: Duration{30 * time.Second},
			IdleTimeout:  Duration{120 * time.Second},
			RateLimit:    50,
			RateBurst:    100,
		},
		Storage: StorageConfig{
			Provider: "filesystem",
			DataPath: "./data/processed",
			Redis: RedisConfig{
				Addr:        "localhost:6379",
				DB:          0,
				DialTimeout: Duration{5 * time.Second},
			},
		},
		Pipeline: PipelineConfig{
			SalesPath:             "./data/raw/sales_data.csv",
			FeaturesPath:          "./data/raw/Features_data.csv",
			StoresPath:            "./data/raw/stores_data.csv",
			HorizonPeriods:        52,
			Workers:               4,
			Model:                 "linear",
			AssertUniqueStoreKeys: true,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return config, nil
}

// LoadFromEnv loads configuration overrides from environment variables
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if port := os.Getenv("FORECAST_PORT"); port != "" {
		config.Server.Port = port
	}

	if provider := os.Getenv("FORECAST_STORAGE_PROVIDER"); provider != "" {
		config.Storage.Provider = provider
	}

	if dataPath := os.Getenv("FORECAST_DATA_PATH"); dataPath != "" {
		config.Storage.DataPath = dataPath
	}

	if addr := os.Getenv("FORECAST_REDIS_ADDR"); addr != "" {
		config.Storage.Redis.Addr = addr
	}

	if gateway := os.Getenv("FORECAST_PUSHGATEWAY_URL"); gateway != "" {
		config.Metrics.PushgatewayURL = gateway
	}

	if horizon := os.Getenv("FORECAST_HORIZON"); horizon != "" {
		if val, err := strconv.Atoi(horizon); err == nil {
			config.Pipeline.HorizonPeriods = val
		}
	}

	if workers := os.Getenv("FORECAST_WORKERS"); workers != "" {
		if val, err := strconv.Atoi(workers); err == nil {
			config.Pipeline.Workers = val
		}
	}

	return config
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	switch c.Storage.Provider {
	case "filesystem":
		if c.Storage.DataPath == "" {
			return fmt.Errorf("storage data path cannot be empty for filesystem provider")
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("redis address cannot be empty for redis provider")
		}
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}

	if c.Pipeline.HorizonPeriods <= 0 {
		return fmt.Errorf("pipeline horizon periods must be positive")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline workers must be positive")
	}
	if c.Pipeline.Model != "linear" && c.Pipeline.Model != "seasonal_naive" {
		return fmt.Errorf("unknown pipeline model %q", c.Pipeline.Model)
	}

	return nil
}

// EnsureDataDirectories creates the filesystem data directory if needed
func (c *Config) EnsureDataDirectories() error {
	if c.Storage.Provider != "filesystem" {
		return nil
	}

	if err := os.MkdirAll(c.Storage.DataPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Storage.DataPath, err)
	}

	return nil
}

// Load resolves configuration from an optional file with env fallback,
// validates it, and prepares data directories
func Load(filename string) (*Config, error) {
	var config *Config
	var err error

	if filename != "" && fileExists(filename) {
		config, err = LoadFromFile(filename)
		if err != nil {
			return nil, err
		}
	} else {
		config = LoadFromEnv()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.EnsureDataDirectories(); err != nil {
		return nil, err
	}

	return config, nil
}

// fileExists checks if a file exists
func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}
