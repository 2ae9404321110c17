package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Log        LogConfig       `yaml:"log"`
	Redis      RedisConfig     `yaml:"redis"`
	Postgres   PostgresConfig  `yaml:"postgres"`
	Upload     UploadConfig    `yaml:"upload"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// RedisConfig holds the optional result-cache configuration
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL returns the cache entry lifetime as a duration
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// PostgresConfig holds the optional shipment-events source configuration
type PostgresConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Table   string `yaml:"table"`
}

// UploadConfig holds CSV upload limits
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// ThresholdConfig holds the SLA windows, outlier bounds, and reference
// lines fed into the metric registry
type ThresholdConfig struct {
	ShipWindowHours     float64 `yaml:"ship_window_hours"`
	OnlineWindowHours   float64 `yaml:"online_window_hours"`
	TransitMinDays      float64 `yaml:"transit_min_days"`
	TransitMaxDays      float64 `yaml:"transit_max_days"`
	ShipRateBar         float64 `yaml:"ship_rate_bar"`
	ShipRateTarget      float64 `yaml:"ship_rate_target"`
	OnlineRateBar       float64 `yaml:"online_rate_bar"`
	OnlineRateTarget    float64 `yaml:"online_rate_target"`
	HandoverHoursBar    float64 `yaml:"handover_hours_bar"`
	HandoverHoursTarget float64 `yaml:"handover_hours_target"`
	TransitDaysBar      float64 `yaml:"transit_days_bar"`
	TransitDaysTarget   float64 `yaml:"transit_days_target"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 3600
	}
	if cfg.Postgres.Table == "" {
		cfg.Postgres.Table = "shipment_events"
	}
	if cfg.Upload.MaxBytes == 0 {
		cfg.Upload.MaxBytes = 256 * 1024 * 1024
	}
	if cfg.Thresholds.ShipWindowHours == 0 {
		cfg.Thresholds.ShipWindowHours = 24
	}
	if cfg.Thresholds.OnlineWindowHours == 0 {
		cfg.Thresholds.OnlineWindowHours = 48
	}
	if cfg.Thresholds.TransitMaxDays == 0 {
		cfg.Thresholds.TransitMaxDays = 30
	}
	if cfg.Thresholds.ShipRateBar == 0 {
		cfg.Thresholds.ShipRateBar = 0.75
	}
	if cfg.Thresholds.ShipRateTarget == 0 {
		cfg.Thresholds.ShipRateTarget = 0.95
	}
	if cfg.Thresholds.OnlineRateBar == 0 {
		cfg.Thresholds.OnlineRateBar = 0.90
	}
	if cfg.Thresholds.OnlineRateTarget == 0 {
		cfg.Thresholds.OnlineRateTarget = 0.95
	}
	if cfg.Thresholds.HandoverHoursBar == 0 {
		cfg.Thresholds.HandoverHoursBar = 24
	}
	if cfg.Thresholds.HandoverHoursTarget == 0 {
		cfg.Thresholds.HandoverHoursTarget = 24
	}
	if cfg.Thresholds.TransitDaysBar == 0 {
		cfg.Thresholds.TransitDaysBar = 7
	}
	if cfg.Thresholds.TransitDaysTarget == 0 {
		cfg.Thresholds.TransitDaysTarget = 7
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env
// vars, so local secrets can live in .env and real env vars in
// production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("EVENTS_TABLE"); v != "" {
		cfg.Postgres.Table = v
	}

	return cfg, nil
}
