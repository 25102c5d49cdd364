package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Database      DatabaseConfig
	ReferenceData ReferenceDataConfig
	Feed          FeedConfig
	Monitor       MonitorConfig
	Webhook       WebhookConfig
	Logging       LoggingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ReferenceDataConfig selects where line/station reference data is read from:
// the shared database, or a YAML network file for local deployments.
type ReferenceDataConfig struct {
	Source   string // "db" or "file"
	FilePath string
}

// FeedConfig for polling the disruption feed.
type FeedConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// MonitorConfig for the periodic matching batch.
type MonitorConfig struct {
	CycleInterval    time.Duration
	DedupCacheSize   int
	RebuildOnStartup bool
}

type WebhookConfig struct {
	URL string
}

type LoggingConfig struct {
	Level    string
	FilePath string
}

func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "commutewatch"),
		},
		ReferenceData: ReferenceDataConfig{
			Source:   getEnv("REFDATA_SOURCE", "db"),
			FilePath: getEnv("REFDATA_FILE", "network.yaml"),
		},
		Feed: FeedConfig{
			URL:     getEnv("DISRUPTION_FEED_URL", ""),
			APIKey:  getEnv("DISRUPTION_FEED_API_KEY", ""),
			Timeout: getDurationEnv("DISRUPTION_FEED_TIMEOUT", 30*time.Second),
		},
		Monitor: MonitorConfig{
			CycleInterval:    getDurationEnv("MONITOR_CYCLE_INTERVAL", 2*time.Minute),
			DedupCacheSize:   getIntEnv("DEDUP_CACHE_SIZE", 10000),
			RebuildOnStartup: getBoolEnv("REBUILD_ON_STARTUP", false),
		},
		Webhook: WebhookConfig{
			URL: getEnv("ALERT_WEBHOOK_URL", ""),
		},
		Logging: LoggingConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			FilePath: getEnv("LOG_FILE", "commutewatch.log"),
		},
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

func (c *ReferenceDataConfig) Validate() error {
	switch c.Source {
	case "db":
		return nil
	case "file":
		if c.FilePath == "" {
			return fmt.Errorf("REFDATA_FILE is required when REFDATA_SOURCE=file")
		}
		return nil
	default:
		return fmt.Errorf("unknown reference data source %q", c.Source)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
