package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kosarica/crawler/internal/credentials"
	"github.com/kosarica/crawler/internal/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the crawler's full configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Retailers []types.Retailer `mapstructure:"retailers"`
}

// ServerConfig holds HTTP trigger-server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds persistence gateway connection configuration.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RateLimitConfig holds download/fetch rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
	MaxRetries        int `mapstructure:"max_retries"`
	InitialBackoffMs  int `mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int `mapstructure:"max_backoff_ms"`
}

// StorageConfig holds raw-archive storage configuration.
type StorageConfig struct {
	Type          string `mapstructure:"type"`
	BasePath      string `mapstructure:"base_path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// CrawlerConfig holds crawler-specific tuning knobs.
type CrawlerConfig struct {
	FanOut          int               `mapstructure:"fan_out"`
	MaxFileAgeHours int               `mapstructure:"max_file_age_hours"`
	Credentials     map[string]credPair `mapstructure:"credentials"`
}

type credPair struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment
// variables, matching the teacher's viper + dotenv layering.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadEnvFile(v); err != nil {
		log.Warn().Err(err).Msg("Warning: .env file not loaded")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("PRICE_CRAWLER")
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// CredentialStore builds a credentials.Store from the loaded
// crawler.credentials block.
func (c *Config) CredentialStore() *credentials.Store {
	raw := make(map[string]credentials.Pair, len(c.Crawler.Credentials))
	for k, v := range c.Crawler.Credentials {
		raw[k] = credentials.Pair{Username: v.Username, Password: v.Password}
	}
	return credentials.NewStore(raw)
}

func loadEnvFile(v *viper.Viper) error {
	envPaths := []string{".", "./config"}
	for _, path := range envPaths {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			if err := loadDotEnvFile(envFile); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no .env file found")
}

func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("storage.base_path", "STORAGE_PATH")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("rate_limit.requests_per_second", 2)
	v.SetDefault("rate_limit.max_retries", 3)
	v.SetDefault("rate_limit.initial_backoff_ms", 100)
	v.SetDefault("rate_limit.max_backoff_ms", 30000)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_path", "./data/archives")
	v.SetDefault("storage.retention_days", 90)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	v.SetDefault("crawler.fan_out", 3)
	v.SetDefault("crawler.max_file_age_hours", 48)
}

// Get returns the global configuration.
func Get() *Config {
	return globalConfig
}

// GetDatabaseURL returns the database URL from config or environment.
func GetDatabaseURL() string {
	if cfg := Get(); cfg != nil && cfg.Database.URL != "" {
		return cfg.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}
