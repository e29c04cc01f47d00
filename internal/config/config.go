package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins []string
	GinMode        string
}

// DatabaseConfig holds database configuration settings
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
}

// DSN returns the connection string, preferring DATABASE_URL when set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// RankingConfig tunes the hot score and the background rescore sweep.
type RankingConfig struct {
	Gravity         float64
	RescoreInterval time.Duration // 0 disables the sweep
	RescoreBatch    int
}

// FeedConfig tunes feed pagination and the page cache.
type FeedConfig struct {
	PageSize int
	MaxLimit int
	CacheTTL time.Duration // 0 disables caching
}

type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// Config holds the complete application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Ranking   RankingConfig
	Feed      FeedConfig
	Log       LogConfig
	JWTSecret string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("gin_mode", "release")

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_name", "postgres")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_max_idle_conns", 10)
	v.SetDefault("db_max_open_conns", 100)
	v.SetDefault("db_conn_max_lifetime", time.Hour)
	v.SetDefault("db_slow_threshold", time.Second)

	v.SetDefault("hot_gravity", 1.8)
	v.SetDefault("rescore_interval", 10*time.Minute)
	v.SetDefault("rescore_batch", 500)

	v.SetDefault("feed_page_size", 20)
	v.SetDefault("feed_max_limit", 100)
	v.SetDefault("feed_cache_ttl", 30*time.Second)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads .env (if present), an optional config.yaml, and the environment,
// in increasing order of precedence.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds and validates a Config from an already-populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetInt("port"),
			Host:           v.GetString("host"),
			AllowedOrigins: splitList(v.GetString("allowed_origins")),
			GinMode:        v.GetString("gin_mode"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database_url"),
			Host:            v.GetString("db_host"),
			Port:            v.GetInt("db_port"),
			User:            v.GetString("db_user"),
			Password:        v.GetString("db_password"),
			Name:            v.GetString("db_name"),
			SSLMode:         v.GetString("db_sslmode"),
			MaxIdleConns:    v.GetInt("db_max_idle_conns"),
			MaxOpenConns:    v.GetInt("db_max_open_conns"),
			ConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
			SlowThreshold:   v.GetDuration("db_slow_threshold"),
		},
		Ranking: RankingConfig{
			Gravity:         v.GetFloat64("hot_gravity"),
			RescoreInterval: v.GetDuration("rescore_interval"),
			RescoreBatch:    v.GetInt("rescore_batch"),
		},
		Feed: FeedConfig{
			PageSize: v.GetInt("feed_page_size"),
			MaxLimit: v.GetInt("feed_max_limit"),
			CacheTTL: v.GetDuration("feed_cache_ttl"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log_level")),
			Format: strings.ToLower(v.GetString("log_format")),
		},
		JWTSecret: v.GetString("jwt_secret"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if c.Database.URL == "" && c.Database.User == "" {
		return errors.New("DB_USER environment variable is required when DATABASE_URL is not set")
	}
	if c.Ranking.Gravity <= 0 {
		return fmt.Errorf("HOT_GRAVITY must be positive, got %v", c.Ranking.Gravity)
	}
	if c.Feed.PageSize <= 0 || c.Feed.MaxLimit < c.Feed.PageSize {
		return fmt.Errorf("invalid feed limits: page size %d, max %d", c.Feed.PageSize, c.Feed.MaxLimit)
	}
	if c.Ranking.RescoreBatch <= 0 {
		c.Ranking.RescoreBatch = 500
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
