// Package config loads application settings from defaults, an optional TOML
// file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration.
type Config struct {
	HTTPPort    int         `toml:"http_port"`
	DatabaseURL string      `toml:"database_url"`
	DB          DBConfig    `toml:"db"`
	Redis       RedisConfig `toml:"redis"`
	Kafka       KafkaConfig `toml:"kafka"`
	JWTSecret   string      `toml:"jwt_secret"`
	LogLevel    string      `toml:"log_level"`
	AutoMigrate bool        `toml:"auto_migrate"`
	SessionTTL  Duration    `toml:"session_ttl"`
	// CORSOrigins are the exact origins allowed to make credentialed
	// cross-origin requests. Empty allows none.
	CORSOrigins []string `toml:"cors_origins"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	Schema   string `toml:"schema"`
	SSLMode  string `toml:"sslmode"`
	MaxIdle  int    `toml:"max_idle"`
	MaxOpen  int    `toml:"max_open"`
}

type RedisConfig struct {
	URL      string   `toml:"url"`
	PoolSize int      `toml:"pool_size"`
	TTL      Duration `toml:"ttl"`
}

type KafkaConfig struct {
	Brokers    []string `toml:"brokers"`
	Topic      string   `toml:"topic"`
	Partitions int      `toml:"partitions"`
	GroupID    string   `toml:"group_id"`
}

// Duration decodes TOML strings such as "30m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort: 8080,
		DB: DBConfig{
			Host:    "localhost",
			Port:    "5432",
			SSLMode: "disable",
			MaxIdle: 10,
			MaxOpen: 100,
		},
		Redis: RedisConfig{
			PoolSize: 50,
			TTL:      Duration{5 * time.Minute},
		},
		Kafka: KafkaConfig{
			Topic:      "todo-events",
			Partitions: 4,
			GroupID:    "todo-cache-invalidator",
		},
		LogLevel:   "info",
		SessionTTL: Duration{30 * time.Minute},
	}
}

// Load builds the configuration. path may be empty; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.HTTPPort = port
	}
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.DB.Host, "BLUEPRINT_DB_HOST")
	setString(&cfg.DB.Port, "BLUEPRINT_DB_PORT")
	setString(&cfg.DB.Username, "BLUEPRINT_DB_USERNAME")
	setString(&cfg.DB.Password, "BLUEPRINT_DB_PASSWORD")
	setString(&cfg.DB.Database, "BLUEPRINT_DB_DATABASE")
	setString(&cfg.DB.Schema, "BLUEPRINT_DB_SCHEMA")
	setString(&cfg.Redis.URL, "REDIS_URL")
	if v := os.Getenv("CACHE_TTL_SEC"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CACHE_TTL_SEC %q: %w", v, err)
		}
		cfg.Redis.TTL = Duration{time.Duration(secs) * time.Second}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	setString(&cfg.Kafka.Topic, "KAFKA_TOPIC")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	if v := os.Getenv("AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid AUTO_MIGRATE %q: %w", v, err)
		}
		cfg.AutoMigrate = b
	}
	return nil
}

// DSN returns DatabaseURL when set, otherwise a key/value DSN built from DB.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DB.Host, c.DB.Username, c.DB.Password, c.DB.Database, c.DB.Port, c.DB.SSLMode)
	if c.DB.Schema != "" {
		dsn += " search_path=" + c.DB.Schema
	}
	return dsn
}

// RedactedDSN is DSN with the password removed, for logs.
func (c *Config) RedactedDSN() string {
	if c.DatabaseURL != "" {
		u, err := url.Parse(c.DatabaseURL)
		if err != nil {
			return "<invalid DATABASE_URL>"
		}
		return u.Redacted()
	}
	return fmt.Sprintf("host=%s user=%s dbname=%s port=%s", c.DB.Host, c.DB.Username, c.DB.Database, c.DB.Port)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
