package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Storage backends
const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Port                 string
	AppURL               string
	StorageBackend       string
	Mongo                MongoConfig
	PostgresDSN          string
	RedisURL             string
	SchemaCacheTTL       time.Duration
	RemoteTimeout        time.Duration
	EncryptionKey        string
	Broker               BrokerConfig
	Shopify              ShopifyConfig
	VerifyBeforeDispatch bool
	DispatchLogEnabled   bool
	LogLevel             zerolog.Level
}

type MongoConfig struct {
	URI      string
	Database string
}

type ShopifyConfig struct {
	APIKey    string
	APISecret string
}

type BrokerConfig struct {
	URL      string
	ClientID string
	Username string
	Password string
}

// Enabled reports whether dispatch events are published to a broker
func (c BrokerConfig) Enabled() bool {
	return c.URL != ""
}

// Load reads .env (when present) and the process environment
func Load() (*Config, error) {
	godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AppURL:         getEnv("APP_URL", "http://localhost:8080"),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageMongo)),
		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "archie_forms"),
		},
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		Broker: BrokerConfig{
			URL:      getEnv("BROKER_URL", ""),
			ClientID: getEnv("BROKER_CLIENT_ID", "forms-layer"),
			Username: getEnv("BROKER_USERNAME", ""),
			Password: getEnv("BROKER_PASSWORD", ""),
		},
		Shopify: ShopifyConfig{
			APIKey:    getEnv("SHOPIFY_API_KEY", ""),
			APISecret: getEnv("SHOPIFY_API_SECRET", ""),
		},
	}

	var err error
	if cfg.SchemaCacheTTL, err = getDuration("SCHEMA_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RemoteTimeout, err = getDuration("REMOTE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.VerifyBeforeDispatch, err = getBool("VERIFY_BEFORE_DISPATCH", false); err != nil {
		return nil, err
	}
	if cfg.DispatchLogEnabled, err = getBool("DISPATCH_LOG_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings for the selected backend
func (c *Config) Validate() error {
	if c.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY environment variable is required")
	}
	switch c.StorageBackend {
	case StorageMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo backend")
		}
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
