// config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Application identity reported by /api/version
const (
	AppName    = "SPEEDDATING"
	AppVersion = "1.0.0"
)

// Store, feedback and lock drivers
const (
	StoreMongo      = "mongo"
	StoreMemory     = "memory"
	StoreCassandra  = "cassandra"
	LockDriverRedis = "redis"
	LockDriverLocal = "local"
)

// Config holds every setting read from the environment
type Config struct {
	Env        string `env:"ENV" envDefault:"production"`
	ServerPort int    `env:"SERVER_PORT" envDefault:"8088"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"speeddating"`

	// FeedbackStore follows StoreDriver when unset
	FeedbackStore     string `env:"FEEDBACK_STORE"`
	CassandraHost     string `env:"CASSANDRA_HOST" envDefault:"localhost"`
	CassandraPort     int    `env:"CASSANDRA_PORT" envDefault:"9042"`
	CassandraUsername string `env:"CASSANDRA_USERNAME" envDefault:"cassandra"`
	CassandraPassword string `env:"CASSANDRA_PASSWORD" envDefault:"cassandra"`
	CassandraKeyspace string `env:"CASSANDRA_KEYSPACE" envDefault:"speeddating"`

	LockDriver    string `env:"LOCK_DRIVER" envDefault:"redis"`
	RedisURL      string `env:"REDIS_URL" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AuthJWTSecret string `env:"AUTH_JWT_SECRET"`

	SchedulerEnabled  bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"30s"`
	SessionLockTTL    time.Duration `env:"SESSION_LOCK_TTL" envDefault:"15s"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file, then parses and validates the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}
	if cfg.FeedbackStore == "" {
		cfg.FeedbackStore = cfg.StoreDriver
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env parsing cannot
func (c *Config) Validate() error {
	if c.AuthJWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be a valid port, got %d", c.ServerPort)
	}
	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DATABASE are required when STORE_DRIVER=mongo")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.StoreDriver)
	}
	switch c.FeedbackStore {
	case StoreMongo:
		if c.StoreDriver == StoreMemory {
			return fmt.Errorf("FEEDBACK_STORE=mongo requires STORE_DRIVER=mongo")
		}
	case StoreCassandra:
		if c.CassandraHost == "" || c.CassandraKeyspace == "" {
			return fmt.Errorf("CASSANDRA_HOST and CASSANDRA_KEYSPACE are required when FEEDBACK_STORE=cassandra")
		}
	case StoreMemory:
		if c.StoreDriver != StoreMemory {
			return fmt.Errorf("FEEDBACK_STORE=memory requires STORE_DRIVER=memory")
		}
	default:
		return fmt.Errorf("FEEDBACK_STORE must be %q, %q or %q, got %q", StoreMongo, StoreCassandra, StoreMemory, c.FeedbackStore)
	}
	switch c.LockDriver {
	case LockDriverRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when LOCK_DRIVER=redis")
		}
	case LockDriverLocal:
	default:
		return fmt.Errorf("LOCK_DRIVER must be %q or %q, got %q", LockDriverRedis, LockDriverLocal, c.LockDriver)
	}
	if c.SchedulerEnabled && c.SchedulerInterval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be positive, got %s", c.SchedulerInterval)
	}
	if c.SessionLockTTL <= 0 {
		return fmt.Errorf("SESSION_LOCK_TTL must be positive, got %s", c.SessionLockTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// IsDevelopment reports whether ENV=development
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
