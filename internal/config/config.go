// Package config provides configuration structures and validation for the
// account and transaction services. It handles environment-based configuration
// for the HTTP servers, the ledger and transaction-log stores, Kafka, identity
// verification and the collaborator service addresses.
package config

import (
	"errors"
	"strings"
	"time"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Auth modes
const (
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"
)

const (
	EnvProduction = "production"

	// DefaultJWTSecret is only acceptable outside production
	DefaultJWTSecret = "development-secret-change-me"
)

// Config holds the complete application configuration with settings for all components.
// Both binaries load the same structure and use the sections relevant to them.
type Config struct {
	Application    ApplicationConfig
	Logging        LoggingConfig
	Server         ServerConfig
	Ledger         LedgerConfig
	TransactionLog TransactionLogConfig
	Kafka          KafkaConfig
	Postgres       PostgresConfig
	MongoDB        MongoDBConfig
	Outbox         OutboxConfig
	WorkerPool     WorkerPoolConfig
	Auth           AuthConfig
	Services       ServicesConfig
	AccountClient  AccountClientConfig
	RateLimit      RateLimitConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// LedgerConfig selects the account store backing the account service
type LedgerConfig struct {
	Driver string // postgres or memory
}

// TransactionLogConfig selects the store backing the transaction log
type TransactionLogConfig struct {
	Driver string // mongo or memory
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Enabled           bool
	Brokers           string
	EventsTopic       string // Balance change events relayed from the outbox
	AlertsTopic       string // Operator alerts for unreconciled transfers
	NumPartitions     int    // Number of partitions for topics
	ReplicationFactor int    // Replication factor for topics
	WriteTimeout      time.Duration
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Maximum number of retry attempts for outbox messages
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of concurrently executing money movements
}

// AuthConfig contains identity verification settings
type AuthConfig struct {
	Mode           string // jwt verifies locally, remote asks the auth service
	JWTSecret      string
	InternalAPIKey string // Required on internal endpoints when set
}

// ServicesConfig contains the static addresses used by the service resolver
type ServicesConfig struct {
	AccountServiceURL string
	AuthServiceURL    string
}

// AccountClientConfig contains settings for calls to the account service
type AccountClientConfig struct {
	Timeout time.Duration // Zero disables the client-side timeout
}

// RateLimitConfig contains per-caller request rate limits
type RateLimitConfig struct {
	RequestsPerSecond float64 // Zero disables rate limiting
	Burst             int
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate store drivers
	switch c.Ledger.Driver {
	case DriverPostgres, DriverMemory:
	default:
		validationErrors = append(validationErrors, "LEDGER_DRIVER must be one of: postgres, memory")
	}
	switch c.TransactionLog.Driver {
	case DriverMongo, DriverMemory:
	default:
		validationErrors = append(validationErrors, "TRANSACTION_LOG_DRIVER must be one of: mongo, memory")
	}

	// Validate Kafka config
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
		}
		if c.Kafka.EventsTopic == "" {
			validationErrors = append(validationErrors, "KAFKA_EVENTS_TOPIC is required")
		}
		if c.Kafka.AlertsTopic == "" {
			validationErrors = append(validationErrors, "KAFKA_ALERTS_TOPIC is required")
		}
		if c.Kafka.WriteTimeout <= 0 {
			validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
		}
	}

	// Validate PostgreSQL config
	if c.Ledger.Driver == DriverPostgres {
		if c.Postgres.URL == "" {
			validationErrors = append(validationErrors, "POSTGRES_URL is required")
		}
		if c.Postgres.MaxConns <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
		}
		if c.Postgres.MinConns <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
		}
		if c.Postgres.ConnMaxLifetime <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
		}
		if c.Postgres.ConnMaxIdleTime <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
		}
	}

	// Validate MongoDB config
	if c.TransactionLog.Driver == DriverMongo {
		if c.MongoDB.URI == "" {
			validationErrors = append(validationErrors, "MONGO_URI is required")
		}
		if c.MongoDB.Database == "" {
			validationErrors = append(validationErrors, "MONGO_DATABASE is required")
		}
		if c.MongoDB.Timeout <= 0 {
			validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
		}
		if c.MongoDB.MaxPoolSize <= 0 {
			validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
		}
		if c.MongoDB.MinPoolSize <= 0 {
			validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
		}
		if c.MongoDB.MaxConnIdleTime <= 0 {
			validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
		}
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate Auth config
	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			validationErrors = append(validationErrors, "JWT_SECRET is required when AUTH_MODE is jwt")
		}
	case AuthModeRemote:
		if c.Services.AuthServiceURL == "" {
			validationErrors = append(validationErrors, "AUTH_SERVICE_URL is required when AUTH_MODE is remote")
		}
	default:
		validationErrors = append(validationErrors, "AUTH_MODE must be one of: jwt, remote")
	}
	if c.Application.Env == EnvProduction {
		if c.Auth.Mode == AuthModeJWT && c.Auth.JWTSecret == DefaultJWTSecret {
			validationErrors = append(validationErrors, "JWT_SECRET must be changed from the default in production")
		}
		if c.Auth.InternalAPIKey == "" {
			validationErrors = append(validationErrors, "INTERNAL_API_KEY is required in production")
		}
	}

	// Validate collaborator settings
	if c.Services.AccountServiceURL == "" {
		validationErrors = append(validationErrors, "ACCOUNT_SERVICE_URL is required")
	}
	if c.AccountClient.Timeout < 0 {
		validationErrors = append(validationErrors, "ACCOUNT_CLIENT_TIMEOUT cannot be negative")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		validationErrors = append(validationErrors, "RATE_LIMIT_RPS cannot be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		validationErrors = append(validationErrors, "RATE_LIMIT_BURST must be greater than 0 when rate limiting is enabled")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
