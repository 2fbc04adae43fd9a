package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	// Server configuration
	Environment string
	Port        int
	MetricsPort int

	// Storage configuration
	StoreDriver     string
	SQLitePath      string
	DatabaseURL     string
	MigrationsPath  string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Authentication
	JWTSecret     string
	JWTExpiration time.Duration

	// TLS Configuration
	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string

	// Observability
	OTLPEndpoint string
	LogLevel     string
	LogFormat    string // json or console

	// Graceful Shutdown
	ShutdownTimeout time.Duration

	// Feature Flags
	EnableMetrics    bool
	EnableTracing    bool
	EnableReflection bool

	// Reminders
	CheckRemindersOnStart bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	ReminderDedupTTL      time.Duration
	NATSURL               string
	ReminderSubject       string

	// Remote mirror
	RemoteSyncURL     string
	RemoteSyncTimeout time.Duration
}

func Load() (*Config, error) {
	// Load .env file if exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnvAsInt("PORT", 8080),
		MetricsPort: getEnvAsInt("METRICS_PORT", 9090),

		// Storage
		StoreDriver:     getEnv("STORE_DRIVER", DriverSQLite),
		SQLitePath:      getEnv("SQLITE_PATH", "todo.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),

		// Auth
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTExpiration: getEnvAsDuration("JWT_EXPIRATION", 24*time.Hour),

		// TLS
		TLSEnabled:  getEnvAsBool("TLS_ENABLED", false),
		TLSCertFile: getEnv("TLS_CERT_FILE", "/etc/tls/tls.crt"),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", "/etc/tls/tls.key"),

		// Observability
		OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4317"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),

		// Graceful Shutdown
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		// Feature Flags
		EnableMetrics:    getEnvAsBool("ENABLE_METRICS", true),
		EnableTracing:    getEnvAsBool("ENABLE_TRACING", false),
		EnableReflection: getEnvAsBool("ENABLE_REFLECTION", false),

		// Reminders
		CheckRemindersOnStart: getEnvAsBool("CHECK_REMINDERS_ON_START", true),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvAsInt("REDIS_DB", 0),
		ReminderDedupTTL:      getEnvAsDuration("REMINDER_DEDUP_TTL", 2*time.Hour),
		NATSURL:               getEnv("NATS_URL", ""),
		ReminderSubject:       getEnv("REMINDER_SUBJECT", "todo.reminders"),

		// Remote mirror
		RemoteSyncURL:     getEnv("REMOTE_SYNC_URL", ""),
		RemoteSyncTimeout: getEnvAsDuration("REMOTE_SYNC_TIMEOUT", 10*time.Second),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid store driver: %s (valid: sqlite, postgres)", c.StoreDriver)
	}

	// JWT secret is required in production
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	// TLS files must exist if TLS is enabled
	if c.TLSEnabled {
		if c.TLSCertFile == "" || c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE are required when TLS is enabled")
		}
		if _, err := os.Stat(c.TLSCertFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", c.TLSCertFile)
		}
		if _, err := os.Stat(c.TLSKeyFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", c.TLSKeyFile)
		}
	}

	// Port validation
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}

	// Connection pool validation
	if c.MaxOpenConns < c.MaxIdleConns {
		return fmt.Errorf("max_open_conns (%d) must be >= max_idle_conns (%d)",
			c.MaxOpenConns, c.MaxIdleConns)
	}

	if c.RedisAddr != "" && c.ReminderDedupTTL <= 0 {
		return fmt.Errorf("REMINDER_DEDUP_TTL must be positive when REDIS_ADDR is set")
	}

	// Log level validation
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}

	// Log format validation
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.LogFormat)
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

type DatabaseConfig struct {
	Driver          string
	SQLitePath      string
	URL             string
	MigrationsPath  string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (c *Config) GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          c.StoreDriver,
		SQLitePath:      c.SQLitePath,
		URL:             c.DatabaseURL,
		MigrationsPath:  c.MigrationsPath,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
	}
}

type ServerConfig struct {
	Port             int
	MetricsPort      int
	TLSEnabled       bool
	TLSCertFile      string
	TLSKeyFile       string
	ShutdownTimeout  time.Duration
	EnableReflection bool
}

func (c *Config) GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:             c.Port,
		MetricsPort:      c.MetricsPort,
		TLSEnabled:       c.TLSEnabled,
		TLSCertFile:      c.TLSCertFile,
		TLSKeyFile:       c.TLSKeyFile,
		ShutdownTimeout:  c.ShutdownTimeout,
		EnableReflection: c.EnableReflection || !c.IsProduction(),
	}
}

type ObservabilityConfig struct {
	EnableMetrics bool
	EnableTracing bool
	OTLPEndpoint  string
	LogLevel      string
	LogFormat     string
}

func (c *Config) GetObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		EnableMetrics: c.EnableMetrics,
		EnableTracing: c.EnableTracing,
		OTLPEndpoint:  c.OTLPEndpoint,
		LogLevel:      c.LogLevel,
		LogFormat:     c.LogFormat,
	}
}

type ReminderConfig struct {
	CheckOnStart  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DedupTTL      time.Duration
	NATSURL       string
	Subject       string
}

func (c *Config) GetReminderConfig() ReminderConfig {
	return ReminderConfig{
		CheckOnStart:  c.CheckRemindersOnStart,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		DedupTTL:      c.ReminderDedupTTL,
		NATSURL:       c.NATSURL,
		Subject:       c.ReminderSubject,
	}
}
