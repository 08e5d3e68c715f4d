package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Server   ServerConfig
	Sync     SyncConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings for the cross-node event
// relay.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr        string
	ReadTimeout time.Duration
	CORSOrigins []string
}

// SyncConfig tunes the realtime engine.
type SyncConfig struct {
	FlushDebounce    time.Duration
	FlushMaxAttempts int
	FlushBackoff     time.Duration
	HeartbeatTimeout time.Duration
	MailboxSize      int
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("MURAL_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("MURAL_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("MURAL_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("MURAL_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("MURAL_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("MURAL_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	flushDebounce, err := getEnvDuration("MURAL_FLUSH_DEBOUNCE", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	flushMaxAttempts, err := getEnvInt("MURAL_FLUSH_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	flushBackoff, err := getEnvDuration("MURAL_FLUSH_BACKOFF", 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	heartbeatTimeout, err := getEnvDuration("MURAL_WS_HEARTBEAT_TIMEOUT", 45*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	mailboxSize, err := getEnvInt("MURAL_BOARD_MAILBOX_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("MURAL_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("MURAL_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("MURAL_DB_USER", "mural"),
			Password: getEnv("MURAL_DB_PASSWORD", ""),
			DBName:   getEnv("MURAL_DB_NAME", "mural_dev"),
			SSLMode:  getEnv("MURAL_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("MURAL_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("MURAL_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:     getEnv("MURAL_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:        getEnv("MURAL_SERVER_ADDR", ":8080"),
			ReadTimeout: readTimeout,
			CORSOrigins: corsOrigins,
		},
		Sync: SyncConfig{
			FlushDebounce:    flushDebounce,
			FlushMaxAttempts: flushMaxAttempts,
			FlushBackoff:     flushBackoff,
			HeartbeatTimeout: heartbeatTimeout,
			MailboxSize:      mailboxSize,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("MURAL_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("MURAL_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.SSLMode == "disable" {
		log.Warn().Msg("MURAL_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("MURAL_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("MURAL_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("MURAL_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("MURAL_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("MURAL_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Sync.FlushDebounce <= 0 {
		return fmt.Errorf("MURAL_FLUSH_DEBOUNCE must be positive, got %s", c.Sync.FlushDebounce)
	}
	if c.Sync.FlushMaxAttempts < 1 {
		return fmt.Errorf("MURAL_FLUSH_MAX_ATTEMPTS must be >= 1, got %d", c.Sync.FlushMaxAttempts)
	}
	if c.Sync.FlushBackoff <= 0 {
		return fmt.Errorf("MURAL_FLUSH_BACKOFF must be positive, got %s", c.Sync.FlushBackoff)
	}
	if c.Sync.HeartbeatTimeout <= 0 {
		return fmt.Errorf("MURAL_WS_HEARTBEAT_TIMEOUT must be positive, got %s", c.Sync.HeartbeatTimeout)
	}
	if c.Sync.MailboxSize < 1 {
		return fmt.Errorf("MURAL_BOARD_MAILBOX_SIZE must be >= 1, got %d", c.Sync.MailboxSize)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
