package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	// DatabaseURL wins over the discrete DB_* settings when set.
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBMaxConns  int32

	RedisURL string // empty disables cross-instance event fan-out

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool

	MaxBodyLength   int
	DefaultPageSize int
	MaxPageSize     int

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set take precedence over the file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBUser:          getEnv("DB_USER", "statusd"),
		DBPassword:      getEnv("DB_PASSWORD", "statusd_dev_password"),
		DBName:          getEnv("DB_NAME", "statusd"),
		DBMaxConns:      getEnvInt32("DB_MAX_CONNS", 20),
		RedisURL:        getEnv("REDIS_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		PrettyLog:       getEnvBool("PRETTY_LOG", false),
		MaxBodyLength:   getEnvInt("STATUS_MAX_BODY_LENGTH", 500),
		DefaultPageSize: getEnvInt("STATUS_DEFAULT_PAGE_SIZE", 50),
		MaxPageSize:     getEnvInt("STATUS_MAX_PAGE_SIZE", 100),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 5*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.DBMaxConns <= 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be > 0, got %d", c.DBMaxConns))
	}
	if c.MaxBodyLength <= 0 {
		errs = append(errs, fmt.Errorf("STATUS_MAX_BODY_LENGTH must be > 0, got %d", c.MaxBodyLength))
	}
	if c.MaxPageSize <= 0 {
		errs = append(errs, fmt.Errorf("STATUS_MAX_PAGE_SIZE must be > 0, got %d", c.MaxPageSize))
	}
	if c.DefaultPageSize <= 0 || c.DefaultPageSize > c.MaxPageSize {
		errs = append(errs, fmt.Errorf("STATUS_DEFAULT_PAGE_SIZE must be in [1, %d], got %d", c.MaxPageSize, c.DefaultPageSize))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be > 0, got %v", c.RequestTimeout))
	}
	return errors.Join(errs...)
}

func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvInt32 falls back on values that do not fit in 32 bits instead of
// truncating them.
func getEnvInt32(key string, fallback int32) int32 {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(v, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
