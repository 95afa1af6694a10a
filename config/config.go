// Package config has the configuration file for the app
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment is the deployment stage the server runs in
type Environment int

const (
	EnvDevelopment Environment = iota
	EnvStaging
	EnvProduction
	EnvTest
)

func (e Environment) String() string {
	switch e {
	case EnvStaging:
		return "staging"
	case EnvProduction:
		return "prod"
	case EnvTest:
		return "test"
	default:
		return "dev"
	}
}

// ParseEnvironment maps an ENV value to an Environment
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	DBDriver       string
	DBDSN          string
	DBQueryTimeout time.Duration

	CacheBackend string
	CacheTTL     time.Duration
	RedisAddr    string

	IngestDir      string
	IngestSchedule string        // gocron At() expression, times separated by ';'
	IngestTimeout  time.Duration // bounds one bulk load, independent of DBQueryTimeout

	DevEndpoints bool
	DevAPIToken  string
}

// LoadDotEnv reads a .env file from the working directory, falling back to
// the directory of the executable. A missing file is not an error.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	ex, exErr := os.Executable()
	if exErr != nil {
		return nil
	}
	err = godotenv.Load(filepath.Join(filepath.Dir(ex), ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               env,
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		DBDriver:       strings.ToLower(getEnvWithDefault("DB_DRIVER", "sqlite")),
		DBDSN:          getEnvWithDefault("DB_DSN", "drugbase.db"),
		DBQueryTimeout: getDurationEnvWithDefault("DB_QUERY_TIMEOUT", 5*time.Second),

		CacheBackend: strings.ToLower(getEnvWithDefault("CACHE_BACKEND", CacheNone)),
		CacheTTL:     getDurationEnvWithDefault("CACHE_TTL", time.Minute),
		RedisAddr:    os.Getenv("REDIS_ADDR"),

		IngestDir:      os.Getenv("INGEST_DIR"),
		IngestSchedule: getEnvWithDefault("INGEST_SCHEDULE", "06:00;18:00"),
		IngestTimeout:  getDurationEnvWithDefault("INGEST_TIMEOUT", 10*time.Minute),

		// dev routes are on by default only outside staging and production
		DevEndpoints: getBoolEnvWithDefault("DEV_ENDPOINTS", env == EnvDevelopment || env == EnvTest),
		DevAPIToken:  os.Getenv("DEV_API_TOKEN"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	// Validate PORT
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	// Validate ADDRESS
	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	// Validate LOG_LEVEL
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	// Validate MAX_REQUEST_BODY
	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	// Validate MAX_HEADER_SIZE
	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	// Validate LOG_RETENTION_WEEKS
	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	// Validate MAX_LOG_FILE_SIZE
	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateDatabase(cfg.DBDriver, cfg.DBDSN); err != nil {
		return fmt.Errorf("invalid DB_DRIVER/DB_DSN: %w", err)
	}

	if err := validateTimeout(cfg.DBQueryTimeout); err != nil {
		return fmt.Errorf("invalid DB_QUERY_TIMEOUT: %w", err)
	}

	if err := validateCache(cfg.CacheBackend, cfg.CacheTTL, cfg.RedisAddr); err != nil {
		return fmt.Errorf("invalid CACHE_BACKEND: %w", err)
	}

	if err := validateSchedule(cfg.IngestSchedule); err != nil {
		return fmt.Errorf("invalid INGEST_SCHEDULE: %w", err)
	}

	if err := validateIngestTimeout(cfg.IngestTimeout); err != nil {
		return fmt.Errorf("invalid INGEST_TIMEOUT: %w", err)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Check for privileged ports
	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" || address == "0.0.0.0" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	// Check for private network ranges (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16)
	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateDatabase checks the driver name and that Postgres gets a DSN
func validateDatabase(driver, dsn string) error {
	switch driver {
	case "sqlite", "sqlite3":
		return nil
	case "postgres", "postgresql", "pgx":
		if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") &&
			!strings.Contains(dsn, "host=") {
			return fmt.Errorf("postgres DSN must be a postgres:// URL or a key=value string, got: %s", dsn)
		}
		return nil
	}
	return fmt.Errorf("DB_DRIVER must be one of: [sqlite postgres], got: %s", driver)
}

// validateTimeout validates DB_QUERY_TIMEOUT
func validateTimeout(d time.Duration) error {
	if d < 100*time.Millisecond {
		return fmt.Errorf("DB_QUERY_TIMEOUT is too small (min 100ms), got: %s", d)
	}
	if d > time.Minute {
		return fmt.Errorf("DB_QUERY_TIMEOUT is too large (max 1m), got: %s", d)
	}
	return nil
}

// validateIngestTimeout validates INGEST_TIMEOUT
func validateIngestTimeout(d time.Duration) error {
	if d < time.Second {
		return fmt.Errorf("INGEST_TIMEOUT is too small (min 1s), got: %s", d)
	}
	if d > 2*time.Hour {
		return fmt.Errorf("INGEST_TIMEOUT is too large (max 2h), got: %s", d)
	}
	return nil
}

// validateCache checks the backend name and its dependencies
func validateCache(backend string, ttl time.Duration, redisAddr string) error {
	switch backend {
	case CacheNone:
		return nil
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of: [none memory redis], got: %s", backend)
	}

	if ttl <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got: %s", ttl)
	}
	if backend == CacheRedis {
		if redisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND is redis")
		}
		if _, _, err := net.SplitHostPort(redisAddr); err != nil {
			return fmt.Errorf("REDIS_ADDR must be host:port: %w", err)
		}
	}
	return nil
}

// validateSchedule checks that every time of day in a ';' separated list is HH:MM
func validateSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("INGEST_SCHEDULE cannot be empty")
	}
	for _, at := range strings.Split(schedule, ";") {
		if _, err := time.Parse("15:04", strings.TrimSpace(at)); err != nil {
			return fmt.Errorf("INGEST_SCHEDULE entries must be HH:MM, got: %q", at)
		}
	}
	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault accepts Go durations ("5s") or plain seconds ("5")
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"DB_DRIVER",
		"DB_DSN",
		"DB_QUERY_TIMEOUT",
		"CACHE_BACKEND",
		"CACHE_TTL",
		"REDIS_ADDR",
		"INGEST_DIR",
		"INGEST_SCHEDULE",
		"INGEST_TIMEOUT",
		"DEV_ENDPOINTS",
		"DEV_API_TOKEN",
	}
}
