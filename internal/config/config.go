package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Redis    RedisConfig
	Payroll  PayrollConfig
	Cron     CronConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret                    string
	AccessTokenExpirationTime string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// RedisConfig is optional. An empty Addr disables idempotent replay.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

// PayrollConfig holds the attendance normalization and pay rules.
type PayrollConfig struct {
	DefaultMonthUnitsDivisor int
	PartialDayMinutes        int
	OpenSessionIsPartial     bool
	LeaveCountsWeekends      bool
}

type CronConfig struct {
	Enabled                 bool
	LocationRefreshInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, using process environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "payroll-engine"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: maxConns,
		MinConns: minConns,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	config.JWT = JWTConfig{
		Secret:                    getEnv("JWT_SECRET_KEY", ""),
		AccessTokenExpirationTime: getEnv("JWT_ACCESS_TOKEN_EXPIRATION_TIME", "15m"),
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	idempTTL, err := time.ParseDuration(getEnv("IDEMPOTENCY_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:           getEnv("REDIS_ADDR", ""),
		Password:       getEnv("REDIS_PASSWORD", ""),
		DB:             redisDB,
		IdempotencyTTL: idempTTL,
	}

	// Payroll rules
	divisor, err := strconv.Atoi(getEnv("PAYROLL_MONTH_UNITS_DIVISOR", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_MONTH_UNITS_DIVISOR: %w", err)
	}
	partialMinutes, err := strconv.Atoi(getEnv("PAYROLL_PARTIAL_DAY_MINUTES", "240"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_PARTIAL_DAY_MINUTES: %w", err)
	}
	openPartial, err := strconv.ParseBool(getEnv("PAYROLL_OPEN_SESSION_IS_PARTIAL", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_OPEN_SESSION_IS_PARTIAL: %w", err)
	}
	leaveWeekends, err := strconv.ParseBool(getEnv("PAYROLL_LEAVE_COUNTS_WEEKENDS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_LEAVE_COUNTS_WEEKENDS: %w", err)
	}

	config.Payroll = PayrollConfig{
		DefaultMonthUnitsDivisor: divisor,
		PartialDayMinutes:        partialMinutes,
		OpenSessionIsPartial:     openPartial,
		LeaveCountsWeekends:      leaveWeekends,
	}

	// Cron configuration
	cronEnabled, err := strconv.ParseBool(getEnv("CRON_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_ENABLED: %w", err)
	}
	refreshInterval, err := time.ParseDuration(getEnv("CRON_LOCATION_REFRESH_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_LOCATION_REFRESH_INTERVAL: %w", err)
	}

	config.Cron = CronConfig{
		Enabled:                 cronEnabled,
		LocationRefreshInterval: refreshInterval,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Payroll.DefaultMonthUnitsDivisor < 1 {
		return fmt.Errorf("PAYROLL_MONTH_UNITS_DIVISOR must be at least 1")
	}
	if c.Payroll.PartialDayMinutes < 0 {
		return fmt.Errorf("PAYROLL_PARTIAL_DAY_MINUTES must not be negative")
	}
	if c.Cron.Enabled && c.Cron.LocationRefreshInterval <= 0 {
		return fmt.Errorf("CRON_LOCATION_REFRESH_INTERVAL must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string, fallback string) []string {
	value := getEnv(env, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}
