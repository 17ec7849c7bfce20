package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	SMTP      SMTPConfig
	Queue     QueueConfig
	Scheduler SchedulerConfig
	Admin     AdminConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host      string
	Port      string
	Namespace string
	Database  string
	User      string
	Password  string
}

// JWTConfig holds chat token verification settings
type JWTConfig struct {
	PrivateKeyPath string
	PublicKeyPath  string
	ExpirationMins int
	Issuer         string
}

// SMTPConfig holds delivery transport settings. When Host is empty the
// server runs with a logging transport instead of real SMTP.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	RatePerSec float64
	Burst      int
}

// QueueConfig holds dispatch queue settings
type QueueConfig struct {
	Workers         int
	Visibility      time.Duration
	ReclaimInterval time.Duration
	AttemptTimeout  time.Duration
}

// SchedulerConfig holds batch scheduler settings
type SchedulerConfig struct {
	Enabled       bool
	Timezone      string
	FollowUpAfter time.Duration
}

// AdminConfig holds operational endpoint settings. KeyHash is the bcrypt
// hash of the admin API key; an empty hash disables the admin surface.
type AdminConfig struct {
	KeyHash string
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Env:          getEnv("SERVER_ENV", "development"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:      getEnv("DB_HOST", "localhost"),
			Port:      getEnv("DB_PORT", "8000"),
			Namespace: getEnv("DB_NAMESPACE", "jobdeck"),
			Database:  getEnv("DB_DATABASE", "main"),
			User:      getEnv("DB_USER", "root"),
			Password:  getEnv("DB_PASSWORD", "root"),
		},
		JWT: JWTConfig{
			PrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
			PublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./keys/public.pem"),
			ExpirationMins: getIntEnv("JWT_EXPIRATION_MINS", 60),
			Issuer:         getEnv("JWT_ISSUER", "jobdeck-api"),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getIntEnv("SMTP_PORT", 587),
			Username:   getEnv("SMTP_USERNAME", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			From:       getEnv("SMTP_FROM", "notifications@jobdeck.dev"),
			RatePerSec: getFloatEnv("SMTP_RATE_PER_SEC", 10),
			Burst:      getIntEnv("SMTP_BURST", 20),
		},
		Queue: QueueConfig{
			Workers:         getIntEnv("QUEUE_WORKERS", 4),
			Visibility:      getDurationEnv("QUEUE_VISIBILITY", 5*time.Minute),
			ReclaimInterval: getDurationEnv("QUEUE_RECLAIM_INTERVAL", 30*time.Second),
			AttemptTimeout:  getDurationEnv("QUEUE_ATTEMPT_TIMEOUT", 30*time.Second),
		},
		Scheduler: SchedulerConfig{
			Enabled:       getBoolEnv("SCHEDULER_ENABLED", true),
			Timezone:      getEnv("SCHEDULER_TIMEZONE", "UTC"),
			FollowUpAfter: getDurationEnv("SCHEDULER_FOLLOW_UP_AFTER", 7*24*time.Hour),
		},
		Admin: AdminConfig{
			KeyHash: getEnv("ADMIN_KEY_HASH", ""),
		},
	}, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}

	// Database validation
	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.Namespace == "" {
		errs = append(errs, errors.New("DB_NAMESPACE is required"))
	}
	if c.Database.Database == "" {
		errs = append(errs, errors.New("DB_DATABASE is required"))
	}

	// JWT validation - the gateway verifies, it never signs
	if c.JWT.PublicKeyPath == "" {
		errs = append(errs, errors.New("JWT_PUBLIC_KEY_PATH is required"))
	}
	if c.JWT.ExpirationMins <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINS must be positive"))
	}

	// SMTP validation - if any field is set, require the connection trio
	if c.SMTP.IsConfigured() {
		if err := c.SMTP.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("SMTP: %w", err))
		}
	} else if c.IsProduction() {
		errs = append(errs, errors.New("SMTP_HOST is required in production"))
	}

	// Queue validation
	if c.Queue.Workers <= 0 {
		errs = append(errs, errors.New("QUEUE_WORKERS must be positive"))
	}
	if c.Queue.Visibility <= 0 {
		errs = append(errs, errors.New("QUEUE_VISIBILITY must be positive"))
	}
	if c.Queue.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("QUEUE_ATTEMPT_TIMEOUT must be positive"))
	}

	// Scheduler validation
	if c.Scheduler.Enabled {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("SCHEDULER_TIMEZONE is invalid: %w", err))
		}
		if c.Scheduler.FollowUpAfter <= 0 {
			errs = append(errs, errors.New("SCHEDULER_FOLLOW_UP_AFTER must be positive"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// IsConfigured returns true if any SMTP connection field is set
func (s SMTPConfig) IsConfigured() bool {
	return s.Host != "" || s.Username != "" || s.Password != ""
}

// Validate checks that all required SMTP fields are present
func (s SMTPConfig) Validate() error {
	var missing []string
	if s.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if s.Port <= 0 {
		missing = append(missing, "SMTP_PORT")
	}
	if s.From == "" {
		missing = append(missing, "SMTP_FROM")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if s.RatePerSec <= 0 {
		return errors.New("SMTP_RATE_PER_SEC must be positive")
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
