package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/smarttransit/seat-booking-engine/internal/utils"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration (schedule cache and event stream)
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Seat hold and booking lifecycle configuration
	Booking BookingConfig

	// Payment outcome transport configuration
	Payment PaymentConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL              string
	ScheduleCacheTTL time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret              string
	AccessTokenExpiry   time.Duration
	BoardingTokenSecret string
	AuthEnabled         bool
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Store drivers
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

// BookingConfig holds hold/booking timing and limits
type BookingConfig struct {
	HoldDuration       time.Duration // default hold lifetime
	HoldMaxDuration    time.Duration // upper bound for caller supplied durations
	PendingBookingTTL  time.Duration // time a PENDING booking waits for payment
	SweepInterval      time.Duration
	SweepBatchSize     int
	MaxSeatsPerBooking int
	DefaultCurrency    string
	StoreDriver        string // "memory" or "postgres"
	CatalogSeedFile    string // JSON schedules loaded into the in-memory catalog
}

// Event transports
const (
	EventTransportMemory = "memory"
	EventTransportRedis  = "redis"
)

// PaymentConfig holds the payment outcome event transport settings
type PaymentConfig struct {
	EventTransport string // "memory" (in-process) or "redis" (redis streams)
	ConsumerGroup  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			URL:              getEnv("REDIS_URL", ""),
			ScheduleCacheTTL: getEnvAsDuration("SCHEDULE_CACHE_TTL", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:              getEnv("JWT_SECRET", ""),
			AccessTokenExpiry:   time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			BoardingTokenSecret: getEnv("BOARDING_TOKEN_SECRET", ""),
			AuthEnabled:         getEnvAsBool("AUTH_ENABLED", true),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Booking: BookingConfig{
			HoldDuration:       getEnvAsDuration("HOLD_DURATION", 15*time.Minute),
			HoldMaxDuration:    getEnvAsDuration("HOLD_MAX_DURATION", 60*time.Minute),
			PendingBookingTTL:  getEnvAsDuration("PENDING_BOOKING_TTL", 30*time.Minute),
			SweepInterval:      getEnvAsDuration("SWEEP_INTERVAL", 30*time.Second),
			SweepBatchSize:     getEnvAsInt("SWEEP_BATCH_SIZE", 500),
			MaxSeatsPerBooking: getEnvAsInt("MAX_SEATS_PER_BOOKING", 10),
			DefaultCurrency:    getEnv("DEFAULT_CURRENCY", "LKR"),
			StoreDriver:        getEnv("STORE_DRIVER", StoreDriverMemory),
			CatalogSeedFile:    getEnv("CATALOG_SEED_FILE", ""),
		},
		Payment: PaymentConfig{
			EventTransport: getEnv("EVENT_TRANSPORT", EventTransportMemory),
			ConsumerGroup:  getEnv("EVENT_CONSUMER_GROUP", "seat-booking-engine"),
		},
	}

	// Boarding tokens fall back to the access token secret
	if config.JWT.BoardingTokenSecret == "" {
		config.JWT.BoardingTokenSecret = config.JWT.Secret
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Booking.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER: %s (must be 'memory' or 'postgres')", c.Booking.StoreDriver)
	}

	switch c.Payment.EventTransport {
	case EventTransportMemory:
	case EventTransportRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when EVENT_TRANSPORT=redis")
		}
	default:
		return fmt.Errorf("invalid EVENT_TRANSPORT: %s (must be 'memory' or 'redis')", c.Payment.EventTransport)
	}

	if c.JWT.AuthEnabled && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.BoardingTokenSecret == "" {
		return fmt.Errorf("BOARDING_TOKEN_SECRET is required")
	}

	if c.Server.Environment == "production" {
		if c.JWT.AuthEnabled && utils.WeakSecret(c.JWT.Secret) {
			return fmt.Errorf("JWT_SECRET must be at least %d characters in production", utils.MinSecretLength)
		}
		if utils.WeakSecret(c.JWT.BoardingTokenSecret) {
			return fmt.Errorf("BOARDING_TOKEN_SECRET must be at least %d characters in production", utils.MinSecretLength)
		}
	}

	if c.Booking.HoldDuration <= 0 || c.Booking.PendingBookingTTL <= 0 || c.Booking.SweepInterval <= 0 {
		return fmt.Errorf("HOLD_DURATION, PENDING_BOOKING_TTL and SWEEP_INTERVAL must be positive")
	}

	if c.Booking.HoldMaxDuration < c.Booking.HoldDuration {
		return fmt.Errorf("HOLD_MAX_DURATION must not be shorter than HOLD_DURATION")
	}

	if c.Booking.MaxSeatsPerBooking <= 0 {
		return fmt.Errorf("MAX_SEATS_PER_BOOKING must be positive")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
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
		log.Printf("Invalid boolean value for %s, using default: %v", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("15m", "30s")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
