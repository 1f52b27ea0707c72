package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Logger      LoggerConfig
	Auth        AuthConfig
	Payments    PaymentsConfig
	Rates       RatesConfig
	CallbackLog CallbackLogConfig
	Sweeper     SweeperConfig
	Inventory   InventoryConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	AdminAPIKey string
}

// PaymentsConfig holds payment provider configuration.
type PaymentsConfig struct {
	Currency string

	CardBaseURL string
	CardAPIKey  string

	MpesaBaseURL     string
	MpesaShortcode   string
	MpesaPasskey     string
	MpesaCallbackURL string
	MpesaCountryCode string
	MpesaMinAmount   float64
	MpesaMaxAmount   float64

	RequestTimeout time.Duration
}

// RatesConfig holds tax/shipping rate table configuration.
type RatesConfig struct {
	S3Enabled bool
	S3Bucket  string
	S3Region  string
	S3Key     string
	FilePath  string
}

// CallbackLogConfig holds the optional Redis processed-callback log
// configuration.
type CallbackLogConfig struct {
	Enabled bool
	Addr    string
	TTL     time.Duration
}

// SweeperConfig holds stale-reservation sweeper configuration.
type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
	MaxAge   time.Duration
}

// InventoryConfig holds inventory ledger configuration.
type InventoryConfig struct {
	LowStockThreshold int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "shopfront"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
		},
		Payments: PaymentsConfig{
			Currency:         getEnv("PAYMENT_CURRENCY", "KES"),
			CardBaseURL:      getEnv("CARD_PROVIDER_URL", "https://api.card-provider.example"),
			CardAPIKey:       getEnv("CARD_PROVIDER_API_KEY", ""),
			MpesaBaseURL:     getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			MpesaShortcode:   getEnv("MPESA_SHORTCODE", ""),
			MpesaPasskey:     getEnv("MPESA_PASSKEY", ""),
			MpesaCallbackURL: getEnv("MPESA_CALLBACK_URL", ""),
			MpesaCountryCode: getEnv("MPESA_COUNTRY_CODE", "254"),
			MpesaMinAmount:   getEnvAsFloat("MPESA_MIN_AMOUNT", 1),
			MpesaMaxAmount:   getEnvAsFloat("MPESA_MAX_AMOUNT", 150000),
			RequestTimeout:   time.Duration(getEnvAsInt("PAYMENT_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Rates: RatesConfig{
			S3Enabled: getEnvAsBool("RATES_S3_ENABLED", false),
			S3Bucket:  getEnv("RATES_S3_BUCKET", ""),
			S3Region:  getEnv("RATES_S3_REGION", "us-east-1"),
			S3Key:     getEnv("RATES_S3_KEY", "rates/rates.json"),
			FilePath:  getEnv("RATES_FILE", "data/rates.json"),
		},
		CallbackLog: CallbackLogConfig{
			Enabled: getEnvAsBool("CALLBACK_LOG_ENABLED", false),
			Addr:    getEnv("CALLBACK_LOG_REDIS_ADDR", "localhost:6379"),
			TTL:     time.Duration(getEnvAsInt("CALLBACK_LOG_TTL_HOURS", 48)) * time.Hour,
		},
		Sweeper: SweeperConfig{
			Enabled:  getEnvAsBool("RESERVATION_SWEEPER_ENABLED", true),
			Interval: time.Duration(getEnvAsInt("RESERVATION_SWEEP_INTERVAL_MINUTES", 15)) * time.Minute,
			MaxAge:   time.Duration(getEnvAsInt("RESERVATION_MAX_AGE_HOURS", 24)) * time.Hour,
		},
		Inventory: InventoryConfig{
			LowStockThreshold: getEnvAsInt("LOW_STOCK_THRESHOLD", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.AdminAPIKey == "" {
		return fmt.Errorf("admin API key is required")
	}

	if c.Payments.MpesaMinAmount < 0 || c.Payments.MpesaMaxAmount <= c.Payments.MpesaMinAmount {
		return fmt.Errorf("invalid mpesa amount range: [%v, %v]",
			c.Payments.MpesaMinAmount, c.Payments.MpesaMaxAmount)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Rates.S3Enabled {
		if c.Rates.S3Bucket == "" {
			return fmt.Errorf("rates S3 bucket is required when S3 is enabled")
		}
		if c.Rates.S3Region == "" {
			return fmt.Errorf("rates S3 region is required when S3 is enabled")
		}
	}

	if c.Sweeper.Enabled {
		if c.Sweeper.Interval <= 0 {
			return fmt.Errorf("sweeper interval must be positive")
		}
		if c.Sweeper.MaxAge <= 0 {
			return fmt.Errorf("sweeper max age must be positive")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
