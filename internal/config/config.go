package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Raffle   RaffleConfig
	Oracle   OracleConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
}

// RaffleConfig holds raffle lifecycle settings
type RaffleConfig struct {
	MinDuration        time.Duration
	OracleFeeAsset     string
	OracleFeeAmount    decimal.Decimal
	WrappedNativeAsset string
}

// OracleConfig holds randomness request settings
type OracleConfig struct {
	NumWords             int
	CallbackGasBudget    int64
	RequestConfirmations int
	FulfillDelay         time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	oracleFee, err := decimal.NewFromString(getEnv("ORACLE_FEE_AMOUNT", "0.25"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORACLE_FEE_AMOUNT: %w", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "raffle_market"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Raffle: RaffleConfig{
			MinDuration:        getEnvDuration("RAFFLE_MIN_DURATION", time.Hour),
			OracleFeeAsset:     getEnv("ORACLE_FEE_ASSET", "LINK"),
			OracleFeeAmount:    oracleFee,
			WrappedNativeAsset: getEnv("WRAPPED_NATIVE_ASSET", "WETH"),
		},
		Oracle: OracleConfig{
			NumWords:             getEnvInt("ORACLE_NUM_WORDS", 1),
			CallbackGasBudget:    int64(getEnvInt("ORACLE_CALLBACK_GAS_BUDGET", 100000)),
			RequestConfirmations: getEnvInt("ORACLE_REQUEST_CONFIRMATIONS", 3),
			FulfillDelay:         getEnvDuration("ORACLE_FULFILL_DELAY", 5*time.Second),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
