// internal/config/config.go
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Vault       VaultConfig
	RateEngine  RateEngineConfig
	Carrier     CarrierConfig
	Encryption  EncryptionConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int

	// AllowedOrigins is empty in development, which opens CORS wide.
	// Production deployments must set CORS_ALLOWED_ORIGINS.
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
}

// VaultConfig points at the secret store holding sensitive payment fields.
type VaultConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SecretPrefix    string
	TimeoutSeconds  int
}

type RateEngineConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

type CarrierConfig struct {
	Name           string
	BaseURL        string
	APIKey         string
	PartnerCode    string
	TimeoutSeconds int
}

type EncryptionConfig struct {
	// Key is the AES-256 key for inline payment ciphertext, base64-encoded
	// in the environment.
	Key []byte
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	encKey, err := loadEncryptionKey()
	if err != nil {
		return nil, err
	}

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "enrollment_admin"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL:  getEnvAsInt("JWT_ACCESS_TTL", 24),   // 24 hours
			RefreshTokenTTL: getEnvAsInt("JWT_REFRESH_TTL", 168), // 7 days
		},
		Vault: VaultConfig{
			Region:          getEnv("VAULT_AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("VAULT_AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("VAULT_AWS_SECRET_ACCESS_KEY", ""),
			SecretPrefix:    getEnv("VAULT_SECRET_PREFIX", "payment-instruments"),
			TimeoutSeconds:  getEnvAsInt("VAULT_TIMEOUT_SECONDS", 10),
		},
		RateEngine: RateEngineConfig{
			BaseURL:        getEnv("RATE_ENGINE_BASE_URL", ""),
			APIKey:         getEnv("RATE_ENGINE_API_KEY", ""),
			TimeoutSeconds: getEnvAsInt("RATE_ENGINE_TIMEOUT_SECONDS", 15),
		},
		Carrier: CarrierConfig{
			Name:           getEnv("CARRIER_NAME", "horizon"),
			BaseURL:        getEnv("CARRIER_BASE_URL", ""),
			APIKey:         getEnv("CARRIER_API_KEY", ""),
			PartnerCode:    getEnv("CARRIER_PARTNER_CODE", ""),
			TimeoutSeconds: getEnvAsInt("CARRIER_TIMEOUT_SECONDS", 30),
		},
		Encryption: EncryptionConfig{
			Key: encKey,
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if len(c.Encryption.Key) == 0 && c.Environment == "production" {
		return fmt.Errorf("payment encryption key is required in production")
	}

	if c.Carrier.BaseURL == "" && c.Environment == "production" {
		return fmt.Errorf("carrier base URL is required in production")
	}

	return nil
}

// IsProduction gates behavior that must never run against real data, such as
// the test-card fallback in the secret resolver.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func loadEncryptionKey() ([]byte, error) {
	encoded := os.Getenv("PAYMENT_ENCRYPTION_KEY")
	if encoded == "" {
		return nil, nil
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("PAYMENT_ENCRYPTION_KEY is not valid base64: %w", err)
	}

	if len(key) != 32 {
		return nil, fmt.Errorf("PAYMENT_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}

	return key, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}
