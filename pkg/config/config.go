package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Shopify  ShopifyConfig
	GiftCard GiftCardConfig
	Shops    ShopsConfig
	Breaker  BreakerConfig
	NATS     NATSConfig
	Sentry   SentryConfig
	Tracing  TracingConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	Version      string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int
	MinConns      int
	RunMigrations bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ShopifyConfig holds the remote ledger connection settings.
// Domain and AccessToken describe the default shop.
type ShopifyConfig struct {
	Domain          string
	AccessToken     string
	APIVersion      string
	BaseURLTemplate string // e.g. https://%s/admin/api/%s/graphql.json
	TimeoutSeconds  int
	RatePerSecond   float64
	RateBurst       int
}

// GiftCardConfig holds gift card defaults
type GiftCardConfig struct {
	DefaultAmount    string // decimal string, parsed by the service
	Currency         string // used when a mirror row has no currency yet
	TransactionsPage int
	MaxTransactions  int
}

// ShopsConfig selects how shop credentials are resolved
type ShopsConfig struct {
	Mode            string // static or store
	File            string
	CacheTTLSeconds int
}

// BreakerConfig holds circuit breaker tuning for ledger calls
type BreakerConfig struct {
	Enabled          bool
	IntervalSeconds  int
	TimeoutSeconds   int
	FailureThreshold int
	SuccessThreshold int
}

// NATSConfig holds NATS event publishing configuration
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Enabled       bool
}

// SentryConfig holds Sentry error reporting configuration
type SentryConfig struct {
	DSN     string
	Enabled bool
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Endpoint string
	Insecure bool
	Enabled  bool
}

// Shop resolution modes
const (
	ShopsModeStatic = "static"
	ShopsModeStore  = "store"
)

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "3000"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			Version:      getEnv("SERVICE_VERSION", "1.0.0"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 45),
			CORSOrigins:  getEnv("CORS_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "giftcard_db"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MaxConns:      getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:      getEnvAsInt("DB_MIN_CONNS", 5),
			RunMigrations: getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
		Shopify: ShopifyConfig{
			Domain:          getEnv("SHOPIFY_DOMAIN", ""),
			AccessToken:     getEnv("SHOPIFY_ACCESS_TOKEN", ""),
			APIVersion:      getEnv("SHOPIFY_API_VERSION", "2025-04"),
			BaseURLTemplate: getEnv("LEDGER_BASE_URL_TEMPLATE", "https://%s/admin/api/%s/graphql.json"),
			TimeoutSeconds:  getEnvAsInt("LEDGER_TIMEOUT_SECONDS", 30),
			RatePerSecond:   getEnvAsFloat("LEDGER_RATE_PER_SECOND", 2),
			RateBurst:       getEnvAsInt("LEDGER_RATE_BURST", 4),
		},
		GiftCard: GiftCardConfig{
			DefaultAmount:    getEnv("DEFAULT_GIFT_CARD_AMOUNT", "25.00"),
			Currency:         strings.ToUpper(getEnv("GIFT_CARD_CURRENCY", "USD")),
			TransactionsPage: getEnvAsInt("GIFT_CARD_TRANSACTIONS_PAGE", 25),
			MaxTransactions:  getEnvAsInt("GIFT_CARD_TRANSACTIONS_MAX", 100),
		},
		Shops: ShopsConfig{
			Mode:            strings.ToLower(getEnv("SHOPS_MODE", ShopsModeStatic)),
			File:            getEnv("SHOPS_FILE", ""),
			CacheTTLSeconds: getEnvAsInt("SHOPS_CACHE_TTL_SECONDS", 300),
		},
		Breaker: BreakerConfig{
			Enabled:          getEnvAsBool("LEDGER_BREAKER_ENABLED", true),
			IntervalSeconds:  getEnvAsInt("LEDGER_BREAKER_INTERVAL_SECONDS", 60),
			TimeoutSeconds:   getEnvAsInt("LEDGER_BREAKER_TIMEOUT_SECONDS", 30),
			FailureThreshold: getEnvAsInt("LEDGER_BREAKER_FAILURE_THRESHOLD", 5),
			SuccessThreshold: getEnvAsInt("LEDGER_BREAKER_SUCCESS_THRESHOLD", 1),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "giftcards"),
			Enabled:       getEnvAsBool("NATS_ENABLED", false),
		},
		Sentry: SentryConfig{
			DSN:     getEnv("SENTRY_DSN", ""),
			Enabled: getEnvAsBool("SENTRY_ENABLED", false),
		},
		Tracing: TracingConfig{
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure: getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			Enabled:  getEnvAsBool("TRACING_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings that cannot fall back to a default
func (c *Config) Validate() error {
	switch c.Shops.Mode {
	case ShopsModeStatic:
		if c.Shops.File == "" && (c.Shopify.Domain == "" || c.Shopify.AccessToken == "") {
			return fmt.Errorf("missing required Shopify configuration: SHOPIFY_DOMAIN and SHOPIFY_ACCESS_TOKEN")
		}
	case ShopsModeStore:
	default:
		return fmt.Errorf("invalid SHOPS_MODE %q: must be %s or %s", c.Shops.Mode, ShopsModeStatic, ShopsModeStore)
	}

	if c.GiftCard.TransactionsPage <= 0 {
		c.GiftCard.TransactionsPage = 25
	}
	if c.GiftCard.MaxTransactions < c.GiftCard.TransactionsPage {
		c.GiftCard.MaxTransactions = c.GiftCard.TransactionsPage
	}

	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// MigrationURL returns the connection URL understood by the pgx/v5 migrate driver
func (c *DatabaseConfig) MigrationURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
