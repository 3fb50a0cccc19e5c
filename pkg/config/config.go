package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default timeouts in seconds
const (
	DefaultRedisReadTimeout  = 3
	DefaultRedisWriteTimeout = 3
	DefaultDatabaseTimeout   = 5
)

// Default Redis operation timeout for cache calls, in milliseconds
const DefaultRedisOperationTimeoutMs = 200

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Timeout  TimeoutConfig
	Cache    CacheConfig
	NATS     NATSConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Sentry   SentryConfig
	Tracing  TracingConfig
	Business BusinessConfig
	Secrets  SecretsConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string
	Environment    string
	ServiceName    string
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int    // per-request handler timeout in seconds
	CORSOrigins    string // Comma-separated list of allowed origins
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

// TimeoutConfig holds I/O timeouts for external dependencies
type TimeoutConfig struct {
	RedisReadTimeout        int // seconds
	RedisWriteTimeout       int // seconds
	RedisOperationTimeout   int // seconds, fallback for read/write
	CacheOperationTimeoutMs int // per cache call
	DatabaseQueryTimeout    int // seconds
}

// CacheConfig holds cache tier TTLs and sweep cadence
type CacheConfig struct {
	ZoneResolutionTTL time.Duration
	PricingTTL        time.Duration
	ZoneListTTL       time.Duration
	ServicePriceTTL   time.Duration
	SweepInterval     time.Duration
	KeyPrefix         string
}

// NATSConfig holds NATS configuration used for cache invalidation fan-out
type NATSConfig struct {
	URL     string
	Subject string
	Enabled bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// StripeConfig holds payment provider configuration
type StripeConfig struct {
	SecretKey string
	Currency  string
}

// SentryConfig holds error reporting configuration
type SentryConfig struct {
	DSN              string
	TracesSampleRate float64
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// SecretsConfig selects the backends that secret references
// (vault://, aws://, gcp://, k8s://) in other settings are resolved against
type SecretsConfig struct {
	CacheTTL          time.Duration
	VaultAddress      string
	VaultToken        string
	VaultNamespace    string
	VaultMount        string
	AWSRegion         string
	AWSEndpoint       string
	GCPProjectID      string
	GCPCredentials    string
	KubernetesBaseDir string
}

// BusinessConfig holds pricing-related business defaults
type BusinessConfig struct {
	CurrencyCode string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ServiceName:    serviceName,
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 10),
			RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT", 5),
			CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "carwash"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MaxConns:      getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:      getEnvAsInt("DB_MIN_CONNS", 5),
			RunMigrations: getEnvAsBool("DB_RUN_MIGRATIONS", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		Timeout: TimeoutConfig{
			RedisReadTimeout:        getEnvAsInt("REDIS_READ_TIMEOUT", DefaultRedisReadTimeout),
			RedisWriteTimeout:       getEnvAsInt("REDIS_WRITE_TIMEOUT", DefaultRedisWriteTimeout),
			RedisOperationTimeout:   getEnvAsInt("REDIS_OPERATION_TIMEOUT", DefaultRedisReadTimeout),
			CacheOperationTimeoutMs: getEnvAsInt("CACHE_OPERATION_TIMEOUT_MS", DefaultRedisOperationTimeoutMs),
			DatabaseQueryTimeout:    getEnvAsInt("DB_QUERY_TIMEOUT", DefaultDatabaseTimeout),
		},
		Cache: CacheConfig{
			ZoneResolutionTTL: getEnvAsDuration("CACHE_ZONE_RESOLUTION_TTL", 5*time.Minute),
			PricingTTL:        getEnvAsDuration("CACHE_PRICING_TTL", 10*time.Minute),
			ZoneListTTL:       getEnvAsDuration("CACHE_ZONE_LIST_TTL", 30*time.Minute),
			ServicePriceTTL:   getEnvAsDuration("CACHE_SERVICE_PRICE_TTL", 15*time.Minute),
			SweepInterval:     getEnvAsDuration("CACHE_SWEEP_INTERVAL", 5*time.Minute),
			KeyPrefix:         getEnv("CACHE_KEY_PREFIX", ""),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Subject: getEnv("NATS_CACHE_SUBJECT", "pricing.cache.invalidate"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
			Currency:  strings.ToLower(getEnv("STRIPE_CURRENCY", "usd")),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			TracesSampleRate: getEnvAsFloat("SENTRY_TRACES_SAMPLE_RATE", 0.1),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("TRACING_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  getEnvAsFloat("TRACING_SAMPLE_RATIO", 1.0),
		},
		Business: BusinessConfig{
			CurrencyCode: strings.ToUpper(getEnv("CURRENCY_CODE", "USD")),
		},
		Secrets: SecretsConfig{
			CacheTTL:          getEnvAsDuration("SECRETS_CACHE_TTL", 5*time.Minute),
			VaultAddress:      getEnv("VAULT_ADDR", ""),
			VaultToken:        getEnv("VAULT_TOKEN", ""),
			VaultNamespace:    getEnv("VAULT_NAMESPACE", ""),
			VaultMount:        getEnv("VAULT_MOUNT", "secret"),
			AWSRegion:         getEnv("AWS_REGION", ""),
			AWSEndpoint:       getEnv("AWS_SECRETS_ENDPOINT", ""),
			GCPProjectID:      getEnv("GCP_PROJECT_ID", ""),
			GCPCredentials:    getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			KubernetesBaseDir: getEnv("K8S_SECRETS_DIR", "/var/run/secrets"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail at first use
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.Cache.ZoneResolutionTTL <= 0 || c.Cache.PricingTTL <= 0 || c.Cache.ZoneListTTL <= 0 || c.Cache.ServicePriceTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Environment() == "production" && c.JWT.Secret == "your-secret-key-change-in-production" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// Environment returns the configured environment name
func (c *Config) Environment() string {
	return c.Server.Environment
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the database connection string in URL form (used by migrations)
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// RedisReadTimeoutDuration returns the read timeout, falling back to the operation timeout
func (t TimeoutConfig) RedisReadTimeoutDuration() time.Duration {
	if t.RedisReadTimeout > 0 {
		return time.Duration(t.RedisReadTimeout) * time.Second
	}
	return time.Duration(t.RedisOperationTimeout) * time.Second
}

// RedisWriteTimeoutDuration returns the write timeout, falling back to the operation timeout
func (t TimeoutConfig) RedisWriteTimeoutDuration() time.Duration {
	if t.RedisWriteTimeout > 0 {
		return time.Duration(t.RedisWriteTimeout) * time.Second
	}
	return time.Duration(t.RedisOperationTimeout) * time.Second
}

// CacheOperationTimeout bounds a single distributed cache round-trip
func (t TimeoutConfig) CacheOperationTimeout() time.Duration {
	if t.CacheOperationTimeoutMs <= 0 {
		return time.Duration(DefaultRedisOperationTimeoutMs) * time.Millisecond
	}
	return time.Duration(t.CacheOperationTimeoutMs) * time.Millisecond
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
