package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Payment    PaymentConfig    `yaml:"payment"`
	Commission CommissionConfig `yaml:"commission"`
	Booking    BookingConfig    `yaml:"booking"`
	Moderation ModerationConfig `yaml:"moderation"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Log        LogConfig        `yaml:"log"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// StorageConfig selects the record store: "postgres" or "memory"
type StorageConfig struct {
	Type string `yaml:"type"`
}

// RedisConfig configures the analytics cache; an empty Addr disables it
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig selects how bearer tokens are verified: "firebase" or "jwt"
type AuthConfig struct {
	Provider            string `yaml:"provider"`
	JWTSecret           string `yaml:"jwt_secret"`
	TokenExpiryMinutes  int    `yaml:"token_expiry_minutes"`
	FirebaseProjectID   string `yaml:"firebase_project_id"`
	FirebaseCredentials string `yaml:"firebase_credentials_file"`
}

// PaymentConfig contains gateway settings
type PaymentConfig struct {
	GatewayURL          string `yaml:"gateway_url"`
	MerchantCode        string `yaml:"merchant_code"`
	SecretKey           string `yaml:"secret_key"`
	ReturnURL           string `yaml:"return_url"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
	RetryCount          int    `yaml:"retry_count"`
	IntentExpiryMinutes int    `yaml:"intent_expiry_minutes"`
}

// CommissionConfig holds the fallback platform commission percentage
type CommissionConfig struct {
	DefaultRate string `yaml:"default_rate"`
}

// BookingConfig bounds booking duration in hours
type BookingConfig struct {
	MinDurationHours int `yaml:"min_duration_hours"`
	MaxDurationHours int `yaml:"max_duration_hours"`
}

// ModerationConfig controls the organization blacklist fan-out
type ModerationConfig struct {
	CascadeMaxElapsedSeconds int `yaml:"cascade_max_elapsed_seconds"`
}

// AnalyticsConfig controls the analytics snapshot cache
type AnalyticsConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings (seconds field first)
type SchedulerConfig struct {
	ResumeBlacklistCascades string `yaml:"resume_blacklist_cascades"`
	ReconcileBalances       string `yaml:"reconcile_balances"`
	ExpirePaymentIntents    string `yaml:"expire_payment_intents"`
	WarmAnalytics           string `yaml:"warm_analytics"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	envString("SERVER_HOST", &c.Server.Host)
	envInt("SERVER_PORT", &c.Server.Port)

	envString("DB_HOST", &c.Database.Host)
	envInt("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)

	envString("STORAGE_TYPE", &c.Storage.Type)

	envString("REDIS_ADDR", &c.Redis.Addr)
	envString("REDIS_PASSWORD", &c.Redis.Password)

	envString("AUTH_PROVIDER", &c.Auth.Provider)
	envString("JWT_SECRET", &c.Auth.JWTSecret)
	envString("FIREBASE_PROJECT_ID", &c.Auth.FirebaseProjectID)
	envString("GOOGLE_APPLICATION_CREDENTIALS", &c.Auth.FirebaseCredentials)

	envString("PAYMENT_GATEWAY_URL", &c.Payment.GatewayURL)
	envString("PAYMENT_MERCHANT_CODE", &c.Payment.MerchantCode)
	envString("PAYMENT_SECRET_KEY", &c.Payment.SecretKey)

	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = 30
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "postgres"
	}
	switch c.Storage.Type {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
		if c.Database.MaxOpenConns == 0 {
			c.Database.MaxOpenConns = 20
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	if c.Auth.Provider == "" {
		c.Auth.Provider = "jwt"
	}
	switch c.Auth.Provider {
	case "jwt":
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters")
		}
		if c.Auth.TokenExpiryMinutes == 0 {
			c.Auth.TokenExpiryMinutes = 60
		}
	case "firebase":
		if c.Auth.FirebaseProjectID == "" {
			return fmt.Errorf("firebase project id is required")
		}
	default:
		return fmt.Errorf("unknown auth provider %q", c.Auth.Provider)
	}

	if c.Payment.SecretKey == "" {
		return fmt.Errorf("payment secret key is required")
	}
	if c.Payment.TimeoutSeconds == 0 {
		c.Payment.TimeoutSeconds = 10
	}
	if c.Payment.RetryCount == 0 {
		c.Payment.RetryCount = 2
	}
	if c.Payment.IntentExpiryMinutes == 0 {
		c.Payment.IntentExpiryMinutes = 30
	}

	if c.Commission.DefaultRate == "" {
		c.Commission.DefaultRate = "15"
	}
	rate, err := decimal.NewFromString(c.Commission.DefaultRate)
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("invalid default commission rate: %q", c.Commission.DefaultRate)
	}

	if c.Booking.MinDurationHours == 0 {
		c.Booking.MinDurationHours = 1
	}
	if c.Booking.MaxDurationHours == 0 {
		c.Booking.MaxDurationHours = 24
	}
	if c.Booking.MinDurationHours > c.Booking.MaxDurationHours {
		return fmt.Errorf("booking min duration exceeds max duration")
	}

	if c.Moderation.CascadeMaxElapsedSeconds == 0 {
		c.Moderation.CascadeMaxElapsedSeconds = 30
	}
	if c.Analytics.CacheTTLSeconds == 0 {
		c.Analytics.CacheTTLSeconds = 300
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Scheduler.ResumeBlacklistCascades == "" {
		c.Scheduler.ResumeBlacklistCascades = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.ReconcileBalances == "" {
		c.Scheduler.ReconcileBalances = "0 0 2 * * *" // 2 AM UTC
	}
	if c.Scheduler.ExpirePaymentIntents == "" {
		c.Scheduler.ExpirePaymentIntents = "0 */10 * * * *"
	}
	if c.Scheduler.WarmAnalytics == "" {
		c.Scheduler.WarmAnalytics = "0 0 * * * *" // hourly
	}

	return nil
}

// DefaultCommissionRate returns the validated fallback commission rate.
func (c *Config) DefaultCommissionRate() decimal.Decimal {
	return decimal.RequireFromString(c.Commission.DefaultRate)
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) PaymentTimeout() time.Duration {
	return time.Duration(c.Payment.TimeoutSeconds) * time.Second
}

func (c *Config) AnalyticsTTL() time.Duration {
	return time.Duration(c.Analytics.CacheTTLSeconds) * time.Second
}
