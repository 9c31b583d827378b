package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Email     EmailConfig     `mapstructure:"email"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Security  SecurityConfig  `mapstructure:"security"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	FrontendURL  string `mapstructure:"frontend_url"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxLifetime  int    `mapstructure:"max_lifetime"` // seconds
}

// RedisConfig holds product cache configuration
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	PoolSize   int    `mapstructure:"pool_size"`
	ProductTTL int    `mapstructure:"product_ttl"` // seconds
}

// NATSConfig holds event publishing configuration
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	MaxReconnects int    `mapstructure:"max_reconnects"`
	ReconnectWait int    `mapstructure:"reconnect_wait"` // seconds
}

// JWTConfig holds access token settings
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

// StripeConfig holds payment gateway credentials. They are never persisted.
type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
}

// EmailConfig holds outbound email settings
type EmailConfig struct {
	Provider       string `mapstructure:"provider"` // sendgrid, ses, smtp, log
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	SESRegion      string `mapstructure:"ses_region"`
	SESEndpoint    string `mapstructure:"ses_endpoint"`
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	SMTPUsername   string `mapstructure:"smtp_username"`
	SMTPPassword   string `mapstructure:"smtp_password"`
	FromEmail      string `mapstructure:"from_email"`
	FromName       string `mapstructure:"from_name"`
}

// StorageConfig holds product image storage configuration
type StorageConfig struct {
	Provider        string `mapstructure:"provider"` // aws, gcp, local
	Bucket          string `mapstructure:"bucket"`
	PublicURL       string `mapstructure:"public_url"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	CredentialsFile string `mapstructure:"credentials_file"`
	LocalBasePath   string `mapstructure:"local_base_path"`
	MaxFileSize     int64  `mapstructure:"max_file_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds CORS and rate limit settings
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LoginRateLimit float64  `mapstructure:"login_rate_limit"` // requests per second per client
	LoginBurst     int      `mapstructure:"login_burst"`
}

// SchedulerConfig holds background job settings
type SchedulerConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	InventorySchedule string `mapstructure:"inventory_schedule"`
	LowStockThreshold int    `mapstructure:"low_stock_threshold"`
}

// LoadConfig loads configuration from defaults, an optional config file and the environment
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.frontend_url", "")
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 60)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "commerce")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_lifetime", 300)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.product_ttl", 300)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", 2)

	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "commerce-service")
	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.currency", "usd")

	v.SetDefault("email.provider", "log")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.from_email", "noreply@ecommerceapi.com")
	v.SetDefault("email.from_name", "")

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.bucket", "product-images")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.local_base_path", "./data/uploads")
	v.SetDefault("storage.public_url", "")
	v.SetDefault("storage.max_file_size", 10485760) // 10MB

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("security.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("security.login_rate_limit", 1.0)
	v.SetDefault("security.login_burst", 5)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.inventory_schedule", "0 */5 * * * *")
	v.SetDefault("scheduler.low_stock_threshold", 5)
}

// bindEnvVars maps the conventional environment variable names onto config keys
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port":               {"PORT", "SERVER_PORT"},
		"server.mode":               {"GIN_MODE"},
		"server.frontend_url":       {"FRONTEND_URL"},
		"database.host":             {"DB_HOST"},
		"database.port":             {"DB_PORT"},
		"database.user":             {"DB_USER"},
		"database.password":         {"DB_PASSWORD"},
		"database.name":             {"DB_NAME"},
		"database.sslmode":          {"DB_SSLMODE"},
		"redis.host":                {"REDIS_HOST"},
		"redis.port":                {"REDIS_PORT"},
		"redis.password":            {"REDIS_PASSWORD"},
		"nats.url":                  {"NATS_URL"},
		"jwt.secret":                {"JWT_SECRET"},
		"stripe.secret_key":         {"STRIPE_PRIVATE_KEY", "STRIPE_SECRET_KEY"},
		"stripe.webhook_secret":     {"STRIPE_WEBHOOK_SECRET"},
		"email.provider":            {"EMAIL_PROVIDER"},
		"email.sendgrid_api_key":    {"SENDGRID_API_KEY"},
		"email.ses_region":          {"AWS_SES_REGION_NAME", "AWS_REGION"},
		"email.ses_endpoint":        {"SES_ENDPOINT"},
		"email.smtp_host":           {"SMTP_HOST"},
		"email.smtp_port":           {"SMTP_PORT"},
		"email.smtp_username":       {"SMTP_USERNAME"},
		"email.smtp_password":       {"SMTP_PASSWORD"},
		"email.from_email":          {"EMAIL_FROM", "DEFAULT_FROM_EMAIL"},
		"storage.provider":          {"STORAGE_PROVIDER"},
		"storage.bucket":            {"STORAGE_BUCKET", "AWS_STORAGE_BUCKET_NAME"},
		"storage.region":            {"AWS_REGION", "AWS_S3_REGION_NAME"},
		"storage.endpoint":          {"STORAGE_ENDPOINT"},
		"storage.access_key_id":     {"AWS_ACCESS_KEY_ID"},
		"storage.secret_access_key": {"AWS_SECRET_ACCESS_KEY"},
		"storage.credentials_file":  {"GOOGLE_APPLICATION_CREDENTIALS"},
		"logging.level":             {"LOG_LEVEL"},
	}

	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks settings that would otherwise fail at request time
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Server.Mode == "release" {
		if c.Stripe.SecretKey == "" {
			return fmt.Errorf("STRIPE_PRIVATE_KEY is required in release mode")
		}
		if c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required in release mode")
		}
		if c.JWT.Secret == "" || c.JWT.Secret == "change-me-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in release mode")
		}
	}

	switch c.Storage.Provider {
	case "aws", "gcp", "local":
	default:
		return fmt.Errorf("unsupported storage provider: %s", c.Storage.Provider)
	}

	switch c.Email.Provider {
	case "sendgrid", "ses", "smtp", "log":
	default:
		return fmt.Errorf("unsupported email provider: %s", c.Email.Provider)
	}

	return nil
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetJWTExpiry returns the access token lifetime
func (c *Config) GetJWTExpiry() time.Duration {
	return time.Duration(c.JWT.ExpiryHours) * time.Hour
}

// GetProductCacheTTL returns how long product details stay cached
func (c *Config) GetProductCacheTTL() time.Duration {
	return time.Duration(c.Redis.ProductTTL) * time.Second
}
