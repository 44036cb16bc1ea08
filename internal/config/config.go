// Package config loads service configuration from an optional YAML file
// and MERIDIAN_-prefixed environment variables, with sane defaults for
// local development. Environment variables win over the file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full configuration shared by the wallet and payments
// binaries. Each binary reads only the sections it needs.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
}

func (c *AppConfig) IsProduction() bool { return c.Environment == "production" }

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// AuthConfig describes how bearer tokens are verified. Scopes is the set
// of token scopes the service accepts.
type AuthConfig struct {
	JWKSURL     string        `mapstructure:"jwks_url"`
	JWKSTTL     time.Duration `mapstructure:"jwks_ttl"`
	JWKSTimeout time.Duration `mapstructure:"jwks_timeout"`
	Issuer      string        `mapstructure:"issuer"`
	Audience    string        `mapstructure:"audience"`
	Scopes      []string      `mapstructure:"scopes"`
}

// RiskConfig configures the risk engine client. Enabled gates the
// wallet-level debit risk check; the orchestrator always evaluates.
type RiskConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Enabled bool          `mapstructure:"enabled"`
}

// WalletConfig configures the orchestrator's wallet service client.
type WalletConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts uint          `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads configuration for the named service ("wallet" or
// "payments"). A .env file is honored when present; a missing config
// file is fine, defaults plus environment cover it.
func Load(service string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, service)

	v.SetConfigName(service)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/meridian")

	v.SetEnvPrefix("MERIDIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("app.name", "meridian-"+service)
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("auth.jwks_url", "http://localhost:8080/api/v1/auth/jwks")
	v.SetDefault("auth.jwks_ttl", "300s")
	v.SetDefault("auth.jwks_timeout", "5s")
	v.SetDefault("auth.issuer", "meridian-identity")
	v.SetDefault("auth.audience", "meridian")

	v.SetDefault("risk.base_url", "http://localhost:8083")
	v.SetDefault("risk.timeout", "10s")

	v.SetDefault("wallet.base_url", "http://localhost:8081")
	v.SetDefault("wallet.timeout", "10s")
	v.SetDefault("wallet.retry_attempts", 3)
	v.SetDefault("wallet.retry_backoff", "200ms")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 120)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	switch service {
	case "payments":
		v.SetDefault("server.port", 8082)
		v.SetDefault("database.database", "meridian_payments")
		v.SetDefault("database.migrations_path", "migrations/payments")
		v.SetDefault("auth.scopes", []string{"access"})
		v.SetDefault("risk.enabled", true)
	default:
		v.SetDefault("server.port", 8081)
		v.SetDefault("database.database", "meridian_wallet")
		v.SetDefault("database.migrations_path", "migrations/wallet")
		v.SetDefault("auth.scopes", []string{"access", "wallet_access"})
		v.SetDefault("risk.enabled", false)
	}
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Auth.JWKSURL == "" {
		return fmt.Errorf("auth JWKS URL is required")
	}
	if len(c.Auth.Scopes) == 0 {
		return fmt.Errorf("auth scopes are required")
	}
	if c.App.IsProduction() && c.Database.Password == "postgres" {
		return fmt.Errorf("database password must be changed in production")
	}
	return nil
}
