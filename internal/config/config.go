package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string   `mapstructure:"PORT"`
	Env              string   `mapstructure:"ENV"`
	DatabaseURL      string   `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32    `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir    string   `mapstructure:"MIGRATIONS_DIR"`
	CORSOrigins      []string `mapstructure:"CORS_ORIGINS"`
	AuthJWTSecret    string   `mapstructure:"AUTH_JWT_SECRET"`
	AuthIssuer       string   `mapstructure:"AUTH_ISSUER"`
	RateLimitRPS     float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int      `mapstructure:"RATE_LIMIT_BURST"`
	ActivityWindow   int      `mapstructure:"ACTIVITY_WINDOW"`
	StorageDriver    string   `mapstructure:"STORAGE_DRIVER"`
	StoragePublicURL string   `mapstructure:"STORAGE_PUBLIC_URL"`
	S3Bucket         string   `mapstructure:"S3_BUCKET"`
	S3Region         string   `mapstructure:"S3_REGION"`
	S3Endpoint       string   `mapstructure:"S3_ENDPOINT"`
	AWSAccessKeyID   string   `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey     string   `mapstructure:"AWS_SECRET_ACCESS_KEY"`
	SMTPHost         string   `mapstructure:"SMTP_HOST"`
	SMTPPort         int      `mapstructure:"SMTP_PORT"`
	SMTPUsername     string   `mapstructure:"SMTP_USERNAME"`
	SMTPPassword     string   `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom         string   `mapstructure:"SMTP_FROM"`
	AppURL           string   `mapstructure:"APP_URL"`
	DemoEmailDomain  string   `mapstructure:"DEMO_EMAIL_DOMAIN"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
	"CORS_ORIGINS", "AUTH_JWT_SECRET", "AUTH_ISSUER", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"ACTIVITY_WINDOW", "STORAGE_DRIVER", "STORAGE_PUBLIC_URL", "S3_BUCKET", "S3_REGION",
	"S3_ENDPOINT", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "SMTP_HOST", "SMTP_PORT",
	"SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM", "APP_URL", "DEMO_EMAIL_DOMAIN",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("ACTIVITY_WINDOW", 100)
	v.SetDefault("STORAGE_DRIVER", "memory")
	v.SetDefault("STORAGE_PUBLIC_URL", "http://localhost:8000/storage/v1/object/public")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("DEMO_EMAIL_DOMAIN", "demo.nutrio.invalid")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: X-User-ID / X-User-Role headers are trusted without a token.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret is mandatory, and the S3 storage driver needs a bucket and region.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthJWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET must be set when ENV=%q", c.Env)
	}

	switch c.StorageDriver {
	case "memory":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER is \"s3\"")
		}
		if c.S3Region == "" {
			return fmt.Errorf("S3_REGION is required when STORAGE_DRIVER is \"s3\"")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be \"memory\" or \"s3\", got %q", c.StorageDriver)
	}

	if c.ActivityWindow < 1 || c.ActivityWindow > 1000 {
		return fmt.Errorf("ACTIVITY_WINDOW must be between 1 and 1000, got %d", c.ActivityWindow)
	}

	return nil
}
