package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds connection settings for the platform PostgreSQL database.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// AuthConfig holds settings for the platform auth API (GoTrue-compatible REST surface).
// JWTSecret is used only to verify access tokens issued by the platform; this
// service never issues tokens of its own.
type AuthConfig struct {
	BaseURL          string
	APIKey           string
	JWTSecret        string
	SiteURL          string
	OAuthRedirectURL string
	SignUpPollDelay  time.Duration
}

// StorageConfig holds object storage settings for the managed upload bucket
// (MinIO or any S3-compatible endpoint).
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// CaptchaConfig holds settings for CAPTCHA token verification against a
// Turnstile-compatible siteverify endpoint. CAPTCHA checks are skipped
// entirely when Secret is empty.
type CaptchaConfig struct {
	Secret    string
	VerifyURL string
}

// AppConfig is the centralized configuration struct for the service.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Captcha  CaptchaConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Auth: AuthConfig{
			BaseURL:          getEnv("AUTH_BASE_URL", ""),
			APIKey:           getEnv("AUTH_API_KEY", ""),
			JWTSecret:        getEnv("AUTH_JWT_SECRET", ""),
			SiteURL:          getEnv("AUTH_SITE_URL", "http://localhost:3000"),
			OAuthRedirectURL: getEnv("AUTH_OAUTH_REDIRECT_URL", ""),
			SignUpPollDelay:  time.Duration(getEnvInt("AUTH_SIGNUP_POLL_DELAY_MS", 1500)) * time.Millisecond,
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:    getEnv("STORAGE_BUCKET", ""),
			UseSSL:    getEnvBool("STORAGE_USE_SSL", false),
		},
		Captcha: CaptchaConfig{
			Secret:    getEnv("CAPTCHA_SECRET", ""),
			VerifyURL: getEnv("CAPTCHA_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
		},
	}
}

// Validate checks that every required environment-derived value is present and
// returns a single error naming all missing variables. Optional features
// (CAPTCHA, OTLP tracing) are not validated here; they toggle on presence.
func (c *AppConfig) Validate() error {
	var missing []string

	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	check("AUTH_BASE_URL", c.Auth.BaseURL)
	check("AUTH_API_KEY", c.Auth.APIKey)
	check("AUTH_JWT_SECRET", c.Auth.JWTSecret)
	// The OAuth callback URL carries the flow state; the routes are always
	// served, so it is required even for password-only deployments.
	check("AUTH_OAUTH_REDIRECT_URL", c.Auth.OAuthRedirectURL)
	check("DB_HOST", c.Database.Host)
	check("DB_USER", c.Database.User)
	check("DB_NAME", c.Database.Name)
	check("STORAGE_ENDPOINT", c.Storage.Endpoint)
	check("STORAGE_ACCESS_KEY", c.Storage.AccessKey)
	check("STORAGE_SECRET_KEY", c.Storage.SecretKey)
	check("STORAGE_BUCKET", c.Storage.Bucket)

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// CaptchaEnabled reports whether CAPTCHA verification is configured.
func (c *AppConfig) CaptchaEnabled() bool {
	return c.Captcha.Secret != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
