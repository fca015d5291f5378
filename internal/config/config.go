package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort   string `yaml:"server_port"`
	DatabaseType string `yaml:"database_type"`
	DatabasePath string `yaml:"database_path"`
	DatabaseURL  string `yaml:"database_url"`
	// MigrationsPath overrides the embedded migrations when set
	MigrationsPath  string        `yaml:"migrations_path"`
	SessionDuration time.Duration `yaml:"session_duration"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// PageSize is the fixed list page size used by list screens
	PageSize    int    `yaml:"page_size"`
	ScorePolicy string `yaml:"score_policy"`

	CSRFSecret string        `yaml:"csrf_secret"`
	JWTSecret  string        `yaml:"jwt_secret"`
	JWTTTL     time.Duration `yaml:"jwt_ttl"`

	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	// TrustedProxies lists the CIDRs whose X-Forwarded-For headers are honoured
	TrustedProxies []string `yaml:"trusted_proxies"`

	AWSRegion    string `yaml:"aws_region"`
	SESFromEmail string `yaml:"ses_from_email"`
	SESFromName  string `yaml:"ses_from_name"`
	AppBaseURL   string `yaml:"app_base_url"`

	BackupBucket    string `yaml:"backup_bucket"`
	BackupRegion    string `yaml:"backup_region"`
	BackupEndpoint  string `yaml:"backup_endpoint"`
	BackupPathStyle bool   `yaml:"backup_path_style"`

	GoogleClientID       string `yaml:"google_client_id"`
	GoogleClientSecret   string `yaml:"google_client_secret"`
	OAuthRedirectBaseURL string `yaml:"oauth_redirect_base_url"`
}

// Load reads configuration from environment variables with sensible defaults.
// When CONFIG_FILE is set, values from that YAML file override the defaults
// and environment variables still win over the file.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// placeholderSecret is the value shipped in example config files
const placeholderSecret = "change-me"

// minSecretLength is the shortest accepted CSRF or JWT signing secret
const minSecretLength = 32

// Validate checks the settings the server cannot run safely without.
// The signing secrets have no defaults and must be configured explicitly.
func (c *Config) Validate() error {
	var errs []error
	for _, secret := range []struct{ name, value string }{
		{"CSRF_SECRET", c.CSRFSecret},
		{"JWT_SECRET", c.JWTSecret},
	} {
		value := strings.TrimSpace(secret.value)
		switch {
		case value == "":
			errs = append(errs, fmt.Errorf("%s must be set", secret.name))
		case value == placeholderSecret:
			errs = append(errs, fmt.Errorf("%s must not be the placeholder %q", secret.name, placeholderSecret))
		case len(value) < minSecretLength:
			errs = append(errs, fmt.Errorf("%s must be at least %d characters", secret.name, minSecretLength))
		}
	}
	if c.CSRFSecret != "" && c.CSRFSecret == c.JWTSecret {
		errs = append(errs, errors.New("CSRF_SECRET and JWT_SECRET must differ"))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		ServerPort:        "8080",
		DatabaseType:      "sqlite",
		DatabasePath:      "./therapytrack.db",
		SessionDuration:   24 * time.Hour,
		LogLevel:          "info",
		LogFormat:         "json",
		PageSize:          12,
		ScorePolicy:       "lenient",
		JWTTTL:            time.Hour,
		RateLimitRequests: 10,
		RateLimitWindow:   time.Minute,
		AWSRegion:         "us-east-1",
		SESFromName:       "TherapyTrack",
		AppBaseURL:        "http://localhost:8080",
	}
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.DatabaseType = getEnv("DATABASE_TYPE", c.DatabaseType)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.MigrationsPath = getEnv("MIGRATIONS_PATH", c.MigrationsPath)
	c.SessionDuration = getEnvDuration("SESSION_DURATION", c.SessionDuration)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.PageSize = getEnvInt("PAGE_SIZE", c.PageSize)
	c.ScorePolicy = getEnv("SCORE_POLICY", c.ScorePolicy)
	c.CSRFSecret = getEnv("CSRF_SECRET", c.CSRFSecret)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTTTL = getEnvDuration("JWT_TTL", c.JWTTTL)
	c.RateLimitRequests = getEnvInt("RATE_LIMIT_REQUESTS", c.RateLimitRequests)
	c.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", c.RateLimitWindow)
	c.TrustedProxies = getEnvList("TRUSTED_PROXIES", c.TrustedProxies)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.SESFromEmail = getEnv("SES_FROM_EMAIL", c.SESFromEmail)
	c.SESFromName = getEnv("SES_FROM_NAME", c.SESFromName)
	c.AppBaseURL = getEnv("APP_BASE_URL", c.AppBaseURL)
	c.BackupBucket = getEnv("BACKUP_S3_BUCKET", c.BackupBucket)
	c.BackupRegion = getEnv("BACKUP_S3_REGION", c.BackupRegion)
	c.BackupEndpoint = getEnv("BACKUP_S3_ENDPOINT", c.BackupEndpoint)
	c.BackupPathStyle = getEnvBool("BACKUP_S3_PATH_STYLE", c.BackupPathStyle)
	c.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", c.GoogleClientID)
	c.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.GoogleClientSecret)
	c.OAuthRedirectBaseURL = getEnv("OAUTH_REDIRECT_BASE_URL", c.OAuthRedirectBaseURL)
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList reads a comma-separated list, dropping blank entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
