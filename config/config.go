package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Portal        PortalConfig
	AntiCaptcha   AntiCaptchaConfig
	Timetable     TimetableConfig
	Database      DatabaseConfig
	CaptchaStore  CaptchaStoreConfig
	Auth          AuthConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	AppEnv      string
	FrontendURL string
}

// PortalConfig describes the scraped university portal and how it is reached
type PortalConfig struct {
	BaseURL          string
	Username         string
	Password         string
	TermID           string
	RequestTimeoutMS int
	TransportRetries int
	RetryDelayMS     int
}

type AntiCaptchaConfig struct {
	APIKey              string
	MinBalance          float64
	PuzzleMaxIterations int
}

type TimetableConfig struct {
	CacheTTLMinutes   int
	SessionTTLMinutes int
	MaxRetries        int
}

type DatabaseConfig struct {
	URL        string
	MaxConns   int32
	MinConns   int32
	CACertPath string
}

// CaptchaStoreConfig controls archiving of fetched captcha images to S3-compatible storage
type CaptchaStoreConfig struct {
	Enabled         bool
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string
	Region          string
}

type AuthConfig struct {
	RefreshAPIToken string
}

type LoggingConfig struct {
	Level   string
	Dir     string
	Verbose bool
}

type ObservabilityConfig struct {
	AlloyEndpoint     string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("PORT", "3001")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("UMS_BASE_URL", "https://ums.lpu.in")
	v.SetDefault("TERM_ID", "25261")
	v.SetDefault("REQUEST_TIMEOUT_MS", 15000)
	v.SetDefault("TRANSPORT_RETRIES", 2)
	v.SetDefault("RETRY_DELAY_MS", 2000)
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("CACHE_TTL_MINUTES", 10)
	v.SetDefault("SESSION_TTL_MINUTES", 30)
	v.SetDefault("ANTICAPTCHA_MIN_BALANCE", 0.001)
	v.SetDefault("PUZZLE_MAX_ITERATIONS", 10_000_000)
	v.SetDefault("SAVE_CAPTCHA_IMAGES", false)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "")
	v.SetDefault("VERBOSE_LOGS", false)
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "") // OTLP over HTTP, tracing off when empty
	v.SetDefault("O11Y_BE_SERVICE_NAME", "timetable-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "timetable")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "timetable-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,alloc_objects,goroutines,mutex,block")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	// Automatically read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("PORT"),
			GinMode:     v.GetString("GIN_MODE"),
			AppEnv:      v.GetString("APP_ENV"),
			FrontendURL: v.GetString("FRONTEND_URL"),
		},
		Portal: PortalConfig{
			BaseURL:          strings.TrimRight(v.GetString("UMS_BASE_URL"), "/"),
			Username:         v.GetString("UMS_USERNAME"),
			Password:         v.GetString("UMS_PASSWORD"),
			TermID:           v.GetString("TERM_ID"),
			RequestTimeoutMS: v.GetInt("REQUEST_TIMEOUT_MS"),
			TransportRetries: v.GetInt("TRANSPORT_RETRIES"),
			RetryDelayMS:     v.GetInt("RETRY_DELAY_MS"),
		},
		AntiCaptcha: AntiCaptchaConfig{
			APIKey:              v.GetString("ANTICAPTCHA_API_KEY"),
			MinBalance:          v.GetFloat64("ANTICAPTCHA_MIN_BALANCE"),
			PuzzleMaxIterations: v.GetInt("PUZZLE_MAX_ITERATIONS"),
		},
		Timetable: TimetableConfig{
			CacheTTLMinutes:   v.GetInt("CACHE_TTL_MINUTES"),
			SessionTTLMinutes: v.GetInt("SESSION_TTL_MINUTES"),
			MaxRetries:        v.GetInt("MAX_RETRIES"),
		},
		Database: DatabaseConfig{
			URL:        v.GetString("DATABASE_URL"),
			MaxConns:   5,
			MinConns:   1,
			CACertPath: v.GetString("DATABASE_CA_CERT"),
		},
		CaptchaStore: CaptchaStoreConfig{
			Enabled:         v.GetBool("SAVE_CAPTCHA_IMAGES"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			BucketName:      v.GetString("S3_BUCKET"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			Region:          v.GetString("S3_REGION"),
		},
		Auth: AuthConfig{
			RefreshAPIToken: v.GetString("REFRESH_API_TOKEN"),
		},
		Logging: LoggingConfig{
			Level:   v.GetString("LOG_LEVEL"),
			Dir:     v.GetString("LOG_DIR"),
			Verbose: v.GetBool("VERBOSE_LOGS"),
		},
		Observability: ObservabilityConfig{
			AlloyEndpoint:     v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	// Portal credentials
	if c.Portal.Username == "" {
		return fmt.Errorf("UMS_USERNAME is required")
	}
	if c.Portal.Password == "" {
		return fmt.Errorf("UMS_PASSWORD is required")
	}
	if c.Portal.BaseURL == "" {
		return fmt.Errorf("UMS_BASE_URL is required")
	}
	if c.Portal.RequestTimeoutMS <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_MS must be positive")
	}
	if c.Portal.TransportRetries < 0 || c.Portal.RetryDelayMS < 0 {
		return fmt.Errorf("TRANSPORT_RETRIES and RETRY_DELAY_MS must not be negative")
	}

	if c.AntiCaptcha.APIKey == "" {
		return fmt.Errorf("ANTICAPTCHA_API_KEY is required")
	}

	if c.Timetable.CacheTTLMinutes <= 0 {
		return fmt.Errorf("CACHE_TTL_MINUTES must be positive")
	}
	if c.Timetable.SessionTTLMinutes <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	if c.Timetable.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative")
	}

	if c.CaptchaStore.Enabled && c.CaptchaStore.BucketName == "" {
		return fmt.Errorf("S3_BUCKET is required when SAVE_CAPTCHA_IMAGES is enabled")
	}

	// Server configuration
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}

// RequestTimeout is the per-request deadline for portal calls
func (c *PortalConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// RetryDelay is the fixed pause between transport retries
func (c *PortalConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// CacheTTL is the minimum interval between refreshes
func (c *TimetableConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// SessionTTL is how long an authenticated portal session is trusted
func (c *TimetableConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// HistoryEnabled reports whether refresh attempts are recorded in Postgres
func (c *DatabaseConfig) HistoryEnabled() bool {
	return c.URL != ""
}
