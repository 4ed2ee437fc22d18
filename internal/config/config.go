package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // DATE_TIMEZONE must resolve in minimal images

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port" validate:"required,numeric"`
	Env             string        `json:"env" validate:"oneof=development production test"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"gt=0"`
	HTTPTimeout     time.Duration `json:"http_timeout" validate:"gt=0"`
	SiteURL         string        `json:"site_url" validate:"required,url"`

	// Content store configuration
	CMSEndpoint     string        `json:"cms_endpoint" validate:"required,url"`
	CMSAccessToken  string        `json:"cms_access_token"`
	CMSDocumentType string        `json:"cms_document_type" validate:"required"`
	CMSRetryCount   int           `json:"cms_retry_count" validate:"min=0,max=10"`
	CMSRefTTL       time.Duration `json:"cms_ref_ttl"`

	// Presentation
	ListingPageSize int    `json:"listing_page_size" validate:"min=1,max=100"`
	StaticPaths     int    `json:"static_paths" validate:"min=0,max=100"`
	ReadingWPM      int    `json:"reading_wpm" validate:"min=1"`
	DateLocale      string `json:"date_locale" validate:"oneof=pt_BR en es"`
	DateTimezone    string `json:"date_timezone" validate:"timezone"`

	// Redis configuration
	CacheEnabled   bool          `json:"cache_enabled"`
	RedisURL       string        `json:"redis_url" validate:"required_if=CacheEnabled true"`
	RedisPrefix    string        `json:"redis_prefix"`
	CacheTTL       time.Duration `json:"cache_ttl"`
	MaxConcurrency int           `json:"max_concurrency" validate:"min=1"`

	// Static generation
	OutputPath   string        `json:"output_path" validate:"required"`
	BuildTimeout time.Duration `json:"build_timeout" validate:"gt=0"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `json:"r2_endpoint" validate:"omitempty,url"`
	R2AccessKey string `json:"r2_access_key" validate:"required_with=R2Endpoint"`
	R2SecretKey string `json:"r2_secret_key" validate:"required_with=R2Endpoint"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string `json:"admin_api_key"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// LoadFromEnv is Load without the fatal exit, for callers that want the error.
func LoadFromEnv() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		SiteURL:         strings.TrimRight(getEnv("SITE_URL", "http://localhost:8080"), "/"),

		// Content store configuration
		CMSEndpoint:     strings.TrimRight(getEnv("CMS_ENDPOINT", ""), "/"),
		CMSAccessToken:  getEnv("CMS_ACCESS_TOKEN", ""),
		CMSDocumentType: getEnv("CMS_DOCUMENT_TYPE", "posts"),
		CMSRetryCount:   getEnvAsInt("CMS_RETRY_COUNT", 2),
		CMSRefTTL:       getEnvAsDuration("CMS_REF_TTL", time.Minute),

		// Presentation
		ListingPageSize: getEnvAsInt("LISTING_PAGE_SIZE", 1),
		StaticPaths:     getEnvAsInt("STATIC_PATHS", 10),
		ReadingWPM:      getEnvAsInt("READING_WPM", 200),
		DateLocale:      getEnv("DATE_LOCALE", "pt_BR"),
		DateTimezone:    getEnv("DATE_TIMEZONE", "UTC"),

		// Redis configuration
		CacheEnabled:   getEnvAsBool("CACHE_ENABLED", true),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix:    getEnv("REDIS_PREFIX", "blogfront:"),
		CacheTTL:       getEnvAsDuration("CACHE_TTL", 10*time.Minute),
		MaxConcurrency: getEnvAsInt("MAX_CONCURRENCY", 5),

		// Static generation
		OutputPath:   getEnv("OUTPUT_PATH", "./data/site"),
		BuildTimeout: getEnvAsDuration("BUILD_TIMEOUT", 10*time.Minute),

		// CloudFlare R2 Configuration
		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "blogfront"),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Security
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// PublishEnabled reports whether generated pages should be uploaded to R2.
func (c *Config) PublishEnabled() bool {
	return c.R2Endpoint != "" && c.R2Bucket != ""
}

// Location returns the time zone dates are displayed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DateTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
