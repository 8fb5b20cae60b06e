package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	DatabaseURL string
	RedisURL    string

	// Object storage
	ImageBucket  string
	CalendarKey  string
	EmulatorHost string

	// Image generation
	OpenAISecretID string
	ImageModel     string
	ImageSize      string
	ImageStyle     string
	ImageQuality   string
	ImageStub      bool

	// Twitter posting
	TwitterSecretID string
	SecretsKey      string

	// Generator behavior
	GenerateSchedule    string
	GenerateTimezone    string
	ContinueOnError     bool
	GenerateConcurrency int

	// Gallery API
	OriginHeaderName  string
	OriginHeaderValue string

	Env       string
	Port      string
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		ImageBucket:         os.Getenv("IMAGE_BUCKET_NAME"),
		CalendarKey:         getEnvWithDefault("CALENDAR_OBJECT_KEY", "config/national-days.json"),
		EmulatorHost:        os.Getenv("STORAGE_EMULATOR_HOST"),
		OpenAISecretID:      getEnvWithDefault("OPENAI_SECRET_ID", "OPENAI_API_KEY"),
		ImageModel:          getEnvWithDefault("IMAGE_MODEL", "dall-e-3"),
		ImageSize:           getEnvWithDefault("IMAGE_SIZE", "1024x1024"),
		ImageStyle:          getEnvWithDefault("IMAGE_STYLE", "vivid"),
		ImageQuality:        getEnvWithDefault("IMAGE_QUALITY", "hd"),
		ImageStub:           getEnvBool("IMAGE_GEN_STUB", false),
		TwitterSecretID:     getEnvWithDefault("TWITTER_SECRET_ID", "TWITTER_CREDENTIALS"),
		SecretsKey:          os.Getenv("SECRETS_KEY"),
		GenerateSchedule:    getEnvWithDefault("GENERATE_SCHEDULE", "0 9 * * *"),
		GenerateTimezone:    getEnvWithDefault("GENERATE_TIMEZONE", "UTC"),
		ContinueOnError:     getEnvBool("GENERATE_CONTINUE_ON_ERROR", false),
		GenerateConcurrency: getEnvInt("GENERATE_CONCURRENCY", 1),
		OriginHeaderName:    os.Getenv("ORIGIN_HEADER_NAME"),
		OriginHeaderValue:   os.Getenv("ORIGIN_HEADER_VALUE"),
		Env:                 getEnvWithDefault("ENV", "development"),
		Port:                getEnvWithDefault("PORT", "8080"),
		LogLevel:            getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvWithDefault("LOG_FORMAT", "text"),
	}
}

// Validate checks that everything the pipeline needs is present
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.ImageBucket == "" {
		missing = append(missing, "IMAGE_BUCKET_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	}
	if c.GenerateConcurrency < 1 {
		return fmt.Errorf("GENERATE_CONCURRENCY must be >= 1, got %d", c.GenerateConcurrency)
	}
	return nil
}

// ValidateGallery checks the origin-header guard settings the gallery API
// requires. Validated separately because the pipeline can run without the
// gallery surface in development.
func (c *Config) ValidateGallery() error {
	var missing []string
	if c.OriginHeaderName == "" {
		missing = append(missing, "ORIGIN_HEADER_NAME")
	}
	if c.OriginHeaderValue == "" {
		missing = append(missing, "ORIGIN_HEADER_VALUE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
