// Package config loads plate reader configuration from environment variables.
//
// The commands call godotenv.Load first, so a local .env file can provide
// any of these keys.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration shared by the plate commands
type Config struct {
	// OCR configuration
	TessdataPrefix string
	OCRLanguage    string

	// Pipeline configuration
	Workers        int
	VariantTimeout time.Duration
	MinConfidence  float64

	// Bounding-box predictor (ONNX); empty ModelPath disables prediction
	ModelPath       string
	ONNXRuntimeLib  string
	ModelInputScale float64

	// Used only when the model's input shape is dynamic; 0 defers to it
	ModelInputWidth  int
	ModelInputHeight int

	// Worker infrastructure
	RedisURL      string
	DatabaseURL   string
	QueueName     string
	EventsChannel string
	Concurrency   int

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		TessdataPrefix:   getEnvOrDefault("PLATE_TESSDATA_PREFIX", ""),
		OCRLanguage:      getEnvOrDefault("PLATE_OCR_LANGUAGE", "eng"),
		Workers:          getEnvAsIntOrDefault("PLATE_WORKERS", 9),
		VariantTimeout:   getEnvAsDurationOrDefault("PLATE_VARIANT_TIMEOUT", 10*time.Second),
		MinConfidence:    getEnvAsFloatOrDefault("PLATE_MIN_CONFIDENCE", 40),
		ModelPath:        getEnvOrDefault("PLATE_MODEL_PATH", ""),
		ONNXRuntimeLib:   getEnvOrDefault("PLATE_ONNXRUNTIME_LIB", "libonnxruntime.so"),
		ModelInputScale:  getEnvAsFloatOrDefault("PLATE_MODEL_INPUT_SCALE", 1.0/255.0),
		ModelInputWidth:  getEnvAsIntOrDefault("PLATE_MODEL_INPUT_WIDTH", 0),
		ModelInputHeight: getEnvAsIntOrDefault("PLATE_MODEL_INPUT_HEIGHT", 0),
		RedisURL:         getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:      getEnvOrDefault("DATABASE_URL", ""),
		QueueName:        getEnvOrDefault("PLATE_QUEUE", "plates"),
		EventsChannel:    getEnvOrDefault("PLATE_EVENTS_CHANNEL", "plates:read"),
		Concurrency:      getEnvAsIntOrDefault("PLATE_WORKER_CONCURRENCY", 4),
		LogLevel:         getEnvOrDefault("PLATE_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("PLATE_WORKERS must be between 1 and 64, got %d", c.Workers)
	}

	if c.VariantTimeout <= 0 {
		return fmt.Errorf("PLATE_VARIANT_TIMEOUT must be positive, got %v", c.VariantTimeout)
	}

	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("PLATE_MIN_CONFIDENCE must be between 0 and 100, got %v", c.MinConfidence)
	}

	if c.OCRLanguage == "" {
		return fmt.Errorf("PLATE_OCR_LANGUAGE is required")
	}

	if c.Concurrency < 1 || c.Concurrency > 100 {
		return fmt.Errorf("PLATE_WORKER_CONCURRENCY must be between 1 and 100, got %d", c.Concurrency)
	}

	if c.ModelInputScale <= 0 {
		return fmt.Errorf("PLATE_MODEL_INPUT_SCALE must be positive, got %v", c.ModelInputScale)
	}

	if c.ModelInputWidth < 0 || c.ModelInputHeight < 0 {
		return fmt.Errorf("PLATE_MODEL_INPUT_WIDTH and PLATE_MODEL_INPUT_HEIGHT must not be negative, got %dx%d",
			c.ModelInputWidth, c.ModelInputHeight)
	}

	return nil
}

// ValidateWorker checks the settings only the queue worker needs
func (c *Config) ValidateWorker() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.QueueName == "" {
		return fmt.Errorf("PLATE_QUEUE is required")
	}
	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsDurationOrDefault accepts Go duration strings ("1500ms", "10s")
// or a bare integer number of milliseconds.
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}

	ms, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return time.Duration(ms) * time.Millisecond
}
