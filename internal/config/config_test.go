package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"PLATE_TESSDATA_PREFIX", "PLATE_OCR_LANGUAGE", "PLATE_WORKERS",
		"PLATE_VARIANT_TIMEOUT", "PLATE_MIN_CONFIDENCE", "PLATE_MODEL_PATH",
		"PLATE_QUEUE", "PLATE_WORKER_CONCURRENCY", "PLATE_MODEL_INPUT_SCALE",
		"PLATE_MODEL_INPUT_WIDTH", "PLATE_MODEL_INPUT_HEIGHT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Workers != 9 {
		t.Errorf("Workers: got %d, want 9", cfg.Workers)
	}
	if cfg.VariantTimeout != 10*time.Second {
		t.Errorf("VariantTimeout: got %v, want 10s", cfg.VariantTimeout)
	}
	if cfg.MinConfidence != 40 {
		t.Errorf("MinConfidence: got %v, want 40", cfg.MinConfidence)
	}
	if cfg.OCRLanguage != "eng" {
		t.Errorf("OCRLanguage: got %s, want eng", cfg.OCRLanguage)
	}
	if cfg.QueueName != "plates" {
		t.Errorf("QueueName: got %s, want plates", cfg.QueueName)
	}
	if cfg.ModelInputWidth != 0 || cfg.ModelInputHeight != 0 {
		t.Errorf("model input: got %dx%d, want 0x0", cfg.ModelInputWidth, cfg.ModelInputHeight)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PLATE_WORKERS", "3")
	t.Setenv("PLATE_VARIANT_TIMEOUT", "1500ms")
	t.Setenv("PLATE_OCR_LANGUAGE", "deu")
	t.Setenv("PLATE_MODEL_INPUT_WIDTH", "320")
	t.Setenv("PLATE_MODEL_INPUT_HEIGHT", "240")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Workers != 3 {
		t.Errorf("Workers: got %d, want 3", cfg.Workers)
	}
	if cfg.VariantTimeout != 1500*time.Millisecond {
		t.Errorf("VariantTimeout: got %v, want 1.5s", cfg.VariantTimeout)
	}
	if cfg.OCRLanguage != "deu" {
		t.Errorf("OCRLanguage: got %s, want deu", cfg.OCRLanguage)
	}
	if cfg.ModelInputWidth != 320 || cfg.ModelInputHeight != 240 {
		t.Errorf("model input: got %dx%d, want 320x240", cfg.ModelInputWidth, cfg.ModelInputHeight)
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset", "", 5 * time.Second},
		{"duration string", "2s", 2 * time.Second},
		{"bare milliseconds", "250", 250 * time.Millisecond},
		{"garbage", "soon", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PLATE_TEST_DURATION", tt.value)
			got := getEnvAsDurationOrDefault("PLATE_TEST_DURATION", 5*time.Second)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		OCRLanguage:     "eng",
		Workers:         9,
		VariantTimeout:  time.Second,
		MinConfidence:   40,
		Concurrency:     4,
		ModelInputScale: 1,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "PLATE_WORKERS"},
		{"negative timeout", func(c *Config) { c.VariantTimeout = -time.Second }, "PLATE_VARIANT_TIMEOUT"},
		{"confidence too high", func(c *Config) { c.MinConfidence = 101 }, "PLATE_MIN_CONFIDENCE"},
		{"no language", func(c *Config) { c.OCRLanguage = "" }, "PLATE_OCR_LANGUAGE"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "PLATE_WORKER_CONCURRENCY"},
		{"model input size", func(c *Config) { c.ModelInputWidth, c.ModelInputHeight = 224, 224 }, ""},
		{"negative model width", func(c *Config) { c.ModelInputWidth = -1 }, "PLATE_MODEL_INPUT_WIDTH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}

func TestValidateWorker(t *testing.T) {
	c := Config{RedisURL: "redis://localhost:6379/0", QueueName: "plates"}
	if err := c.ValidateWorker(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("expected DATABASE_URL error, got %v", err)
	}

	c.DatabaseURL = "postgres://localhost/plates"
	if err := c.ValidateWorker(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
