package config

import (
	"testing"
)

func releaseConfig() *Config {
	return &Config{
		GinMode:        "release",
		SessionSecret:  "s",
		HmacSecret:     "h",
		DatabaseURL:    "postgres://localhost/newsletter",
		QueueRedisURL:  "redis://localhost:6379/0",
		EmailSender:    "newsletter@example.com",
		EmailAuthToken: "token",
		HashPoolSize:   4,
	}
}

func TestValidateReleaseModeRequiresSecrets(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "SESSION_SECRET欠落", mutate: func(c *Config) { c.SessionSecret = "" }},
		{name: "HMAC_SECRET欠落", mutate: func(c *Config) { c.HmacSecret = "" }},
		{name: "DATABASE_URL欠落", mutate: func(c *Config) { c.DatabaseURL = "" }},
		{name: "QUEUE_REDIS_URL欠落", mutate: func(c *Config) { c.QueueRedisURL = "" }},
		{name: "EMAIL_SENDER欠落", mutate: func(c *Config) { c.EmailSender = "" }},
		{name: "EMAIL_AUTH_TOKEN欠落", mutate: func(c *Config) { c.EmailAuthToken = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := releaseConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() succeeded, want error")
			}
		})
	}
}

func TestValidateReleaseModeComplete(t *testing.T) {
	if err := releaseConfig().Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
}

func TestValidateDebugModeAllowsEmptySecrets(t *testing.T) {
	cfg := &Config{GinMode: "debug", HashPoolSize: 4}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
}

func TestValidateRejectsInvalidHashPoolSize(t *testing.T) {
	cfg := &Config{GinMode: "debug", HashPoolSize: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate() succeeded, want error for pool size 0")
	}
}
