package config

import (
	"strings"
	"testing"
)

func TestValidate_NoAdapters(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.HTTP.Enabled = false

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "at least one adapter") {
		t.Fatalf("Expected adapter error, got %v", err)
	}
}

func TestValidate_MetricsPortConflict(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Metrics.Enabled = true
	cfg.Server.Metrics.Port = cfg.Adapters.HTTP.Port

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected port conflict error")
	}
}

func TestValidate_StructTags(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "Format"},
		{"shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "ShutdownTimeout"},
		{"policy mode", func(c *Config) { c.Policy.Mode = "open" }, "Mode"},
		{"content type", func(c *Config) { c.Content.Type = "gcs" }, "Type"},
		{"queue size", func(c *Config) { c.Notifications.QueueSize = -1 }, "QueueSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Expected error to name %s, got %v", tt.field, err)
			}
		})
	}
}
