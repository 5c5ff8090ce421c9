package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	tests := []struct {
		name   string
		check  func(*Config) bool
		expect string
	}{
		{
			name:   "default host is 0.0.0.0",
			check:  func(c *Config) bool { return c.Host == "0.0.0.0" },
			expect: "0.0.0.0",
		},
		{
			name:   "default port is 8080",
			check:  func(c *Config) bool { return c.Port == 8080 },
			expect: "8080",
		},
		{
			name:   "default log level is info",
			check:  func(c *Config) bool { return c.LogLevel == "info" },
			expect: "info",
		},
		{
			name:   "default log format is json",
			check:  func(c *Config) bool { return c.LogFormat == "json" },
			expect: "json",
		},
		{
			name:   "default metrics path",
			check:  func(c *Config) bool { return c.MetricsPath == "/metrics" },
			expect: "/metrics",
		},
		{
			name:   "listen addr format",
			check:  func(c *Config) bool { return c.ListenAddr() == "0.0.0.0:8080" },
			expect: "0.0.0.0:8080",
		},
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(cfg) {
				t.Errorf("expected %s", tt.expect)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	tests := []struct {
		nodeEnv string
		want    bool
	}{
		{"production", true},
		{"development", false},
		{"", false},
		{"staging", false},
	}
	for _, tt := range tests {
		c := &Config{NodeEnv: tt.nodeEnv}
		if got := c.IsProduction(); got != tt.want {
			t.Errorf("NodeEnv=%q: IsProduction() = %v, want %v", tt.nodeEnv, got, tt.want)
		}
	}
}

func TestKoreaBoundsEnforced(t *testing.T) {
	tests := []struct {
		strictKoreaBounds string
		want              bool
	}{
		{"true", true},
		{"false", false},
		{"", true},
		{"anything-else", true},
	}
	for _, tt := range tests {
		c := &Config{StrictKoreaBounds: tt.strictKoreaBounds}
		if got := c.KoreaBoundsEnforced(); got != tt.want {
			t.Errorf("StrictKoreaBounds=%q: KoreaBoundsEnforced() = %v, want %v", tt.strictKoreaBounds, got, tt.want)
		}
	}
}
