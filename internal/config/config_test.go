package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("RequestTimeout = %s", cfg.RequestTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APIFLOW_API_URL", "https://flows.example.com")
	t.Setenv("APIFLOW_LOG_LEVEL", "debug")
	t.Setenv("APIFLOW_LOG_FORMAT", "json")
	t.Setenv("APIFLOW_LOG_FILE", "/tmp/apiflow.log")
	t.Setenv("APIFLOW_REQUEST_TIMEOUT", "5s")
	t.Setenv("APIFLOW_MAX_LINE_BYTES", "2048")

	cfg := NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	want := Config{
		APIURL:         "https://flows.example.com",
		LogLevel:       "debug",
		LogFormat:      "json",
		LogFile:        "/tmp/apiflow.log",
		RequestTimeout: 5 * time.Second,
		MaxLineBytes:   2048,
	}
	if *cfg != want {
		t.Errorf("config = %+v, want %+v", *cfg, want)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad duration", key: "APIFLOW_REQUEST_TIMEOUT", value: "soon"},
		{name: "bad int", key: "APIFLOW_MAX_LINE_BYTES", value: "big"},
		{name: "int out of range", key: "APIFLOW_MAX_LINE_BYTES", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := NewDefaultConfig().LoadFromEnv()
			if !errors.Is(err, ErrInvalidEnvValue) {
				t.Errorf("expected ErrInvalidEnvValue, got %v", err)
			}
		})
	}
}

func TestLoadYAML(t *testing.T) {
	cfg := NewDefaultConfig()
	err := cfg.LoadYAML([]byte(`
api_url: http://workflows.internal:9000
request_timeout: 45s
log_format: json
`))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}

	if cfg.APIURL != "http://workflows.internal:9000" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.RequestTimeout != 45*time.Second {
		t.Errorf("RequestTimeout = %s", cfg.RequestTimeout)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q", cfg.LogFormat)
	}
	// Unset keys keep their defaults.
	if cfg.LogLevel != DefaultLogLevel || cfg.MaxLineBytes != DefaultMaxLineBytes {
		t.Errorf("defaults overwritten: %+v", cfg)
	}
}

func TestLoadYAML_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "syntax", data: "api_url: [unclosed"},
		{name: "duration", data: "request_timeout: forever"},
		{name: "type", data: "max_line_bytes: lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDefaultConfig().LoadYAML([]byte(tt.data))
			if !errors.Is(err, ErrInvalidConfigFile) {
				t.Errorf("expected ErrInvalidConfigFile, got %v", err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing optional file", func(t *testing.T) {
		cfg := NewDefaultConfig()
		if err := cfg.LoadFile(filepath.Join(dir, "nope.yaml"), true); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("missing required file", func(t *testing.T) {
		cfg := NewDefaultConfig()
		if err := cfg.LoadFile(filepath.Join(dir, "nope.yaml"), false); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		if err := os.WriteFile(path, []byte("log_level: warn\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg := NewDefaultConfig()
		if err := cfg.LoadFile(path, false); err != nil {
			t.Fatalf("LoadFile: %v", err)
		}
		if cfg.LogLevel != "warn" {
			t.Errorf("LogLevel = %q", cfg.LogLevel)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		if err := NewDefaultConfig().LoadFile("", false); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "relative url", mutate: func(c *Config) { c.APIURL = "/api" }, wantErr: ErrInvalidAPIURL},
		{name: "unsupported scheme", mutate: func(c *Config) { c.APIURL = "ftp://host" }, wantErr: ErrInvalidAPIURL},
		{name: "log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: ErrInvalidLogLevel},
		{name: "log level case", mutate: func(c *Config) { c.LogLevel = "DEBUG" }},
		{name: "log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: ErrInvalidLogFormat},
		{name: "zero timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, wantErr: ErrInvalidRequestTimeout},
		{name: "huge timeout", mutate: func(c *Config) { c.RequestTimeout = 2 * time.Hour }, wantErr: ErrInvalidRequestTimeout},
		{name: "zero line bytes", mutate: func(c *Config) { c.MaxLineBytes = 0 }, wantErr: ErrInvalidMaxLineBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
