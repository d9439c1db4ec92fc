// Package config resolves apiflow settings from defaults, an optional YAML
// file and the environment. Command-line flags are applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// Config holds the client settings
	Config struct {
		APIURL         string
		LogLevel       string
		LogFormat      string
		LogFile        string
		RequestTimeout time.Duration
		MaxLineBytes   int
	}

	// fileConfig mirrors Config in the YAML file; unset keys keep their value
	fileConfig struct {
		APIURL         *string `yaml:"api_url"`
		LogLevel       *string `yaml:"log_level"`
		LogFormat      *string `yaml:"log_format"`
		LogFile        *string `yaml:"log_file"`
		RequestTimeout *string `yaml:"request_timeout"`
		MaxLineBytes   *int    `yaml:"max_line_bytes"`
	}
)

const (
	DefaultAPIURL         = "http://localhost:8000"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxLineBytes   = 1024 * 1024

	MaxRequestTimeout = time.Hour
	MaxMaxLineBytes   = 64 * 1024 * 1024

	// EnvPrefix prefixes every environment variable read by LoadFromEnv
	EnvPrefix = "APIFLOW_"

	configDirName  = "apiflow"
	configFileName = "config.yaml"
)

var (
	ErrInvalidAPIURL         = errors.New("invalid API URL")
	ErrInvalidLogLevel       = errors.New("invalid log level")
	ErrInvalidLogFormat      = errors.New("invalid log format")
	ErrInvalidRequestTimeout = errors.New("request timeout must be positive")
	ErrInvalidMaxLineBytes   = errors.New("max line bytes must be positive")
	ErrInvalidEnvValue       = errors.New("invalid environment value")
	ErrInvalidConfigFile     = errors.New("invalid config file")
)

// LogLevels lists the accepted log level names
var LogLevels = []string{"debug", "info", "warn", "error"}

// NewDefaultConfig returns the built-in settings
func NewDefaultConfig() *Config {
	return &Config{
		APIURL:         DefaultAPIURL,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		RequestTimeout: DefaultRequestTimeout,
		MaxLineBytes:   DefaultMaxLineBytes,
	}
}

// DefaultPath returns the per-user config file location, or "" when the
// user config directory cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, configDirName, configFileName)
}

// LoadFile merges settings from a YAML file. A missing file is not an error
// when optional is true.
func (c *Config) LoadFile(path string, optional bool) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return c.LoadYAML(data)
}

// LoadYAML merges settings from YAML content
func (c *Config) LoadYAML(data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfigFile, err)
	}

	if fc.APIURL != nil {
		c.APIURL = *fc.APIURL
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		c.LogFormat = *fc.LogFormat
	}
	if fc.LogFile != nil {
		c.LogFile = *fc.LogFile
	}
	if fc.RequestTimeout != nil {
		d, err := time.ParseDuration(*fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("%w: request_timeout: %v", ErrInvalidConfigFile, err)
		}
		c.RequestTimeout = d
	}
	if fc.MaxLineBytes != nil {
		c.MaxLineBytes = *fc.MaxLineBytes
	}
	return nil
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	if v := getenv("API_URL"); v != "" {
		c.APIURL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := getenv("LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sREQUEST_TIMEOUT: %v", ErrInvalidEnvValue, EnvPrefix, err)
		}
		c.RequestTimeout = d
	}
	if err := loadEnvInt("MAX_LINE_BYTES", &c.MaxLineBytes, 1, MaxMaxLineBytes); err != nil {
		return err
	}
	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidAPIURL, c.APIURL)
	}

	if !validLogLevel(c.LogLevel) {
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, c.LogLevel)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: %s", ErrInvalidLogFormat, c.LogFormat)
	}

	if c.RequestTimeout <= 0 || c.RequestTimeout > MaxRequestTimeout {
		return fmt.Errorf("%w: %s", ErrInvalidRequestTimeout, c.RequestTimeout)
	}

	if c.MaxLineBytes <= 0 || c.MaxLineBytes > MaxMaxLineBytes {
		return fmt.Errorf("%w: %d", ErrInvalidMaxLineBytes, c.MaxLineBytes)
	}

	return nil
}

func validLogLevel(level string) bool {
	level = strings.ToLower(level)
	for _, l := range LogLevels {
		if l == level {
			return true
		}
	}
	return false
}

func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

func loadEnvInt(name string, target *int, minVal, maxVal int) error {
	v := getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s%s: %v", ErrInvalidEnvValue, EnvPrefix, name, err)
	}
	if n < minVal || n > maxVal {
		return fmt.Errorf("%w: %s%s must be between %d and %d",
			ErrInvalidEnvValue, EnvPrefix, name, minVal, maxVal)
	}
	*target = n
	return nil
}
