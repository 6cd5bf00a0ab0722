// Package config loads server settings from defaults, an optional TOML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/olgasafonova/gleif-mcp-server/internal/base"
)

// Environment variables read by Load
const (
	EnvConfigFile = "GLEIF_MCP_CONFIG"
	EnvBaseURL    = "GLEIF_API_BASE_URL"
	EnvTimeout    = "GLEIF_MCP_TIMEOUT"
	EnvUserAgent  = "GLEIF_MCP_USER_AGENT"
	EnvLogLevel   = "GLEIF_MCP_LOG_LEVEL"
	EnvTransport  = "GLEIF_MCP_TRANSPORT"
	EnvHTTPAddr   = "GLEIF_MCP_HTTP_ADDR"
)

// Transports
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// DefaultEnvFile is read from the working directory when present
const DefaultEnvFile = ".env"

// DefaultHTTPAddr is the listen address for the HTTP transport
const DefaultHTTPAddr = ":8080"

// Config holds the server settings.
type Config struct {
	BaseURL   string        `validate:"required,url"`
	Timeout   time.Duration `validate:"gt=0"`
	UserAgent string        `validate:"required"`
	LogLevel  string        `validate:"oneof=debug info warn error"`
	Transport string        `validate:"oneof=stdio http"`
	HTTPAddr  string        `validate:"required,hostname_port"`
}

// fileConfig mirrors Config in the TOML file. Durations are strings such as "30s".
type fileConfig struct {
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
	LogLevel  string `toml:"log_level"`
	Transport string `toml:"transport"`
	HTTPAddr  string `toml:"http_addr"`
}

// Options controls where Load looks for files.
type Options struct {
	// ConfigFile overrides GLEIF_MCP_CONFIG
	ConfigFile string

	// EnvFile defaults to DefaultEnvFile; a missing file is ignored
	EnvFile string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:   base.DefaultBaseURL,
		Timeout:   base.DefaultTimeout,
		UserAgent: base.DefaultUserAgent,
		LogLevel:  "info",
		Transport: TransportStdio,
		HTTPAddr:  DefaultHTTPAddr,
	}
}

// Load builds a Config from defaults, the TOML file, the .env file and the
// environment. The result is not validated; call Validate after applying flags.
func Load(opts Options) (Config, error) {
	cfg := Default()

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	// godotenv never overrides variables that are already set
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	path := opts.ConfigFile
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize lower-cases the enumerated settings so "HTTP" selects the http transport.
func (c *Config) Normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Timeout != "" {
		d, err := ParseTimeout(fc.Timeout)
		if err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		c.Timeout = d
	}
	setIfNotEmpty(&c.BaseURL, fc.BaseURL)
	setIfNotEmpty(&c.UserAgent, fc.UserAgent)
	setIfNotEmpty(&c.LogLevel, fc.LogLevel)
	setIfNotEmpty(&c.Transport, fc.Transport)
	setIfNotEmpty(&c.HTTPAddr, fc.HTTPAddr)
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	setIfNotEmpty(&c.BaseURL, os.Getenv(EnvBaseURL))
	setIfNotEmpty(&c.UserAgent, os.Getenv(EnvUserAgent))
	setIfNotEmpty(&c.LogLevel, os.Getenv(EnvLogLevel))
	setIfNotEmpty(&c.Transport, os.Getenv(EnvTransport))
	setIfNotEmpty(&c.HTTPAddr, os.Getenv(EnvHTTPAddr))
	return nil
}

func setIfNotEmpty(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// ParseTimeout accepts a Go duration ("45s", "1m") or a bare number of seconds.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	return d, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate normalizes c in place, then checks every field and reports all
// failures at once.
func (c *Config) Validate() error {
	c.Normalize()

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s=%v fails %q", fe.Field(), fe.Value(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
