// Package config provides YAML-based configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override, e.g. MEDREPORT_SERVER_PORT.
const EnvPrefix = "MEDREPORT"

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port              int      `mapstructure:"port" yaml:"port"`
	BindAddress       string   `mapstructure:"bind_address" yaml:"bind_address"`
	EnableCORS        bool     `mapstructure:"enable_cors" yaml:"enable_cors"`
	AllowOrigins      []string `mapstructure:"allow_origins" yaml:"allow_origins"`
	ReadTimeout       int      `mapstructure:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeout      int      `mapstructure:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	IdleTimeout       int      `mapstructure:"idle_timeout_seconds" yaml:"idle_timeout_seconds"`
	BodyLimit         string   `mapstructure:"body_limit" yaml:"body_limit"`
	EnableCompression bool     `mapstructure:"enable_compression" yaml:"enable_compression"`
	CompressionLevel  int      `mapstructure:"compression_level" yaml:"compression_level"`
}

// BackendConfig locates the summarization backend.
type BackendConfig struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	UploadPath string `mapstructure:"upload_path" yaml:"upload_path"`
	// RequestTimeout of 0 leaves the transport defaults in place.
	RequestTimeout int `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// SessionConfig controls browser sessions and their UI state.
type SessionConfig struct {
	CookieName             string `mapstructure:"cookie_name" yaml:"cookie_name"`
	TimeoutMinutes         int    `mapstructure:"timeout_minutes" yaml:"timeout_minutes"`
	CleanupIntervalMinutes int    `mapstructure:"cleanup_interval_minutes" yaml:"cleanup_interval_minutes"`
	// DiscardStaleResponses drops the outcome of a submit that was superseded
	// by a later submit in the same session. Off means last writer wins.
	DiscardStaleResponses bool `mapstructure:"discard_stale_responses" yaml:"discard_stale_responses"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	UploadsDirectory string `mapstructure:"uploads_directory" yaml:"uploads_directory"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level          string `mapstructure:"level" yaml:"level"`
	Format         string `mapstructure:"format" yaml:"format"` // "console" or "json"
	RequestLogging bool   `mapstructure:"request_logging" yaml:"request_logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:              3000,
			BindAddress:       "0.0.0.0",
			EnableCORS:        false,
			AllowOrigins:      []string{"http://localhost:3000"},
			ReadTimeout:       30,
			WriteTimeout:      120,
			IdleTimeout:       120,
			BodyLimit:         "50M",
			EnableCompression: true,
			CompressionLevel:  5,
		},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8000",
			UploadPath:     "/upload",
			RequestTimeout: 0,
		},
		Session: SessionConfig{
			CookieName:             "medreport_session",
			TimeoutMinutes:         60,
			CleanupIntervalMinutes: 5,
			DiscardStaleResponses:  false,
		},
		Storage: StorageConfig{
			UploadsDirectory: "./data/uploads",
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "console",
			RequestLogging: true,
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from a YAML file. A missing file is created
// with the defaults. An empty path skips the file and uses defaults plus
// environment overrides.
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := DefaultConfig().Save(configPath); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		}

		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &AppConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()

	if configPath != "" {
		config.resolvePaths(filepath.Dir(configPath))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.bind_address", d.Server.BindAddress)
	v.SetDefault("server.enable_cors", d.Server.EnableCORS)
	v.SetDefault("server.allow_origins", d.Server.AllowOrigins)
	v.SetDefault("server.read_timeout_seconds", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout_seconds", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout_seconds", d.Server.IdleTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)
	v.SetDefault("server.enable_compression", d.Server.EnableCompression)
	v.SetDefault("server.compression_level", d.Server.CompressionLevel)

	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.upload_path", d.Backend.UploadPath)
	v.SetDefault("backend.request_timeout_seconds", d.Backend.RequestTimeout)

	v.SetDefault("session.cookie_name", d.Session.CookieName)
	v.SetDefault("session.timeout_minutes", d.Session.TimeoutMinutes)
	v.SetDefault("session.cleanup_interval_minutes", d.Session.CleanupIntervalMinutes)
	v.SetDefault("session.discard_stale_responses", d.Session.DiscardStaleResponses)

	v.SetDefault("storage.uploads_directory", d.Storage.UploadsDirectory)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.request_logging", d.Logging.RequestLogging)
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Medical Report Viewer configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides honours the short variables common to deployments
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if backendURL := os.Getenv("BACKEND_URL"); backendURL != "" {
		c.Backend.BaseURL = backendURL
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.UploadsDirectory) {
		c.Storage.UploadsDirectory = filepath.Join(configDir, c.Storage.UploadsDirectory)
	}
}

// Validate rejects values the server cannot start with.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Backend.RequestTimeout < 0 {
		return fmt.Errorf("backend.request_timeout_seconds must not be negative")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	if c.Session.TimeoutMinutes <= 0 {
		return fmt.Errorf("session.timeout_minutes must be positive, got %d", c.Session.TimeoutMinutes)
	}
	if c.Session.CleanupIntervalMinutes <= 0 {
		return fmt.Errorf("session.cleanup_interval_minutes must be positive, got %d", c.Session.CleanupIntervalMinutes)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}

// GetUploadDir returns the absolute uploads directory path
func (c *AppConfig) GetUploadDir() string {
	return c.Storage.UploadsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// UploadURL is the full backend endpoint receiving report files.
func (c *AppConfig) UploadURL() string {
	return strings.TrimRight(c.Backend.BaseURL, "/") + "/" + strings.TrimLeft(c.Backend.UploadPath, "/")
}

// BackendTimeout returns the per-request backend timeout; zero means none.
func (c *AppConfig) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeout) * time.Second
}

// SessionTimeout is how long an idle browser session is kept.
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutMinutes) * time.Minute
}

// CleanupInterval is how often idle sessions are expired.
func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Session.CleanupIntervalMinutes) * time.Minute
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.UploadsDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Storage.UploadsDirectory, err)
	}
	return nil
}
