package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/otiai10/consultbase/internal/logging"
)

// DefaultAPIAddr is used when neither the file nor the environment sets one
const DefaultAPIAddr = ":8080"

// Config represents the application configuration
type Config struct {
	API      *APIConfig      `yaml:"api,omitempty"`
	Profile  ProfileConfig   `yaml:"profile"`
	Clients  ClientsConfig   `yaml:"clients"`
	Log      LogConfig       `yaml:"log"`
	Security *SecurityConfig `yaml:"security,omitempty"`
}

// APIConfig represents the HTTP server configuration
type APIConfig struct {
	Addr      string `yaml:"addr"`                 // e.g. ":8080"
	StaticDir string `yaml:"static_dir,omitempty"` // optional UI build to serve
}

// ProfileConfig represents where the signed-in profile is cached
type ProfileConfig struct {
	Path string `yaml:"path"`
}

// ClientsConfig represents the client collection source
type ClientsConfig struct {
	FixturesPath string `yaml:"fixtures_path,omitempty"` // empty uses built-in fixtures
}

// LogConfig represents logger settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `yaml:"format"` // "json" | "console" | "auto"
}

// SecurityConfig represents browser-facing security settings
type SecurityConfig struct {
	CORSAllowedOrigins string `yaml:"cors_allowed_origins"` // comma separated, "*" for any
}

// GetCORSAllowedOrigins splits the configured origins.
// A nil config or empty value returns nil.
func (s *SecurityConfig) GetCORSAllowedOrigins() []string {
	if s == nil || strings.TrimSpace(s.CORSAllowedOrigins) == "" {
		return nil
	}
	parts := strings.Split(s.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// DefaultProfilePath returns the profile location under the user config dir
func DefaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".consultbase", "profile.yaml")
	}
	return filepath.Join(dir, "consultbase", "profile.yaml")
}

// Load reads configuration from the specified YAML file.
// An empty path delegates to LoadFromEnv.
// Environment variables override file values:
//   - CONSULTBASE_API_ADDR overrides api.addr
//   - CONSULTBASE_STATIC_DIR overrides api.static_dir
//   - CONSULTBASE_PROFILE_PATH overrides profile.path
//   - CONSULTBASE_CLIENTS_PATH overrides clients.fixtures_path
//   - CONSULTBASE_LOG_LEVEL / CONSULTBASE_LOG_FORMAT override log.*
//   - CONSULTBASE_CORS_ALLOWED_ORIGINS overrides security.cors_allowed_origins
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromEnv()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv builds the configuration from environment variables and defaults
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if addr := os.Getenv("CONSULTBASE_API_ADDR"); addr != "" {
		if cfg.API == nil {
			cfg.API = &APIConfig{}
		}
		cfg.API.Addr = addr
	}
	if dir := os.Getenv("CONSULTBASE_STATIC_DIR"); dir != "" {
		if cfg.API == nil {
			cfg.API = &APIConfig{}
		}
		cfg.API.StaticDir = dir
	}
	if p := os.Getenv("CONSULTBASE_PROFILE_PATH"); p != "" {
		cfg.Profile.Path = p
	}
	if p := os.Getenv("CONSULTBASE_CLIENTS_PATH"); p != "" {
		cfg.Clients.FixturesPath = p
	}
	if lvl := os.Getenv("CONSULTBASE_LOG_LEVEL"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if f := os.Getenv("CONSULTBASE_LOG_FORMAT"); f != "" {
		cfg.Log.Format = f
	}
	if origins := os.Getenv("CONSULTBASE_CORS_ALLOWED_ORIGINS"); origins != "" {
		if cfg.Security == nil {
			cfg.Security = &SecurityConfig{}
		}
		cfg.Security.CORSAllowedOrigins = origins
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API == nil {
		cfg.API = &APIConfig{}
	}
	if cfg.API.Addr == "" {
		cfg.API.Addr = DefaultAPIAddr
	}
	if cfg.Profile.Path == "" {
		cfg.Profile.Path = DefaultProfilePath()
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "auto"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API == nil {
		return fmt.Errorf("api is required")
	}
	if err := c.API.Validate(); err != nil {
		return err
	}

	if c.Profile.Path == "" {
		return fmt.Errorf("profile.path is required")
	}

	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("unsupported log.level: %q (supported: trace, debug, info, warn, error, disabled)", c.Log.Level)
	}
	if !logging.ValidFormat(c.Log.Format) {
		return fmt.Errorf("unsupported log.format: %q (supported: json, console, auto)", c.Log.Format)
	}

	return nil
}

// Validate checks if the API configuration is valid
func (a *APIConfig) Validate() error {
	if a.Addr == "" {
		return fmt.Errorf("api.addr is required")
	}
	return nil
}
