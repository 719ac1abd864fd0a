package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration, loaded from an optional
// YAML file and overlaid with environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// LoginPath is the public admin login page; the auth middleware
	// redirects unauthenticated page requests here.
	LoginPath string `yaml:"login-path"`
}

// DatabaseConfig holds the database DSN (PostgreSQL or SQLite).
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SessionConfig holds session-cookie settings.
type SessionConfig struct {
	Secret     string `yaml:"secret"`
	CookieName string `yaml:"cookie-name"`
	TTLHours   int    `yaml:"ttl-hours"`
	SameSite   string `yaml:"same-site"` // strict, lax or none.
	Secure     bool   `yaml:"secure"`
}

// StorageConfig selects and configures the object-store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "s3" or "file".

	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access-key"`
	SecretKey string `yaml:"secret-key"`

	LocalDir string `yaml:"local-dir"` // Root directory for the file backend.
}

// LoggingConfig holds log level and optional rotating-file output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // Empty logs to stderr only.
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// ResolveConfigPath returns the config file path, preferring the explicit
// argument, then the CAREERS_CONFIG environment variable.
func ResolveConfigPath(explicit string) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(os.Getenv("CAREERS_CONFIG"))
}

// Load reads the YAML file at path (when present) and applies environment
// overrides. A missing file is not an error; the environment alone can carry
// a full configuration.
func Load(path string) (*Config, error) {
	// Best-effort .env support for local development.
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, errRead := os.ReadFile(path)
		switch {
		case errRead == nil:
			if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
			}
		case os.IsNotExist(errRead):
			// Fall through to environment-only configuration.
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	applyEnv(cfg)

	if errValidate := cfg.validate(); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			LoginPath: "/admin",
		},
		Session: SessionConfig{
			CookieName: "careers_session",
			TTLHours:   24,
			SameSite:   "strict",
		},
		Storage: StorageConfig{
			Backend:  "file",
			LocalDir: "data/storage",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

func applyEnv(cfg *Config) {
	if v := envString("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := envString("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := envString("SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if v := envString("SESSION_TTL_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			cfg.Session.TTLHours = hours
		}
	}
	if v := envString("SESSION_SAMESITE"); v != "" {
		cfg.Session.SameSite = strings.ToLower(v)
	}
	if v := envString("SESSION_SECURE"); v != "" {
		cfg.Session.Secure = v == "1" || strings.EqualFold(v, "true")
	}
	if v := envString("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := envString("STORAGE_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := envString("STORAGE_PREFIX"); v != "" {
		cfg.Storage.Prefix = v
	}
	if v := envString("STORAGE_REGION"); v != "" {
		cfg.Storage.Region = v
	}
	if v := envString("STORAGE_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := envString("STORAGE_ACCESS_KEY"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := envString("STORAGE_SECRET_KEY"); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := envString("STORAGE_LOCAL_DIR"); v != "" {
		cfg.Storage.LocalDir = v
	}
	if v := envString("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := envString("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func (c *Config) validate() error {
	if c.Session.TTLHours < 1 {
		c.Session.TTLHours = 1
	}
	switch c.Session.SameSite {
	case "strict", "lax", "none":
	default:
		return fmt.Errorf("config: invalid session same-site %q", c.Session.SameSite)
	}
	switch c.Storage.Backend {
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("config: s3 backend requires a bucket")
		}
	case "file":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("config: file backend requires local-dir")
		}
	default:
		return fmt.Errorf("config: unsupported storage backend %q", c.Storage.Backend)
	}
	return nil
}
