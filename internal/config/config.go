// ABOUTME: Configuration management for sociality with YAML config loading.
// ABOUTME: Handles API host, paging, breaker, session storage and logging settings, plus ~ expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/sociality/internal/api"
)

// EnvAPIURL overrides api.url when set.
const EnvAPIURL = "SOCIALITY_API_URL"

// DefaultPageSize is the list page size when none is configured.
const DefaultPageSize = 10

// Config stores sociality configuration loaded from ~/.config/sociality/config.yaml.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig holds remote API settings.
type APIConfig struct {
	URL      string            `yaml:"url" validate:"omitempty,url"`
	Timeout  time.Duration     `yaml:"timeout" validate:"gte=0"`
	PageSize int               `yaml:"page_size" validate:"gte=0,lte=100"`
	Breaker  api.BreakerConfig `yaml:"breaker"`
}

// SessionConfig holds an optional override for where the session is kept.
type SessionConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:      api.DefaultBaseURL,
			Timeout:  api.DefaultTimeout,
			PageSize: DefaultPageSize,
			Breaker:  api.DefaultBreakerConfig(),
		},
		Log: LogConfig{Level: "warn"},
	}
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	def := Default()
	if c.API.URL == "" {
		c.API.URL = def.API.URL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = def.API.Timeout
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = def.API.PageSize
	}
	b, db := &c.API.Breaker, def.API.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = db.MaxRequests
	}
	if b.Interval == 0 {
		b.Interval = db.Interval
	}
	if b.Timeout == 0 {
		b.Timeout = db.Timeout
	}
	if b.FailureThreshold == 0 {
		b.FailureThreshold = db.FailureThreshold
	}
	if b.MinRequests == 0 {
		b.MinRequests = db.MinRequests
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// GetSessionDir returns the directory holding the persisted session.
func (c *Config) GetSessionDir() (string, error) {
	if c.Session.Dir != "" {
		return ExpandPath(c.Session.Dir)
	}
	return SessionDir()
}

// GetLogFile returns the expanded log file path, or "" for stderr.
func (c *Config) GetLogFile() (string, error) {
	return ExpandPath(c.Log.File)
}

// SessionDir returns the default session directory.
func SessionDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "sociality", "session"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "sociality", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk. Returns default config if file doesn't exist.
// The SOCIALITY_API_URL environment variable wins over the file.
func Load() (*Config, error) {
	cfg, err := readFile()
	if err != nil {
		return nil, err
	}
	if env := strings.TrimSpace(os.Getenv(EnvAPIURL)); env != "" {
		cfg.API.URL = env
	}
	return cfg.finish()
}

// LoadFile reads config from disk without environment overrides, for
// editing and writing back.
func LoadFile() (*Config, error) {
	cfg, err := readFile()
	if err != nil {
		return nil, err
	}
	return cfg.finish()
}

func readFile() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() (*Config, error) {
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Keys lists the settings Set accepts.
var Keys = []string{"api.url", "api.timeout", "api.page_size", "session.dir", "log.level", "log.file"}

// Set assigns one setting by its dotted key and re-validates.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "api.url":
		c.API.URL = value
	case "api.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("api.timeout: %w", err)
		}
		c.API.Timeout = d
	case "api.page_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("api.page_size: %w", err)
		}
		c.API.PageSize = n
	case "session.dir":
		c.Session.Dir = value
	case "log.level":
		c.Log.Level = value
	case "log.file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown key %q (known: %s)", key, strings.Join(Keys, ", "))
	}
	return c.Validate()
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// YAML renders the effective configuration.
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
