// Package config loads meetsync configuration from a YAML file and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
)

// Default configuration values.
const (
	DefaultBackendURL       = "http://localhost:8000"
	DefaultRequestTimeout   = 60 * time.Second
	DefaultPollInterval     = 2 * time.Second
	DefaultAutoSyncInterval = 10 * time.Second
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultListenAddr       = "127.0.0.1:8787"
	DefaultConfigDir        = ".meetsync"
	DefaultConfigFile       = "config.yaml"
)

// AutoSyncConfig controls the background auto-sync controller.
type AutoSyncConfig struct {
	// Interval between cycles.
	Interval time.Duration `yaml:"interval"`

	// RequiresDeviceSync is the server-driven flag saying this account keeps files on the device.
	RequiresDeviceSync bool `yaml:"requires_device_sync"`

	// RunOnStart runs one cycle immediately instead of waiting for the first tick.
	RunOnStart bool `yaml:"run_on_start"`

	// RequiredArtifacts must all download before a meeting is confirmed.
	RequiredArtifacts []models.ArtifactType `yaml:"required_artifacts"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full meetsync configuration.
type Config struct {
	BackendURL     string         `yaml:"backend_url"`
	APIToken       string         `yaml:"api_token"`
	DataDir        string         `yaml:"data_dir"`
	RequestTimeout time.Duration  `yaml:"request_timeout"`
	PollInterval   time.Duration  `yaml:"poll_interval"`
	ListenAddr     string         `yaml:"listen_addr"`
	AutoSync       AutoSyncConfig `yaml:"auto_sync"`
	Log            LogConfig      `yaml:"log"`
}

// DefaultConfig returns a Config with defaults applied.
func DefaultConfig() *Config {
	return &Config{
		BackendURL:     DefaultBackendURL,
		DataDir:        defaultDataDir(),
		RequestTimeout: DefaultRequestTimeout,
		PollInterval:   DefaultPollInterval,
		ListenAddr:     DefaultListenAddr,
		AutoSync: AutoSyncConfig{
			Interval:          DefaultAutoSyncInterval,
			RequiredArtifacts: []models.ArtifactType{models.ArtifactTranscript, models.ArtifactSummary},
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DefaultConfigDir, "data")
	}
	return filepath.Join(home, DefaultConfigDir, "data")
}

// ConfigPath returns the config file location, honouring MEETSYNC_CONFIG.
func ConfigPath() (string, error) {
	if p := os.Getenv("MEETSYNC_CONFIG"); p != "" {
		return expandPath(p), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// Load reads defaults, then the config file at path if it exists, then the environment.
// An empty path means ConfigPath().
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg.DataDir = expandPath(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("MEETSYNC_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("MEETSYNC_API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv("MEETSYNC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MEETSYNC_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("MEETSYNC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MEETSYNC_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("MEETSYNC_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MEETSYNC_POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("MEETSYNC_AUTO_SYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MEETSYNC_AUTO_SYNC_INTERVAL: %w", err)
		}
		cfg.AutoSync.Interval = d
	}
	if v := os.Getenv("MEETSYNC_REQUIRES_DEVICE_SYNC"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MEETSYNC_REQUIRES_DEVICE_SYNC: %w", err)
		}
		cfg.AutoSync.RequiresDeviceSync = b
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend_url is required")
	}
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("backend_url must be an http(s) URL, got %q", c.BackendURL)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.AutoSync.Interval <= 0 {
		return fmt.Errorf("auto_sync.interval must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if len(c.AutoSync.RequiredArtifacts) == 0 {
		return fmt.Errorf("auto_sync.required_artifacts must not be empty")
	}
	for _, a := range c.AutoSync.RequiredArtifacts {
		if !a.IsValid() {
			return fmt.Errorf("auto_sync.required_artifacts: unknown artifact %q", a)
		}
	}
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
