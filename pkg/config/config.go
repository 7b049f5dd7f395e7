package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Store file names inside the data directory. These names are an interop
// contract with the other process and with humans editing the files.
const (
	RulesFileName   = "network-rules.json"
	PendingFileName = "network-pending.json"
	LogFileName     = "network-access.log"
)

// HTTPConfig contains settings for one HTTP listener.
type HTTPConfig struct {
	Addr   string `yaml:"addr" envconfig:"ADDR"`
	APIKey string `yaml:"api_key" envconfig:"API_KEY"`
}

// Config is the root configuration structure shared by both processes.
type Config struct {
	// DataDir holds the three store files. Both processes must point at
	// the same directory for the file-exchange protocol to work.
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR"`

	// LogLevel controls structured logging verbosity (DEBUG, INFO, WARN, ERROR).
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	// Admission is the decision daemon's listener.
	Admission HTTPConfig `yaml:"admission" envconfig:"ADMISSION"`

	// Management is the management API listener.
	Management HTTPConfig `yaml:"management" envconfig:"MANAGEMENT"`

	// PendingCap bounds the approval queue.
	PendingCap int `yaml:"pending_cap" envconfig:"PENDING_CAP"`

	// RefreshInterval is the management cache poll period.
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"REFRESH_INTERVAL"`

	// StreamInterval is the SSE emission check period.
	StreamInterval time.Duration `yaml:"stream_interval" envconfig:"STREAM_INTERVAL"`
}

// RulesPath returns the rule store file path.
func (c *Config) RulesPath() string { return filepath.Join(c.DataDir, RulesFileName) }

// PendingPath returns the pending queue file path.
func (c *Config) PendingPath() string { return filepath.Join(c.DataDir, PendingFileName) }

// LogPath returns the access log file path.
func (c *Config) LogPath() string { return filepath.Join(c.DataDir, LogFileName) }

// Load reads configuration from the specified path, or defaults if path is
// empty. Priority: Env Vars > Config File > Defaults.
func Load(path string) (*Config, error) {
	// Try loading .env files (ignore error if not present)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if path == "" {
		// Try default locations
		home, err := os.UserHomeDir()
		if err == nil {
			defaultPath := filepath.Join(home, ".netsentry", "config.yaml")
			if _, err := os.Stat(defaultPath); err == nil {
				path = defaultPath
			}
		}

		// Try local directory config.yaml
		localPath := "config.yaml"
		if _, err := os.Stat(localPath); err == nil {
			path = localPath
		}
	}

	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Process Env Vars (NETSENTRY_ prefix). These override file values.
	if err := envconfig.Process("NETSENTRY", cfg); err != nil {
		return nil, fmt.Errorf("failed to process env vars: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.DataDir = filepath.Join(home, ".netsentry")
	}
	if cfg.Admission.Addr == "" {
		cfg.Admission.Addr = ":8080"
	}
	if cfg.Management.Addr == "" {
		cfg.Management.Addr = ":8081"
	}
	if cfg.PendingCap <= 0 {
		cfg.PendingCap = 100
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 2 * time.Second
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = time.Second
	}
}
