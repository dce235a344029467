package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendSupabase = "supabase"
	BackendMemory   = "memory"
)

// DefaultMaxUploadSize caps uploaded and attached PDFs.
const DefaultMaxUploadSize = 10 * 1024 * 1024 // 10 MiB

type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Upload UploadConfig `yaml:"upload"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// StoreConfig points at the hosted record store. URL and APIKey are the only
// connection settings the system needs.
type StoreConfig struct {
	Backend string `yaml:"backend"` // supabase, memory
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	Table   string `yaml:"table"`
}

type UploadConfig struct {
	MaxFileSize int64 `yaml:"max_file_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Load reads the yaml config at path and fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Store.Backend == "" {
		if c.Store.URL != "" {
			c.Store.Backend = BackendSupabase
		} else {
			c.Store.Backend = BackendMemory
		}
	}
	if c.Store.Table == "" {
		c.Store.Table = "ultrasound_reports"
	}
	if c.Upload.MaxFileSize == 0 {
		c.Upload.MaxFileSize = DefaultMaxUploadSize
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSupabase:
		if c.Store.URL == "" {
			return fmt.Errorf("store.url is required for the %s backend", BackendSupabase)
		}
		if c.Store.APIKey == "" {
			return fmt.Errorf("store.api_key is required for the %s backend", BackendSupabase)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Upload.MaxFileSize < 0 {
		return fmt.Errorf("upload.max_file_size must not be negative")
	}
	return nil
}
