package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

type Config struct {
	Storage Storage `yaml:"storage"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

type Storage struct {
	Backend  string `yaml:"backend" env:"WONDERPICK_STORAGE_BACKEND"`
	DataDir  string `yaml:"data_dir" env:"WONDERPICK_DATA_DIR"`
	JSONFile string `yaml:"json_file" env:"WONDERPICK_JSON_FILE"`
}

type Server struct {
	Host string `yaml:"host" env:"WONDERPICK_HOST"`
	Port int    `yaml:"port" env:"WONDERPICK_PORT"`
}

type Logging struct {
	Level  string `yaml:"level" env:"WONDERPICK_LOG_LEVEL"`
	Format string `yaml:"format" env:"WONDERPICK_LOG_FORMAT"`
}

// ConfigDir returns the XDG config directory for wonderpick.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "wonderpick")
}

// DataDir returns the XDG data directory for wonderpick.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "wonderpick")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/wonderpick/config.yaml > ./config.yaml.
// An empty path with a nil error means no file was found and defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads a config YAML file and applies environment overrides.
// An empty path yields the built-in defaults plus overrides.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Storage: Storage{
			Backend:  BackendSQLite,
			JSONFile: "wonder.json",
		},
		Server:  Server{Host: "127.0.0.1", Port: 8000},
		Logging: Logging{Level: "info", Format: "console"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendJSON:
	default:
		return fmt.Errorf("unknown storage backend %q (want %q or %q)", c.Storage.Backend, BackendSQLite, BackendJSON)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return DataDir()
}

// SQLitePath returns the database file used by the sqlite backend.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.GetDataDir(), "wonderpick.db")
}

// JSONPath returns the records file used by the json backend.
func (c *Config) JSONPath() string {
	if filepath.IsAbs(c.Storage.JSONFile) {
		return c.Storage.JSONFile
	}
	return filepath.Join(c.GetDataDir(), c.Storage.JSONFile)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
