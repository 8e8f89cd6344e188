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
	"gopkg.in/yaml.v3"
	"k8s.io/client-go/util/homedir"

	"github.com/helmcode/autofixer/pkg/scheduler"
	"github.com/helmcode/autofixer/pkg/store"
)

// FileName is the config file looked up in the home directory.
const FileName = ".autofixer.yaml"

// Config holds settings from the config file and environment. Command-line
// flags are applied on top by the commands.
type Config struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	Debounce   time.Duration `yaml:"debounce"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheSize  int           `yaml:"cache_size"`
	Output     string        `yaml:"output"`
	Tab        string        `yaml:"tab"`
	Categories []string      `yaml:"categories"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Debounce:  scheduler.DefaultDebounce,
		Timeout:   scheduler.DefaultTimeout,
		CacheSize: store.DefaultCapacity,
		Output:    "human",
		Tab:       "summary",
	}
}

// DefaultPath is ~/.autofixer.yaml, or "" when there is no home directory.
func DefaultPath() string {
	if home := homedir.HomeDir(); home != "" {
		return filepath.Join(home, FileName)
	}
	return ""
}

// Load reads .env from the working directory, then the config file at
// path (a missing file is fine), then AUTOFIXER_* environment overrides.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) readFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(homedir.HomeDir(), path[2:])
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("AUTOFIXER_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := getenv("AUTOFIXER_MODEL"); v != "" {
		c.Model = v
	}
	if v := getenv("AUTOFIXER_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AUTOFIXER_DEBOUNCE: %w", err)
		}
		c.Debounce = d
	}
	if v := getenv("AUTOFIXER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AUTOFIXER_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := getenv("AUTOFIXER_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUTOFIXER_CACHE_SIZE: %w", err)
		}
		c.CacheSize = n
	}
	return nil
}

// Validate rejects settings the analyzer cannot run with.
func (c Config) Validate() error {
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	switch c.Output {
	case "human", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q (human, json, yaml)", c.Output)
	}
	return nil
}
