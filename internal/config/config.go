package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Site    SiteConfig    `yaml:"site" mapstructure:"site"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Theme   string        `yaml:"theme" mapstructure:"theme" validate:"oneof=green amber mono"`
}

type SiteConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Product string        `yaml:"product" mapstructure:"product" validate:"required"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

type StorageConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend" validate:"oneof=file sqlite"`
	Path       string `yaml:"path" mapstructure:"path"`
	Key        string `yaml:"key" mapstructure:"key" validate:"required"`
	QuotaBytes int64  `yaml:"quota_bytes" mapstructure:"quota_bytes" validate:"min=0"`
}

type SearchConfig struct {
	Debounce   time.Duration `yaml:"debounce" mapstructure:"debounce" validate:"gt=0"`
	MinQuery   int           `yaml:"min_query" mapstructure:"min_query" validate:"min=1"`
	BlurGrace  time.Duration `yaml:"blur_grace" mapstructure:"blur_grace" validate:"gte=0"`
	CacheSize  int           `yaml:"cache_size" mapstructure:"cache_size" validate:"min=0"`
	CacheTTL   time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl" validate:"gte=0"`
	RatePerSec float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec" validate:"gte=0"`
	Burst      int           `yaml:"burst" mapstructure:"burst" validate:"min=0"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file" mapstructure:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL: "http://localhost:8080",
			Product: "rulecraft",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend: "file",
			Key:     "rulecraft_bookmarks",
		},
		Search: SearchConfig{
			Debounce:   150 * time.Millisecond,
			MinQuery:   2,
			BlurGrace:  200 * time.Millisecond,
			CacheSize:  128,
			CacheTTL:   5 * time.Minute,
			RatePerSec: 5,
			Burst:      2,
		},
		Log:   LogConfig{Level: "info"},
		Theme: "green",
	}
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, "rulecraft")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, fallback, "rulecraft")
}

// Dir is where config.yaml lives by default.
func Dir() string { return xdgDir("XDG_CONFIG_HOME", ".config") }

// DefaultPath is the file written by WriteDefault when no path is given.
func DefaultPath() string { return filepath.Join(Dir(), "config.yaml") }

func dataDir() string  { return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")) }
func stateDir() string { return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state")) }

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("site.base_url", d.Site.BaseURL)
	v.SetDefault("site.product", d.Site.Product)
	v.SetDefault("site.timeout", d.Site.Timeout)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.key", d.Storage.Key)
	v.SetDefault("storage.quota_bytes", d.Storage.QuotaBytes)
	v.SetDefault("search.debounce", d.Search.Debounce)
	v.SetDefault("search.min_query", d.Search.MinQuery)
	v.SetDefault("search.blur_grace", d.Search.BlurGrace)
	v.SetDefault("search.cache_size", d.Search.CacheSize)
	v.SetDefault("search.cache_ttl", d.Search.CacheTTL)
	v.SetDefault("search.rate_per_sec", d.Search.RatePerSec)
	v.SetDefault("search.burst", d.Search.Burst)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", "")
	v.SetDefault("theme", d.Theme)
}

// Load reads the config file (cfgFile, or config.yaml on the search path),
// then RULECRAFT_* environment variables. A .env in the working directory
// is loaded first. A missing config file is not an error.
func Load(cfgFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	v.SetEnvPrefix("RULECRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints, then fills paths left empty.
func (c *Config) Validate() error {
	c.Site.BaseURL = strings.TrimRight(c.Site.BaseURL, "/")
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}

	if c.Storage.Path == "" {
		name := "storage.json"
		if c.Storage.Backend == "sqlite" {
			name = "storage.db"
		}
		c.Storage.Path = filepath.Join(dataDir(), name)
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(stateDir(), "rulecraft.log")
	}
	return nil
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	data, err := DefaultConfig().YAML()
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Settings flattens the config into dotted keys, durations as strings.
func (c *Config) Settings() map[string]any {
	return map[string]any{
		"site.base_url":       c.Site.BaseURL,
		"site.product":        c.Site.Product,
		"site.timeout":        c.Site.Timeout.String(),
		"storage.backend":     c.Storage.Backend,
		"storage.path":        c.Storage.Path,
		"storage.key":         c.Storage.Key,
		"storage.quota_bytes": c.Storage.QuotaBytes,
		"search.debounce":     c.Search.Debounce.String(),
		"search.min_query":    c.Search.MinQuery,
		"search.blur_grace":   c.Search.BlurGrace.String(),
		"search.cache_size":   c.Search.CacheSize,
		"search.cache_ttl":    c.Search.CacheTTL.String(),
		"search.rate_per_sec": c.Search.RatePerSec,
		"search.burst":        c.Search.Burst,
		"log.level":           c.Log.Level,
		"log.file":            c.Log.File,
		"theme":               c.Theme,
	}
}

// YAML renders the config as a nested document viper can read back.
func (c *Config) YAML() ([]byte, error) {
	doc := map[string]any{}
	for key, val := range c.Settings() {
		section, name, ok := strings.Cut(key, ".")
		if !ok {
			doc[key] = val
			continue
		}
		m, _ := doc[section].(map[string]any)
		if m == nil {
			m = map[string]any{}
			doc[section] = m
		}
		m[name] = val
	}
	return yaml.Marshal(doc)
}
