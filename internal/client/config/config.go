package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. BOTDESK_API_URL.
const EnvPrefix = "BOTDESK"

// Config represents the client configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Quota   QuotaConfig   `mapstructure:"quota"`
	View    ViewConfig    `mapstructure:"view"`
	Store   StoreConfig   `mapstructure:"store"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	ChatTimeout time.Duration `mapstructure:"chat_timeout"`
	ListLimit   int           `mapstructure:"list_limit"` // organizations fetched per list call
}

// AuthConfig holds session monitoring settings.
type AuthConfig struct {
	StatusInterval time.Duration `mapstructure:"status_interval"`
	UsageInterval  time.Duration `mapstructure:"usage_interval"`
}

// QuotaConfig holds the fallback chatbot limits.
type QuotaConfig struct {
	UserDefault         int `mapstructure:"user_default"`
	OrganizationDefault int `mapstructure:"organization_default"`
	CacheSize           int `mapstructure:"cache_size"`
}

// ViewConfig holds list view settings.
type ViewConfig struct {
	PageSize int           `mapstructure:"page_size"`
	Debounce time.Duration `mapstructure:"debounce"`
	Mode     string        `mapstructure:"mode"` // grid or table
}

// StoreConfig holds local state database settings.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"` // sqlite file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChatConfig holds chat session settings.
type ChatConfig struct {
	Rate    float64 `mapstructure:"rate"` // messages per second
	Burst   int     `mapstructure:"burst"`
	History int     `mapstructure:"history"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	File   string `mapstructure:"file"`
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home dir: %w", err)
	}
	return filepath.Join(home, ".botdesk"), nil
}

// Load loads configuration from file, .env and the environment.
func Load(configPath string) (*Config, error) {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	v := viper.New()

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	setDefaults(v, dir)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(dir)
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.View.Mode != "grid" && cfg.View.Mode != "table" {
		cfg.View.Mode = "grid"
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	// API defaults
	v.SetDefault("api.url", "http://localhost:5000")
	v.SetDefault("api.timeout", 180*time.Second)
	v.SetDefault("api.chat_timeout", 90*time.Second)
	v.SetDefault("api.list_limit", 1000)

	// Auth defaults
	v.SetDefault("auth.status_interval", 30*time.Second)
	v.SetDefault("auth.usage_interval", 30*time.Second)

	// Quota defaults
	v.SetDefault("quota.user_default", 1)
	v.SetDefault("quota.organization_default", 2)
	v.SetDefault("quota.cache_size", 64)

	// View defaults
	v.SetDefault("view.page_size", 10)
	v.SetDefault("view.debounce", 300*time.Millisecond)
	v.SetDefault("view.mode", "grid")

	// Store defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", filepath.Join(dir, "botdesk.db"))
	v.SetDefault("store.port", 5432)
	v.SetDefault("store.sslmode", "disable")

	// Chat defaults
	v.SetDefault("chat.rate", 1.0)
	v.SetDefault("chat.burst", 3)
	v.SetDefault("chat.history", 200)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
}

// Set persists a single key to the user config file.
func Set(key string, value interface{}) error {
	return SetMany(map[string]interface{}{key: value})
}

// SetMany persists several keys in one write.
func SetMany(values map[string]interface{}) error {
	dir, err := Dir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))

	// Missing file is fine, it is created below.
	_ = v.ReadInConfig()

	for k, val := range values {
		v.Set(k, val)
	}

	if err := v.WriteConfig(); err != nil {
		if err := v.SafeWriteConfig(); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	return nil
}

// SaveAPIURL saves the backend base URL.
func SaveAPIURL(url string) error {
	return Set("api.url", url)
}
