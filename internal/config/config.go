package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Downloads     DownloadConfig     `mapstructure:"downloads"`
	Network       NetworkConfig      `mapstructure:"network"`
	Server        ServerConfig       `mapstructure:"server"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Log           LogConfig          `mapstructure:"log"`
}

// DownloadConfig holds chapter download settings
type DownloadConfig struct {
	Path             string          `mapstructure:"path"`
	Archive          bool            `mapstructure:"archive"`
	RetryBackoff     time.Duration   `mapstructure:"retry_backoff"`
	RetryRateLimited bool            `mapstructure:"retry_rate_limited"`
	RateLimit        RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds page fetches to Items per Window. Items <= 0 disables it.
type RateLimitConfig struct {
	Items  int           `mapstructure:"items"`
	Window time.Duration `mapstructure:"window"`
}

// NetworkConfig holds network settings
type NetworkConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	BrowserFallback bool          `mapstructure:"browser_fallback"`
	MangadexAPI     string        `mapstructure:"mangadex_api"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// NotificationConfig holds desktop notification settings
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// DefaultUserAgent is sent with every request unless overridden
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var cfg *Config

// GetConfigDir returns the configuration directory path
func GetConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mangadl")
}

// GetDBPath returns the database file path
func GetDBPath() string {
	return filepath.Join(GetConfigDir(), "mangadl.db")
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Init initializes the configuration
func Init(cfgFile string) error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(GetConfigDir())
	}

	// Environment variable overrides
	viper.SetEnvPrefix("MANGADL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	cfg = nil
	return nil
}

func setDefaults() {
	viper.SetDefault("downloads.path", "~/Downloads/manga")
	viper.SetDefault("downloads.archive", false)
	viper.SetDefault("downloads.retry_backoff", 5*time.Second)
	viper.SetDefault("downloads.retry_rate_limited", false)
	viper.SetDefault("downloads.rate_limit.items", 0)
	viper.SetDefault("downloads.rate_limit.window", time.Second)
	viper.SetDefault("network.timeout", 30*time.Second)
	viper.SetDefault("network.user_agent", DefaultUserAgent)
	viper.SetDefault("network.browser_fallback", false)
	viper.SetDefault("network.mangadex_api", "https://api.mangadex.org")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("notifications.enabled", false)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		cfg = &Config{}
		viper.Unmarshal(cfg)
		cfg.Downloads.Path = expandPath(cfg.Downloads.Path)
	}
	return cfg
}

// Set sets a configuration value
func Set(key, value string) error {
	viper.Set(key, value)

	// Ensure config directory exists
	configDir := GetConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// Reset cached config
	cfg = nil

	return viper.WriteConfigAs(GetConfigPath())
}

// GetValue retrieves a configuration value
func GetValue(key string) interface{} {
	return viper.Get(key)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
