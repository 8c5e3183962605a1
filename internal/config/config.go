// Package config provides configuration management for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	API     APIConfig     `mapstructure:"api"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// APIConfig describes how to reach the EDUCORE server
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// CSRFToken and SessionID are used when no browser credentials are
	// available, i.e. for the background monitor poller.
	CSRFToken string `mapstructure:"csrf_token"`
	SessionID string `mapstructure:"session_id"`
}

// MonitorConfig holds the timing defaults of the monitor and conflict checker
type MonitorConfig struct {
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	DebounceDelay     time.Duration `mapstructure:"debounce_delay"`
	SuccessBannerTTL  time.Duration `mapstructure:"success_banner_ttl"`
	InitialCheckDelay time.Duration `mapstructure:"initial_check_delay"`
	PulseDuration     time.Duration `mapstructure:"pulse_duration"`
	// Schedule form sessions without subscribers are closed after
	// FormIdleTimeout. Zero disables the expiry loop.
	FormIdleTimeout    time.Duration `mapstructure:"form_idle_timeout"`
	FormExpiryInterval time.Duration `mapstructure:"form_expiry_interval"`
}

// RedisConfig holds Redis/Valkey configuration
type RedisConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// URI is prioritized if provided, otherwise individual connection parameters are used
	URI       string `mapstructure:"uri"`
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	// TTL for stored settings (0 means no expiration)
	SettingsTTL time.Duration `mapstructure:"settings_ttl"`
}

// LogConfig selects the log level and encoder
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from defaults, an optional config file and the
// environment. Environment variables use the EDUCORE_ prefix, e.g.
// EDUCORE_API_BASE_URL or EDUCORE_REDIS_ENABLED.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("EDUCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.csrf_token", "")
	v.SetDefault("api.session_id", "")

	v.SetDefault("monitor.refresh_interval", 5*time.Second)
	v.SetDefault("monitor.debounce_delay", 300*time.Millisecond)
	v.SetDefault("monitor.success_banner_ttl", 3*time.Second)
	v.SetDefault("monitor.initial_check_delay", 500*time.Millisecond)
	v.SetDefault("monitor.pulse_duration", 200*time.Millisecond)
	v.SetDefault("monitor.form_idle_timeout", 30*time.Minute)
	v.SetDefault("monitor.form_expiry_interval", time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.uri", "")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "educore:")
	v.SetDefault("redis.settings_ttl", time.Duration(0))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// loadDotEnv loads EDUCORE_DOTENV (default .env) if it exists
func loadDotEnv() error {
	path := os.Getenv("EDUCORE_DOTENV")
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings the application cannot run without
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be between 1 and 65535")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("invalid config: api.base_url must not be empty")
	}
	if c.Monitor.RefreshInterval <= 0 {
		return fmt.Errorf("invalid config: monitor.refresh_interval must be positive")
	}
	if c.Monitor.DebounceDelay <= 0 {
		return fmt.Errorf("invalid config: monitor.debounce_delay must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
