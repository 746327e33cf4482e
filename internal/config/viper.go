// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"fjacquet/finagent/internal/logging"
)

// Provider kinds.
const (
	ProviderPlaid = "plaid"
	ProviderOFX   = "ofx"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendGCS    = "gcs"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Server struct {
		Addr               string   `mapstructure:"addr" yaml:"addr"`
		AllowedOrigins     []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
		ReadTimeoutSeconds int      `mapstructure:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	} `mapstructure:"server" yaml:"server"`

	Provider struct {
		Kind  string `mapstructure:"kind" yaml:"kind"`
		Plaid struct {
			Environment string `mapstructure:"env" yaml:"env"`
			ClientID    string `mapstructure:"client_id" yaml:"-"` // Never serialize credentials
			Secret      string `mapstructure:"secret" yaml:"-"`
			BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
		} `mapstructure:"plaid" yaml:"plaid"`
		PageSize          int     `mapstructure:"page_size" yaml:"page_size"`
		RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
		TimeoutSeconds    int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		WindowDays        int     `mapstructure:"window_days" yaml:"window_days"`
	} `mapstructure:"provider" yaml:"provider"`

	Storage struct {
		Backend string `mapstructure:"backend" yaml:"backend"`
		Path    string `mapstructure:"path" yaml:"path"`
		Bucket  string `mapstructure:"bucket" yaml:"bucket"`
		Object  string `mapstructure:"object" yaml:"object"`
	} `mapstructure:"storage" yaml:"storage"`

	Profiles struct {
		File string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"profiles" yaml:"profiles"`

	Insights struct {
		DashboardLimit     int `mapstructure:"dashboard_limit" yaml:"dashboard_limit"`
		RecentTransactions int `mapstructure:"recent_transactions" yaml:"recent_transactions"`
	} `mapstructure:"insights" yaml:"insights"`
}

// ProviderTimeout returns the provider call timeout as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// ReadTimeout returns the HTTP read timeout as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	return LoadConfig("")
}

// LoadConfig is InitializeConfig with an explicit config file. An empty configFile
// searches the default locations, where a missing file is not an error.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.finagent")
		v.AddConfigPath(".finagent")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix("FINAGENT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// 5. Provider credentials keep their conventional unprefixed names
	for key, env := range map[string]string{
		"provider.plaid.client_id": "PLAID_CLIENT_ID",
		"provider.plaid.secret":    "PLAID_SECRET",
		"provider.plaid.env":       "PLAID_ENV",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("server.read_timeout_seconds", 15)

	v.SetDefault("provider.kind", ProviderPlaid)
	v.SetDefault("provider.plaid.env", "production")
	v.SetDefault("provider.plaid.base_url", "")
	v.SetDefault("provider.page_size", 100)
	v.SetDefault("provider.requests_per_second", 5.0)
	v.SetDefault("provider.timeout_seconds", 30)
	v.SetDefault("provider.window_days", 30)

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.path", "finagent_data.json")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.object", "finagent/snapshot.json")

	v.SetDefault("profiles.file", "")

	v.SetDefault("insights.dashboard_limit", 5)
	v.SetDefault("insights.recent_transactions", 20)
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}

	if config.Server.ReadTimeoutSeconds < 1 {
		return fmt.Errorf("server.read_timeout_seconds must be positive, got: %d", config.Server.ReadTimeoutSeconds)
	}

	switch config.Provider.Kind {
	case ProviderPlaid:
		switch config.Provider.Plaid.Environment {
		case "sandbox", "development", "production":
		default:
			return fmt.Errorf("invalid plaid environment: %s (must be 'sandbox', 'development' or 'production')", config.Provider.Plaid.Environment)
		}
	case ProviderOFX:
	default:
		return fmt.Errorf("invalid provider kind: %s (must be '%s' or '%s')", config.Provider.Kind, ProviderPlaid, ProviderOFX)
	}

	if config.Provider.PageSize < 1 || config.Provider.PageSize > 500 {
		return fmt.Errorf("provider.page_size must be between 1 and 500, got: %d", config.Provider.PageSize)
	}

	if config.Provider.RequestsPerSecond <= 0 {
		return fmt.Errorf("provider.requests_per_second must be positive, got: %f", config.Provider.RequestsPerSecond)
	}

	if config.Provider.TimeoutSeconds < 1 || config.Provider.TimeoutSeconds > 300 {
		return fmt.Errorf("provider.timeout_seconds must be between 1 and 300, got: %d", config.Provider.TimeoutSeconds)
	}

	if config.Provider.WindowDays < 1 || config.Provider.WindowDays > 730 {
		return fmt.Errorf("provider.window_days must be between 1 and 730, got: %d", config.Provider.WindowDays)
	}

	switch config.Storage.Backend {
	case BackendFile, BackendSQLite:
		if config.Storage.Path == "" {
			return fmt.Errorf("storage.path required for the %s backend", config.Storage.Backend)
		}
	case BackendGCS:
		if config.Storage.Bucket == "" || config.Storage.Object == "" {
			return fmt.Errorf("storage.bucket and storage.object required for the gcs backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be 'file', 'sqlite' or 'gcs')", config.Storage.Backend)
	}

	if config.Insights.DashboardLimit < 1 {
		return fmt.Errorf("insights.dashboard_limit must be positive, got: %d", config.Insights.DashboardLimit)
	}

	if config.Insights.RecentTransactions < 1 {
		return fmt.Errorf("insights.recent_transactions must be positive, got: %d", config.Insights.RecentTransactions)
	}

	return nil
}

// ValidateCredentials reports whether the configured provider can authenticate.
// It is checked at the point a provider is built, so commands that never reach
// the provider (clear, transactions) work without credentials.
func (c *Config) ValidateCredentials() error {
	if c.Provider.Kind != ProviderPlaid {
		return nil
	}
	if c.Provider.Plaid.ClientID == "" || c.Provider.Plaid.Secret == "" {
		return fmt.Errorf("PLAID_CLIENT_ID and PLAID_SECRET required for the plaid provider")
	}
	return nil
}

// ConfigureLoggingFromConfig builds the application logger from the Config struct
func ConfigureLoggingFromConfig(config *Config) logging.Logger {
	return logging.NewLogrusAdapter(config.Log.Level, config.Log.Format)
}
