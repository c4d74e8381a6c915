// Package config loads lexsync configuration using Viper.
//
// Configuration is environment-first: every value can be supplied via an
// environment variable, with an optional lexsync.toml for local development.
// Credentials are read per load, never cached across runs, so a deployment
// can be reconfigured without restarting the daemon.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is the lexsync core configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Asaas    AsaasConfig    `mapstructure:"asaas"`
	Projudi  ProjudiConfig  `mapstructure:"projudi"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AsaasConfig holds payment-gateway adapter settings.
type AsaasConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ProjudiConfig holds court-system adapter settings.
type ProjudiConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	LoginPath         string `mapstructure:"login_path"`
	NotificationsPath string `mapstructure:"notifications_path"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
}

// Load reads the lexsync configuration. A fresh Viper instance is built on
// every call so live environment changes are picked up by the next run.
func Load() (*Config, error) {
	return LoadWithViper(newViper())
}

// LoadWithViper loads configuration using a provided Viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// newViper initializes Viper with defaults and environment bindings.
func newViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("LEXSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindSensitiveEnvVars(v)

	return v
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "lexsync.db")

	v.SetDefault("asaas.base_url", "")
	v.SetDefault("asaas.api_key", "")
	v.SetDefault("asaas.timeout_seconds", 30)

	v.SetDefault("projudi.base_url", "")
	v.SetDefault("projudi.username", "")
	v.SetDefault("projudi.password", "")
	v.SetDefault("projudi.login_path", "/api/login")
	v.SetDefault("projudi.notifications_path", "/api/intimacoes")
	v.SetDefault("projudi.timeout_seconds", 30)
}

// bindSensitiveEnvVars binds credential values to their conventional
// environment variable names, in addition to the LEXSYNC_-prefixed form.
func bindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("asaas.api_key", "LEXSYNC_ASAAS_API_KEY", "ASAAS_API_KEY")
	v.BindEnv("asaas.base_url", "LEXSYNC_ASAAS_BASE_URL", "ASAAS_BASE_URL")
	v.BindEnv("projudi.base_url", "LEXSYNC_PROJUDI_BASE_URL", "PROJUDI_BASE_URL")
	v.BindEnv("projudi.username", "LEXSYNC_PROJUDI_USERNAME", "PROJUDI_USERNAME")
	v.BindEnv("projudi.password", "LEXSYNC_PROJUDI_PASSWORD", "PROJUDI_PASSWORD")
	v.BindEnv("projudi.login_path", "LEXSYNC_PROJUDI_LOGIN_PATH", "PROJUDI_LOGIN_PATH")
	v.BindEnv("projudi.notifications_path", "LEXSYNC_PROJUDI_NOTIFICATIONS_PATH", "PROJUDI_NOTIFICATIONS_PATH")
}
