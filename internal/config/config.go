package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Data     DataConfig     `mapstructure:"data"`
	Database DatabaseConfig `mapstructure:"database"`
}

// APIConfig holds the CRM history endpoint credential and limits.
type APIConfig struct {
	Token      string `mapstructure:"token"`
	BasePath   string `mapstructure:"base_path"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// DataConfig points at the tabular inputs.
type DataConfig struct {
	RosterPath string `mapstructure:"roster_path"`
	PhonesPath string `mapstructure:"phones_path"`
	CallsDir   string `mapstructure:"calls_dir"`
	Timezone   string `mapstructure:"timezone"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// TELREPORT_, e.g. TELREPORT_API_TOKEN.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("api.token", "")
	v.SetDefault("api.base_path", "https://app.mango-office.ru")
	v.SetDefault("api.timeout_sec", 15)
	v.SetDefault("data.roster_path", filepath.Join("config", "divisions.csv"))
	v.SetDefault("data.phones_path", filepath.Join("config", "phones.csv"))
	v.SetDefault("data.calls_dir", "tel_data")
	v.SetDefault("data.timezone", "Asia/Irkutsk")
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "telreport", "telreport.db"))
	v.SetDefault("database.migrations_path", filepath.Join("internal", "database", "migrations"))

	v.SetConfigType("toml")

	cfgPath := os.Getenv("TELREPORT_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "telreport"))
		v.AddConfigPath("config")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("TELREPORT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if
// needed. The API token is stored in plain text; prefer the env var on
// shared machines.
func Save(cfg Config) error {
	path := os.Getenv("TELREPORT_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "telreport", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.token", cfg.API.Token)
	v.Set("api.base_path", cfg.API.BasePath)
	v.Set("api.timeout_sec", cfg.API.TimeoutSec)
	v.Set("data.roster_path", cfg.Data.RosterPath)
	v.Set("data.phones_path", cfg.Data.PhonesPath)
	v.Set("data.calls_dir", cfg.Data.CallsDir)
	v.Set("data.timezone", cfg.Data.Timezone)
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.migrations_path", cfg.Database.MigrationsPath)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
