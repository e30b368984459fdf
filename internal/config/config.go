// Package config loads the mirror's configuration from file, environment and
// defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Version is stamped at build time.
var Version = "dev"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// ServerConfig holds the HTTP API listen address.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds the run-history database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MirrorConfig identifies the upstream repository to mirror.
type MirrorConfig struct {
	Owner    string `mapstructure:"owner"`
	Repo     string `mapstructure:"repo"`
	BaseURL  string `mapstructure:"base_url"` // hosting API override, mainly for tests
	Token    string `mapstructure:"token"`
	SyncCron string `mapstructure:"sync_cron"`
}

// RetentionConfig controls the prune pass.
type RetentionConfig struct {
	ListPath   string `mapstructure:"list_path"`   // canonical JSON build list
	PolicyFile string `mapstructure:"policy_file"` // optional YAML band table
	PruneCron  string `mapstructure:"prune_cron"`
	DryRun     bool   `mapstructure:"dry_run"` // compute and report only, never delete
}

// Load reads configuration with priority: env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.relicmirror")
	}

	v.SetEnvPrefix("RELICMIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Retention.ListPath == "" {
		return fmt.Errorf("retention.list_path must not be empty")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Address returns the listen address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8484)

	v.SetDefault("database.path", "./data/relicmirror.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.compress", true)

	v.SetDefault("mirror.owner", "")
	v.SetDefault("mirror.repo", "")
	v.SetDefault("mirror.base_url", "")
	v.SetDefault("mirror.token", "")
	v.SetDefault("mirror.sync_cron", "15 * * * *")

	v.SetDefault("retention.list_path", "./data/builds.json")
	v.SetDefault("retention.policy_file", "")
	v.SetDefault("retention.prune_cron", "45 3 * * *")
	v.SetDefault("retention.dry_run", false)
}
