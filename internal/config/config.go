// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// GlobalConfig is the top-level static configuration. Maps to the `strix:`
// root key in YAML; env vars use the STRIX_ prefix (e.g. STRIX_LOG_LEVEL).
type GlobalConfig struct {
	Log        LogConfig         `mapstructure:"log"`
	Dissectors []DissectorConfig `mapstructure:"dissectors"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"` // "text" or "json"
	File   FileLogConfig `mapstructure:"file"`
}

// FileLogConfig controls the optional rotating log file output.
type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DissectorConfig enables one export-object dissector with its options.
type DissectorConfig struct {
	Name    string                 `mapstructure:"name"`
	Options map[string]interface{} `mapstructure:"options"`
}

type configRoot struct {
	Strix GlobalConfig `mapstructure:"strix"`
}

// Load loads configuration from a YAML file, applying defaults and
// environment overrides.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Key "strix.log.level" maps to env "STRIX_LOG_LEVEL" via the replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Strix

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("strix.log.level", "info")
	v.SetDefault("strix.log.format", "text")
	v.SetDefault("strix.log.file.max_size_mb", 100)
	v.SetDefault("strix.log.file.max_backups", 3)
	v.SetDefault("strix.log.file.max_age_days", 7)
}

// Validate checks the configuration for internally inconsistent values.
func (cfg *GlobalConfig) Validate() error {
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format '%s' (must be text or json)", cfg.Log.Format)
	}

	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return fmt.Errorf("log file output enabled but no path configured")
	}

	seen := make(map[string]bool)
	for _, d := range cfg.Dissectors {
		if d.Name == "" {
			return fmt.Errorf("dissector entry with empty name")
		}
		if seen[d.Name] {
			return fmt.Errorf("dissector '%s' configured twice", d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}
