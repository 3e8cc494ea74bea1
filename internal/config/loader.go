package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configDirName  = ".git-check-rebase"
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "GCR"
)

// DefaultConfigPath returns ~/.git-check-rebase/config.yaml
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, configDirName, configFileName+"."+configFileType), nil
}

// Load loads the configuration from file, environment variables, and defaults.
// Values are taken in order of precedence:
// 1. Environment variables (GCR_ prefix)
// 2. Configuration file (configPath, or ~/.git-check-rebase/config.yaml when empty)
// 3. Default values
func Load(configPath string) (*Config, error) {
	if err := initViper(configPath); err != nil {
		return nil, fmt.Errorf("failed to initialize viper: %w", err)
	}

	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandConfigPaths(&cfg)

	return &cfg, nil
}

// initViper initializes Viper with configuration file path, environment variable prefix, and settings
func initViper(configPath string) error {
	if configPath == "" {
		var err error
		configPath, err = DefaultConfigPath()
		if err != nil {
			return err
		}
	}

	viper.SetConfigFile(configPath)
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// A missing config file is fine, defaults apply
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) && !os.IsNotExist(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults sets default configuration values. Every key is registered so
// AutomaticEnv can override it during Unmarshal.
func setDefaults() {
	viper.SetDefault("meta.path", "")

	viper.SetDefault("git.backend", "exec")
	viper.SetDefault("git.default_base", "")

	viper.SetDefault("cache.backend", "file")
	viper.SetDefault("cache.path", "")
	viper.SetDefault("cache.database_path", "")

	viper.SetDefault("logging.level", "warn")
	viper.SetDefault("logging.file_path", "")
	viper.SetDefault("logging.console", true)

	viper.SetDefault("tracker.kind", "jira")
	viper.SetDefault("tracker.server", "")
	viper.SetDefault("tracker.user", "")
	viper.SetDefault("tracker.token", "")

	viper.SetDefault("review.editor", "vim")

	viper.SetDefault("output.format", "auto")
	viper.SetDefault("output.commit_url", "")
}

// expandHomeDir expands ~ in a path to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// expandConfigPaths expands all ~ paths in the configuration struct
func expandConfigPaths(cfg *Config) {
	cfg.Meta.Path = expandHomeDir(cfg.Meta.Path)
	cfg.Cache.Path = expandHomeDir(cfg.Cache.Path)
	cfg.Cache.DatabasePath = expandHomeDir(cfg.Cache.DatabasePath)
	cfg.Logging.FilePath = expandHomeDir(cfg.Logging.FilePath)
}
