package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configFilePerm = 0600 // Read/write for user only
	configDirPerm  = 0755
)

// Default returns the configuration written by "config --init"
func Default() *Config {
	return &Config{
		Git:     GitConfig{Backend: "exec"},
		Cache:   CacheConfig{Backend: "file"},
		Logging: LoggingConfig{Level: "warn", Console: true},
		Tracker: TrackerConfig{Kind: "jira"},
		Review:  ReviewConfig{Editor: "vim"},
		Output:  OutputConfig{Format: "auto"},
	}
}

// Save writes cfg as YAML to configPath (the default location when empty).
// Paths inside the home directory are written in ~ form. The tracker token
// is never written.
func Save(cfg *Config, configPath string) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if configPath == "" {
		var err error
		configPath, err = DefaultConfigPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	data, err := yaml.Marshal(convertPathsToTilde(cfg, homeDir))
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// convertPathsToTilde returns a copy of cfg with home-relative paths in ~ form
func convertPathsToTilde(cfg *Config, homeDir string) *Config {
	result := *cfg
	result.Meta.Path = convertPathToTilde(cfg.Meta.Path, homeDir)
	result.Cache.Path = convertPathToTilde(cfg.Cache.Path, homeDir)
	result.Cache.DatabasePath = convertPathToTilde(cfg.Cache.DatabasePath, homeDir)
	result.Logging.FilePath = convertPathToTilde(cfg.Logging.FilePath, homeDir)
	return &result
}

// convertPathToTilde converts an absolute path to ~ format if it's within
// the user's home directory, otherwise returns the path as-is.
func convertPathToTilde(path, homeDir string) string {
	if path == "" || strings.HasPrefix(path, "~") {
		return path
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	homeDirAbs, err := filepath.Abs(homeDir)
	if err != nil {
		return path
	}

	relPath, err := filepath.Rel(homeDirAbs, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return path
	}

	if relPath == "." {
		return "~"
	}
	return filepath.Join("~", relPath)
}
