package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

var (
	validGitBackends   = []string{"exec", "gogit"}
	validCacheBackends = []string{"file", "sqlite"}
	validLogLevels     = []string{"debug", "info", "warn", "warning", "error"}
	validTrackerKinds  = []string{"", "jira"}
	validFormats       = []string{"auto", "colored", "plain", "html"}
)

// ValidateConfig checks enumerated settings and configured paths
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := validateChoice("git.backend", cfg.Git.Backend, validGitBackends); err != nil {
		return err
	}
	if err := validateChoice("cache.backend", cfg.Cache.Backend, validCacheBackends); err != nil {
		return err
	}
	if err := validateChoice("logging.level", strings.ToLower(cfg.Logging.Level), validLogLevels); err != nil {
		return err
	}
	if err := validateChoice("tracker.kind", cfg.Tracker.Kind, validTrackerKinds); err != nil {
		return err
	}
	if err := validateChoice("output.format", cfg.Output.Format, validFormats); err != nil {
		return err
	}

	if cfg.Meta.Path != "" {
		if err := ValidateFile(cfg.Meta.Path); err != nil {
			return fmt.Errorf("meta.path: %w", err)
		}
	}

	for name, path := range map[string]string{
		"cache.path":          cfg.Cache.Path,
		"cache.database_path": cfg.Cache.DatabasePath,
		"logging.file_path":   cfg.Logging.FilePath,
	} {
		if path == "" {
			continue
		}
		if err := validatePathInput(path); err != nil {
			return fmt.Errorf("%s: invalid path: %w", name, err)
		}
	}

	return nil
}

func validateChoice(key, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: invalid value %q (allowed: %s)", key, value, strings.Join(allowed, ", "))
}

// ValidateFile validates that a path exists and is a regular file.
// It expands home directory paths (~) before validation.
func ValidateFile(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if err := validatePathInput(path); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	expandedPath := expandHomeDir(path)

	resolvedPath, err := filepath.EvalSymlinks(expandedPath)
	if err != nil {
		resolvedPath = expandedPath
	}

	info, err := os.Stat(resolvedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", path)
		}
		return fmt.Errorf("failed to check path: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("path is not a regular file: %s", path)
	}

	return nil
}

// validatePathInput checks for dangerous characters in path input
func validatePathInput(path string) error {
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path contains null byte")
	}

	for _, r := range path {
		if unicode.IsControl(r) && r != '\t' {
			return fmt.Errorf("path contains control character")
		}
	}

	return nil
}
