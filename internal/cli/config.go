package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/git-check-rebase/internal/config"
	"gopkg.in/yaml.v3"
)

// newConfigCmd creates the config command for viewing and modifying configuration
func newConfigCmd(global *globalOptions) *cobra.Command {
	var showFlag bool
	var initFlag bool
	var setMetaPath string
	var setDefaultBase string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long: `View and modify git-check-rebase configuration settings.

Use --show to display the effective configuration, --init to write a default
configuration file, --set-meta to set the metadata file or --set-default-base
to set the base used by ranges written as "..top".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flagCount := 0
			for _, set := range []bool{showFlag, initFlag, setMetaPath != "", setDefaultBase != ""} {
				if set {
					flagCount++
				}
			}

			if flagCount == 0 {
				return cmd.Help()
			}
			if flagCount > 1 {
				return fmt.Errorf("only one flag can be used at a time")
			}

			out := cmd.OutOrStdout()

			if initFlag {
				return handleInit(out, global.configPath)
			}

			cfg, err := config.Load(global.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			switch {
			case showFlag:
				return handleShow(out, cfg)
			case setMetaPath != "":
				return handleSetMeta(out, cfg, global.configPath, setMetaPath)
			default:
				return handleSetDefaultBase(out, cfg, global.configPath, setDefaultBase)
			}
		},
	}

	cmd.Flags().BoolVarP(&showFlag, "show", "s", false, "Display current configuration")
	cmd.Flags().BoolVar(&initFlag, "init", false, "Write a default configuration file if none exists")
	cmd.Flags().StringVar(&setMetaPath, "set-meta", "", "Set the metadata file path")
	cmd.Flags().StringVar(&setDefaultBase, "set-default-base", "", "Set the default range base")

	return cmd
}

// handleShow displays the configuration in YAML format
func handleShow(out io.Writer, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	fmt.Fprint(out, string(data))
	return nil
}

// handleInit writes the default configuration, refusing to overwrite
func handleInit(out io.Writer, configPath string) error {
	if configPath == "" {
		var err error
		if configPath, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.Save(config.Default(), configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "Wrote default configuration to %s\n", configPath)
	return nil
}

// handleSetMeta sets the metadata file path
func handleSetMeta(out io.Writer, cfg *config.Config, configPath, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if err := config.ValidateFile(abs); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	cfg.Meta.Path = abs

	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "Set metadata file to %s\n", abs)
	return nil
}

// handleSetDefaultBase sets the default range base
func handleSetDefaultBase(out io.Writer, cfg *config.Config, configPath, base string) error {
	cfg.Git.DefaultBase = base

	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "Set default base to %s\n", base)
	return nil
}
