package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/git-check-rebase/internal/equality"
	"github.com/stwalsh4118/git-check-rebase/internal/git"
	"gopkg.in/yaml.v3"
)

func newCacheCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the commit equality cache",
	}

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := global.openCache()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats()
			if err != nil {
				return fmt.Errorf("failed to read cache stats: %w", err)
			}

			var data []byte
			if asJSON {
				data, err = json.MarshalIndent(stats, "", "  ")
				data = append(data, '\n')
			} else {
				data, err = yaml.Marshal(stats)
			}
			if err != nil {
				return fmt.Errorf("failed to marshal cache stats: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget every cached comparison",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := global.openCache()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	}

	cmd.AddCommand(showCmd)
	cmd.AddCommand(clearCmd)
	return cmd
}

// openCache opens the equality cache alone. The repository is looked up
// only when no explicit cache path is configured.
func (o *globalOptions) openCache() (equality.Store, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, runID, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	var loc git.Location
	explicit := cfg.Cache.Path
	if cfg.Cache.Backend == "sqlite" {
		explicit = cfg.Cache.DatabasePath
	}
	if explicit == "" {
		start, err := o.startDir()
		if err != nil {
			return nil, err
		}
		if loc, err = git.Discover(start, logger); err != nil {
			return nil, fmt.Errorf("failed to find repository: %w", err)
		}
	}

	return openStore(cfg, loc, runID, logger)
}
