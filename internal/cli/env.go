package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stwalsh4118/git-check-rebase/internal/config"
	"github.com/stwalsh4118/git-check-rebase/internal/equality"
	"github.com/stwalsh4118/git-check-rebase/internal/git"
	"github.com/stwalsh4118/git-check-rebase/internal/logging"
	"github.com/stwalsh4118/git-check-rebase/internal/meta"
)

// globalOptions are the persistent flags every command shares. Non-empty
// values override the loaded configuration.
type globalOptions struct {
	configPath   string
	repoDir      string
	metaPath     string
	gitBackend   string
	cacheBackend string
	logLevel     string
}

func (o *globalOptions) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "Configuration file (default ~/.git-check-rebase/config.yaml)")
	flags.StringVarP(&o.repoDir, "repo", "C", "", "Run as if started in this directory")
	flags.StringVar(&o.metaPath, "meta", "", "Metadata file with comments and confirmed pairs")
	flags.StringVar(&o.gitBackend, "git-backend", "", "Repository backend: exec or gogit")
	flags.StringVar(&o.cacheBackend, "cache-backend", "", "Equality cache backend: file or sqlite")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig loads the configuration, applies flag overrides and validates
// the result
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if o.metaPath != "" {
		cfg.Meta.Path = o.metaPath
	}
	if o.gitBackend != "" {
		cfg.Git.Backend = o.gitBackend
	}
	if o.cacheBackend != "" {
		cfg.Cache.Backend = o.cacheBackend
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// environment is everything one invocation works with
type environment struct {
	cfg        *config.Config
	runID      string
	logger     logging.Logger
	location   git.Location
	repo       git.Repository
	mutator    git.Mutator
	store      equality.Store
	comparator *equality.Comparator
}

func newLogger(cfg *config.Config) (logging.Logger, string, error) {
	runID := uuid.New().String()
	logger, err := logging.NewLogger(cfg.Logging, runID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, runID, nil
}

// openEnvironment discovers the repository and opens the equality cache
func (o *globalOptions) openEnvironment() (*environment, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, runID, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	start, err := o.startDir()
	if err != nil {
		return nil, err
	}
	loc, err := git.Discover(start, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to find repository: %w", err)
	}

	repo, mutator, err := git.Open(cfg.Git.Backend, loc, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	store, err := openStore(cfg, loc, runID, logger)
	if err != nil {
		return nil, err
	}

	comparator, err := equality.NewComparator(repo, store, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create comparator: %w", err)
	}

	logger.Debug("environment ready",
		"root", loc.Root,
		"git_backend", cfg.Git.Backend,
		"cache_backend", cfg.Cache.Backend)

	return &environment{
		cfg:        cfg,
		runID:      runID,
		logger:     logger,
		location:   loc,
		repo:       repo,
		mutator:    mutator,
		store:      store,
		comparator: comparator,
	}, nil
}

func (o *globalOptions) startDir() (string, error) {
	if o.repoDir != "" {
		return o.repoDir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return dir, nil
}

// storePath returns the cache location for the configured backend. Without
// an explicit path the cache lives in the git common directory so linked
// worktrees share it.
func storePath(cfg *config.Config, loc git.Location) string {
	if cfg.Cache.Backend == "sqlite" {
		if cfg.Cache.DatabasePath != "" {
			return cfg.Cache.DatabasePath
		}
		return filepath.Join(loc.CommonDir, equality.DefaultDatabaseName)
	}
	if cfg.Cache.Path != "" {
		return cfg.Cache.Path
	}
	return filepath.Join(loc.CommonDir, equality.DefaultFileName)
}

func openStore(cfg *config.Config, loc git.Location, runID string, logger logging.Logger) (equality.Store, error) {
	path := storePath(cfg, loc)

	var (
		store equality.Store
		err   error
	)
	switch cfg.Cache.Backend {
	case "sqlite":
		store, err = equality.OpenSQLiteStore(path, runID, logger)
	default:
		store, err = equality.OpenFileStore(path, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open equality cache %s: %w", path, err)
	}
	return store, nil
}

// loadMeta reads the configured metadata file. Without one an empty
// in-memory store is returned.
func (e *environment) loadMeta() (*meta.Store, error) {
	if e.cfg.Meta.Path == "" {
		return meta.Parse("", e.logger)
	}
	return meta.Load(e.cfg.Meta.Path, e.logger)
}

// Close releases the equality cache
func (e *environment) Close() error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Close(); err != nil {
		return fmt.Errorf("failed to close equality cache: %w", err)
	}
	return nil
}
