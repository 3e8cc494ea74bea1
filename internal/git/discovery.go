package git

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/stwalsh4118/git-check-rebase/internal/logging"
)

const (
	BackendExec  = "exec"
	BackendGoGit = "gogit"
)

// Discover finds the repository containing start by walking up the
// directory tree. Linked worktrees are resolved to their common directory.
func Discover(start string, logger logging.Logger) (Location, error) {
	if logger == nil {
		return Location{}, fmt.Errorf("logger cannot be nil")
	}
	logger = logger.With("component", "git_discovery")

	if start == "" {
		start = "."
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return Location{}, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	for {
		dotGit := filepath.Join(dir, ".git")
		info, err := os.Stat(dotGit)
		switch {
		case err == nil && info.IsDir():
			loc, err := regularLocation(dir, dotGit)
			if err != nil {
				return Location{}, err
			}
			if err := validateRepository(dir); err != nil {
				return Location{}, err
			}
			logger.Debug("found git repository", "root", loc.Root, "common_dir", loc.CommonDir)
			return loc, nil
		case err == nil:
			loc, err := worktreeLocation(dir, dotGit, logger)
			if err != nil {
				return Location{}, err
			}
			logger.Debug("found git worktree", "root", loc.Root, "git_dir", loc.GitDir, "common_dir", loc.CommonDir)
			return loc, nil
		case !os.IsNotExist(err):
			return Location{}, fmt.Errorf("failed to stat %s: %w", dotGit, err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Location{}, fmt.Errorf("not a git repository (or any parent up to /): %s", start)
		}
		dir = parent
	}
}

// validateRepository checks that go-git can open the repository
func validateRepository(root string) error {
	_, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		return fmt.Errorf("repository validation failed: %w", err)
	}
	return nil
}

func regularLocation(root, gitDir string) (Location, error) {
	absGitDir, err := filepath.Abs(gitDir)
	if err != nil {
		return Location{}, fmt.Errorf("failed to get absolute git dir path: %w", err)
	}
	return Location{
		Root:      root,
		GitDir:    absGitDir,
		CommonDir: absGitDir,
	}, nil
}

// worktreeLocation follows the "gitdir: <path>" pointer of a worktree's .git
// file and then the commondir file inside that directory
func worktreeLocation(root, gitFile string, logger logging.Logger) (Location, error) {
	content, err := os.ReadFile(gitFile)
	if err != nil {
		if os.IsPermission(err) {
			return Location{}, fmt.Errorf("permission denied reading .git file: %w", err)
		}
		return Location{}, fmt.Errorf("failed to read .git file: %w", err)
	}

	contentStr := strings.TrimSpace(string(content))
	if !strings.HasPrefix(contentStr, "gitdir: ") {
		return Location{}, fmt.Errorf("invalid .git file format: expected 'gitdir: <path>' prefix")
	}

	gitDirPath := strings.TrimSpace(strings.TrimPrefix(contentStr, "gitdir: "))
	if gitDirPath == "" {
		return Location{}, fmt.Errorf("empty git directory path in .git file")
	}
	if !filepath.IsAbs(gitDirPath) {
		gitDirPath = filepath.Join(root, gitDirPath)
	}
	gitDir := cleanResolved(gitDirPath, logger)

	info, err := os.Stat(gitDir)
	if err != nil {
		return Location{}, fmt.Errorf("git directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return Location{}, fmt.Errorf("git directory path is not a directory: %s", gitDir)
	}

	commonDir := gitDir
	if data, err := os.ReadFile(filepath.Join(gitDir, "commondir")); err == nil {
		p := strings.TrimSpace(string(data))
		if !filepath.IsAbs(p) {
			p = filepath.Join(gitDir, p)
		}
		commonDir = cleanResolved(p, logger)
	} else if !os.IsNotExist(err) {
		return Location{}, fmt.Errorf("failed to read commondir: %w", err)
	}

	return Location{
		Root:       root,
		GitDir:     gitDir,
		CommonDir:  commonDir,
		IsWorktree: true,
	}, nil
}

func cleanResolved(path string, logger logging.Logger) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		logger.Debug("failed to resolve symlinks, using path as-is", "path", path, "error", err)
		return filepath.Clean(path)
	}
	return filepath.Clean(resolved)
}

// Open creates the Repository for the configured backend. The returned
// Mutator is nil for backends that cannot rewrite history.
func Open(backend string, loc Location, logger logging.Logger) (Repository, Mutator, error) {
	switch backend {
	case BackendExec, "":
		r, err := NewCLIRepository(loc.Root, logger)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	case BackendGoGit:
		r, err := OpenGoGit(loc, logger)
		if err != nil {
			return nil, nil, err
		}
		return r, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown git backend %q", backend)
	}
}
