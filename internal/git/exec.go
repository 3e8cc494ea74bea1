package git

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/stwalsh4118/git-check-rebase/internal/logging"
)

// CLIRepository runs the git binary. It implements both Repository and
// Mutator.
type CLIRepository struct {
	dir    string
	logger logging.Logger
}

// NewCLIRepository creates a repository backed by the git command run in dir
// (the current directory when empty)
func NewCLIRepository(dir string, logger logging.Logger) (*CLIRepository, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if _, err := exec.LookPath("git"); err != nil {
		return nil, fmt.Errorf("git executable not found: %w", err)
	}

	return &CLIRepository{
		dir:    dir,
		logger: logger.With("component", "git_exec"),
	}, nil
}

func (r *CLIRepository) run(stdin io.Reader, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running git", "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return stdout.String(), &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

func (r *CLIRepository) output(args ...string) (string, error) {
	return r.run(nil, args...)
}

func (r *CLIRepository) logOne(format, rev string) (string, error) {
	out, err := r.output("log", "-1", "--format="+format, rev, "--")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (r *CLIRepository) Log(base, top string) ([]Commit, error) {
	out, err := r.output("log", "--reverse", "--date=format:"+DateFormat,
		"--pretty=format:"+logPrettyFormat, base+".."+top, "--")
	if err != nil {
		return nil, fmt.Errorf("failed to list commits %s..%s: %w", base, top, err)
	}
	commits, err := parseLogOutput(out)
	if err != nil {
		return nil, fmt.Errorf("failed to parse commits %s..%s: %w", base, top, err)
	}
	return commits, nil
}

func (r *CLIRepository) Patch(id string) (string, error) {
	out, err := r.output("show", "--format=", id, "--")
	if err != nil {
		return "", fmt.Errorf("failed to show patch of %s: %w", id, err)
	}
	return out, nil
}

func (r *CLIRepository) EmailPatch(id string) (string, error) {
	out, err := r.output("show", "--format=email", id, "--")
	if err != nil {
		return "", fmt.Errorf("failed to show email patch of %s: %w", id, err)
	}
	return out, nil
}

func (r *CLIRepository) Message(id string) (string, error) {
	msg, err := r.logOne("%B", id)
	if err != nil {
		return "", fmt.Errorf("failed to read message of %s: %w", id, err)
	}
	return msg, nil
}

func (r *CLIRepository) LogEntry(id string) (string, error) {
	out, err := r.output("log", "-1", id, "--")
	if err != nil {
		return "", fmt.Errorf("failed to read log entry of %s: %w", id, err)
	}
	return out, nil
}

func (r *CLIRepository) ShortHash(rev string) (string, error) {
	h, err := r.logOne("%h", rev)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", rev, err)
	}
	return h, nil
}

func (r *CLIRepository) CommonDir() (string, error) {
	out, err := r.output("rev-parse", "--git-common-dir")
	if err != nil {
		return "", fmt.Errorf("failed to find git common dir: %w", err)
	}
	dir := strings.TrimSpace(out)
	if !filepath.IsAbs(dir) {
		base, err := filepath.Abs(r.dir)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		dir = filepath.Join(base, dir)
	}
	return dir, nil
}

func (r *CLIRepository) CurrentBranch() (string, error) {
	out, err := r.output("branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (r *CLIRepository) IsClean() (bool, error) {
	out, err := r.output("diff", "--shortstat", "HEAD")
	if err != nil {
		return false, fmt.Errorf("failed to check worktree state: %w", err)
	}
	return strings.TrimSpace(out) == "", nil
}

func (r *CLIRepository) Contains(branch, hash string) (bool, error) {
	out, err := r.output("log", "--format=%h", branch, "--")
	if err != nil {
		return false, fmt.Errorf("failed to list branch %s: %w", branch, err)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == hash {
			return true, nil
		}
	}
	return false, nil
}

func (r *CLIRepository) Checkout(rev string) error {
	if _, err := r.output("checkout", rev); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", rev, err)
	}
	return nil
}

func (r *CLIRepository) Am(patch string) error {
	if _, err := r.run(strings.NewReader(patch), "am"); err != nil {
		return fmt.Errorf("failed to apply patch: %w", err)
	}
	return nil
}

func (r *CLIRepository) AmAbort() error {
	if _, err := r.output("am", "--abort"); err != nil {
		return fmt.Errorf("failed to abort am: %w", err)
	}
	return nil
}

func (r *CLIRepository) Rebase(onto string) error {
	if _, err := r.output("rebase", onto); err != nil {
		return fmt.Errorf("failed to rebase onto %s: %w", onto, err)
	}
	return nil
}

func (r *CLIRepository) RebaseAbort() error {
	if _, err := r.output("rebase", "--abort"); err != nil {
		return fmt.Errorf("failed to abort rebase: %w", err)
	}
	return nil
}

// IsCommandError reports whether err came from a failed git invocation
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
