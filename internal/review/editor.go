package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/anmitsu/go-shlex"
)

// Editor exit codes
const (
	ExitContinue = 0
	ExitOK       = 200
	ExitStop     = 201
)

// Runner runs the editor and reports its exit code
type Runner interface {
	Run(ctx context.Context, args []string) (int, error)
}

// ExecRunner runs the editor attached to the given streams
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner attached to the process terminal
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run starts args[0] and waits for it. A non-zero exit is reported as a
// code, not an error.
func (r *ExecRunner) Run(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		return -1, fmt.Errorf("editor command is empty")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("failed to run editor: %w", err)
	}
	return ExitContinue, nil
}

func isVim(name string) bool {
	switch name {
	case "vim", "nvim", "gvim", "vimdiff":
		return true
	}
	return false
}

// editorArgs builds the command line comparing left and right. Vim gets a
// diff layout with :ok, :stop and :meta commands; other editors get the
// three file paths appended.
func editorArgs(editor, left, right, commentPath string, metaOpened bool) ([]string, error) {
	args, err := shlex.Split(editor, true)
	if err != nil {
		return nil, fmt.Errorf("failed to parse editor command %q: %w", editor, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("editor command is empty")
	}

	if !isVim(filepath.Base(args[0])) {
		return append(args, left, right, commentPath), nil
	}

	args = append(args, right, "-c", ":diffthis", "-c", ":vsp "+left, "-c", ":diffthis")
	args = append(args,
		"-c", "command GCheckRebaseToggleMeta "+
			fmt.Sprintf(`let nr = bufwinnr("%s") | `, commentPath)+
			`if nr > 0 | exe nr . "wincmd w" | wq | `+
			fmt.Sprintf("else | top split %s | resize 5 | endif", commentPath),
		"-c", "cnoreabbrev meta GCheckRebaseToggleMeta")
	if metaOpened {
		args = append(args, "-c", ":GCheckRebaseToggleMeta")
	}
	args = append(args,
		"-c", fmt.Sprintf("command GCheckRebaseOk wa! | cq %d", ExitOK),
		"-c", "cnoreabbrev ok GCheckRebaseOk",
		"-c", fmt.Sprintf("command GCheckRebaseStop wa! | cq %d", ExitStop),
		"-c", "cnoreabbrev stop GCheckRebaseStop",
		"-c", ":norm gg")
	return args, nil
}
