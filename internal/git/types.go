package git

import (
	"fmt"
	"strings"
)

// Commit is one entry of a commit range as shown in the table
type Commit struct {
	Hash    string // abbreviated hash
	Date    string // author date, dd.mm.yy HH:MM
	Author  string
	Subject string
	InTag   string // nearest enclosing release tag (vX.Y[.Z...]), may be empty
}

// Repository is the read-only query capability the comparison engine needs
type Repository interface {
	// Log returns the commits of base..top, oldest first
	Log(base, top string) ([]Commit, error)
	// Patch returns the code change of a commit without any header
	Patch(id string) (string, error)
	// EmailPatch returns the commit formatted as a mail patch
	EmailPatch(id string) (string, error)
	// Message returns the full commit message
	Message(id string) (string, error)
	// LogEntry returns the full "git log -1" text of a commit
	LogEntry(id string) (string, error)
	ShortHash(rev string) (string, error)
	CommonDir() (string, error)
}

// Mutator rewrites history on the current branch. Only the exec backend
// implements it.
type Mutator interface {
	CurrentBranch() (string, error)
	IsClean() (bool, error)
	// Contains reports whether the abbreviated hash is part of branch
	Contains(branch, hash string) (bool, error)
	Checkout(rev string) error
	Am(patch string) error
	AmAbort() error
	Rebase(onto string) error
	RebaseAbort() error
}

// Location describes where a repository lives on disk
type Location struct {
	Root       string // worktree root
	GitDir     string // .git directory of this worktree
	CommonDir  string // directory shared by all worktrees
	IsWorktree bool   // linked worktree (".git" is a file)
}

// CommandError is returned when a git invocation fails
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
