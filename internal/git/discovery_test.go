package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stwalsh4118/git-check-rebase/internal/logging"
)

func TestDiscover_RegularRepository(t *testing.T) {
	repoPath := filepath.Join(t.TempDir(), "repo")
	createFixtureRepo(t, repoPath, []fixtureCommit{{file: "a", content: "a", message: "init"}})

	sub := filepath.Join(repoPath, "deep", "dir")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	loc, err := Discover(sub, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	wantRoot, _ := filepath.EvalSymlinks(repoPath)
	if loc.Root != wantRoot {
		t.Errorf("expected root %s, got %s", wantRoot, loc.Root)
	}
	if loc.IsWorktree {
		t.Error("expected regular repository")
	}
	if loc.CommonDir != filepath.Join(wantRoot, ".git") || loc.GitDir != loc.CommonDir {
		t.Errorf("unexpected dirs %+v", loc)
	}
}

func TestDiscover_Worktree(t *testing.T) {
	tmp := t.TempDir()
	mainPath := filepath.Join(tmp, "main")
	createFixtureRepo(t, mainPath, []fixtureCommit{{file: "a", content: "a", message: "init"}})

	wtGitDir := filepath.Join(mainPath, ".git", "worktrees", "wt")
	if err := os.MkdirAll(wtGitDir, 0755); err != nil {
		t.Fatalf("failed to create worktree git dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(wtGitDir, "commondir"), []byte("../..\n"), 0644); err != nil {
		t.Fatalf("failed to write commondir: %v", err)
	}

	wtPath := filepath.Join(tmp, "wt")
	if err := os.MkdirAll(wtPath, 0755); err != nil {
		t.Fatalf("failed to create worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(wtPath, ".git"), []byte("gitdir: "+wtGitDir+"\n"), 0644); err != nil {
		t.Fatalf("failed to write .git file: %v", err)
	}

	loc, err := Discover(wtPath, logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if !loc.IsWorktree {
		t.Error("expected worktree")
	}
	wantCommon, _ := filepath.EvalSymlinks(filepath.Join(mainPath, ".git"))
	if loc.CommonDir != wantCommon {
		t.Errorf("expected common dir %s, got %s", wantCommon, loc.CommonDir)
	}
}

func TestDiscover_Errors(t *testing.T) {
	tmp := t.TempDir()

	badFile := filepath.Join(tmp, "bad")
	if err := os.MkdirAll(badFile, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(badFile, ".git"), []byte("nonsense"), 0644); err != nil {
		t.Fatalf("failed to write .git file: %v", err)
	}
	if _, err := Discover(badFile, logging.NewNoopLogger()); err == nil {
		t.Error("expected error for malformed .git file")
	}

	if _, err := Discover(tmp, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}
