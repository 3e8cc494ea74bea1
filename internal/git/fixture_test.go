package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type fixtureCommit struct {
	file    string
	content string
	message string
	tag     string
}

var fixtureTime = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

// createFixtureRepo commits the given changes in order and returns the
// repository with the full hashes, oldest first
func createFixtureRepo(t *testing.T, repoPath string, commits []fixtureCommit) (*git.Repository, []plumbing.Hash) {
	t.Helper()

	repo, err := git.PlainInit(repoPath, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	var hashes []plumbing.Hash
	for i, c := range commits {
		path := filepath.Join(repoPath, c.file)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(c.content), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		if _, err := worktree.Add(c.file); err != nil {
			t.Fatalf("failed to add file: %v", err)
		}

		sig := &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  fixtureTime.Add(time.Duration(i) * time.Minute),
		}
		hash, err := worktree.Commit(c.message, &git.CommitOptions{Author: sig, Committer: sig})
		if err != nil {
			t.Fatalf("failed to commit: %v", err)
		}
		hashes = append(hashes, hash)

		if c.tag != "" {
			if _, err := repo.CreateTag(c.tag, hash, nil); err != nil {
				t.Fatalf("failed to tag: %v", err)
			}
		}
	}

	return repo, hashes
}
