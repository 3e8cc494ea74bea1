package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// setupTestEnv points HOME at a temporary directory so no user configuration
// leaks into the run, and returns that directory
func setupTestEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{"GCR_META_PATH", "GCR_CACHE_BACKEND", "GCR_GIT_BACKEND", "GCR_OUTPUT_FORMAT"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return home
}

// getTestExecutable builds the git-check-rebase binary once per test
func getTestExecutable(t *testing.T) string {
	t.Helper()

	exePath := filepath.Join(t.TempDir(), "git-check-rebase")
	t.Logf("Building git-check-rebase binary for testing...")
	cmd := exec.Command("go", "build", "-o", exePath, "./cmd/git-check-rebase")
	cmd.Dir = filepath.Join("..", "..")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build git-check-rebase binary: %v\n%s", err, out)
	}

	return exePath
}

// executeCLI runs the binary in dir and returns stdout, stderr, and error
func executeCLI(t *testing.T, exePath, dir string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(exePath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+os.Getenv("HOME"))

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// requireGit skips the test when the git binary is unavailable
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}
}

// gitRun runs git in dir with a fixed identity and returns trimmed stdout
func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test Author",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test Author",
		"GIT_COMMITTER_EMAIL=test@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// writeAndCommit writes content to file and commits it with message
func writeAndCommit(t *testing.T, dir, file, content, message string) string {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", file, err)
	}
	gitRun(t, dir, "add", file)
	gitRun(t, dir, "commit", "-q", "-m", message)
	return gitRun(t, dir, "rev-parse", "--short", "HEAD")
}

// createRebasedRepo builds a repository with a "work" branch of three
// commits on v1.0 and "work-rebased" carrying the same work on v2.0, where
// one commit was modified while porting
func createRebasedRepo(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "repo")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create repo dir: %v", err)
	}
	gitRun(t, dir, "init", "-q", "-b", "master")

	writeAndCommit(t, dir, "base.txt", "base\n", "initial")
	gitRun(t, dir, "tag", "v1.0")
	writeAndCommit(t, dir, "upstream.txt", "upstream\n", "upstream change")
	gitRun(t, dir, "tag", "v2.0")

	gitRun(t, dir, "checkout", "-q", "-b", "work", "v1.0")
	writeAndCommit(t, dir, "net.c", "int net;\n", "net: add counter")
	writeAndCommit(t, dir, "fs.c", "int fs;\n", "fs: add flag")
	writeAndCommit(t, dir, "mm.c", "int mm;\n", "mm: tune limit")

	gitRun(t, dir, "checkout", "-q", "-b", "work-rebased", "v2.0")
	gitRun(t, dir, "cherry-pick", "work~2")
	gitRun(t, dir, "cherry-pick", "work~1")
	writeAndCommit(t, dir, "mm.c", "int mm = 1;\n", "mm: tune limit")

	return dir
}
