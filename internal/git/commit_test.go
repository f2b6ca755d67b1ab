package git

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/firebase-ci/internal/command"
)

// setupTestRepo creates a temporary directory with an initialized Git
// repository containing a single commit with the given message.
//
// A local user.name and user.email are configured so that `git commit`
// works in CI environments without a global git configuration.
//
// Returns the repository path and the full SHA of the commit.
func setupTestRepo(t *testing.T, message string) (string, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	runTestGit(t, dir, "init")
	runTestGit(t, dir, "config", "user.email", "test@example.com")
	runTestGit(t, dir, "config", "user.name", "Test User")

	err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test Repo\n"), 0o644)
	require.NoError(t, err, "failed to create initial file")

	runTestGit(t, dir, "add", ".")
	runTestGit(t, dir, "commit", "-m", message)

	sha := strings.TrimSpace(runTestGit(t, dir, "rev-parse", "HEAD"))
	return dir, sha
}

// runTestGit runs a git command in dir and fails the test on a non-zero exit.
func runTestGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
	return string(output)
}

func newTestReader(dir string) *Reader {
	var discard bytes.Buffer
	return NewReader(dir, &command.ExecRunner{Stdout: &discard, Stderr: &discard})
}

// TestCommitMessage_FullSHA verifies the go-git path with a full SHA.
func TestCommitMessage_FullSHA(t *testing.T) {
	dir, sha := setupTestRepo(t, "Add hosting rewrites\n\nCloses #12")
	r := newTestReader(dir)

	msg, err := r.CommitMessage(context.Background(), sha)
	require.NoError(t, err)
	assert.Equal(t, "Add hosting rewrites\n\nCloses #12", msg)
}

// TestCommitMessage_ShortSHA verifies the git CLI fallback, which resolves
// abbreviated object names.
func TestCommitMessage_ShortSHA(t *testing.T) {
	dir, sha := setupTestRepo(t, "Bump version")
	r := newTestReader(dir)

	msg, err := r.CommitMessage(context.Background(), sha[:10])
	require.NoError(t, err)
	assert.Equal(t, "Bump version", msg)
}

// TestCommitMessage_Subdirectory verifies that the repository root is found
// from a nested directory.
func TestCommitMessage_Subdirectory(t *testing.T) {
	dir, sha := setupTestRepo(t, "Nested lookup")
	nested := filepath.Join(dir, "functions")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	msg, err := newTestReader(nested).CommitMessage(context.Background(), sha)
	require.NoError(t, err)
	assert.Equal(t, "Nested lookup", msg)
}

// TestCommitMessage_UnknownSHA verifies that a missing commit is an error
// after both lookups fail.
func TestCommitMessage_UnknownSHA(t *testing.T) {
	dir, _ := setupTestRepo(t, "initial commit")
	r := newTestReader(dir)

	_, err := r.CommitMessage(context.Background(), strings.Repeat("a", 40))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git --no-pager log")
}

func TestCommitMessage_EmptySHA(t *testing.T) {
	_, err := newTestReader(t.TempDir()).CommitMessage(context.Background(), "")
	assert.Error(t, err)
}
