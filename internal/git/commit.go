// Package git looks up commit metadata for the commit being built.
//
// GitHub Actions only exposes the commit SHA (GITHUB_SHA), not the commit
// message, so the message has to be read from the checked-out repository.
// The repository is opened with go-git first; when that fails (for example
// because the SHA is abbreviated or the object lives in an alternate store
// go-git cannot read) the git CLI is used instead.
package git

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog/log"

	"github.com/shinji-kodama/firebase-ci/internal/command"
)

// fullHashLength is the length of a hex-encoded SHA-1 object name.
const fullHashLength = 40

// Reader reads commit messages from the repository containing Dir.
type Reader struct {
	// Dir is any path inside the repository. Empty means the current directory.
	Dir string

	// Runner executes the git CLI fallback.
	Runner command.Runner
}

// NewReader creates a Reader for the repository containing dir.
func NewReader(dir string, runner command.Runner) *Reader {
	return &Reader{Dir: dir, Runner: runner}
}

// CommitMessage returns the full message of the commit identified by sha,
// with surrounding whitespace trimmed.
func (r *Reader) CommitMessage(ctx context.Context, sha string) (string, error) {
	if sha == "" {
		return "", errors.New("commit SHA is empty")
	}

	if len(sha) == fullHashLength {
		msg, err := r.messageFromRepository(sha)
		if err == nil {
			return msg, nil
		}
		log.Debug().Err(err).Str("sha", sha).Msg("Reading commit with go-git failed, falling back to git CLI")
	}

	return r.messageFromCLI(ctx, sha)
}

// messageFromRepository opens the repository with go-git and reads the
// commit object directly.
func (r *Reader) messageFromRepository(sha string) (string, error) {
	dir := r.Dir
	if dir == "" {
		dir = "."
	}

	// DetectDotGit walks up from dir to find the repository root, the same
	// way the git CLI does.
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", errors.Wrapf(err, "failed to open repository at %s", dir)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return "", errors.Wrapf(err, "failed to read commit %s", sha)
	}
	return strings.TrimSpace(commit.Message), nil
}

// messageFromCLI runs `git --no-pager log --format=%B -n 1 <sha>`.
func (r *Reader) messageFromCLI(ctx context.Context, sha string) (string, error) {
	out, err := r.runGit(ctx, "--no-pager", "log", "--format=%B", "-n", "1", sha)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// runGit executes a git command in the reader's directory and returns its
// stdout. Output is captured only; commit lookups are not echoed to the
// build log.
func (r *Reader) runGit(ctx context.Context, args ...string) (string, error) {
	// -C makes git operate in the target directory without changing the
	// process's working directory.
	fullArgs := args
	if r.Dir != "" {
		fullArgs = append([]string{"-C", r.Dir}, args...)
	}

	res, err := r.Runner.Run(ctx, command.Command{Name: "git", Args: fullArgs, Quiet: true})
	if err != nil {
		return "", errors.Wrapf(err, "git %s failed", strings.Join(args, " "))
	}
	return res.Stdout, nil
}
