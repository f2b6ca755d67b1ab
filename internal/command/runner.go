// Package command runs external tools (firebase, npm, npx, git) as child
// processes.
//
// Commands are always executed from an argv slice and never through a
// shell, so values such as commit messages or tokens cannot inject extra
// shell syntax. Output is forwarded to the parent's stdout/stderr as it is
// produced and captured at the same time, so callers can inspect it after
// the process exits.
package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// InstallerWarning is the marker npm prints for warnings. A non-zero exit
// whose output contains it is treated as success, because npm exits
// non-zero on warnings that do not affect the deploy.
const InstallerWarning = "npm WARN"

// secretFlags lists flags whose value must never reach logs or errors.
var secretFlags = map[string]bool{
	"--token": true,
}

// Command describes a single process invocation.
type Command struct {
	// Name is the executable, resolved through PATH.
	Name string

	// Args are passed to the process verbatim.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Quiet disables forwarding of the child's output. Output is still
	// captured in the Result.
	Quiet bool
}

// String returns the command line with secret flag values redacted.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, Redact(c.Args)...), " ")
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout string
	Stderr string

	// Warned is true when the process exited non-zero but its output only
	// carried installer warnings, so the failure was ignored.
	Warned bool
}

// Runner executes commands. It is implemented by ExecRunner and by fakes
// in tests.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExitError is returned when a command exits with a non-zero status. It
// carries the captured stderr so that the failure can be reported verbatim.
type ExitError struct {
	Command Command
	Stderr  string
	Err     error
}

// Error returns the redacted command line and the captured stderr.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Command.String())
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg = fmt.Sprintf("%s: %s", msg, s)
	}
	return msg
}

// Unwrap returns the underlying *exec.ExitError.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout and Stderr receive the forwarded output of non-quiet commands.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner that forwards output to the process's
// own stdout and stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run starts the command, waits for it to exit and returns its captured
// output. There is no timeout: a launched deploy is always awaited.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	log.Debug().Str("command", c.String()).Msg("Running command")

	// #nosec G204 -- argv is passed without a shell
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if !c.Quiet {
		cmd.Stdout = io.MultiWriter(&stdout, r.Stdout)
		cmd.Stderr = io.MultiWriter(&stderr, r.Stderr)
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// The process never ran (binary missing, permission denied, ...).
		return res, errors.Wrapf(err, "failed to run %s", c.Name)
	}

	if strings.Contains(res.Stdout, InstallerWarning) || strings.Contains(res.Stderr, InstallerWarning) {
		log.Warn().Str("command", c.Name).Int("exitCode", exitErr.ExitCode()).
			Msg("Command exited with npm warnings, continuing")
		res.Warned = true
		return res, nil
	}

	detail := res.Stderr
	if strings.TrimSpace(detail) == "" {
		detail = res.Stdout
	}
	return res, &ExitError{Command: c, Stderr: detail, Err: err}
}

// Exists reports whether name can be found in PATH.
func Exists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Redact returns a copy of args with the values of secret flags replaced.
func Redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if secretFlags[out[i]] {
			out[i+1] = "***"
			i++
		}
	}
	return out
}
