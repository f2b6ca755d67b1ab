package model

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultBranch is the branch name assumed when no CI provider variable
// carries one.
const DefaultBranch = "master"

// DefaultAlias is the alias key that replaces "master" during project key
// resolution, matching the alias `firebase use --add` writes by default.
const DefaultAlias = "default"

// CIContext is the normalized view of the CI environment for one invocation.
// It is derived once from the environment and never mutated afterwards.
type CIContext struct {
	// Branch is the branch being built. Falls back to DefaultBranch when no
	// provider variable is present.
	Branch string `json:"branch"`

	// IsPullRequest reports whether the build was triggered by a pull request.
	IsPullRequest bool `json:"isPullRequest"`

	// CommitMessage is the raw commit message. Empty means absent.
	CommitMessage string `json:"commitMessage,omitempty"`

	// Detected is true when at least one recognized CI provider variable
	// was present in the environment.
	Detected bool `json:"detected"`

	// ProjectOverride is the value of FIREBASE_CI_PROJECT, which takes
	// precedence over both the --project flag and the branch name.
	ProjectOverride string `json:"projectOverride,omitempty"`

	// EnvironmentSlug is the fallback alias key (CI_ENVIRONMENT_SLUG).
	EnvironmentSlug string `json:"environmentSlug,omitempty"`

	// Token is the Firebase CI token (FIREBASE_TOKEN). Empty means the
	// deploy tool falls back to ambient credentials.
	Token string `json:"-"`

	// GitHubActions is true when running inside GitHub Actions.
	GitHubActions bool `json:"githubActions"`

	// GitHubEnvPath is the path of the GitHub Actions environment file
	// (GITHUB_ENV). Only meaningful when GitHubActions is true.
	GitHubEnvPath string `json:"-"`
}

// AliasTable maps alias keys (e.g. "default", "stage", "prod") to Firebase
// project identifiers, as found in the "projects" section of .firebaserc.
type AliasTable map[string]string

// Lookup returns the project identifier for key. Empty keys and empty
// values are both reported as missing.
func (t AliasTable) Lookup(key string) (string, bool) {
	if key == "" || t == nil {
		return "", false
	}
	name, ok := t[key]
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// ResolvedProject is the outcome of alias resolution.
type ResolvedProject struct {
	// Key is the alias key that matched in the alias table. When Name is
	// empty, Key holds the key that was requested.
	Key string `json:"key"`

	// Name is the Firebase project identifier. Empty means no alias is
	// configured for Key, which is a valid terminal state and not an error.
	Name string `json:"name,omitempty"`
}

// Found reports whether an alias was configured.
func (p ResolvedProject) Found() bool {
	return p.Name != ""
}

// DecisionKind tags the variant of a Decision.
// The state transitions of a deploy are:
//
//	Init → {SkipNonCI, SkipPullRequest, SkipUnmappedProject, Proceed}
//	Proceed → {Deployed, Failed}
type DecisionKind string

const (
	// DecisionProceed means the deploy command should be invoked.
	DecisionProceed DecisionKind = "proceed"

	// DecisionSkipNonCI means no CI provider was detected.
	DecisionSkipNonCI DecisionKind = "skip-non-ci"

	// DecisionSkipPullRequest means the build is a pull request.
	DecisionSkipPullRequest DecisionKind = "skip-pull-request"

	// DecisionSkipUnmappedProject means neither the project key nor any
	// fallback has an alias in .firebaserc.
	DecisionSkipUnmappedProject DecisionKind = "skip-unmapped-project"
)

// String returns the string representation of DecisionKind.
func (k DecisionKind) String() string {
	return string(k)
}

// IsSkip reports whether the kind is one of the terminal-success skip
// variants.
func (k DecisionKind) IsSkip() bool {
	switch k {
	case DecisionSkipNonCI, DecisionSkipPullRequest, DecisionSkipUnmappedProject:
		return true
	default:
		return false
	}
}

// Decision is the tagged outcome of the deploy decision algorithm.
// Exactly one Kind is set; the payload fields that are meaningful depend on
// the Kind:
//   - DecisionProceed: Project, Message, ExtraArgs
//   - DecisionSkipUnmappedProject: Key (the requested project key)
//   - other skips: none
type Decision struct {
	Kind DecisionKind `json:"kind"`

	// Project is the resolved alias for DecisionProceed.
	Project ResolvedProject `json:"project,omitempty"`

	// Message is the sanitized deploy message for DecisionProceed.
	Message string `json:"message,omitempty"`

	// ExtraArgs are the option-derived deploy flags (--only, --except,
	// --force) for DecisionProceed.
	ExtraArgs []string `json:"extraArgs,omitempty"`

	// Key is the project key that could not be mapped, for
	// DecisionSkipUnmappedProject.
	Key string `json:"key,omitempty"`
}

// Reason returns a single-line, human-readable explanation of a skip.
// It returns an empty string for DecisionProceed.
func (d Decision) Reason() string {
	switch d.Kind {
	case DecisionSkipNonCI:
		return "Not a supported CI environment"
	case DecisionSkipPullRequest:
		return "Build is a Pull Request"
	case DecisionSkipUnmappedProject:
		return fmt.Sprintf("Project %q is not an alias and no fallback alias exists", d.Key)
	default:
		return ""
	}
}

// Options carries the user-supplied flags shared by the deploy, serve,
// mapEnv, createConfig and setEnv commands.
type Options struct {
	// Project overrides the branch-derived project key.
	Project string

	// Only restricts the deploy to a comma-separated list of targets.
	Only string

	// Except deploys to every target except the listed ones.
	Except string

	// Force deletes Cloud Functions missing from the working directory
	// without confirmation.
	Force bool

	// Simple skips the CI actions phase and only deploys.
	Simple bool

	// Info keeps npm install output verbose.
	Info bool

	// Debug adds --debug to the deploy command.
	Debug bool

	// DefaultProject is used in place of "master" when resolving the
	// project ID.
	DefaultProject string

	// Test forces the deploy decision to treat the run as a CI run.
	Test bool
}

// TargetFlags returns the option-derived deploy flags in a stable order.
func (o Options) TargetFlags() []string {
	var args []string
	if only := strings.TrimSpace(o.Only); only != "" {
		args = append(args, "--only", only)
	}
	if except := strings.TrimSpace(o.Except); except != "" {
		args = append(args, "--except", except)
	}
	if o.Force {
		args = append(args, "--force")
	}
	return args
}

// ExitCode defines the CLI exit codes. CI systems only distinguish success
// (including benign skips) from failure.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully or skipped.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unrecovered error occurred.
	ExitGeneralError ExitCode = 1
)

// Sentinel errors classifying failures. They are attached with errors.Mark
// so that errors.Is keeps working through any amount of wrapping.
var (
	// ErrConfigMissing marks a required config file that does not exist.
	ErrConfigMissing = errors.New("config missing")

	// ErrConfigInvalid marks a config file that could not be parsed.
	ErrConfigInvalid = errors.New("config invalid")

	// ErrInstallFailure marks a failed dependency installation.
	ErrInstallFailure = errors.New("install failure")

	// ErrDeployFailure marks a failed deploy invocation.
	ErrDeployFailure = errors.New("deploy failure")
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
