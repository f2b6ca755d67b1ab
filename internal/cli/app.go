package cli

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shinji-kodama/firebase-ci/internal/actions"
	"github.com/shinji-kodama/firebase-ci/internal/ci"
	"github.com/shinji-kodama/firebase-ci/internal/command"
	"github.com/shinji-kodama/firebase-ci/internal/config"
	"github.com/shinji-kodama/firebase-ci/internal/deps"
	"github.com/shinji-kodama/firebase-ci/internal/git"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// Deps are the process-level collaborators used by the commands.
type Deps struct {
	// Fs is the project filesystem, rooted at the working directory.
	Fs afero.Fs

	// Runner starts the firebase, npm and git processes.
	Runner command.Runner

	// Env is the environment snapshot taken at startup.
	Env ci.Env

	// Commits looks up commit messages under GitHub Actions.
	Commits ci.CommitReader

	// Exists reports whether an executable is on PATH.
	Exists func(name string) bool

	// Setenv exports variables for the setEnv command.
	Setenv func(key, value string) error
}

// DefaultDeps returns the collaborators for a real invocation.
func DefaultDeps() Deps {
	runner := command.NewExecRunner()
	return Deps{
		Fs:      afero.NewOsFs(),
		Runner:  runner,
		Env:     ci.EnvFromOS(),
		Commits: git.NewReader("", runner),
		Exists:  command.Exists,
		Setenv:  os.Setenv,
	}
}

// app carries the shared state of one command tree.
type app struct {
	v    *viper.Viper
	deps Deps
}

// ciContext resolves the CI context for this invocation.
func (a *app) ciContext(ctx context.Context) model.CIContext {
	return ci.Resolve(ctx, a.deps.Env, a.deps.Commits)
}

// configPath returns the .firebaserc path from --config or
// FIREBASE_CI_CONFIG.
func (a *app) configPath() string {
	return a.v.GetString(keyConfig)
}

// debug reports whether --debug or FIREBASE_CI_DEBUG is set.
func (a *app) debug() bool {
	return a.v.GetBool(keyDebug)
}

// loadRC reads .firebaserc, failing when it is missing or invalid.
func (a *app) loadRC() (*config.RC, error) {
	return config.Load(a.deps.Fs, a.configPath())
}

// loadRCOptional reads .firebaserc, treating a missing file as empty.
func (a *app) loadRCOptional() (*config.RC, error) {
	rc, err := a.loadRC()
	if errors.Is(err, model.ErrConfigMissing) {
		return &config.RC{}, nil
	}
	return rc, err
}

func (a *app) installer() *deps.Installer {
	return &deps.Installer{Fs: a.deps.Fs, Runner: a.deps.Runner, Exists: a.deps.Exists}
}

// actions returns the CI actions bound to the resolved context.
func (a *app) actions(c model.CIContext) *actions.Actions {
	return &actions.Actions{
		Fs:     a.deps.Fs,
		Runner: a.deps.Runner,
		Env:    a.deps.Env,
		CI:     c,
		Tool:   a.installer().Tool(),
		Setenv: a.deps.Setenv,
	}
}

// projectFlags holds the --project flag shared by most commands.
type projectFlags struct {
	project string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.project, "project", "P", "",
		"Project alias within .firebaserc (defaults to the branch name)")
}

// targetFlags holds the flags that select what to deploy or serve.
type targetFlags struct {
	projectFlags
	only   string
	except string
	force  bool
}

func (f *targetFlags) register(cmd *cobra.Command) {
	f.projectFlags.register(cmd)
	cmd.Flags().StringVarP(&f.only, "only", "o", "",
		"Only deploy/serve the given comma-separated targets (e.g. hosting,functions)")
	cmd.Flags().StringVar(&f.except, "except", "",
		"Deploy to all targets except the given comma-separated ones")
	cmd.Flags().BoolVarP(&f.force, "force", "f", false,
		"Delete Cloud Functions missing from the current working directory without confirmation")
}

// options converts the flags to model.Options.
func (f *targetFlags) options() model.Options {
	return model.Options{
		Project: f.project,
		Only:    f.only,
		Except:  f.except,
		Force:   f.force,
	}
}

// wrapError turns a command failure into a CLIError with the general
// error exit code.
func wrapError(message string, err error) error {
	if err == nil {
		return nil
	}
	return model.WrapCLIError(model.ExitGeneralError, message, err)
}
