package deploy

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/shinji-kodama/firebase-ci/internal/ci"
	"github.com/shinji-kodama/firebase-ci/internal/command"
	"github.com/shinji-kodama/firebase-ci/internal/config"
	"github.com/shinji-kodama/firebase-ci/internal/deps"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// skipPrefix starts every skip line of the deploy command.
const skipPrefix = "Skipping Firebase Deploy"

// Installer installs deploy dependencies. It is implemented by
// deps.Installer.
type Installer interface {
	Tool() []string
	Install(ctx context.Context, opts model.Options, s deps.Settings) error
}

// ActionRunner runs the CI action phase. It is implemented by
// actions.Actions.
type ActionRunner interface {
	Run(ctx context.Context, opts model.Options, rc *config.RC) error
}

// Orchestrator runs a complete deploy: decision, dependency install, CI
// actions and the firebase deploy itself.
type Orchestrator struct {
	Fs        afero.Fs
	Runner    command.Runner
	Installer Installer
	Actions   ActionRunner

	// CI is the context resolved for this invocation.
	CI model.CIContext

	// ConfigPath is the .firebaserc path. Defaults to config.RCFile.
	ConfigPath string

	// Debug adds --debug to the deploy command (FIREBASE_CI_DEBUG).
	Debug bool
}

// Run decides whether to deploy and, if so, deploys. The returned
// Decision tells the caller which path was taken; skips return a nil
// error. Installation failures are marked model.ErrInstallFailure and a
// failed deploy is marked model.ErrDeployFailure with the captured stderr
// in its message.
func (o *Orchestrator) Run(ctx context.Context, opts model.Options) (model.Decision, error) {
	var rc *config.RC
	load := func() (model.AliasTable, error) {
		var err error
		rc, err = o.loadSettings()
		if err != nil {
			return nil, err
		}
		return rc.Aliases(), nil
	}

	decision, err := Decide(opts, o.CI, load)
	if err != nil {
		return decision, err
	}
	if decision.Kind.IsSkip() {
		logSkip(decision, o.CI)
		return decision, nil
	}

	if o.CI.Token == "" {
		log.Warn().Str("variable", ci.EnvToken).
			Msg("FIREBASE_TOKEN environment variable not found, falling back to current Firebase auth")
	}

	if rc.SkipDependencyInstall {
		log.Info().Msg("firebase-tools and functions dependencies installs skipped")
	} else if err := o.Installer.Install(ctx, opts, deps.SettingsFromRC(rc)); err != nil {
		return decision, err
	}

	if opts.Simple {
		log.Info().Msg("Simple mode enabled. Skipping CI actions")
	} else if err := o.Actions.Run(ctx, opts, rc); err != nil {
		return decision, err
	}

	argv := BuildArgs(decision, o.Installer.Tool(), o.CI, opts.Debug || o.Debug || rc.Debug)
	cmd := command.Command{Name: argv[0], Args: argv[1:]}

	logger := log.With().
		Str("branch", o.CI.Branch).
		Str("alias", decision.Project.Key).
		Str("project", decision.Project.Name).
		Logger()
	logger.Debug().Str("command", cmd.String()).Msg("Calling deploy")
	logger.Info().Msg("Deploying to Firebase project")

	if _, err := o.Runner.Run(ctx, cmd); err != nil {
		return decision, errors.Mark(errors.Wrap(err, "error deploying to firebase"), model.ErrDeployFailure)
	}
	logger.Info().Msg("Successfully deployed to Firebase project")
	return decision, nil
}

// loadSettings reads .firebaserc and checks that firebase.json exists.
func (o *Orchestrator) loadSettings() (*config.RC, error) {
	path := o.ConfigPath
	if path == "" {
		path = config.RCFile
	}
	rc, err := config.Load(o.Fs, path)
	if err != nil {
		return nil, err
	}
	if err := config.Require(o.Fs, config.FirebaseJSON); err != nil {
		return nil, err
	}
	return rc, nil
}

// logSkip writes the single line explaining a skip.
func logSkip(d model.Decision, c model.CIContext) {
	switch d.Kind {
	case model.DecisionSkipNonCI:
		log.Warn().Msgf("%s - %s", skipPrefix, d.Reason())
	case model.DecisionSkipUnmappedProject:
		log.Info().Str("project", d.Key).Str("fallback", c.EnvironmentSlug).
			Msgf("%s - %s", skipPrefix, d.Reason())
	default:
		log.Info().Str("branch", c.Branch).Msgf("%s - %s", skipPrefix, d.Reason())
	}
}
