package cli

import (
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/firebase-ci/internal/deploy"
)

// deployFlags holds the flag values for the deploy command.
type deployFlags struct {
	targetFlags

	// simple skips the CI actions phase.
	simple bool

	// info keeps npm install output verbose.
	info bool

	// test treats the run as a CI build. Hidden; used for local testing.
	test bool
}

// newDeployCommand creates the "deploy" cobra command.
func newDeployCommand(a *app) *cobra.Command {
	flags := &deployFlags{}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy to the Firebase project mapped to the current branch",
		Long: `Deploy to Firebase when running on a CI build branch.

The project is the .firebaserc alias named after the branch (master uses
"default"), or the one given with --project or FIREBASE_CI_PROJECT.
Pull requests, builds outside of CI, and branches without an alias are
skipped with exit code 0.

Before deploying, firebase-tools and the functions dependencies are
installed and the CI actions (copyVersion, createConfig, mapEnv) are run
unless --simple is given.

Examples:
  firebase-ci deploy
  firebase-ci deploy --only hosting
  firebase-ci deploy -P prod --simple`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options()
			opts.Simple = flags.simple
			opts.Info = flags.info
			opts.Test = flags.test
			opts.Debug = a.debug()

			c := a.ciContext(cmd.Context())
			o := &deploy.Orchestrator{
				Fs:         a.deps.Fs,
				Runner:     a.deps.Runner,
				Installer:  a.installer(),
				Actions:    a.actions(c),
				CI:         c,
				ConfigPath: a.configPath(),
			}
			_, err := o.Run(cmd.Context(), opts)
			return wrapError("Error in firebase-ci", err)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&flags.simple, "simple", "s", false, "Skip CI actions and only deploy")
	cmd.Flags().BoolVarP(&flags.info, "info", "i", false, "Show verbose npm install output")
	cmd.Flags().BoolVar(&flags.test, "test", false, "Treat the run as a CI build")
	_ = cmd.Flags().MarkHidden("test")

	return cmd
}
