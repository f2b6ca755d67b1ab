// Package cli implements the cobra-based CLI commands for firebase-ci.
//
// Each subcommand (deploy, createConfig, copyVersion, mapEnv, setEnv, run,
// serve, project, projectId, branch) is defined in its own file within
// this package. This file defines the root command that serves as the
// parent for all subcommands and handles global flags.
//
// Global settings are held in a viper instance owned by the root command,
// so each flag can also be supplied through a FIREBASE_CI_* environment
// variable (for example FIREBASE_CI_DEBUG=true).
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shinji-kodama/firebase-ci/internal/config"
	"github.com/shinji-kodama/firebase-ci/internal/logging"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// envPrefix is prepended to global settings read from the environment.
const envPrefix = "FIREBASE_CI"

// Viper keys of the global settings.
const (
	keyConfig  = "config"
	keyDebug   = "debug"
	keyNoColor = "no-color"
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command using the
// real filesystem, environment and process runner.
func NewRootCommand() *cobra.Command {
	return newRootCommand(DefaultDeps())
}

// newRootCommand builds the command tree around d. Tests pass fakes.
func newRootCommand(d Deps) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(keyConfig, config.RCFile)

	a := &app{v: v, deps: d}

	rootCmd := &cobra.Command{
		Use:   "firebase-ci",
		Short: "Simplified Firebase interaction for continuous integration",
		Long: `firebase-ci deploys to Firebase from CI builds.

The branch being built selects a project alias from .firebaserc, so a
single configuration deploys master, stage and prod builds to their own
Firebase projects. Pull requests and builds outside of CI are skipped.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// Execute logs them instead.
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(cmd.ErrOrStderr(), v.GetBool(keyDebug), v.GetBool(keyNoColor))
			return nil
		},
	}

	// PersistentFlags are inherited by all subcommands and bound to viper,
	// which also resolves FIREBASE_CI_CONFIG, FIREBASE_CI_DEBUG and
	// FIREBASE_CI_NO_COLOR.
	flags := rootCmd.PersistentFlags()
	flags.String(keyConfig, config.RCFile, "Path to the .firebaserc file")
	flags.BoolP(keyDebug, "d", false, "Enable debug logging and pass --debug to firebase deploy")
	flags.Bool(keyNoColor, false, "Disable colored log output")
	for _, key := range []string{keyConfig, keyDebug, keyNoColor} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}

	rootCmd.AddCommand(newDeployCommand(a))
	rootCmd.AddCommand(newCreateConfigCommand(a))
	rootCmd.AddCommand(newCopyVersionCommand(a))
	rootCmd.AddCommand(newMapEnvCommand(a))
	rootCmd.AddCommand(newSetEnvCommand(a))
	rootCmd.AddCommand(newRunCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newProjectCommand(a))
	rootCmd.AddCommand(newProjectIDCommand(a))
	rootCmd.AddCommand(newBranchCommand(a))

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// CLIError values carry their own exit code; any other error exits with
// model.ExitGeneralError. Skips are not errors and exit with 0.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError logs a single error line, with the underlying error as a
// structured field.
func printError(message string, underlying error) {
	event := log.Error()
	if underlying != nil {
		event = event.Err(underlying)
	}
	event.Msg(message)
}
