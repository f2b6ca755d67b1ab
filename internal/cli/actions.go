package cli

import (
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/firebase-ci/internal/actions"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// newCreateConfigCommand creates the "createConfig" cobra command.
func newCreateConfigCommand(a *app) *cobra.Command {
	var (
		flags projectFlags
		path  string
	)

	cmd := &cobra.Command{
		Use:   "createConfig",
		Short: "Write a config file from ci.createConfig settings",
		Long: `Build a configuration file from ci.createConfig in .firebaserc.

The settings block is selected by project alias, falling back to
CI_ENVIRONMENT_SLUG, then "master", then "default". ${VAR} references are
filled in from the environment. The output format follows the file
extension: .json, .yaml/.yml, or an ES module for anything else.

Examples:
  firebase-ci createConfig
  firebase-ci createConfig --path ./src/config.json -P prod`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.loadRC()
			if err != nil {
				return wrapError("Error creating config", err)
			}
			acts := a.actions(a.ciContext(cmd.Context()))
			return wrapError("Error creating config", acts.CreateConfig(model.Options{Project: flags.project}, rc, path))
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&path, "path", actions.DefaultConfigPath, "Path of the config file to write")
	return cmd
}

// newCopyVersionCommand creates the "copyVersion" cobra command.
func newCopyVersionCommand(a *app) *cobra.Command {
	var silence bool

	cmd := &cobra.Command{
		Use:   "copyVersion",
		Short: "Copy the package.json version into functions/package.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			acts := a.actions(a.ciContext(cmd.Context()))
			return wrapError("Error copying version", acts.CopyVersion(silence))
		},
	}

	cmd.Flags().BoolVar(&silence, "silence", false, "Do not warn when there is no functions folder")
	return cmd
}

// newMapEnvCommand creates the "mapEnv" cobra command.
func newMapEnvCommand(a *app) *cobra.Command {
	var flags projectFlags

	cmd := &cobra.Command{
		Use:   "mapEnv",
		Short: "Map CI environment variables to Firebase Functions config",
		Long: `Set Firebase Functions config from CI environment variables.

ci.mapEnv in .firebaserc maps variable names to config paths:

  "mapEnv": { "SOME_TOKEN": "some.token" }

Examples:
  firebase-ci mapEnv
  firebase-ci mapEnv -P stage`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.loadRC()
			if err != nil {
				return wrapError("Error mapping environment", err)
			}
			acts := a.actions(a.ciContext(cmd.Context()))
			err = acts.MapEnv(cmd.Context(), model.Options{Project: flags.project}, rc)
			return wrapError("Error mapping environment", err)
		},
	}

	flags.register(cmd)
	return cmd
}

// newSetEnvCommand creates the "setEnv" cobra command.
func newSetEnvCommand(a *app) *cobra.Command {
	var (
		flags projectFlags
		path  string
	)

	cmd := &cobra.Command{
		Use:   "setEnv",
		Short: "Export environment variables from ci.setEnv settings",
		Long: `Export the variables of ci.setEnv in .firebaserc.

Under GitHub Actions the variables are appended to $GITHUB_ENV so later
steps see them. With --path they are also written to a dotenv file.

Examples:
  firebase-ci setEnv
  firebase-ci setEnv --path .env.production`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.loadRC()
			if err != nil {
				return wrapError("Error setting environment", err)
			}
			acts := a.actions(a.ciContext(cmd.Context()))
			return wrapError("Error setting environment", acts.SetEnv(model.Options{Project: flags.project}, rc, path))
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&path, "path", "", "Also write the variables to this dotenv file")
	return cmd
}

// newRunCommand creates the "run" cobra command.
func newRunCommand(a *app) *cobra.Command {
	var flags projectFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run all CI actions (copyVersion, createConfig, mapEnv)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.loadRC()
			if err != nil {
				return wrapError("Error running actions", err)
			}
			acts := a.actions(a.ciContext(cmd.Context()))
			return wrapError("Error running actions", acts.Run(cmd.Context(), model.Options{Project: flags.project}, rc))
		},
	}

	flags.register(cmd)
	return cmd
}

// newServeCommand creates the "serve" cobra command.
func newServeCommand(a *app) *cobra.Command {
	var flags targetFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Firebase project mapped to the current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.loadRC()
			if err != nil {
				return wrapError("Error calling serve", err)
			}
			acts := a.actions(a.ciContext(cmd.Context()))
			return wrapError("Error calling serve", acts.Serve(cmd.Context(), flags.options(), rc))
		},
	}

	flags.register(cmd)
	return cmd
}
