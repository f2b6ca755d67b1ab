package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/firebase-ci/internal/ci"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// The commands in this file print a single value for use in shell
// scripts, e.g. echo "Deploying to $(firebase-ci project)". An empty value
// exits with model.ExitGeneralError.

// newProjectCommand creates the "project" cobra command.
func newProjectCommand(a *app) *cobra.Command {
	var flags projectFlags

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Print the Firebase project mapped to the current CI environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.loadRCOptional()
			if err != nil {
				return wrapError("Error reading project", err)
			}
			c := a.ciContext(cmd.Context())
			project := ci.ResolveProject(model.Options{Project: flags.project}, c, rc.Aliases())
			return printValue(cmd, project.Name, fmt.Sprintf("no project alias found for %q", project.Key))
		},
	}

	flags.register(cmd)
	return cmd
}

// newProjectIDCommand creates the "projectId" cobra command.
func newProjectIDCommand(a *app) *cobra.Command {
	var (
		flags      projectFlags
		defaultEnv string
	)

	cmd := &cobra.Command{
		Use:   "projectId",
		Short: "Print the Firebase project ID of the current CI environment",
		Long: `Print the Firebase project ID of the current CI environment.

FIREBASE_CI_PROJECT is used when set. Otherwise the ID is read from
ci.createConfig.<env>.firebase.projectId, trying the project key, the
--default-env environment and "master", before falling back to the
project alias.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.loadRCOptional()
			if err != nil {
				return wrapError("Error reading project ID", err)
			}
			opts := model.Options{Project: flags.project, DefaultProject: defaultEnv}
			id := ci.ProjectID(opts, a.ciContext(cmd.Context()), rc)
			return printValue(cmd, id, "no project ID found")
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&defaultEnv, "default-env", "e", "", "Environment used in place of master")
	return cmd
}

// newBranchCommand creates the "branch" cobra command.
func newBranchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "branch",
		Short: "Print the branch of the current CI environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			branch, _ := ci.Branch(a.deps.Env)
			return printValue(cmd, branch, "no branch found")
		},
	}
}

// printValue writes value to stdout, or returns a CLIError with message
// when it is empty.
func printValue(cmd *cobra.Command, value, message string) error {
	if value == "" {
		return model.NewCLIError(model.ExitGeneralError, message)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), value)
	return err
}
