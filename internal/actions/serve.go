package actions

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/shinji-kodama/firebase-ci/internal/config"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// Serve runs `firebase serve` for the project this build maps to. An
// unmapped project is skipped with a warning.
func (a *Actions) Serve(ctx context.Context, opts model.Options, rc *config.RC) error {
	project, ok := a.resolveProject(opts, rc, "serve")
	if !ok {
		return nil
	}

	args := []string{"serve", "-P", project.Key}
	if opts.Only != "" {
		args = append(args, "--only", opts.Only)
	}

	log.Info().Str("project", project.Name).Str("alias", project.Key).Msg("Calling serve")
	if _, err := a.Runner.Run(ctx, a.firebase(args...)); err != nil {
		return errors.Wrapf(err, "error calling serve for %s (alias %s)", project.Name, project.Key)
	}
	log.Info().Str("project", project.Name).Str("alias", project.Key).Msg("Successfully called serve")
	return nil
}
