package actions

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/shinji-kodama/firebase-ci/internal/config"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// Run executes the action phase of a deploy: copyVersion, then
// createConfig when ci.createConfig is set, then mapEnv when the project
// has a functions folder and ci.mapEnv is set.
func (a *Actions) Run(ctx context.Context, opts model.Options, rc *config.RC) error {
	if err := a.CopyVersion(false); err != nil {
		return err
	}

	ran := false
	if rc.CI != nil && len(rc.CI.CreateConfig) > 0 {
		ran = true
		if err := a.CreateConfig(opts, rc, DefaultConfigPath); err != nil {
			return err
		}
	}

	if config.FunctionsExists(a.Fs) && rc.CI != nil && len(rc.CI.MapEnv) > 0 {
		ran = true
		if err := a.MapEnv(ctx, opts, rc); err != nil {
			log.Error().Err(err).Msg("Could not map CI environment variables to Functions environment")
			return err
		}
	}

	if !ran {
		log.Info().Str("file", config.RCFile).Msg("No ci action settings found. Skipping action phase.")
	}
	return nil
}
