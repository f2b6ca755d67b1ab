package actions

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/shinji-kodama/firebase-ci/internal/config"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// MapEnv copies CI environment variables into Functions config using
// ci.mapEnv, which maps variable names to config paths:
//
//	"mapEnv": { "SOME_TOKEN": "some.token" }
//
// becomes `firebase functions:config:set some.token=<value> -P <alias>`.
// Variables missing from the environment are skipped with a warning.
func (a *Actions) MapEnv(ctx context.Context, opts model.Options, rc *config.RC) error {
	if rc.CI == nil || len(rc.CI.MapEnv) == 0 {
		log.Warn().Msg("mapEnv parameter with settings needed in .firebaserc!")
		return nil
	}

	project, ok := a.resolveProject(opts, rc, "mapEnv")
	if !ok {
		return nil
	}

	args := MapEnvArgs(rc.CI.MapEnv, a.Env, project.Key)
	if len(args) == 0 {
		log.Warn().Msg("None of the mapEnv variables exist in the environment, nothing to set")
		return nil
	}

	log.Info().Str("project", project.Name).Str("alias", project.Key).Msg("Mapping Environment to Firebase Functions...")
	if _, err := a.Runner.Run(ctx, a.firebase(args...)); err != nil {
		return errors.Wrap(err, "error setting Firebase functions config variables from CI environment (mapEnv)")
	}
	log.Info().Msg("Successfully set functions config from variables in CI environment")
	return nil
}

// MapEnvArgs builds the functions:config:set arguments, ordered by
// variable name. It returns nil when no mapped variable is set.
func MapEnvArgs(mapping map[string]string, env map[string]string, alias string) []string {
	args := []string{"functions:config:set"}
	for _, envVar := range sortedKeys(mapping) {
		value := env[envVar]
		if value == "" {
			log.Warn().Str("variable", envVar).Str("path", mapping[envVar]).
				Msg("Variable does not exist within environment variables")
			continue
		}
		args = append(args, mapping[envVar]+"="+value)
	}
	if len(args) == 1 {
		return nil
	}
	if alias != "" {
		args = append(args, "-P", alias)
	}
	return args
}
