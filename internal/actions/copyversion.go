package actions

import (
	"path"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/shinji-kodama/firebase-ci/internal/config"
)

// CopyVersion copies the version field of package.json into
// functions/package.json. Without a functions folder it does nothing and,
// unless silence is set, logs a warning.
func (a *Actions) CopyVersion(silence bool) error {
	if !config.FunctionsExists(a.Fs) {
		if !silence {
			log.Warn().Msg("Functions folder does not exist. Exiting...")
		}
		return nil
	}

	log.Info().Msg("Copying version from package.json to functions/package.json...")
	version, err := config.PackageVersion(a.Fs, config.PackageJSON)
	if err != nil {
		return err
	}

	functionsPkg := path.Join(config.FunctionsDir, config.PackageJSON)
	data, err := afero.ReadFile(a.Fs, functionsPkg)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", functionsPkg)
	}
	updated, err := config.SetJSONField(data, "version", version)
	if err != nil {
		return errors.Wrapf(err, "failed to update %s", functionsPkg)
	}
	if err := config.WriteFile(a.Fs, functionsPkg, updated); err != nil {
		return errors.Wrap(err, "error copying version to functions folder")
	}

	log.Info().Str("version", version).Msg("Version copied successfully")
	return nil
}
