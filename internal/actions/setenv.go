package actions

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/shinji-kodama/firebase-ci/internal/config"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// githubEnvDelimiter terminates multi-line values in the GITHUB_ENV file.
const githubEnvDelimiter = "FIREBASE_CI_EOF"

// SetEnv exports the templated ci.setEnv block for this build. Each value
// is set in the current process; under GitHub Actions it is also appended
// to the $GITHUB_ENV file so later steps see it. When dotenvPath is set,
// the variables are also written there in dotenv format.
//
// Nested objects cannot be exported and are skipped with a warning.
func (a *Actions) SetEnv(opts model.Options, rc *config.RC, dotenvPath string) error {
	if rc.CI == nil || len(rc.CI.SetEnv) == 0 {
		log.Error().Msg("no setEnv settings found")
		return nil
	}

	name, block := a.selectSettings(opts, rc.CI.SetEnv)
	if block == nil {
		return errors.Mark(errors.New("valid setEnv settings could not be loaded"), model.ErrConfigInvalid)
	}
	log.Info().Str("project", name).Msg("Setting environment from config")

	vars := make(map[string]string, len(block))
	for key, value := range templateSettings(block, a.templateVars()) {
		if _, nested := value.(map[string]any); nested {
			log.Warn().Str("variable", key).Msg("Nested setEnv values cannot be exported, skipping")
			continue
		}
		vars[key] = scalarString(value)
	}

	for _, key := range sortedKeys(vars) {
		if err := a.setenv(key, vars[key]); err != nil {
			return errors.Wrapf(err, "failed to set %s", key)
		}
	}

	if a.CI.GitHubActions {
		log.Info().Msg("Github actions environment detected, variables will also be written to GITHUB_ENV")
		if err := a.appendGitHubEnv(vars); err != nil {
			return err
		}
	}

	if dotenvPath != "" {
		content, err := godotenv.Marshal(vars)
		if err != nil {
			return errors.Wrap(err, "failed to encode dotenv file")
		}
		if err := config.WriteFile(a.Fs, dotenvPath, []byte(content+"\n")); err != nil {
			return err
		}
		log.Info().Str("path", dotenvPath).Msg("Environment written to dotenv file")
	}
	return nil
}

// appendGitHubEnv appends vars to the file named by GITHUB_ENV, one
// KEY=value line per variable. Multi-line values use the heredoc form.
func (a *Actions) appendGitHubEnv(vars map[string]string) error {
	if a.CI.GitHubEnvPath == "" {
		log.Warn().Msg("GITHUB_ENV is not set, skipping export to later steps")
		return nil
	}

	var b strings.Builder
	for _, key := range sortedKeys(vars) {
		value := vars[key]
		if strings.ContainsAny(value, "\r\n") {
			fmt.Fprintf(&b, "%s<<%s\n%s\n%s\n", key, githubEnvDelimiter, value, githubEnvDelimiter)
			continue
		}
		fmt.Fprintf(&b, "%s=%s\n", key, value)
	}

	f, err := a.Fs.OpenFile(a.CI.GitHubEnvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", a.CI.GitHubEnvPath)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(b.String()); err != nil {
		return errors.Wrapf(err, "failed to write %s", a.CI.GitHubEnvPath)
	}
	return nil
}
