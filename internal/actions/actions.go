// Package actions implements the CI actions firebase-ci runs around a
// deploy: copying the package version into the functions folder, writing a
// config file from templated settings, mapping CI variables into Functions
// config, exporting environment variables, and serving a project locally.
//
// Every action reads the project from the same CIContext and .firebaserc
// that the deploy uses, so a single build always targets one alias.
//
// Settings values may reference environment variables with ${NAME}. Two
// extra names are always available: "version" and "npm_package_version",
// both holding the version field of the root package.json. A reference to
// an undefined name is not fatal: a warning is logged and the whole value
// becomes an empty string.
package actions

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/shinji-kodama/firebase-ci/internal/ci"
	"github.com/shinji-kodama/firebase-ci/internal/command"
	"github.com/shinji-kodama/firebase-ci/internal/config"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// templateRef matches a ${NAME} reference in a settings value.
var templateRef = regexp.MustCompile(`\$\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}`)

// Actions runs CI actions against one project directory.
type Actions struct {
	// Fs is the project filesystem. Paths are relative to its root.
	Fs afero.Fs

	// Runner executes the firebase CLI.
	Runner command.Runner

	// Env is the environment snapshot used for templating and mapEnv.
	Env ci.Env

	// CI is the resolved CI context that selects the project.
	CI model.CIContext

	// Tool is the argv prefix of the firebase CLI (e.g. ["npx", "firebase"]).
	Tool []string

	// Setenv exports a variable into the current process. Defaults to
	// os.Setenv.
	Setenv func(key, value string) error
}

// tool returns the firebase CLI argv prefix, defaulting to "firebase".
func (a *Actions) tool() []string {
	if len(a.Tool) == 0 {
		return []string{"firebase"}
	}
	return a.Tool
}

// firebase builds a command that runs the firebase CLI with args.
func (a *Actions) firebase(args ...string) command.Command {
	tool := a.tool()
	argv := make([]string, 0, len(tool)-1+len(args))
	argv = append(argv, tool[1:]...)
	argv = append(argv, args...)
	return command.Command{Name: tool[0], Args: argv}
}

func (a *Actions) setenv(key, value string) error {
	if a.Setenv != nil {
		return a.Setenv(key, value)
	}
	return os.Setenv(key, value)
}

// resolveProject returns the alias for this build, logging a skip line
// prefixed with action when there is none.
func (a *Actions) resolveProject(opts model.Options, rc *config.RC, action string) (model.ResolvedProject, bool) {
	project := ci.ResolveProject(opts, a.CI, rc.Aliases())
	if !project.Found() {
		log.Warn().Str("project", project.Key).Str("fallback", a.CI.EnvironmentSlug).
			Msgf("Skipping firebase-ci %s - Project is not an alias and no fallback alias exists", action)
		return project, false
	}
	return project, true
}

// selectSettings picks the settings block for this build from a table keyed
// by alias or environment name. The project key is tried first, then
// CI_ENVIRONMENT_SLUG, then "master" when present and "default" otherwise.
// It returns the selected name, or "" when no block matches.
func (a *Actions) selectSettings(opts model.Options, table map[string]map[string]any) (string, map[string]any) {
	key := ci.ProjectKey(opts, a.CI)
	if block, ok := table[key]; ok && block != nil {
		return key, block
	}

	fallback := a.CI.EnvironmentSlug
	if fallback == "" {
		fallback = model.DefaultAlias
		if _, ok := table[model.DefaultBranch]; ok {
			fallback = model.DefaultBranch
		}
	}
	if block, ok := table[fallback]; ok && block != nil {
		return fallback, block
	}
	return "", nil
}

// templateVars returns the lookup used to expand ${NAME} references.
func (a *Actions) templateVars() func(string) (string, bool) {
	version, err := config.PackageVersion(a.Fs, config.PackageJSON)
	if err != nil {
		log.Debug().Err(err).Msg("No package version available for templating")
	}
	return func(name string) (string, bool) {
		switch name {
		case "version", "npm_package_version":
			return version, version != ""
		}
		v, ok := a.Env[name]
		return v, ok
	}
}

// expand replaces every ${NAME} in s. When a name is undefined, a warning
// naming the setting is logged and "" is returned.
func expand(s, setting string, lookup func(string) (string, bool)) string {
	var missing []string
	out := templateRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := templateRef.FindStringSubmatch(ref)[1]
		v, ok := lookup(name)
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		log.Warn().Strs("missing", missing).Str("setting", setting).
			Msg("Variable is not defined in environment, setting value to an empty string")
		return ""
	}
	return out
}

// templateSettings expands the string values of a settings block and of
// its nested objects. Other values are kept as is.
func templateSettings(block map[string]any, lookup func(string) (string, bool)) map[string]any {
	out := make(map[string]any, len(block))
	for name, value := range block {
		switch v := value.(type) {
		case string:
			out[name] = expand(v, name, lookup)
		case map[string]any:
			nested := make(map[string]any, len(v))
			for child, data := range v {
				if s, ok := data.(string); ok {
					nested[child] = expand(s, name+"."+child, lookup)
				} else {
					nested[child] = data
				}
			}
			out[name] = nested
		default:
			out[name] = value
		}
	}
	return out
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// scalarString formats a non-object settings value.
func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
