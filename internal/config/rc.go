// Package config handles loading of the project files firebase-ci reads:
// .firebaserc, firebase.json and package.json.
//
// .firebaserc is maintained by hand in many projects, so comments and
// trailing commas are tolerated: the file is passed through
// github.com/tidwall/jsonc before being parsed with encoding/json.
//
// All file access goes through an afero.Fs so that commands can be
// exercised against an in-memory filesystem in tests.
package config

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// Well-known file and directory names, relative to the project root.
const (
	RCFile       = ".firebaserc"
	FirebaseJSON = "firebase.json"
	PackageJSON  = "package.json"
	FunctionsDir = "functions"
)

// RC is the parsed .firebaserc file. Fields that firebase-tools itself
// owns (e.g. "targets") are ignored.
type RC struct {
	// Projects maps alias keys to Firebase project identifiers.
	Projects model.AliasTable `json:"projects,omitempty"`

	// CI holds the firebase-ci specific settings.
	CI *CISettings `json:"ci,omitempty"`

	// SkipDependencyInstall skips both firebase-tools and functions installs.
	SkipDependencyInstall bool `json:"skipDependencyInstall,omitempty"`

	// SkipToolsInstall skips installing firebase-tools. An existing
	// installation is then required.
	SkipToolsInstall bool `json:"skipToolsInstall,omitempty"`

	// SkipFunctionsInstall skips `npm i` in the functions folder.
	SkipFunctionsInstall bool `json:"skipFunctionsInstall,omitempty"`

	// Debug adds --debug to the deploy command.
	Debug bool `json:"debug,omitempty"`

	// ToolsVersion pins the firebase-tools version to install. Any semver
	// constraint is accepted (e.g. "13.0.2", "^13").
	ToolsVersion string `json:"toolsVersion,omitempty"`
}

// CISettings is the "ci" section of .firebaserc.
type CISettings struct {
	// CreateConfig maps an alias key or environment name to the settings
	// written by the createConfig action. Values are either strings or one
	// level of nested string maps, and may contain ${VAR} templates.
	CreateConfig map[string]map[string]any `json:"createConfig,omitempty"`

	// SetEnv maps an alias key or environment name to variables exported
	// by the setEnv action. Values may contain ${VAR} templates.
	SetEnv map[string]map[string]any `json:"setEnv,omitempty"`

	// MapEnv maps CI environment variable names to Functions config paths
	// (e.g. "SOME_TOKEN": "some.token").
	MapEnv map[string]string `json:"mapEnv,omitempty"`

	// The install settings below are also accepted at the top level, which
	// takes precedence.
	SkipToolsInstall     bool   `json:"skipToolsInstall,omitempty"`
	SkipFunctionsInstall bool   `json:"skipFunctionsInstall,omitempty"`
	ToolsVersion         string `json:"toolsVersion,omitempty"`
}

// Aliases returns the alias table, never nil.
func (rc *RC) Aliases() model.AliasTable {
	if rc == nil || rc.Projects == nil {
		return model.AliasTable{}
	}
	return rc.Projects
}

// ToolsPin returns the pinned firebase-tools version, preferring the
// top-level setting.
func (rc *RC) ToolsPin() string {
	if rc.ToolsVersion != "" {
		return rc.ToolsVersion
	}
	if rc.CI != nil {
		return rc.CI.ToolsVersion
	}
	return ""
}

// SkipTools reports whether installing firebase-tools is disabled.
func (rc *RC) SkipTools() bool {
	return rc.SkipToolsInstall || (rc.CI != nil && rc.CI.SkipToolsInstall)
}

// SkipFunctions reports whether the functions dependency install is disabled.
func (rc *RC) SkipFunctions() bool {
	return rc.SkipFunctionsInstall || (rc.CI != nil && rc.CI.SkipFunctionsInstall)
}

// CreateConfigValue returns ci.createConfig.<env>.<parent>.<child> when it
// is a string, or "" otherwise.
func (rc *RC) CreateConfigValue(env, parent, child string) string {
	if rc == nil || rc.CI == nil || env == "" {
		return ""
	}
	nested, ok := rc.CI.CreateConfig[env][parent].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := nested[child].(string)
	return s
}

// Load reads and parses the .firebaserc file at path.
//
// A missing file is reported with model.ErrConfigMissing and a malformed
// one with model.ErrConfigInvalid; both are fatal for the commands that
// need the file.
func Load(fs afero.Fs, path string) (*RC, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Mark(errors.Wrapf(err, "%s file is required", path), model.ErrConfigMissing)
		}
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var rc RC
	if err := json.Unmarshal(jsonc.ToJSON(data), &rc); err != nil {
		return nil, errors.Mark(
			errors.Wrapf(err, "unable to parse %s - JSON is most likely not valid", path),
			model.ErrConfigInvalid,
		)
	}
	return &rc, nil
}

// Require returns a model.ErrConfigMissing error when path does not exist.
func Require(fs afero.Fs, path string) error {
	ok, err := afero.Exists(fs, path)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", path)
	}
	if !ok {
		return errors.Mark(errors.Newf("%s file is required", path), model.ErrConfigMissing)
	}
	return nil
}
