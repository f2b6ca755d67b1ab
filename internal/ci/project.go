package ci

import (
	"github.com/shinji-kodama/firebase-ci/internal/config"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// ProjectKey returns the .firebaserc alias key for this build:
// FIREBASE_CI_PROJECT, then the --project option, then the branch name.
// The key "master" is replaced by "default".
func ProjectKey(opts model.Options, c model.CIContext) string {
	key := c.Branch
	if opts.Project != "" {
		key = opts.Project
	}
	if c.ProjectOverride != "" {
		key = c.ProjectOverride
	}
	if key == model.DefaultBranch {
		key = model.DefaultAlias
	}
	return key
}

// ProjectName looks key up in the alias table, falling back to fallbackKey
// (the environment slug), then to the "master" and "default" aliases.
//
// When nothing matches, the returned project has an empty Name and Key set
// to the requested key. An alias is never synthesized from the key itself.
func ProjectName(key, fallbackKey string, aliases model.AliasTable) model.ResolvedProject {
	for _, candidate := range []string{key, fallbackKey, model.DefaultBranch, model.DefaultAlias} {
		if name, ok := aliases.Lookup(candidate); ok {
			return model.ResolvedProject{Key: candidate, Name: name}
		}
	}
	return model.ResolvedProject{Key: key}
}

// ResolveProject combines ProjectKey and ProjectName.
func ResolveProject(opts model.Options, c model.CIContext, aliases model.AliasTable) model.ResolvedProject {
	return ProjectName(ProjectKey(opts, c), c.EnvironmentSlug, aliases)
}

// ProjectID returns the Firebase project ID for this build. It prefers
// FIREBASE_CI_PROJECT, then ci.createConfig.<env>.firebase.projectId for the
// project key (with "default" read from the "master" entry), the
// --default-env option and "master", and finally the aliased project name.
func ProjectID(opts model.Options, c model.CIContext, rc *config.RC) string {
	if c.ProjectOverride != "" {
		return c.ProjectOverride
	}

	key := ProjectKey(opts, c)
	if key == model.DefaultAlias {
		key = model.DefaultBranch
	}
	for _, env := range []string{key, opts.DefaultProject, model.DefaultBranch} {
		if id := rc.CreateConfigValue(env, "firebase", "projectId"); id != "" {
			return id
		}
	}
	return ResolveProject(opts, c, rc.Aliases()).Name
}
