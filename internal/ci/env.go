// Package ci turns the CI provider environment into firebase-ci decisions:
// which branch is being built, whether it is a pull request, which
// .firebaserc alias it maps to, and which deploy message to use.
//
// Every CI provider names its variables differently. This package is the
// only place that knows those names; everything downstream works with the
// normalized model.CIContext.
package ci

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// Environment variables read outside of the provider tables below.
const (
	EnvProjectOverride = "FIREBASE_CI_PROJECT"
	EnvEnvironmentSlug = "CI_ENVIRONMENT_SLUG"
	EnvToken           = "FIREBASE_TOKEN"
	EnvGitHubActions   = "GITHUB_ACTIONS"
	EnvGitHubSHA       = "GITHUB_SHA"
	EnvGitHubEnv       = "GITHUB_ENV"
)

// githubRefPrefix is stripped from GITHUB_REF values.
const githubRefPrefix = "refs/heads/"

// branchVars lists the branch variables in priority order.
var branchVars = []string{
	"GITHUB_HEAD_REF",    // github actions (pull requests)
	"GITHUB_REF",         // github actions (refs/heads/<branch>)
	"CI_COMMIT_REF_SLUG", // gitlab-ci
	"TRAVIS_BRANCH",      // travis-ci
	"CIRCLE_BRANCH",      // circle-ci
	"WERCKER_GIT_BRANCH", // wercker
	"DRONE_BRANCH",       // drone-ci
	"CI_BRANCH",          // codeship
	"BITBUCKET_BRANCH",   // bitbucket
}

// pullRequestVars are set to a PR number (or "false") by their providers.
// Bitbucket pipelines do not build pull requests, so there is no entry.
var pullRequestVars = []string{
	"TRAVIS_PULL_REQUEST",
	"CIRCLE_PR_NUMBER",
}

// commitMessageVars carry the commit message on providers other than
// GitHub Actions.
var commitMessageVars = []string{
	"TRAVIS_COMMIT_MESSAGE",
	"CI_COMMIT_MESSAGE",
	"CI_MESSAGE",
}

// providerMarkers are set by a provider on every build, branch or not.
var providerMarkers = []string{
	EnvGitHubActions,
	"GITLAB_CI",
	"TRAVIS",
	"CIRCLECI",
	"WERCKER",
	"DRONE",
	"CI_NAME", // codeship
	"BITBUCKET_BUILD_NUMBER",
}

// Env is an immutable snapshot of the process environment.
type Env map[string]string

// EnvFromOS snapshots os.Environ.
func EnvFromOS() Env {
	env := make(Env)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Get returns the value of key, or "" when unset.
func (e Env) Get(key string) string {
	return e[key]
}

// first returns the first non-empty value among keys.
func (e Env) first(keys []string) (string, string) {
	for _, k := range keys {
		if v := e[k]; v != "" {
			return k, v
		}
	}
	return "", ""
}

// CommitReader looks up a commit message by SHA. It is implemented by
// git.Reader.
type CommitReader interface {
	CommitMessage(ctx context.Context, sha string) (string, error)
}

// Resolve builds the CIContext for this invocation. The only side effect
// is at most one commit lookup under GitHub Actions; a failed lookup is
// logged and leaves the commit message absent.
func Resolve(ctx context.Context, env Env, commits CommitReader) model.CIContext {
	branch, detected := Branch(env)
	if !detected {
		if k, _ := env.first(pullRequestVars); k != "" {
			detected = true
		} else if k, _ := env.first(providerMarkers); k != "" {
			detected = true
		}
	}

	return model.CIContext{
		Branch:          branch,
		IsPullRequest:   IsPullRequest(env),
		CommitMessage:   commitMessage(ctx, env, commits),
		Detected:        detected,
		ProjectOverride: env.Get(EnvProjectOverride),
		EnvironmentSlug: env.Get(EnvEnvironmentSlug),
		Token:           env.Get(EnvToken),
		GitHubActions:   env.Get(EnvGitHubActions) != "",
		GitHubEnvPath:   env.Get(EnvGitHubEnv),
	}
}

// Branch returns the branch being built and whether it came from a CI
// provider variable. model.DefaultBranch is returned when none is set.
func Branch(env Env) (string, bool) {
	key, value := env.first(branchVars)
	if key == "" {
		return model.DefaultBranch, false
	}
	if key == "GITHUB_REF" {
		// The value may already be a bare branch name.
		value = strings.TrimPrefix(value, githubRefPrefix)
	}
	return value, true
}

// IsPullRequest reports whether any pull request variable is present and
// not the literal "false".
func IsPullRequest(env Env) bool {
	for _, k := range pullRequestVars {
		if v := env[k]; v != "" && v != "false" {
			return true
		}
	}
	return false
}

// commitMessage reads the message from provider variables, or from the
// repository when running under GitHub Actions.
func commitMessage(ctx context.Context, env Env, commits CommitReader) string {
	if env.Get(EnvGitHubActions) == "" {
		_, msg := env.first(commitMessageVars)
		return msg
	}

	sha := env.Get(EnvGitHubSHA)
	if sha == "" || commits == nil {
		return ""
	}
	msg, err := commits.CommitMessage(ctx, sha)
	if err != nil {
		log.Error().Err(err).Str("sha", sha).Msg("Error getting commit message through git log")
		return ""
	}
	return msg
}
