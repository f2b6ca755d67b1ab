// Package deploy decides whether a CI build should deploy to Firebase and,
// when it should, runs the deploy.
//
// The decision is a pure function of the options, the CIContext and the
// alias table. Its checks short-circuit in a fixed order:
//
//  1. no CI provider detected (and no test override): skip
//  2. pull request build: skip
//  3. no alias for the project key or any fallback: skip
//  4. otherwise: proceed
//
// The alias table is loaded lazily, after the first two checks, so that
// non-CI and pull request builds never read .firebaserc.
package deploy

import (
	"github.com/shinji-kodama/firebase-ci/internal/ci"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// AliasLoader returns the alias table. It is called at most once per
// decision, and only when the first two checks pass.
type AliasLoader func() (model.AliasTable, error)

// Decide returns the deploy decision for this build. Errors only come from
// loadAliases (a missing or invalid .firebaserc); every skip is a valid
// Decision.
func Decide(opts model.Options, c model.CIContext, loadAliases AliasLoader) (model.Decision, error) {
	if !c.Detected && !opts.Test {
		return model.Decision{Kind: model.DecisionSkipNonCI}, nil
	}
	if c.IsPullRequest {
		return model.Decision{Kind: model.DecisionSkipPullRequest}, nil
	}

	aliases, err := loadAliases()
	if err != nil {
		return model.Decision{}, err
	}

	project := ci.ResolveProject(opts, c, aliases)
	if !project.Found() {
		return model.Decision{Kind: model.DecisionSkipUnmappedProject, Key: project.Key}, nil
	}

	return model.Decision{
		Kind:      model.DecisionProceed,
		Project:   project,
		Message:   ci.SanitizeMessage(c.CommitMessage),
		ExtraArgs: opts.TargetFlags(),
	}, nil
}

// BuildArgs assembles the deploy argv for a proceed decision:
//
//	<tool...> deploy [--only t] [--except t] [--force] [--token T]
//	  --non-interactive --project <alias> --message <msg> [--debug]
//
// tool is the firebase CLI prefix, e.g. ["npx", "firebase"]. The token
// flag is only added when c carries a token.
func BuildArgs(d model.Decision, tool []string, c model.CIContext, debug bool) []string {
	args := make([]string, 0, len(tool)+len(d.ExtraArgs)+10)
	args = append(args, tool...)
	args = append(args, "deploy")
	args = append(args, d.ExtraArgs...)
	if c.Token != "" {
		args = append(args, "--token", c.Token)
	}
	args = append(args,
		"--non-interactive",
		"--project", d.Project.Key,
		"--message", d.Message,
	)
	if debug {
		args = append(args, "--debug")
	}
	return args
}
