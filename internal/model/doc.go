// Package model defines the domain types and value objects for the
// firebase-ci CLI.
//
// This package contains pure data structures with no I/O. All entities
// (CIContext, ResolvedProject, Decision, Options) are transient: they are
// built fresh on every CLI invocation from the environment and the
// .firebaserc file, and none of them outlive the process.
//
// The package also defines exit codes (ExitCode), a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling,
// and the sentinel errors used to classify failures.
package model
