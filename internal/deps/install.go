// Package deps installs the tools a deploy needs: firebase-tools and the
// npm dependencies of the functions folder.
package deps

import (
	"context"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/shinji-kodama/firebase-ci/internal/command"
	"github.com/shinji-kodama/firebase-ci/internal/config"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// Settings are the .firebaserc values that control installation.
type Settings struct {
	SkipTools     bool
	SkipFunctions bool

	// ToolsVersion is an exact version or a semver constraint for
	// firebase-tools. Empty accepts any installed version.
	ToolsVersion string
}

// SettingsFromRC extracts the install settings from a parsed .firebaserc.
func SettingsFromRC(rc *config.RC) Settings {
	if rc == nil {
		return Settings{}
	}
	return Settings{
		SkipTools:     rc.SkipTools(),
		SkipFunctions: rc.SkipFunctions(),
		ToolsVersion:  rc.ToolsPin(),
	}
}

// Installer installs firebase-tools and functions dependencies.
type Installer struct {
	Fs     afero.Fs
	Runner command.Runner

	// Exists reports whether an executable is on PATH. Defaults to
	// command.Exists.
	Exists func(name string) bool
}

// NewInstaller creates an Installer that uses the real PATH.
func NewInstaller(fs afero.Fs, runner command.Runner) *Installer {
	return &Installer{Fs: fs, Runner: runner, Exists: command.Exists}
}

// Tool returns the argv prefix used to invoke the firebase CLI: "npx
// firebase" when npx is available, so a locally installed firebase-tools
// is found, and "firebase" otherwise.
func (i *Installer) Tool() []string {
	exists := i.Exists
	if exists == nil {
		exists = command.Exists
	}
	if exists("npx") {
		return []string{"npx", "firebase"}
	}
	return []string{"firebase"}
}

// InstalledVersion returns the version printed by `firebase --version`, or
// "" when the tool could not be run.
func (i *Installer) InstalledVersion(ctx context.Context) (string, error) {
	tool := i.Tool()
	res, err := i.Runner.Run(ctx, command.Command{
		Name:  tool[0],
		Args:  append(tool[1:], "--version"),
		Quiet: true,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Install installs firebase-tools when it is missing or does not satisfy
// s.ToolsVersion, and runs `npm i` in the functions folder when it has no
// node_modules. The two installs run concurrently; the first failure is
// returned marked with model.ErrInstallFailure once both have finished.
func (i *Installer) Install(ctx context.Context, opts model.Options, s Settings) error {
	log.Info().Msg("Checking to see if firebase-tools is installed...")
	version, versionErr := i.InstalledVersion(ctx)
	if versionErr != nil {
		log.Debug().Err(versionErr).Msg("firebase-tools version check failed")
	}

	installTools := false
	if s.SkipTools {
		if version == "" {
			err := errors.New("firebase-tools install skipped, and no existing version found")
			if versionErr != nil {
				err = errors.WithSecondaryError(err, versionErr)
			}
			return errors.Mark(err, model.ErrInstallFailure)
		}
		log.Info().Str("version", version).Msg("Installing of firebase-tools skipped based on config settings")
	} else {
		ok, err := Satisfies(version, s.ToolsVersion)
		if err != nil {
			return errors.Mark(err, model.ErrInstallFailure)
		}
		if ok {
			log.Info().Str("version", version).Msg("firebase-tools already exists")
		} else {
			installTools = true
		}
	}

	installFunctions := config.FunctionsExists(i.Fs) &&
		!config.FunctionsNodeModulesExist(i.Fs) &&
		!s.SkipFunctions

	g, gctx := errgroup.WithContext(ctx)
	if installTools {
		g.Go(func() error {
			log.Info().Str("version", s.ToolsVersion).Msg("firebase-tools does not already exist, installing...")
			if _, err := i.Runner.Run(gctx, ToolsInstallCommand(s.ToolsVersion, opts.Info)); err != nil {
				return errors.Wrap(err, "error installing firebase-tools")
			}
			log.Info().Msg("Firebase tools installed successfully!")
			return nil
		})
	}
	if installFunctions {
		g.Go(func() error {
			log.Info().Msg("Running npm install in functions folder...")
			if _, err := i.Runner.Run(gctx, FunctionsInstallCommand()); err != nil {
				return errors.Wrap(err, "error installing functions dependencies")
			}
			log.Info().Msg("Functions dependencies installed successfully!")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Mark(err, model.ErrInstallFailure)
	}
	return nil
}

// ToolsInstallCommand returns the npm invocation that installs
// firebase-tools, pinned to version when set.
func ToolsInstallCommand(version string, verbose bool) command.Command {
	pkg := "firebase-tools"
	if version != "" {
		pkg += "@" + version
	}
	args := []string{"i", pkg}
	if !verbose {
		args = append(args, "-q")
	}
	return command.Command{Name: "npm", Args: args}
}

// FunctionsInstallCommand returns the npm invocation that installs the
// functions folder dependencies.
func FunctionsInstallCommand() command.Command {
	return command.Command{Name: "npm", Args: []string{"i", "--prefix", config.FunctionsDir}}
}

// Satisfies reports whether the installed version meets the constraint.
// An empty installed version never does; an empty constraint accepts any
// installed version. An installed version that is not valid semver is
// accepted as is, since only the firebase CLI knows its own format.
func Satisfies(installed, constraint string) (bool, error) {
	if installed == "" {
		return false, nil
	}
	if constraint == "" {
		return true, nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, errors.Wrapf(err, "invalid toolsVersion %q", constraint)
	}
	v, err := semver.NewVersion(installed)
	if err != nil {
		log.Debug().Str("version", installed).Msg("Unrecognized firebase-tools version, skipping constraint check")
		return true, nil
	}
	return c.Check(v), nil
}
