package deploy

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/firebase-ci/internal/command"
	"github.com/shinji-kodama/firebase-ci/internal/command/commandtest"
	"github.com/shinji-kodama/firebase-ci/internal/config"
	"github.com/shinji-kodama/firebase-ci/internal/deps"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// fakeInstaller records Install calls.
type fakeInstaller struct {
	calls    int
	settings deps.Settings
	err      error
}

func (f *fakeInstaller) Tool() []string { return []string{"firebase"} }

func (f *fakeInstaller) Install(_ context.Context, _ model.Options, s deps.Settings) error {
	f.calls++
	f.settings = s
	return f.err
}

// fakeActions records Run calls.
type fakeActions struct {
	calls int
	err   error
}

func (f *fakeActions) Run(context.Context, model.Options, *config.RC) error {
	f.calls++
	return f.err
}

const testRC = `{
  // comments are allowed
  "projects": {
    "default": "proj-1",
    "prod": "proj-prod",
  },
  "toolsVersion": "^13"
}`

// newTestOrchestrator returns an orchestrator over an in-memory project
// containing .firebaserc (unless rc is empty) and firebase.json.
func newTestOrchestrator(t *testing.T, rc string, c model.CIContext) (*Orchestrator, *commandtest.Runner, *fakeInstaller, *fakeActions) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if rc != "" {
		require.NoError(t, afero.WriteFile(fs, config.RCFile, []byte(rc), 0o644))
	}
	require.NoError(t, afero.WriteFile(fs, config.FirebaseJSON, []byte(`{"hosting": {"public": "dist"}}`), 0o644))

	runner := commandtest.NewRunner()
	installer := &fakeInstaller{}
	acts := &fakeActions{}
	return &Orchestrator{
		Fs:        fs,
		Runner:    runner,
		Installer: installer,
		Actions:   acts,
		CI:        c,
	}, runner, installer, acts
}

func TestOrchestrator_Deploy(t *testing.T) {
	c := model.CIContext{Branch: "master", Detected: true, CommitMessage: "Fix login", Token: "1//tok"}
	o, runner, installer, acts := newTestOrchestrator(t, testRC, c)

	d, err := o.Run(context.Background(), model.Options{Only: "hosting"})
	require.NoError(t, err)

	assert.Equal(t, model.DecisionProceed, d.Kind)
	assert.Equal(t, 1, installer.calls)
	assert.Equal(t, "^13", installer.settings.ToolsVersion)
	assert.Equal(t, 1, acts.calls)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "firebase", calls[0].Name)
	assert.Equal(t, []string{
		"deploy", "--only", "hosting",
		"--token", "1//tok",
		"--non-interactive", "--project", "default",
		"--message", "'Fix login'",
	}, calls[0].Args)
}

func TestOrchestrator_Skips(t *testing.T) {
	tests := []struct {
		name string
		rc   string
		c    model.CIContext
		want model.DecisionKind
	}{
		{name: "not CI", rc: testRC, c: model.CIContext{Branch: "master"}, want: model.DecisionSkipNonCI},
		{name: "not CI without config", c: model.CIContext{Branch: "master"}, want: model.DecisionSkipNonCI},
		{name: "pull request without config", c: model.CIContext{Branch: "master", Detected: true, IsPullRequest: true}, want: model.DecisionSkipPullRequest},
		{name: "unmapped project", rc: `{"projects": {"prod": "p"}}`, c: model.CIContext{Branch: "feature", Detected: true}, want: model.DecisionSkipUnmappedProject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, runner, installer, acts := newTestOrchestrator(t, tt.rc, tt.c)
			d, err := o.Run(context.Background(), model.Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Kind)
			assert.Empty(t, runner.Calls())
			assert.Zero(t, installer.calls)
			assert.Zero(t, acts.calls)
		})
	}
}

func TestOrchestrator_ConfigErrors(t *testing.T) {
	c := model.CIContext{Branch: "master", Detected: true}

	t.Run("missing firebaserc", func(t *testing.T) {
		o, _, _, _ := newTestOrchestrator(t, "", c)
		_, err := o.Run(context.Background(), model.Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrConfigMissing))
		assert.Contains(t, err.Error(), ".firebaserc file is required")
	})

	t.Run("invalid firebaserc", func(t *testing.T) {
		o, _, _, _ := newTestOrchestrator(t, `{"projects": `, c)
		_, err := o.Run(context.Background(), model.Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrConfigInvalid))
	})

	t.Run("missing firebase.json", func(t *testing.T) {
		o, _, _, _ := newTestOrchestrator(t, testRC, c)
		require.NoError(t, o.Fs.Remove(config.FirebaseJSON))
		_, err := o.Run(context.Background(), model.Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrConfigMissing))
		assert.Contains(t, err.Error(), "firebase.json file is required")
	})
}

func TestOrchestrator_SkipDependencyInstall(t *testing.T) {
	rc := `{"projects": {"default": "proj-1"}, "skipDependencyInstall": true}`
	o, runner, installer, _ := newTestOrchestrator(t, rc, model.CIContext{Branch: "master", Detected: true})

	_, err := o.Run(context.Background(), model.Options{})
	require.NoError(t, err)
	assert.Zero(t, installer.calls)
	assert.Len(t, runner.Calls(), 1)
}

func TestOrchestrator_SimpleMode(t *testing.T) {
	o, runner, _, acts := newTestOrchestrator(t, testRC, model.CIContext{Branch: "master", Detected: true})

	_, err := o.Run(context.Background(), model.Options{Simple: true})
	require.NoError(t, err)
	assert.Zero(t, acts.calls)
	assert.Len(t, runner.Calls(), 1)
}

func TestOrchestrator_Debug(t *testing.T) {
	tests := []struct {
		name     string
		rc       string
		opts     model.Options
		envDebug bool
	}{
		{name: "config flag", rc: `{"projects": {"default": "p"}, "debug": true}`},
		{name: "environment", rc: testRC, envDebug: true},
		{name: "option", rc: testRC, opts: model.Options{Debug: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, runner, _, _ := newTestOrchestrator(t, tt.rc, model.CIContext{Branch: "master", Detected: true})
			o.Debug = tt.envDebug
			_, err := o.Run(context.Background(), tt.opts)
			require.NoError(t, err)

			calls := runner.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, "--debug", calls[0].Args[len(calls[0].Args)-1])
			assert.NotContains(t, calls[0].Args, "--token")
		})
	}
}

func TestOrchestrator_InstallFailure(t *testing.T) {
	o, runner, installer, acts := newTestOrchestrator(t, testRC, model.CIContext{Branch: "master", Detected: true})
	installer.err = errors.Mark(errors.New("error installing firebase-tools"), model.ErrInstallFailure)

	_, err := o.Run(context.Background(), model.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInstallFailure))
	assert.Zero(t, acts.calls)
	assert.Empty(t, runner.Calls())
}

func TestOrchestrator_ActionFailure(t *testing.T) {
	o, runner, _, acts := newTestOrchestrator(t, testRC, model.CIContext{Branch: "master", Detected: true})
	acts.err = errors.New("mapEnv failed")

	_, err := o.Run(context.Background(), model.Options{})
	require.Error(t, err)
	assert.Empty(t, runner.Calls())
}

func TestOrchestrator_DeployFailure(t *testing.T) {
	o, runner, _, _ := newTestOrchestrator(t, testRC, model.CIContext{Branch: "master", Detected: true, Token: "1//secret"})
	runner.On("firebase deploy", command.Result{Stderr: "Error: HTTP Error: 403"}, &command.ExitError{
		Command: command.Command{Name: "firebase", Args: []string{"deploy", "--token", "1//secret"}},
		Stderr:  "Error: HTTP Error: 403",
	})

	_, err := o.Run(context.Background(), model.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDeployFailure))
	assert.Contains(t, err.Error(), "HTTP Error: 403")
	assert.NotContains(t, err.Error(), "1//secret")
}

// scriptRunner runs a shell script in place of each command through a
// real command.ExecRunner, so the npm WARN handling is exercised end to
// end. Commands without a script succeed silently.
type scriptRunner struct {
	exec    *command.ExecRunner
	scripts map[string]string

	mu    sync.Mutex
	lines []string
}

func (r *scriptRunner) Run(ctx context.Context, c command.Command) (command.Result, error) {
	line := commandtest.Line(c)
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()

	script := "exit 0"
	for prefix, s := range r.scripts {
		if strings.HasPrefix(line, prefix) {
			script = s
		}
	}
	return r.exec.Run(ctx, command.Command{Name: "sh", Args: []string{"-c", script}, Quiet: c.Quiet})
}

// TestOrchestrator_InstallerWarningIsNotFatal covers an npm install that
// exits non-zero with only npm WARN output: the deploy still runs.
func TestOrchestrator_InstallerWarningIsNotFatal(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	var out strings.Builder
	runner := &scriptRunner{
		exec: &command.ExecRunner{Stdout: &out, Stderr: &out},
		scripts: map[string]string{
			"firebase --version":       "exit 127",
			"npm i firebase-tools":     "echo 'npm WARN deprecated request@2.88.2' >&2; exit 1",
			"npm i --prefix functions": "echo 'npm WARN optional dependency skipped'; exit 1",
		},
	}

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, config.RCFile, []byte(`{"projects": {"default": "proj-1"}}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, config.FirebaseJSON, []byte(`{}`), 0o644))
	require.NoError(t, fs.MkdirAll(config.FunctionsDir, 0o755))

	installer := &deps.Installer{Fs: fs, Runner: runner, Exists: func(string) bool { return false }}
	o := &Orchestrator{
		Fs:        fs,
		Runner:    runner,
		Installer: installer,
		Actions:   &fakeActions{},
		CI:        model.CIContext{Branch: "master", Detected: true},
	}

	d, err := o.Run(context.Background(), model.Options{})
	require.NoError(t, err)
	assert.Equal(t, model.DecisionProceed, d.Kind)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Contains(t, runner.lines, "npm i firebase-tools -q")
	assert.Contains(t, runner.lines, "npm i --prefix functions")
	assert.True(t, strings.HasPrefix(runner.lines[len(runner.lines)-1], "firebase deploy"))
}
