package deploy

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// aliases returns a loader for table that counts its calls.
func aliases(table model.AliasTable, calls *int) AliasLoader {
	return func() (model.AliasTable, error) {
		*calls++
		return table, nil
	}
}

// forbidLoad returns a loader that fails the test when called.
func forbidLoad(t *testing.T) AliasLoader {
	return func() (model.AliasTable, error) {
		t.Helper()
		t.Fatal("alias table must not be read")
		return nil, nil
	}
}

// TestDecide_NonCI verifies that without any CI provider the run is skipped
// whatever the alias table contains.
func TestDecide_NonCI(t *testing.T) {
	tables := []model.AliasTable{
		nil,
		{},
		{"default": "proj-1"},
		{"master": "m", "default": "d", "stage": "s"},
	}
	for _, table := range tables {
		calls := 0
		d, err := Decide(model.Options{}, model.CIContext{Branch: "master"}, aliases(table, &calls))
		require.NoError(t, err)
		assert.Equal(t, model.DecisionSkipNonCI, d.Kind)
		assert.Zero(t, calls)
	}
}

func TestDecide_TestOverride(t *testing.T) {
	calls := 0
	d, err := Decide(model.Options{Test: true}, model.CIContext{Branch: "master"}, aliases(model.AliasTable{"default": "proj-1"}, &calls))
	require.NoError(t, err)
	assert.Equal(t, model.DecisionProceed, d.Kind)
	assert.Equal(t, 1, calls)
}

// TestDecide_PullRequest verifies that pull requests are skipped before the
// alias table is read, even when a valid alias exists.
func TestDecide_PullRequest(t *testing.T) {
	c := model.CIContext{Branch: "master", IsPullRequest: true, Detected: true}
	d, err := Decide(model.Options{}, c, forbidLoad(t))
	require.NoError(t, err)
	assert.Equal(t, model.DecisionSkipPullRequest, d.Kind)

	d, err = Decide(model.Options{Test: true}, c, forbidLoad(t))
	require.NoError(t, err)
	assert.Equal(t, model.DecisionSkipPullRequest, d.Kind)
}

func TestDecide_UnmappedProject(t *testing.T) {
	tests := []struct {
		name  string
		c     model.CIContext
		table model.AliasTable
	}{
		{name: "empty table", c: model.CIContext{Branch: "feature", Detected: true}, table: model.AliasTable{}},
		{name: "other aliases only", c: model.CIContext{Branch: "feature", Detected: true}, table: model.AliasTable{"prod": "p", "stage": "s"}},
		{name: "fallback slug unmapped", c: model.CIContext{Branch: "feature", EnvironmentSlug: "review", Detected: true}, table: model.AliasTable{"prod": "p"}},
		{name: "empty project name", c: model.CIContext{Branch: "feature", Detected: true}, table: model.AliasTable{"feature": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			d, err := Decide(model.Options{}, tt.c, aliases(tt.table, &calls))
			require.NoError(t, err)
			assert.Equal(t, model.DecisionSkipUnmappedProject, d.Kind)
			assert.Equal(t, "feature", d.Key)
			assert.Empty(t, d.Project.Name)
			assert.Equal(t, 1, calls)
		})
	}
}

// TestDecide_MasterUsesDefaultAlias covers a Travis build of master with a
// single default alias.
func TestDecide_MasterUsesDefaultAlias(t *testing.T) {
	c := model.CIContext{Branch: "master", Detected: true}
	calls := 0
	d, err := Decide(model.Options{}, c, aliases(model.AliasTable{"default": "proj-1"}, &calls))
	require.NoError(t, err)

	assert.Equal(t, model.DecisionProceed, d.Kind)
	assert.Equal(t, model.ResolvedProject{Key: "default", Name: "proj-1"}, d.Project)
	assert.Equal(t, "Update", d.Message)
	assert.Empty(t, d.ExtraArgs)
}

func TestDecide_ProceedPayload(t *testing.T) {
	c := model.CIContext{
		Branch:          "feature",
		EnvironmentSlug: "review",
		CommitMessage:   "He said \"hi\" `now`",
		Detected:        true,
	}
	opts := model.Options{Only: "hosting,functions", Force: true}
	calls := 0
	d, err := Decide(opts, c, aliases(model.AliasTable{"review": "app-review", "default": "app-dev"}, &calls))
	require.NoError(t, err)

	assert.Equal(t, model.DecisionProceed, d.Kind)
	assert.Equal(t, model.ResolvedProject{Key: "review", Name: "app-review"}, d.Project)
	assert.Equal(t, `'He said '\''hi'\'' now'`, d.Message)
	assert.Equal(t, []string{"--only", "hosting,functions", "--force"}, d.ExtraArgs)
}

func TestDecide_LoaderError(t *testing.T) {
	loadErr := errors.Mark(errors.New(".firebaserc file is required"), model.ErrConfigMissing)
	d, err := Decide(model.Options{}, model.CIContext{Branch: "master", Detected: true}, func() (model.AliasTable, error) {
		return nil, loadErr
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfigMissing))
	assert.Empty(t, d.Kind)
}

func TestBuildArgs(t *testing.T) {
	d := model.Decision{
		Kind:      model.DecisionProceed,
		Project:   model.ResolvedProject{Key: "default", Name: "proj-1"},
		Message:   "'Fix login'",
		ExtraArgs: []string{"--only", "hosting"},
	}

	tests := []struct {
		name  string
		tool  []string
		c     model.CIContext
		debug bool
		want  []string
	}{
		{
			name:  "npx with token and debug",
			tool:  []string{"npx", "firebase"},
			c:     model.CIContext{Token: "1//tok"},
			debug: true,
			want: []string{
				"npx", "firebase", "deploy", "--only", "hosting",
				"--token", "1//tok",
				"--non-interactive", "--project", "default",
				"--message", "'Fix login'", "--debug",
			},
		},
		{
			name: "global firebase without token",
			tool: []string{"firebase"},
			want: []string{
				"firebase", "deploy", "--only", "hosting",
				"--non-interactive", "--project", "default",
				"--message", "'Fix login'",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildArgs(d, tt.tool, tt.c, tt.debug))
		})
	}
}

// TestBuildArgs_MessageIsOneArgument verifies that a message with spaces
// and quotes stays a single argv element.
func TestBuildArgs_MessageIsOneArgument(t *testing.T) {
	d := model.Decision{Project: model.ResolvedProject{Key: "prod", Name: "p"}, Message: "'a b; rm -rf /'"}
	args := BuildArgs(d, []string{"firebase"}, model.CIContext{}, false)
	require.Equal(t, "--message", args[len(args)-2])
	assert.Equal(t, "'a b; rm -rf /'", args[len(args)-1])
}
