package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"capresolve/internal/types"
)

// ---------- Command tree tests ----------

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	expected := []string{"validate", "resolve", "providers", "eval"}
	for _, name := range expected {
		assert.Contains(t, names, name, "missing subcommand: %s", name)
	}
}

func TestRootCommandVersion(t *testing.T) {
	root := newRootCommand()
	assert.Equal(t, "dev", root.Version)
	assert.NotNil(t, root.PersistentFlags().Lookup("cache-ttl"))
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		name  string
		cmd   *cobra.Command
		flags []string
	}{
		{
			name: "resolve",
			cmd:  newResolveCommand(),
			flags: []string{
				"run", "repo", "workspace", "prefer", "effective",
				"singleton", "lock", "out-dir", "output", "metrics-file",
			},
		},
		{
			name:  "providers",
			cmd:   newProvidersCommand(),
			flags: []string{"run", "repo", "workspace", "namespace", "filter", "alias", "id", "range", "limit"},
		},
		{
			name:  "eval",
			cmd:   newEvalCommand(),
			flags: []string{"filter", "attr"},
		},
		{
			name:  "validate",
			cmd:   newValidateCommand(),
			flags: []string{"run"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), "missing flag: %s", name)
			}
		})
	}
}

// ---------- Execution tests ----------

func fixturePath(t *testing.T, parts ...string) string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("..", ".."))
	require.NoError(t, err)
	return filepath.Join(append([]string{root, "fixtures", "demo"}, parts...)...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestEvalCommand(t *testing.T) {
	out, err := execute(t, "eval",
		"--filter", "(&(osgi.wiring.package=com.acme)(version>=1.0.0)(!(version>=2.0.0)))",
		"--attr", "osgi.wiring.package=com.acme",
		"--attr", "version=1.5",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "match: true")
	assert.Contains(t, out, "query: p:com.acme [1.0.0,2.0.0)")
}

func TestResolveCommandYAML(t *testing.T) {
	metricsFile := filepath.Join(t.TempDir(), "capresolve.prom")
	out, err := execute(t, "resolve",
		"--run", fixturePath(t, "run.yaml"),
		"--output", "yaml",
		"--metrics-file", metricsFile,
	)
	require.NoError(t, err)

	var report types.ResolutionReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	var got []string
	for _, r := range report.Resources {
		got = append(got, r.Identity+"="+r.Version)
	}
	want := []string{
		"com.example.app=1.0.0",
		"com.example.lib=1.5.0",
		"com.example.plugin=0.1.0",
		"com.example.tool=1.2.0",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected resources (-want +got):\n%s", diff)
	}

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "capresolve_find_providers_total")
	assert.Contains(t, string(metrics), "capresolve_unresolved_requirements 0")
}

func TestResolveCommandUnresolvedExitCode(t *testing.T) {
	run := filepath.Join(t.TempDir(), "run.yaml")
	content := "requires:\n  - { namespace: osgi.identity, filter: \"(osgi.identity=com.example.absent)\" }\n"
	require.NoError(t, os.WriteFile(run, []byte(content), 0o644))

	_, err := execute(t, "resolve", "--run", run, "--repo", fixturePath(t, "repo.yaml"))
	require.Error(t, err)
	assert.Equal(t, 4, exitCodeForError(err))
}

func TestResolveCommandRejectsOutputFormat(t *testing.T) {
	_, err := execute(t, "resolve", "--run", fixturePath(t, "run.yaml"), "--output", "json")
	require.Error(t, err)
	assert.Equal(t, 2, exitCodeForError(err))
}

func TestProvidersCommand(t *testing.T) {
	out, err := execute(t, "providers",
		"--repo", fixturePath(t, "repo.yaml"),
		"--alias", "bnd.identity",
		"--id", "com.example.tool",
		"--limit", "1",
	)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[1], "com.example.tool;version=1.2.0")
	assert.Contains(t, out, "... 1 more")
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "--run", fixturePath(t, "run.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "validated: demo")
}

// ---------- Helper function tests ----------

func TestResolveString(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *cobra.Command
		value    string
		expected string
	}{
		{
			name:     "nil cmd with value returns value",
			cmd:      nil,
			value:    "explicit",
			expected: "explicit",
		},
		{
			name:     "nil cmd empty value returns empty",
			cmd:      nil,
			value:    "",
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveString(tt.cmd, tt.value, "test_key", "test-flag")
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveStrings(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *cobra.Command
		values   []string
		expected []string
	}{
		{
			name:     "nil cmd with values returns values",
			cmd:      nil,
			values:   []string{"a", "b"},
			expected: []string{"a", "b"},
		},
		{
			name:     "nil cmd empty returns nil",
			cmd:      nil,
			values:   nil,
			expected: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveStrings(tt.cmd, tt.values, "test_key", "test-flag")
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveBool(t *testing.T) {
	got := resolveBool(nil, true, "test_key", "test-flag")
	assert.True(t, got)

	got = resolveBool(nil, false, "test_key", "test-flag")
	assert.False(t, got)
}

func TestResolveInt(t *testing.T) {
	got := resolveInt(nil, 42, "test_key", "test-flag")
	assert.Equal(t, 42, got)
}

func TestFlagChanged(t *testing.T) {
	assert.False(t, flagChanged(nil, "anything"), "nil cmd should return false")
	assert.False(t, flagChanged(nil, ""), "nil cmd with empty name")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	assert.False(t, flagChanged(cmd, "myflag"), "unchanged flag")
	assert.False(t, flagChanged(cmd, "nonexistent"), "nonexistent flag")
}

func TestFlagChangedAfterSet(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("myflag", "", "test flag")
	require.NoError(t, cmd.Flags().Set("myflag", "val"))
	assert.True(t, flagChanged(cmd, "myflag"))
}

// ---------- Exit code tests ----------

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name: "invalid argument",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("bad input"),
			expected: 2,
		},
		{
			name: "already exists",
			err: errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg("dup"),
			expected: 2,
		},
		{
			name: "unresolved with owners",
			err: errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("unresolved requirement: com.a -> osgi.identity"),
			expected: 4,
		},
		{
			name: "unresolved requirement",
			err: errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("unresolved requirement"),
			expected: 4,
		},
		{
			name: "generic failed precondition",
			err: errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("something else failed"),
			expected: 4,
		},
		{
			name: "permission denied",
			err: errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg("nope"),
			expected: 3,
		},
		{
			name: "not found",
			err: errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("repo index file not found"),
			expected: 5,
		},
		{
			name: "internal error",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("boom"),
			expected: 5,
		},
		{
			name:     "unknown error",
			err:      assert.AnError,
			expected: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exitCodeForError(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name: "errbuilder with msg",
			err: errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("something broke"),
			expected: "something broke",
		},
		{
			name:     "plain error",
			err:      assert.AnError,
			expected: assert.AnError.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errorMessage(tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
