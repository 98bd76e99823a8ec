package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capresolve/internal/types"
)

const sampleRun = `
name: demo
repositories: [repo.yaml, /abs/other.yaml]
repository_order: [central]
workspace: [./modules]
framework: org.example.framework
ee: { name: JavaSE, version: 17.0.0 }
system_packages: [{ name: javax.net, version: 0.0.0 }]
requires:
  - { namespace: osgi.identity, filter: "(osgi.identity=com.example.app)" }
  - { alias: bnd.identity, id: com.example.tool, version: "[1,2)" }
blacklist: [{ namespace: osgi.identity, filter: "(osgi.identity=com.bad)" }]
preferences: [com.example.preferred]
effective: "active"
policy: [{ pattern: "com.untrusted.*", action: deny }]
singleton: true
`

func TestRunFileAdapterLoadRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRun), 0o644))

	run, err := NewRunFileAdapter().LoadRun(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", run.Name)
	assert.Equal(t, []string{filepath.Join(dir, "repo.yaml"), "/abs/other.yaml"}, run.Repositories)
	assert.Equal(t, []string{filepath.Join(dir, "modules")}, run.Workspace)
	assert.Equal(t, []string{"central"}, run.RepositoryOrder)
	require.NotNil(t, run.EE)
	assert.Equal(t, "JavaSE", run.EE.Name)
	assert.Equal(t, []types.PackageRef{{Name: "javax.net", Version: "0.0.0"}}, run.SystemPackages)
	require.Len(t, run.Requires, 2)
	assert.Equal(t, types.RequirementRef{Alias: "bnd.identity", ID: "com.example.tool", Version: "[1,2)"}, run.Requires[1])
	assert.Equal(t, []types.PolicyRule{{Pattern: "com.untrusted.*", Action: types.PolicyActionDeny}}, run.Policy)
	assert.True(t, run.Singleton)
	assert.Equal(t, "active", run.Effective)
}

func TestRunFileAdapterDefaultsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nightly.yaml")
	require.NoError(t, os.WriteFile(path, []byte("requires: []\n"), 0o644))

	run, err := NewRunFileAdapter().LoadRun(path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", run.Name)
}

func TestRunFileAdapterErrors(t *testing.T) {
	adapter := NewRunFileAdapter()
	_, err := adapter.LoadRun(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("requires: [unterminated"), 0o644))
	_, err = adapter.LoadRun(path)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
