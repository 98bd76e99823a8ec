package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capresolve/internal/resource"
	"capresolve/internal/types"
)

const moduleDescriptor = `
identity: com.example.app
version: 1.0.0
capabilities:
  - namespace: osgi.wiring.package
    attributes: { osgi.wiring.package: com.example.app.api, version: 1.0.0 }
requirements:
  - namespace: osgi.wiring.package
    filter: "(osgi.wiring.package=com.example.lib)"
`

func writeDescriptor(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWorkspaceAdapter_FindDescriptors(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, filepath.Join(root, "modules", "app"), "app.resource.yaml", moduleDescriptor)
	writeDescriptor(t, filepath.Join(root, "modules", "lib"), "lib.resource.yaml", "identity: com.example.lib\n")
	// Other files are ignored.
	writeDescriptor(t, filepath.Join(root, "modules", "app"), "README.md", "docs")

	adapter := NewWorkspaceAdapter(nil, root)
	paths, err := adapter.FindDescriptors(root)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestWorkspaceAdapter_SkipsBuildDirs(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{".git", "build", "out", "vendor"} {
		writeDescriptor(t, filepath.Join(root, dir, "pkg"), "x.resource.yaml", "identity: ignored\n")
	}
	real := writeDescriptor(t, filepath.Join(root, "src", "real"), "real.resource.yaml", "identity: real\n")

	adapter := NewWorkspaceAdapter(nil, root)
	paths, err := adapter.FindDescriptors(root)
	require.NoError(t, err)
	assert.Equal(t, []string{real}, paths)
}

func TestWorkspaceAdapter_RootErrors(t *testing.T) {
	adapter := NewWorkspaceAdapter(nil)
	_, err := adapter.FindDescriptors("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workspace root is empty")

	_, err = adapter.FindDescriptors("/nonexistent/path/that/does/not/exist")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
}

func TestWorkspaceAdapter_ServesDescriptors(t *testing.T) {
	root := t.TempDir()
	path := writeDescriptor(t, filepath.Join(root, "app"), "app.resource.yaml", moduleDescriptor)
	cache := NewResourceCache(nil)
	adapter := NewWorkspaceAdapter(cache, root)
	assert.Equal(t, "workspace", adapter.Name())

	resources, err := adapter.Resources(t.Context())
	require.NoError(t, err)
	require.Len(t, resources, 1)
	app := resources[0]
	assert.Equal(t, "com.example.app;version=1.0.0", app.String())
	assert.Equal(t, 1, cache.Len())

	content := app.Capabilities(types.NamespaceContent)
	require.Len(t, content, 1)
	view, ok := resource.ContentOf(content[0])
	require.True(t, ok)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, digest.FromBytes(data), view.Digest)
	assert.Equal(t, int64(len(data)), view.Size)
	assert.Equal(t, "application/yaml", view.MIME)
	assert.Contains(t, view.URL, "file://")

	req, err := resource.NewPackageRequirement("com.example.app.api", "[1,2)").BuildSyntheticRequirement()
	require.NoError(t, err)
	found, err := adapter.FindProviders(t.Context(), []*resource.Requirement{req})
	require.NoError(t, err)
	require.Len(t, found[req], 1)
	assert.Same(t, app, found[req][0].Resource())
}

func TestWorkspaceAdapter_CacheIsShared(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "app.resource.yaml", moduleDescriptor)
	cache := NewResourceCache(nil)

	first, err := NewWorkspaceAdapter(cache, root).Resources(t.Context())
	require.NoError(t, err)
	second, err := NewWorkspaceAdapter(cache, root).Resources(t.Context())
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Same(t, first[0], second[0])
}

func TestDescriptorSource_DeclaredContentWins(t *testing.T) {
	root := t.TempDir()
	path := writeDescriptor(t, root, "lib.resource.yaml", `
identity: com.example.lib
version: 2.0.0
url: https://repo.example/lib.jar
`)
	src, err := LoadDescriptorSource(path)
	require.NoError(t, err)
	caps, reqs, err := src.CapabilitiesAndRequirements()
	require.NoError(t, err)
	assert.Empty(t, reqs)

	var urls []string
	for _, b := range caps {
		if b.Namespace() != types.NamespaceContent {
			continue
		}
		c, err := b.BuildSyntheticCapability()
		require.NoError(t, err)
		view, _ := resource.ContentOf(c)
		urls = append(urls, view.URL)
	}
	assert.Equal(t, []string{"https://repo.example/lib.jar"}, urls)
}

func TestDescriptorSource_Errors(t *testing.T) {
	_, err := LoadDescriptorSource(filepath.Join(t.TempDir(), "missing.resource.yaml"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))

	path := writeDescriptor(t, t.TempDir(), "bad.resource.yaml", "identity: [unterminated")
	_, err = LoadDescriptorSource(path)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
