package resource

import (
	"errors"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capresolve/internal/types"
	"capresolve/internal/version"
)

func namespacesOf(caps []*Capability) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = c.Namespace()
	}
	return out
}

func buildResource(t *testing.T, fill func(rb *ResourceBuilder)) *Resource {
	t.Helper()
	rb := NewResourceBuilder()
	fill(rb)
	r, err := rb.Build()
	require.NoError(t, err)
	return r
}

// ---------------------------------------------------------------------------
// ResourceBuilder
// ---------------------------------------------------------------------------

func TestBuildOrdersAndDeduplicates(t *testing.T) {
	r := buildResource(t, func(rb *ResourceBuilder) {
		require.NoError(t, rb.AddCapability(NewBuilder("z.ns").AddAttribute("z.ns", "1")))
		require.NoError(t, rb.AddCapability(NewBuilder(types.NamespacePackage).AddAttribute(types.NamespacePackage, "p1")))
		require.NoError(t, rb.AddIdentity("com.foo", "1.0.0", ""))
		require.NoError(t, rb.AddCapability(NewBuilder("a.ns").AddAttribute("a.ns", "1")))
		require.NoError(t, rb.AddCapability(NewBuilder(types.NamespacePackage).AddAttribute(types.NamespacePackage, "p2")))
		require.NoError(t, rb.AddIdentity("com.foo", "1.0.0", ""))
	})

	want := []string{types.NamespaceIdentity, types.NamespacePackage, types.NamespacePackage, "a.ns", "z.ns"}
	if diff := cmp.Diff(want, namespacesOf(r.Capabilities(""))); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}

	pkgs := r.Capabilities(types.NamespacePackage)
	require.Len(t, pkgs, 2)
	first, _ := PackageView(pkgs[0])
	assert.Equal(t, "p1", first.Package)
	for _, c := range r.Capabilities("") {
		assert.Same(t, r, c.Resource())
	}
	assert.Empty(t, r.Capabilities("missing.ns"))
}

func TestBuildOnce(t *testing.T) {
	rb := NewResourceBuilder()
	require.NoError(t, rb.AddIdentity("com.foo", "1.0.0", ""))
	_, err := rb.Build()
	require.NoError(t, err)

	_, err = rb.Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResourceAlreadyBuilt))
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))

	err = rb.AddCapability(NewBuilder("x.ns"))
	assert.True(t, errors.Is(err, ErrResourceAlreadyBuilt))
	err = rb.AddRequirement(NewBuilder("x.ns"))
	assert.True(t, errors.Is(err, ErrResourceAlreadyBuilt))
}

func TestAddCapabilitySnapshotsBuilder(t *testing.T) {
	b := NewBuilder("x.ns").AddAttribute("a", "before")
	rb := NewResourceBuilder()
	require.NoError(t, rb.AddCapability(b))
	b.AddAttribute("a", "after")
	r, err := rb.Build()
	require.NoError(t, err)

	v, _ := r.Capabilities("x.ns")[0].Attribute("a")
	assert.Equal(t, "before", v.String())
}

func TestAddCapabilityPropagatesBuilderError(t *testing.T) {
	rb := NewResourceBuilder()
	err := rb.AddCapability(NewBuilder("x.ns").AddAttribute("bad", struct{}{}))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Header helpers
// ---------------------------------------------------------------------------

func TestHeaderHelpers(t *testing.T) {
	r := buildResource(t, func(rb *ResourceBuilder) {
		require.NoError(t, rb.AddIdentity("com.foo", "1.2.3", types.IdentityTypeFragment))
		require.NoError(t, rb.AddExportPackage("com.foo.api", map[string]string{
			"version":   "1.2",
			"uses:":     "com.foo.spi",
			"size:Long": "3",
		}))
		require.NoError(t, rb.AddImportPackage("com.bar", map[string]string{
			"version":     "[1,2)",
			"resolution:": "optional",
		}))
		require.NoError(t, rb.AddRequireBundle("com.baz", map[string]string{"bundle-version": "2.0"}))
		require.NoError(t, rb.AddFragmentHost("com.host", "1.0"))
		require.NoError(t, rb.AddExecutionEnvironment("JavaSE", "17"))
	})

	id, ok := r.Identity()
	require.True(t, ok)
	assert.Equal(t, IdentityView{Name: "com.foo", Version: version.New(1, 2, 3), Type: types.IdentityTypeFragment}, id)
	assert.Equal(t, "com.foo;version=1.2.3", r.String())

	export, ok := PackageView(r.Capabilities(types.NamespacePackage)[0])
	require.True(t, ok)
	assert.Equal(t, version.New(1, 2, 0), export.Version)
	assert.Equal(t, []string{"com.foo.spi"}, export.Uses)
	size, ok := r.Capabilities(types.NamespacePackage)[0].Attribute("size")
	require.True(t, ok)
	n, _ := size.Long()
	assert.Equal(t, int64(3), n)

	imports := r.Requirements(types.NamespacePackage)
	require.Len(t, imports, 1)
	assert.True(t, imports[0].IsOptional())
	assert.Equal(t, "(&(osgi.wiring.package=com.bar)(&(version>=1.0.0)(!(version>=2.0.0))))", directive(t, imports[0], types.DirectiveFilter))

	bundles := r.Requirements(types.NamespaceBundle)
	require.Len(t, bundles, 1)
	assert.Equal(t, "(&(osgi.wiring.bundle=com.baz)(bundle-version>=2.0.0))", directive(t, bundles[0], types.DirectiveFilter))

	hosts := r.Requirements(types.NamespaceHost)
	require.Len(t, hosts, 1)
	assert.Equal(t, "(&(osgi.wiring.host=com.host)(bundle-version>=1.0.0))", directive(t, hosts[0], types.DirectiveFilter))

	ees := r.Capabilities(types.NamespaceEE)
	require.Len(t, ees, 1)
	ee, _ := EEOf(ees[0])
	assert.Equal(t, []version.Version{version.New(17, 0, 0)}, ee.Versions)

	want := []string{types.NamespacePackage, types.NamespaceBundle, types.NamespaceHost}
	got := make([]string, 0, 3)
	for _, q := range r.Requirements("") {
		got = append(got, q.Namespace())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected requirement order (-want +got):\n%s", diff)
	}
}

func TestAddExportPackageRejectsBadTypedAttribute(t *testing.T) {
	rb := NewResourceBuilder()
	err := rb.AddExportPackage("com.foo", map[string]string{"size:Long": "many"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

type fakeManifest struct {
	caps []*Builder
	reqs []*Builder
	err  error
}

func (f fakeManifest) CapabilitiesAndRequirements() ([]*Builder, []*Builder, error) {
	return f.caps, f.reqs, f.err
}

func TestAddManifest(t *testing.T) {
	r := buildResource(t, func(rb *ResourceBuilder) {
		require.NoError(t, rb.AddManifest(fakeManifest{
			caps: []*Builder{NewBuilder(types.NamespaceService).AddAttribute("objectClass", []string{"a.B"})},
			reqs: []*Builder{NewPackageRequirement("com.foo", "")},
		}))
	})
	assert.Len(t, r.Capabilities(types.NamespaceService), 1)
	assert.Len(t, r.Requirements(types.NamespacePackage), 1)

	rb := NewResourceBuilder()
	err := rb.AddManifest(fakeManifest{err: errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("scan failed")})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
}

func TestCopyCapabilities(t *testing.T) {
	source := buildResource(t, func(rb *ResourceBuilder) {
		require.NoError(t, rb.AddIdentity("com.source", "1.0.0", ""))
		require.NoError(t, rb.AddExportPackage("com.source.api", nil))
	})
	copied := buildResource(t, func(rb *ResourceBuilder) {
		require.NoError(t, rb.AddIdentity("com.copy", "1.0.0", ""))
		require.NoError(t, rb.CopyCapabilities([]string{types.NamespaceIdentity}, source))
	})

	id, _ := copied.Identity()
	assert.Equal(t, "com.copy", id.Name)
	pkgs := copied.Capabilities(types.NamespacePackage)
	require.Len(t, pkgs, 1)
	assert.Same(t, copied, pkgs[0].Resource())
}

// ---------------------------------------------------------------------------
// Resource equality
// ---------------------------------------------------------------------------

func TestResourceEquality(t *testing.T) {
	d := digest.FromString("artifact")
	withContent := func(url string, dg digest.Digest) *Resource {
		return buildResource(t, func(rb *ResourceBuilder) {
			require.NoError(t, rb.AddIdentity("com.foo", "1.0.0", ""))
			require.NoError(t, rb.AddContent(dg, url, 42, "application/java-archive"))
		})
	}

	a := withContent("https://repo/a.jar", d)
	b := withContent("https://repo/a.jar", d)
	c := withContent("https://repo/a.jar", digest.FromString("other"))
	other := withContent("https://mirror/a.jar", d)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(other))
	assert.Equal(t, map[string]digest.Digest{"https://repo/a.jar": d}, a.Locations())

	content, ok := ContentOf(a.Capabilities(types.NamespaceContent)[0])
	require.True(t, ok)
	assert.Equal(t, d, content.Digest)
	assert.Equal(t, int64(42), content.Size)

	bare1 := buildResource(t, func(rb *ResourceBuilder) { require.NoError(t, rb.AddIdentity("com.foo", "1.0.0", "")) })
	bare2 := buildResource(t, func(rb *ResourceBuilder) { require.NoError(t, rb.AddIdentity("com.foo", "1.0.0", "")) })
	assert.True(t, bare1.Equal(bare1))
	assert.False(t, bare1.Equal(bare2))
	assert.NotEqual(t, bare1.Hash(), bare2.Hash())
}

func TestAddContentRejectsInvalidDigest(t *testing.T) {
	rb := NewResourceBuilder()
	err := rb.AddContent(digest.Digest("sha256:xyz"), "u", 0, "")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestParseContentDigest(t *testing.T) {
	d := digest.FromString("x")
	got, ok := parseContentDigest(d.Encoded())
	require.True(t, ok)
	assert.Equal(t, d, got)

	got, ok = parseContentDigest(d.String())
	require.True(t, ok)
	assert.Equal(t, d, got)

	_, ok = parseContentDigest("zz")
	assert.False(t, ok)
}
