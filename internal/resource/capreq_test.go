package resource

import (
	"errors"
	"sync"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capresolve/internal/attrs"
	"capresolve/internal/filter"
	"capresolve/internal/types"
	"capresolve/internal/version"
)

func syntheticCap(t *testing.T, b *Builder) *Capability {
	t.Helper()
	c, err := b.BuildSyntheticCapability()
	require.NoError(t, err)
	return c
}

func syntheticReq(t *testing.T, b *Builder) *Requirement {
	t.Helper()
	r, err := b.BuildSyntheticRequirement()
	require.NoError(t, err)
	return r
}

func directive(t *testing.T, cr CapReq, name string) string {
	t.Helper()
	v, ok := cr.Directive(name)
	require.True(t, ok, "directive %s", name)
	return v
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

func TestAddAttributeConversions(t *testing.T) {
	c := syntheticCap(t, NewBuilder(types.NamespacePackage).
		AddAttribute(types.NamespacePackage, "com.foo").
		AddAttribute("version", "1.2").
		AddAttribute("note", nil).
		AddAttribute("tags", []string{"a", "b"}).
		AddAttribute("count", 3))

	v, ok := c.Attribute("version")
	require.True(t, ok)
	assert.Equal(t, attrs.KindVersion, v.Kind())
	assert.Equal(t, "1.2.0", v.String())

	_, ok = c.Attribute("note")
	assert.False(t, ok)

	tags, _ := c.Attribute("tags")
	assert.Equal(t, attrs.KindList, tags.Kind())
	count, _ := c.Attribute("count")
	assert.Equal(t, attrs.KindLong, count.Kind())
}

func TestAddAttributeVersionFallsBackToString(t *testing.T) {
	c := syntheticCap(t, NewBuilder("x.ns").AddAttribute("version", "not-a-version"))
	v, _ := c.Attribute("version")
	assert.Equal(t, attrs.KindString, v.Kind())

	bundle := syntheticCap(t, NewBuilder(types.NamespaceBundle).AddAttribute(types.AttrBundleVersion, "2.1"))
	bv, _ := bundle.Attribute(types.AttrBundleVersion)
	assert.Equal(t, attrs.KindVersion, bv.Kind())
}

func TestAddAttributeUnsupportedType(t *testing.T) {
	b := NewBuilder("x.ns").AddAttribute("bad", struct{}{})
	require.Error(t, b.Err())
	_, err := b.BuildSyntheticCapability()
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestAddDirectiveStripsColon(t *testing.T) {
	r := syntheticReq(t, NewBuilder("x.ns").AddDirective("resolution:", "optional"))
	assert.Equal(t, "optional", directive(t, r, "resolution"))
	assert.True(t, r.IsOptional())
}

func TestBuildErrors(t *testing.T) {
	_, err := NewBuilder("x.ns").BuildCapability()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingResource))
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))

	_, err = NewBuilder("").BuildSyntheticRequirement()
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestBuilderReuseDoesNotLeak(t *testing.T) {
	b := NewBuilder("x.ns").AddAttribute("a", "1").AddDirective("d", "1")
	first := syntheticCap(t, b)
	b.AddAttribute("a", "2").AddDirective("d", "2")
	second := syntheticCap(t, b)

	a, _ := first.Attribute("a")
	assert.Equal(t, "1", a.String())
	assert.Equal(t, "1", directive(t, first, "d"))
	a, _ = second.Attribute("a")
	assert.Equal(t, "2", a.String())

	attributes := first.Attributes()
	attributes["a"] = attrs.String("mutated")
	a, _ = first.Attribute("a")
	assert.Equal(t, "1", a.String())
}

func TestAddFilter(t *testing.T) {
	tests := []struct {
		name   string
		ns     string
		target string
		rng    string
		extra  map[string]string
		expect string
	}{
		{
			name:   "wiring namespace folds every extra attribute",
			ns:     types.NamespacePackage,
			target: "com.foo",
			rng:    "1.2.3",
			extra:  map[string]string{"b": "2", "a": "1"},
			expect: "(&(osgi.wiring.package=com.foo)(version>=1.2.3)(a=1)(b=2))",
		},
		{
			name:   "other namespaces fold only mandatory attributes",
			ns:     "x.ns",
			target: "name",
			extra:  map[string]string{"a": "1", "b": "2", "mandatory:": "b"},
			expect: "(&(x.ns=name)(b=2))",
		},
		{
			name:   "range on bundle uses bundle-version",
			ns:     types.NamespaceBundle,
			target: "b",
			rng:    "[1,2)",
			expect: "(&(osgi.wiring.bundle=b)(&(bundle-version>=1.0.0)(!(bundle-version>=2.0.0))))",
		},
		{
			name:   "invalid range is omitted",
			ns:     types.NamespacePackage,
			target: "p",
			rng:    "junk",
			expect: "(&(osgi.wiring.package=p))",
		},
		{
			name:   "bracketed extra becomes a range test",
			ns:     types.NamespacePackage,
			target: "com.x",
			rng:    "[1,2)",
			extra:  map[string]string{"bundle-version": "[1.0,2.0)"},
			expect: "(&(osgi.wiring.package=com.x)(&(version>=1.0.0)(!(version>=2.0.0)))(&(bundle-version>=1.0.0)(!(bundle-version>=2.0.0))))",
		},
		{
			name:   "bracketed extra that is not a range stays an equality test",
			ns:     types.NamespacePackage,
			target: "com.x",
			extra:  map[string]string{"label": "(draft)"},
			expect: `(&(osgi.wiring.package=com.x)(label=\(draft\)))`,
		},
		{
			name:   "values are escaped",
			ns:     types.NamespaceIdentity,
			target: "a(b)*",
			extra:  map[string]string{"k": `x\y`},
			expect: `(&(osgi.identity=a\(b\)\*)(k=x\\y))`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := syntheticReq(t, NewBuilder(tt.ns).AddFilter(tt.ns, tt.target, tt.rng, tt.extra))
			assert.Equal(t, tt.expect, directive(t, r, types.DirectiveFilter))
			_, err := r.Filter()
			require.NoError(t, err)
		})
	}
}

func TestAddFilterRangeExtraMatches(t *testing.T) {
	req := syntheticReq(t, NewBuilder(types.NamespacePackage).
		AddFilter(types.NamespacePackage, "com.x", "[1,2)", map[string]string{"bundle-version": "[1.0,2.0)"}))

	inside := syntheticCap(t, NewBuilder(types.NamespacePackage).
		AddAttribute(types.NamespacePackage, "com.x").
		AddAttribute(types.AttrVersion, "1.0.0").
		AddAttributeValue("bundle-version", attrs.Version(version.MustParse("1.5"))))
	outside := syntheticCap(t, NewBuilder(types.NamespacePackage).
		AddAttribute(types.NamespacePackage, "com.x").
		AddAttribute(types.AttrVersion, "1.0.0").
		AddAttributeValue("bundle-version", attrs.Version(version.MustParse("2.0"))))

	assert.True(t, req.Matches(inside))
	assert.False(t, req.Matches(outside))
}

func TestBuiltValuesHashConcurrently(t *testing.T) {
	b := NewBuilder(types.NamespacePackage).
		AddAttribute(types.NamespacePackage, "com.x").
		AddAttribute(types.AttrVersion, "1.0.0")
	c := syntheticCap(t, b)
	again := syntheticCap(t, b)
	want := again.Hash()

	hashes := make([]uint64, 8)
	var wg sync.WaitGroup
	for i := range hashes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hashes[i] = c.Hash()
		}()
	}
	wg.Wait()
	for _, h := range hashes {
		assert.Equal(t, want, h)
	}
	assert.NotSame(t, c, again)

	q := syntheticReq(t, NewPackageRequirement("com.x", "[1,2)"))
	assert.NotEqual(t, c.Hash(), q.Hash())
}

func TestAnd(t *testing.T) {
	r := syntheticReq(t, NewBuilder("x.ns").Filter("(a=1)").And("(b=2)", "(c=3)"))
	assert.Equal(t, "(&(a=1)(b=2)(c=3))", directive(t, r, types.DirectiveFilter))

	r = syntheticReq(t, NewBuilder("x.ns").And("(b=2)"))
	assert.Equal(t, "(&(b=2))", directive(t, r, types.DirectiveFilter))
}

func TestRequirementFromCapability(t *testing.T) {
	c := syntheticCap(t, NewBuilder(types.NamespacePackage).
		AddAttribute(types.NamespacePackage, "com.foo").
		AddAttribute("version", "1.2.3").
		AddAttribute("tags", []string{"x", "y"}))
	r := syntheticReq(t, RequirementFromCapability(c))

	assert.Equal(t, types.NamespacePackage, r.Namespace())
	assert.Equal(t, "(&(osgi.wiring.package=com.foo)(tags=x)(tags=y)(version>=1.2.3))", directive(t, r, types.DirectiveFilter))
	assert.True(t, r.Matches(c))
}

func TestSimpleRequirementHelpers(t *testing.T) {
	r := syntheticReq(t, NewPackageRequirement("com.foo", "[1,2)"))
	assert.Equal(t, "p:com.foo [1.0.0,2.0.0)", mustSimplify(t, r).Query())

	r = syntheticReq(t, NewIdentityRequirement("com.bar", ""))
	assert.Equal(t, "bsn:com.bar", mustSimplify(t, r).Query())

	r = syntheticReq(t, NewBundleRequirement("com.baz", "1.0"))
	assert.Equal(t, "bundle:com.baz 1.0.0", mustSimplify(t, r).Query())
}

func mustSimplify(t *testing.T, r *Requirement) filter.Expression {
	t.Helper()
	n, err := r.Filter()
	require.NoError(t, err)
	return filter.Simplify(n)
}

// ---------------------------------------------------------------------------
// Requirement semantics
// ---------------------------------------------------------------------------

func TestRequirementMatches(t *testing.T) {
	c := syntheticCap(t, NewBuilder(types.NamespacePackage).
		AddAttribute(types.NamespacePackage, "com.foo").
		AddAttribute("version", "1.5"))

	inRange := syntheticReq(t, NewPackageRequirement("com.foo", "[1,2)"))
	assert.True(t, inRange.Matches(c))

	outOfRange := syntheticReq(t, NewPackageRequirement("com.foo", "[2,3)"))
	assert.False(t, outOfRange.Matches(c))

	unfiltered := syntheticReq(t, NewBuilder(types.NamespacePackage))
	assert.True(t, unfiltered.Matches(c))

	otherNamespace := syntheticReq(t, NewBuilder(types.NamespaceBundle))
	assert.False(t, otherNamespace.Matches(c))

	broken := syntheticReq(t, NewBuilder(types.NamespacePackage).Filter("(broken"))
	assert.False(t, broken.Matches(c))
	_, err := broken.Match(c)
	var syntaxErr *filter.SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
}

func TestEffective(t *testing.T) {
	r := syntheticReq(t, NewBuilder("x.ns"))
	assert.Equal(t, "resolve", r.Effective())
	assert.False(t, r.IsOptional())

	r = syntheticReq(t, NewBuilder("x.ns").AddDirective("effective", "active"))
	assert.Equal(t, "active", r.Effective())
}

func TestEqualAndHash(t *testing.T) {
	build := func() *Builder {
		return NewBuilder("x.ns").AddAttribute("a", "1").AddAttribute("version", "1.0").AddDirective("d", "v")
	}
	a := syntheticCap(t, build())
	b := syntheticCap(t, build())
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())

	c := syntheticCap(t, build().AddDirective("d", "other"))
	assert.False(t, a.Equal(c))

	q := syntheticReq(t, build())
	assert.NotEqual(t, a.Hash(), q.Hash())

	var nilCap *Capability
	assert.False(t, a.Equal(nilCap))
}

func TestCapabilityString(t *testing.T) {
	c := syntheticCap(t, NewBuilder(types.NamespacePackage).
		AddAttribute(types.NamespacePackage, "com.foo").
		AddAttribute("version", "1.2.3").
		AddDirective("uses", "a,b"))
	assert.Equal(t, `osgi.wiring.package;osgi.wiring.package="com.foo";version:Version="1.2.3";uses:="a,b"`, c.String())
}

// ---------------------------------------------------------------------------
// Unalias
// ---------------------------------------------------------------------------

func TestUnaliasIdentity(t *testing.T) {
	alias := syntheticReq(t, NewBuilder(types.NamespaceAliasID).
		AddAttribute("id", "com.foo").
		AddAttribute("version", "[1,2)").
		AddAttribute("x", "y").
		AddDirective("resolution", "optional"))

	r := Unalias(alias)
	assert.Equal(t, types.NamespaceIdentity, r.Namespace())
	assert.Equal(t, "(&(osgi.identity=com.foo)(&(version>=1.0.0)(!(version>=2.0.0))))", directive(t, r, types.DirectiveFilter))
	assert.True(t, r.IsOptional())
	_, ok := r.Attribute("id")
	assert.False(t, ok)
	x, ok := r.Attribute("x")
	require.True(t, ok)
	assert.Equal(t, "y", x.String())

	inside := syntheticCap(t, NewBuilder(types.NamespaceIdentity).
		AddAttribute(types.NamespaceIdentity, "com.foo").
		AddAttribute("version", "1.5"))
	outside := syntheticCap(t, NewBuilder(types.NamespaceIdentity).
		AddAttribute(types.NamespaceIdentity, "com.foo").
		AddAttribute("version", "2.0"))
	assert.True(t, r.Matches(inside))
	assert.False(t, r.Matches(outside))
}

func TestUnaliasIdentityByBSN(t *testing.T) {
	alias := syntheticReq(t, NewBuilder(types.NamespaceAliasID).AddAttribute("bsn", "com.bar"))
	r := Unalias(alias)
	assert.Equal(t, "(&(osgi.identity=com.bar))", directive(t, r, types.DirectiveFilter))
}

func TestUnaliasLiteral(t *testing.T) {
	alias := syntheticReq(t, NewBuilder(types.NamespaceAliasLit).
		AddAttribute(types.NamespaceAliasLit, types.NamespaceEE).
		AddAttribute("k", "v").
		Filter("(osgi.ee=JavaSE)"))

	r := Unalias(alias)
	assert.Equal(t, types.NamespaceEE, r.Namespace())
	_, ok := r.Attribute(types.NamespaceAliasLit)
	assert.False(t, ok)
	assert.Equal(t, "(osgi.ee=JavaSE)", directive(t, r, types.DirectiveFilter))
}

func TestUnaliasPassThrough(t *testing.T) {
	r := syntheticReq(t, NewBuilder("x.ns"))
	assert.Same(t, r, Unalias(r))
	assert.Nil(t, Unalias(nil))
}

// ---------------------------------------------------------------------------
// Views
// ---------------------------------------------------------------------------

func TestViews(t *testing.T) {
	pkg := syntheticCap(t, NewBuilder(types.NamespacePackage).
		AddAttribute(types.NamespacePackage, "com.foo").
		AddAttribute("version", "1.2").
		AddAttribute(types.AttrBundleSymName, "bundle.a").
		AddDirective("uses", "com.bar, com.baz"))
	view, ok := PackageView(pkg)
	require.True(t, ok)
	assert.Equal(t, "com.foo", view.Package)
	assert.Equal(t, version.New(1, 2, 0), view.Version)
	assert.Equal(t, version.Lowest, view.BundleVersion)
	assert.Equal(t, []string{"com.bar", "com.baz"}, view.Uses)

	_, ok = IdentityOf(pkg)
	assert.False(t, ok)

	ee := syntheticCap(t, NewBuilder(types.NamespaceEE).
		AddAttribute(types.NamespaceEE, "JavaSE").
		AddAttribute("version", []version.Version{version.New(1, 8, 0), version.New(17, 0, 0)}))
	eeView, ok := EEOf(ee)
	require.True(t, ok)
	assert.Equal(t, "JavaSE", eeView.Name)
	assert.Len(t, eeView.Versions, 2)

	svc := syntheticCap(t, NewBuilder(types.NamespaceService).AddAttribute("objectClass", []string{"a.B", "c.D"}))
	svcView, ok := ServiceOf(svc)
	require.True(t, ok)
	assert.Equal(t, []string{"a.B", "c.D"}, svcView.ObjectClass)
}
