package policies

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capresolve/internal/resource"
	"capresolve/internal/types"
)

func TestIdentityPolicyDecide(t *testing.T) {
	policy, err := NewIdentityPolicy([]types.PolicyRule{
		{Pattern: "com.untrusted.audited", Action: types.PolicyActionAllow},
		{Pattern: "com.untrusted.*", Action: types.PolicyActionDeny},
		{Pattern: "fragment:*", Action: "DENY"},
		{Pattern: "pip:requests", Action: types.PolicyActionDeny},
	})
	require.NoError(t, err)

	tests := []struct {
		name         string
		identityType string
		identity     string
		want         types.PolicyAction
	}{
		{name: "earlier allow wins", identityType: types.IdentityTypeBundle, identity: "com.untrusted.audited", want: types.PolicyActionAllow},
		{name: "prefix deny", identityType: types.IdentityTypeBundle, identity: "com.untrusted.lib", want: types.PolicyActionDeny},
		{name: "typed wildcard", identityType: types.IdentityTypeFragment, identity: "com.example.frag", want: types.PolicyActionDeny},
		{name: "typed exact", identityType: "pip", identity: "requests", want: types.PolicyActionDeny},
		{name: "typed exact other type", identityType: "apt", identity: "requests", want: types.PolicyActionAllow},
		{name: "no rule", identityType: types.IdentityTypeBundle, identity: "com.example", want: types.PolicyActionAllow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Decide(tt.identityType, tt.identity))
		})
	}
}

func TestNewIdentityPolicyRejectsBadRules(t *testing.T) {
	_, err := NewIdentityPolicy([]types.PolicyRule{{Pattern: "a", Action: "block"}})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	_, err = NewIdentityPolicy([]types.PolicyRule{{Pattern: "nope:a", Action: types.PolicyActionDeny}})
	require.Error(t, err)

	_, err = NewIdentityPolicy([]types.PolicyRule{{Pattern: " ", Action: types.PolicyActionDeny}})
	require.Error(t, err)
}

func TestIdentityPolicyFilterMatches(t *testing.T) {
	build := func(name string) *resource.Capability {
		rb := resource.NewResourceBuilder()
		require.NoError(t, rb.AddIdentity(name, "1.0.0", ""))
		require.NoError(t, rb.AddExportPackage("com.x", nil))
		r, err := rb.Build()
		require.NoError(t, err)
		return r.Capabilities(types.NamespacePackage)[0]
	}
	synthetic, err := resource.NewBuilder(types.NamespacePackage).BuildSyntheticCapability()
	require.NoError(t, err)
	candidates := []*resource.Capability{build("com.good"), build("com.untrusted.x"), synthetic, build("com.other")}

	policy, err := NewIdentityPolicy([]types.PolicyRule{{Pattern: "com.untrusted.*", Action: types.PolicyActionDeny}})
	require.NoError(t, err)
	got := policy.FilterMatches(nil, candidates)

	want := []*resource.Capability{candidates[0], candidates[2], candidates[3]}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b *resource.Capability) bool { return a == b })); diff != "" {
		t.Fatalf("unexpected candidates (-want +got):\n%s", diff)
	}

	empty, err := NewIdentityPolicy(nil)
	require.NoError(t, err)
	assert.Equal(t, candidates, empty.FilterMatches(nil, candidates))
}
