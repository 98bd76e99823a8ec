package adapters

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capresolve/internal/types"
)

func TestParseAptDepSpec(t *testing.T) {
	tests := []struct {
		input string
		want  types.Constraint
		ok    bool
	}{
		{"libfoo", types.Constraint{Name: "libfoo"}, true},
		{"libfoo (>= 1.2)", types.Constraint{Name: "libfoo", Op: types.ConstraintOpGte, Version: "1.2"}, true},
		{"libfoo:amd64 (<< 2.0) [amd64]", types.Constraint{Name: "libfoo", Op: types.ConstraintOpLt, Version: "2.0"}, true},
		{"libfoo (>> 1)", types.Constraint{Name: "libfoo", Op: types.ConstraintOpGt, Version: "1"}, true},
		{"libfoo (~ 1)", types.Constraint{Name: "libfoo"}, true},
		{"   ", types.Constraint{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseAptDepSpec(tt.input)
			assert.Equal(t, tt.ok, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("constraint mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseAptDependency_Alternatives(t *testing.T) {
	dep := parseAptDependency("libbar (>= 2.0) | libbaz")
	assert.Equal(t, types.DependencyTypeApt, dep.Type)
	require.Len(t, dep.Alternatives, 2)
	assert.Equal(t, "libbar", dep.Alternatives[0].Name)
	assert.Equal(t, "libbaz", dep.Alternatives[1].Name)
}

func TestDependencyFilter(t *testing.T) {
	conv := newVersionConverter(types.VersionSchemeDeb)
	tests := []struct {
		group string
		want  string
	}{
		{"libfoo", "(deb.package=libfoo)"},
		{"libfoo (= 1.2-1)", "(&(deb.package=libfoo)(version=1.2.0.1))"},
		{"libfoo (>= 2)", "(&(deb.package=libfoo)(version>=2.0.0))"},
		{"libfoo (<= 2)", "(&(deb.package=libfoo)(version<=2.0.0))"},
		{"libfoo (>> 2)", "(&(deb.package=libfoo)(!(version<=2.0.0)))"},
		{"libfoo (<< 2)", "(&(deb.package=libfoo)(!(version>=2.0.0)))"},
		{"libbar (>= 2.0) | libbaz", "(|(&(deb.package=libbar)(version>=2.0.0))(deb.package=libbaz))"},
	}
	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			got, err := dependencyFilter(parseAptDependency(tt.group), conv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
