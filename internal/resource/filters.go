package resource

import (
	"maps"
	"slices"
	"strings"

	"capresolve/internal/attrs"
	"capresolve/internal/filter"
	"capresolve/internal/types"
	"capresolve/internal/version"
)

// EscapeFilterValue escapes the filter metacharacters in s.
func EscapeFilterValue(s string) string {
	return filter.EscapeValue(s)
}

// AddFilter sets the filter directive to
// "(&(ns=name)<range>(attr=value)...)". The range clause is present only
// when versionRange parses. Extra attributes are folded in sorted by
// name: all of them for wiring namespaces, otherwise only those named by
// the "mandatory:" entry of extra. A bracketed value that parses as a
// version range becomes a range test, anything else an equality test.
func (b *Builder) AddFilter(ns, name, versionRange string, extra map[string]string) *Builder {
	var f strings.Builder
	f.WriteString("(&(")
	f.WriteString(ns)
	f.WriteByte('=')
	f.WriteString(EscapeFilterValue(name))
	f.WriteByte(')')
	if strings.TrimSpace(versionRange) != "" {
		if r, err := version.ParseRange(versionRange); err == nil && !r.IsAny() {
			f.WriteString(r.ToFilter(types.VersionAttribute(ns)))
		}
	}
	for _, key := range foldedAttributes(ns, extra) {
		f.WriteString(attributeTest(key, extra[key]))
	}
	f.WriteByte(')')
	return b.Filter(f.String())
}

func attributeTest(key, value string) string {
	if v := strings.TrimSpace(value); strings.HasPrefix(v, "[") || strings.HasPrefix(v, "(") {
		if r, err := version.ParseRange(v); err == nil {
			return r.ToFilter(key)
		}
	}
	return "(" + key + "=" + EscapeFilterValue(value) + ")"
}

func foldedAttributes(ns string, extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	mandatoryKey := types.DirectiveMandatory + ":"
	var keys []string
	if types.IsWiring(ns) {
		for key := range extra {
			if !strings.HasSuffix(key, ":") {
				keys = append(keys, key)
			}
		}
	} else {
		for _, key := range strings.Split(extra[mandatoryKey], ",") {
			key = strings.TrimSpace(key)
			if _, ok := extra[key]; ok && key != "" {
				keys = append(keys, key)
			}
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// And appends subfilters to the current filter directive, producing
// "(&<previous><sub>...)".
func (b *Builder) And(subfilters ...string) *Builder {
	if len(subfilters) == 0 {
		return b
	}
	var f strings.Builder
	f.WriteString("(&")
	f.WriteString(b.directives[types.DirectiveFilter])
	for _, sub := range subfilters {
		f.WriteString(sub)
	}
	f.WriteByte(')')
	return b.Filter(f.String())
}

func NewPackageRequirement(pkg, versionRange string) *Builder {
	return NewSimpleRequirement(types.NamespacePackage, pkg, versionRange)
}

func NewBundleRequirement(bsn, versionRange string) *Builder {
	return NewSimpleRequirement(types.NamespaceBundle, bsn, versionRange)
}

func NewIdentityRequirement(bsn, versionRange string) *Builder {
	return NewSimpleRequirement(types.NamespaceIdentity, bsn, versionRange)
}

func NewSimpleRequirement(ns, name, versionRange string) *Builder {
	return NewBuilder(ns).AddFilter(ns, name, versionRange, nil)
}

// RequirementFromCapability builds a requirement in c's namespace whose
// filter matches c's attributes. Version valued attributes become lower
// bounds; list attributes contribute one clause per element.
func RequirementFromCapability(c *Capability) *Builder {
	attributes := c.Attributes()
	var f strings.Builder
	f.WriteString("(&")
	for _, key := range slices.Sorted(maps.Keys(attributes)) {
		v := attributes[key]
		switch v.Kind() {
		case attrs.KindVersion:
			ver, _ := v.Ver()
			f.WriteString(version.AtLeast(ver).ToFilter(key))
		case attrs.KindList:
			for _, item := range v.Strings() {
				writeEquality(&f, key, item)
			}
		default:
			writeEquality(&f, key, v.String())
		}
	}
	f.WriteByte(')')
	return NewBuilder(c.Namespace()).Filter(f.String())
}

func writeEquality(f *strings.Builder, key, value string) {
	f.WriteByte('(')
	f.WriteString(key)
	f.WriteByte('=')
	f.WriteString(EscapeFilterValue(value))
	f.WriteByte(')')
}
