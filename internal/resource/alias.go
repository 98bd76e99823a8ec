package resource

import (
	"capresolve/internal/types"
	"capresolve/internal/version"
)

// Unalias rewrites requirements in the alias namespaces into their real
// form. Any other requirement is returned as is.
//
//	bnd.identity; id=com.foo; version="[1,2)"
//	  => osgi.identity; filter:="(&(osgi.identity=com.foo)(&(version>=1.0.0)(!(version>=2.0.0))))"
//	bnd.literal; bnd.literal=osgi.ee; ...
//	  => osgi.ee; ...
func Unalias(r *Requirement) *Requirement {
	if r == nil {
		return nil
	}
	switch r.Namespace() {
	case types.NamespaceAliasID:
		return unaliasIdentity(r)
	case types.NamespaceAliasLit:
		return unaliasLiteral(r)
	}
	return r
}

func unaliasIdentity(r *Requirement) *Requirement {
	attributes := r.Attributes()
	name := ""
	for _, key := range []string{types.AttrAliasID, types.AttrAliasBSN} {
		if v, ok := attributes.Get(key); ok && v.String() != "" {
			name = v.String()
			break
		}
	}
	if name == "" {
		return r
	}
	rangeText := ""
	if v, ok := attributes.Get(types.AttrVersion); ok {
		rangeText = v.String()
		if ver, isVersion := v.Ver(); isVersion {
			rangeText = version.AtLeast(ver).String()
		}
	}
	delete(attributes, types.AttrAliasID)
	delete(attributes, types.AttrAliasBSN)
	delete(attributes, types.AttrVersion)

	b := NewBuilder(types.NamespaceIdentity).
		AddDirectives(r.Directives()).
		SetResource(r.Resource()).
		AddFilter(types.NamespaceIdentity, name, rangeText, nil)
	for key, value := range attributes {
		b.AddAttributeValue(key, value)
	}
	return build(b, r)
}

func unaliasLiteral(r *Requirement) *Requirement {
	attributes := r.Attributes()
	target, ok := attributes.Get(types.NamespaceAliasLit)
	if !ok || target.String() == "" {
		return r
	}
	delete(attributes, types.NamespaceAliasLit)
	b := NewBuilder(target.String()).
		AddDirectives(r.Directives()).
		SetResource(r.Resource())
	for key, value := range attributes {
		b.AddAttributeValue(key, value)
	}
	return build(b, r)
}

func build(b *Builder, fallback *Requirement) *Requirement {
	var (
		out *Requirement
		err error
	)
	if fallback.Resource() == nil {
		out, err = b.BuildSyntheticRequirement()
	} else {
		out, err = b.BuildRequirement()
	}
	if err != nil {
		return fallback
	}
	return out
}
