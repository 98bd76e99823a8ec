package types

// Namespaces of well-known capabilities and requirements.
const (
	NamespaceIdentity  = "osgi.identity"
	NamespacePackage   = "osgi.wiring.package"
	NamespaceBundle    = "osgi.wiring.bundle"
	NamespaceHost      = "osgi.wiring.host"
	NamespaceService   = "osgi.service"
	NamespaceContent   = "osgi.content"
	NamespaceExtender  = "osgi.extender"
	NamespaceEE        = "osgi.ee"
	NamespaceNative    = "osgi.native"
	NamespaceContract  = "osgi.contract"
	NamespaceAliasID   = "bnd.identity"
	NamespaceAliasLit  = "bnd.literal"
	NamespaceWorkspace = "bnd.workspace.project"
)

// Attribute names shared across namespaces.
const (
	AttrVersion       = "version"
	AttrBundleVersion = "bundle-version"
	AttrBundleSymName = "bundle-symbolic-name"
	AttrType          = "type"
	AttrURL           = "url"
	AttrSize          = "size"
	AttrMIME          = "mime"
	AttrObjectClass   = "objectClass"
	AttrAliasID       = "id"
	AttrAliasBSN      = "bsn"
)

// Directive names.
const (
	DirectiveFilter     = "filter"
	DirectiveEffective  = "effective"
	DirectiveResolution = "resolution"
	DirectiveMandatory  = "mandatory"
	DirectiveUses       = "uses"
	DirectiveSingleton  = "singleton"
)

const (
	ResolutionMandatory = "mandatory"
	ResolutionOptional  = "optional"
	EffectiveResolve    = "resolve"
	EffectiveActive     = "active"
)

// Identity types.
const (
	IdentityTypeBundle   = "osgi.bundle"
	IdentityTypeFragment = "osgi.fragment"
	IdentityTypeUnknown  = "unknown"
)

// WiringNamespaces lists the namespaces that sort ahead of all others on
// a resource, in their fixed order.
var WiringNamespaces = []string{
	NamespaceIdentity,
	NamespacePackage,
	NamespaceBundle,
	NamespaceHost,
}

// WiringRank returns the position of ns in WiringNamespaces, or -1.
func WiringRank(ns string) int {
	for i, w := range WiringNamespaces {
		if w == ns {
			return i
		}
	}
	return -1
}

// IsWiring reports whether ns is one of WiringNamespaces.
func IsWiring(ns string) bool {
	return WiringRank(ns) >= 0
}

// VersionAttribute returns the attribute that carries the version of a
// capability in ns.
func VersionAttribute(ns string) string {
	switch ns {
	case NamespaceBundle, NamespaceHost:
		return AttrBundleVersion
	default:
		return AttrVersion
	}
}
