package types

// VersionScheme names the version syntax a repository index uses. Every
// scheme is converted to the framework version model on load.
type VersionScheme string

const (
	VersionSchemeOSGi   VersionScheme = "osgi"
	VersionSchemeDeb    VersionScheme = "deb"
	VersionSchemePEP440 VersionScheme = "pep440"
	VersionSchemeSemver VersionScheme = "semver"
)

type DependencyType string

const (
	DependencyTypeApt DependencyType = "apt"
	DependencyTypePip DependencyType = "pip"
)

// Namespaces of native package capabilities.
const (
	NamespaceDebPackage = "deb.package"
	NamespacePipPackage = "pip.package"
)

// Namespace returns the capability namespace that packages of this type
// are published under.
func (t DependencyType) Namespace() string {
	switch t {
	case DependencyTypePip:
		return NamespacePipPackage
	default:
		return NamespaceDebPackage
	}
}

// ConstraintOp is a version relation as written in native package
// metadata.
type ConstraintOp string

const (
	ConstraintOpNone ConstraintOp = ""
	ConstraintOpEq   ConstraintOp = "="
	ConstraintOpGte  ConstraintOp = ">="
	ConstraintOpLte  ConstraintOp = "<="
	ConstraintOpGt   ConstraintOp = ">>"
	ConstraintOpLt   ConstraintOp = "<<"
)

type PolicyAction string

const (
	PolicyActionAllow PolicyAction = "allow"
	PolicyActionDeny  PolicyAction = "deny"
)

type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatYAML OutputFormat = "yaml"
)
