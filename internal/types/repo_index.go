package types

// RepoIndexFile is the on-disk form of a YAML repository index.
type RepoIndexFile struct {
	Name      string                         `yaml:"name"`
	Scheme    VersionScheme                  `yaml:"scheme,omitempty"`
	Resources []ResourceEntry                `yaml:"resources,omitempty"`
	Apt       map[string][]AptPackageVersion `yaml:"apt,omitempty"`
	Pip       map[string][]string            `yaml:"pip,omitempty"`
}

// ResourceEntry declares one resource. Identity and Version produce the
// identity capability; URL and SHA256 produce the content capability.
type ResourceEntry struct {
	Identity     string             `yaml:"identity"`
	Version      string             `yaml:"version,omitempty"`
	Type         string             `yaml:"type,omitempty"`
	URL          string             `yaml:"url,omitempty"`
	SHA256       string             `yaml:"sha256,omitempty"`
	Size         int64              `yaml:"size,omitempty"`
	Capabilities []CapabilityEntry  `yaml:"capabilities,omitempty"`
	Requirements []RequirementEntry `yaml:"requirements,omitempty"`
}

// CapabilityEntry attributes accept plain YAML scalars and lists. A key
// of the form "name:Type" forces the value through the typed parser.
type CapabilityEntry struct {
	Namespace  string            `yaml:"namespace"`
	Attributes map[string]any    `yaml:"attributes,omitempty"`
	Directives map[string]string `yaml:"directives,omitempty"`
}

type RequirementEntry struct {
	Namespace  string            `yaml:"namespace"`
	Filter     string            `yaml:"filter,omitempty"`
	Attributes map[string]any    `yaml:"attributes,omitempty"`
	Directives map[string]string `yaml:"directives,omitempty"`
}

type AptPackageVersion struct {
	Version    string   `yaml:"version"`
	Depends    []string `yaml:"depends,omitempty"`
	PreDepends []string `yaml:"pre_depends,omitempty"`
	Provides   []string `yaml:"provides,omitempty"`
}

// ResourceDescriptor is a workspace "*.resource.yaml" file: one resource
// entry plus the version scheme its versions are written in.
type ResourceDescriptor struct {
	ResourceEntry `yaml:",inline"`
	Scheme        VersionScheme `yaml:"scheme,omitempty"`
}
