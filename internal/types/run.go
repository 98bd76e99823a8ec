package types

// RunDescriptor describes one resolution: where the candidates come from,
// what must be resolved and how candidates are filtered and preferred.
type RunDescriptor struct {
	Name            string           `yaml:"name"`
	Repositories    []string         `yaml:"repositories,omitempty"`
	RepositoryOrder []string         `yaml:"repository_order,omitempty"`
	Workspace       []string         `yaml:"workspace,omitempty"`
	Framework       string           `yaml:"framework,omitempty"`
	EE              *EERef           `yaml:"ee,omitempty"`
	SystemPackages  []PackageRef     `yaml:"system_packages,omitempty"`
	Requires        []RequirementRef `yaml:"requires,omitempty"`
	Blacklist       []RequirementRef `yaml:"blacklist,omitempty"`
	Preferences     []string         `yaml:"preferences,omitempty"`
	Effective       string           `yaml:"effective,omitempty"`
	Policy          []PolicyRule     `yaml:"policy,omitempty"`
	Singleton       bool             `yaml:"singleton,omitempty"`
}

type EERef struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
}

type PackageRef struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
}

// RequirementRef is either a plain requirement (Namespace plus Filter) or
// an alias form: Alias "bnd.identity" with ID and Version, or Alias
// "bnd.literal" with Namespace naming the target namespace.
type RequirementRef struct {
	Namespace  string            `yaml:"namespace,omitempty"`
	Filter     string            `yaml:"filter,omitempty"`
	Alias      string            `yaml:"alias,omitempty"`
	ID         string            `yaml:"id,omitempty"`
	Version    string            `yaml:"version,omitempty"`
	Directives map[string]string `yaml:"directives,omitempty"`
}

type PolicyRule struct {
	Pattern string       `yaml:"pattern"`
	Action  PolicyAction `yaml:"action"`
}
