package types

// LockEntry pins one resolved resource by identity and version.
type LockEntry struct {
	Identity string
	Version  string
}

type ResolvedResource struct {
	Identity string `yaml:"identity"`
	Version  string `yaml:"version"`
	Type     string `yaml:"type,omitempty"`
	URL      string `yaml:"url,omitempty"`
	Digest   string `yaml:"digest,omitempty"`
}

// WireRecord is one requirement and the capability chosen for it.
type WireRecord struct {
	Requirer    string `yaml:"requirer"`
	Requirement string `yaml:"requirement"`
	Provider    string `yaml:"provider"`
	Capability  string `yaml:"capability"`
}

type ResolutionReport struct {
	Name       string             `yaml:"name"`
	ResolvedAt string             `yaml:"resolved_at,omitempty"`
	Resources  []ResolvedResource `yaml:"resources"`
	Wiring     []WireRecord       `yaml:"wiring,omitempty"`
}
