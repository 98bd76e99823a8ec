package ports

import "capresolve/internal/resource"

// ManifestSource derives the capabilities and requirements of one module
// from its metadata.
type ManifestSource interface {
	CapabilitiesAndRequirements() ([]*resource.Builder, []*resource.Builder, error)
}

// WorkspacePort discovers resource descriptor files within workspace
// roots.
type WorkspacePort interface {
	FindDescriptors(root string) ([]string, error)
}
