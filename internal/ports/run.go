package ports

import "capresolve/internal/types"

type RunDescriptorPort interface {
	LoadRun(path string) (types.RunDescriptor, error)
}
