package ports

import (
	"context"

	"capresolve/internal/resource"
)

// Repository is a named source of candidate capabilities. FindProviders
// answers a batch of requirements at once; requirements without a match
// may be absent from the result or map to an empty slice.
type Repository interface {
	Name() string
	FindProviders(ctx context.Context, reqs []*resource.Requirement) (map[*resource.Requirement][]*resource.Capability, error)
}
