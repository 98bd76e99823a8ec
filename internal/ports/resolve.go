package ports

import (
	"context"

	"capresolve/internal/resource"
)

// ResolveContext is the view of a resolve context that solvers consume.
type ResolveContext interface {
	FindProviders(ctx context.Context, req *resource.Requirement) []*resource.Capability
	Wirings() map[*resource.Resource]Wiring
	IsEffective(req *resource.Requirement) bool
	MandatoryResources() []*resource.Resource
	OptionalResources() []*resource.Resource
	InputResource() *resource.Resource
	Failed() []*resource.Requirement
}

// Wiring records which capability satisfied each requirement of an
// already resolved resource.
type Wiring map[*resource.Requirement]*resource.Capability
