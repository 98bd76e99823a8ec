package ports

import "capresolve/internal/resource"

// ResolverHook may narrow the candidates found for a requirement. It must
// return a subset of candidates in their original order.
type ResolverHook interface {
	FilterMatches(req *resource.Requirement, candidates []*resource.Capability) []*resource.Capability
}
