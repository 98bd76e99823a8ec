package app

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"capresolve/internal/resolve"
	"capresolve/internal/resource"
	"capresolve/internal/types"
)

// Providers answers one requirement against the sources of a run
// descriptor, in rank order. The descriptor's own requires are ignored.
func (s Service) Providers(ctx context.Context, req ProvidersRequest) (ProvidersResult, error) {
	var run types.RunDescriptor
	if req.RunPath != "" {
		loaded, err := s.loadRun(req.RunPath)
		if err != nil {
			return ProvidersResult{}, err
		}
		run = loaded
	}
	run = applyOverrides(run, ResolveRequest{Repositories: req.Repositories, Workspace: req.Workspace})
	if len(run.Repositories) == 0 && len(run.Workspace) == 0 {
		return ProvidersResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("a run descriptor, repository or workspace is required")
	}
	run.Requires = nil

	q, err := requirementOf(req.Requirement)
	if err != nil {
		return ProvidersResult{}, err
	}
	opts, err := s.buildOptions(ctx, run)
	if err != nil {
		return ProvidersResult{}, err
	}
	rc, err := resolve.New(ctx, opts)
	if err != nil {
		return ProvidersResult{}, err
	}

	q = resource.Unalias(q)
	caps := rc.FindProviders(ctx, q)
	result := ProvidersResult{Requirement: q.String()}
	for _, c := range caps {
		result.Providers = append(result.Providers, Provider{
			Resource:   ownerOf(c.Resource()),
			Capability: c.String(),
		})
	}
	log.Ctx(ctx).Debug().Str("requirement", result.Requirement).Int("providers", len(caps)).Msg("providers listed")
	return result, nil
}
