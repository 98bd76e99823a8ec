package app

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"capresolve/internal/resolve"
	"capresolve/internal/resource"
	"capresolve/internal/solver"
	"capresolve/internal/types"
	"capresolve/internal/version"
)

func (s Service) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	run, err := s.loadRun(req.RunPath)
	if err != nil {
		return ResolveResult{}, err
	}
	run = applyOverrides(run, req)
	assert.NotEmpty(ctx, run.Name, "run name must be set")

	opts, err := s.buildOptions(ctx, run)
	if err != nil {
		return ResolveResult{}, err
	}
	if lockFile := strings.TrimSpace(req.LockFile); lockFile != "" {
		pinned, err := s.lockedResources(ctx, opts, lockFile)
		if err != nil {
			return ResolveResult{}, err
		}
		opts.Mandatory = append(opts.Mandatory, pinned...)
	}
	rc, err := resolve.New(ctx, opts)
	if err != nil {
		return ResolveResult{}, err
	}

	resolution, err := solver.Solve(ctx, rc, solver.Options{
		Singleton: run.Singleton,
		Metrics:   s.Metrics,
	})
	if err != nil {
		return ResolveResult{}, err
	}

	result := ResolveResult{
		Name:       run.Name,
		ResolvedAt: s.now().UTC().Format(time.RFC3339),
		Resources:  resolvedResources(rc.InputResource(), resolution.Resources),
		Wiring:     wireRecords(resolution.Wiring),
	}
	if outputDir := strings.TrimSpace(req.OutputDir); outputDir != "" {
		if err := s.writeOutputs(outputDir, result); err != nil {
			return ResolveResult{}, err
		}
		result.OutputDir = outputDir
	}
	log.Ctx(ctx).Info().
		Str("run", run.Name).
		Int("resources", len(result.Resources)).
		Int("wires", len(result.Wiring)).
		Msg("resolution complete")
	return result, nil
}

// lockedResources looks up every resource named in a lock file. Locked
// resources become mandatory, so they are selected and rank ahead of
// repository candidates for every requirement they can satisfy.
func (s Service) lockedResources(ctx context.Context, opts resolve.Options, path string) ([]*resource.Resource, error) {
	entries, err := s.OutputReader.ReadLock(path)
	if err != nil {
		return nil, err
	}
	lookup, err := resolve.New(ctx, resolve.Options{
		Repositories:    opts.Repositories,
		RepositoryOrder: opts.RepositoryOrder,
	})
	if err != nil {
		return nil, err
	}
	pinned := make([]*resource.Resource, 0, len(entries))
	for _, entry := range entries {
		v, err := version.Parse(entry.Version)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid version in lock entry " + entry.Identity).
				WithCause(err)
		}
		r, ok := lookup.HighestResource(ctx, entry.Identity, version.Exactly(v).String())
		if !ok {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("locked resource " + entry.Identity + "=" + entry.Version + " not found in any repository")
		}
		pinned = append(pinned, r)
	}
	log.Ctx(ctx).Debug().Str("lock", path).Int("pinned", len(pinned)).Msg("lock applied")
	return pinned, nil
}

func (s Service) writeOutputs(dir string, result ResolveResult) error {
	out := s.NewOutput(dir)
	locks := make([]types.LockEntry, 0, len(result.Resources))
	for _, r := range result.Resources {
		locks = append(locks, types.LockEntry{Identity: r.Identity, Version: r.Version})
	}
	if err := out.WriteLock(locks); err != nil {
		return err
	}
	return out.WriteResolution(result.Report())
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

func resolvedResources(input *resource.Resource, selected []*resource.Resource) []types.ResolvedResource {
	out := make([]types.ResolvedResource, 0, len(selected))
	for _, r := range selected {
		if r == input {
			continue
		}
		id, ok := r.Identity()
		if !ok {
			continue
		}
		entry := types.ResolvedResource{
			Identity: id.Name,
			Version:  id.Version.String(),
			Type:     id.Type,
		}
		for _, c := range r.Capabilities(types.NamespaceContent) {
			view, ok := resource.ContentOf(c)
			if !ok {
				continue
			}
			entry.URL = view.URL
			entry.Digest = view.Digest.String()
			break
		}
		out = append(out, entry)
	}
	return out
}

func wireRecords(wiring map[*resource.Requirement]*resource.Capability) []types.WireRecord {
	out := make([]types.WireRecord, 0, len(wiring))
	for req, c := range wiring {
		out = append(out, types.WireRecord{
			Requirer:    ownerOf(req.Resource()),
			Requirement: req.String(),
			Provider:    ownerOf(c.Resource()),
			Capability:  c.String(),
		})
	}
	slices.SortFunc(out, func(a, b types.WireRecord) int {
		return cmp.Or(
			strings.Compare(a.Requirer, b.Requirer),
			strings.Compare(a.Requirement, b.Requirement),
			strings.Compare(a.Provider, b.Provider),
		)
	})
	return out
}

func ownerOf(r *resource.Resource) string {
	if r == nil {
		return "<synthetic>"
	}
	return r.String()
}
