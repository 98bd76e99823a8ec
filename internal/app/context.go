package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"capresolve/internal/policies"
	"capresolve/internal/ports"
	"capresolve/internal/resolve"
	"capresolve/internal/resource"
	"capresolve/internal/shared"
	"capresolve/internal/types"
)

func (s Service) loadRun(path string) (types.RunDescriptor, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return types.RunDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("run descriptor path is required")
	}
	return s.RunLoader.LoadRun(path)
}

// applyOverrides merges command line values into a loaded descriptor.
func applyOverrides(run types.RunDescriptor, req ResolveRequest) types.RunDescriptor {
	run.Repositories = shared.AppendUnique(run.Repositories, req.Repositories)
	run.Workspace = shared.AppendUnique(run.Workspace, req.Workspace)
	if len(req.Preferences) > 0 {
		run.Preferences = slices.Clone(req.Preferences)
	}
	if strings.TrimSpace(req.Effective) != "" {
		run.Effective = req.Effective
	}
	run.Singleton = run.Singleton || req.Singleton
	return run
}

// buildOptions loads every source a descriptor names and turns its
// requirement references into resolve options.
func (s Service) buildOptions(ctx context.Context, run types.RunDescriptor) (resolve.Options, error) {
	repos, err := s.repositories(ctx, run.Repositories, run.Workspace)
	if err != nil {
		return resolve.Options{}, err
	}
	requires, err := requirementsOf("requires", run.Requires)
	if err != nil {
		return resolve.Options{}, err
	}
	blacklist, err := requirementsOf("blacklist", run.Blacklist)
	if err != nil {
		return resolve.Options{}, err
	}
	opts := resolve.Options{
		Repositories:      repos,
		RepositoryOrder:   run.RepositoryOrder,
		Framework:         run.Framework,
		EE:                run.EE,
		SystemPackages:    run.SystemPackages,
		Blacklist:         blacklist,
		Preferences:       run.Preferences,
		Effective:         resolve.ParseEffective(run.Effective),
		InputRequirements: requires,
		Metrics:           s.Metrics,
	}
	if len(run.Policy) > 0 {
		policy, err := policies.NewIdentityPolicy(run.Policy)
		if err != nil {
			return resolve.Options{}, err
		}
		opts.Hooks = append(opts.Hooks, policy)
	}
	return opts, nil
}

func (s Service) repositories(ctx context.Context, paths, workspace []string) ([]ports.Repository, error) {
	var repos []ports.Repository
	for _, path := range paths {
		repo, err := s.LoadRepository(path)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	if len(workspace) > 0 {
		ws, err := s.LoadWorkspace(ctx, workspace)
		if err != nil {
			return nil, err
		}
		repos = append(repos, ws)
	}
	return repos, nil
}

func requirementsOf(field string, refs []types.RequirementRef) ([]*resource.Requirement, error) {
	out := make([]*resource.Requirement, 0, len(refs))
	for i, ref := range refs {
		q, err := requirementOf(ref)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("%s[%d]: %s", field, i, errorText(err))).
				WithCause(err)
		}
		out = append(out, q)
	}
	return out, nil
}

// requirementOf builds a synthetic requirement from a reference. Alias
// forms are kept in their alias namespace; the resolve context unaliases
// input requirements itself.
func requirementOf(ref types.RequirementRef) (*resource.Requirement, error) {
	var b *resource.Builder
	switch strings.TrimSpace(ref.Alias) {
	case "":
		if strings.TrimSpace(ref.Namespace) == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("namespace is required")
		}
		b = resource.NewBuilder(ref.Namespace)
	case types.NamespaceAliasID:
		if strings.TrimSpace(ref.ID) == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("id is required for " + types.NamespaceAliasID)
		}
		b = resource.NewBuilder(types.NamespaceAliasID).AddAttribute(types.AttrAliasID, ref.ID)
		if ref.Version != "" {
			b.AddAttribute(types.AttrVersion, ref.Version)
		}
	case types.NamespaceAliasLit:
		if strings.TrimSpace(ref.Namespace) == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("namespace is required for " + types.NamespaceAliasLit)
		}
		b = resource.NewBuilder(types.NamespaceAliasLit).AddAttribute(types.NamespaceAliasLit, ref.Namespace)
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown alias %q", ref.Alias))
	}
	b.AddDirectives(ref.Directives)
	if ref.Filter != "" {
		b.Filter(ref.Filter)
	}
	q, err := b.BuildSyntheticRequirement()
	if err != nil {
		return nil, err
	}
	if _, err := q.Filter(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid filter").
			WithCause(err)
	}
	return q, nil
}

// errorText prefers the builder message over the full cause chain.
func errorText(err error) string {
	var built *errbuilder.ErrBuilder
	if errors.As(err, &built) && built.Msg != "" {
		return built.Msg
	}
	return err.Error()
}
