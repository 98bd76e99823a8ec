package resolve

import (
	"context"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"capresolve/internal/metrics"
	"capresolve/internal/resource"
	"capresolve/internal/types"
)

// tier is the source a candidate was gathered from. Lower tiers rank
// first.
type tier int

const (
	tierSystem tier = iota
	tierFramework
	tierWired
	tierSelf
	tierMandatory
	tierRepository
)

type candidate struct {
	capability *resource.Capability
	tier       tier
	repo       int
	seq        int
}

// FindProviders returns the capabilities that can satisfy req, best first.
// An ineffective requirement has no providers. Answers are cached per
// requirement; an empty answer is recorded in Failed.
func (c *Context) FindProviders(ctx context.Context, req *resource.Requirement) []*resource.Capability {
	if req == nil {
		return nil
	}
	if !c.IsEffective(req) {
		c.metrics.CandidatesDropped(metrics.DropEffective, 1)
		return nil
	}
	if caps, ok := c.cached(req); ok {
		return caps
	}

	result := c.computeProviders(ctx, req)
	c.store(req, result)
	if len(result) == 0 {
		c.failed = append(c.failed, req)
	}
	c.metrics.FindProviders(req.Namespace(), len(result))
	return slices.Clone(result)
}

func (c *Context) computeProviders(ctx context.Context, req *resource.Requirement) []*resource.Capability {
	logger := log.Ctx(ctx)
	if _, err := req.FilterIn(c.filters); err != nil {
		raw, _ := req.Directive(types.DirectiveFilter)
		logger.Warn().
			Str("namespace", req.Namespace()).
			Str("filter", raw).
			Err(err).
			Msg("dropping candidates for malformed requirement filter")
		return nil
	}

	gathered := c.gather(ctx, req)
	matched := c.match(req, gathered)
	c.metrics.CandidatesDropped(metrics.DropFilter, len(gathered)-len(matched))

	filtered := c.filterCandidates(req, matched)
	unique := dedup(filtered)
	c.metrics.CandidatesDropped(metrics.DropDuplicate, len(filtered)-len(unique))

	c.rank(unique)
	out := make([]*resource.Capability, len(unique))
	for i, cand := range unique {
		out[i] = cand.capability
	}
	logger.Debug().
		Str("requirement", req.String()).
		Int("candidates", len(gathered)).
		Int("providers", len(out)).
		Msg("providers found")
	return out
}

// ---------------------------------------------------------------------------
// Gathering
// ---------------------------------------------------------------------------

func (c *Context) gather(ctx context.Context, req *resource.Requirement) []candidate {
	var out []candidate
	add := func(r *resource.Resource, t tier, repo int) {
		if r == nil {
			return
		}
		for _, capability := range r.Capabilities(req.Namespace()) {
			out = append(out, candidate{capability: capability, tier: t, repo: repo, seq: len(out)})
		}
	}

	add(c.system, tierSystem, -1)
	add(c.framework, tierFramework, -1)
	for _, r := range c.wiredResources() {
		add(r, tierWired, -1)
	}
	add(req.Resource(), tierSelf, -1)
	for _, r := range c.MandatoryResources() {
		add(r, tierMandatory, -1)
	}

	if !c.consultRepositories(req) {
		return out
	}
	for i, repo := range c.repositories {
		found, err := repo.FindProviders(ctx, []*resource.Requirement{req})
		if err != nil {
			log.Ctx(ctx).Warn().
				Err(err).
				Str("repository", repo.Name()).
				Str("requirement", req.String()).
				Msg("repository query failed")
			continue
		}
		for _, capability := range found[req] {
			if r := capability.Resource(); r != nil {
				if _, seen := c.repoIndex[r]; !seen {
					c.repoIndex[r] = i
				}
			}
			out = append(out, candidate{capability: capability, tier: tierRepository, repo: i, seq: len(out)})
		}
	}
	return out
}

// consultRepositories is true for mandatory requirements and for optional
// requirements of an optional root.
func (c *Context) consultRepositories(req *resource.Requirement) bool {
	if !req.IsOptional() {
		return true
	}
	r := req.Resource()
	return r != nil && slices.Contains(c.optional, r)
}

// wiredResources returns the wired resources in a stable order.
func (c *Context) wiredResources() []*resource.Resource {
	out := make([]*resource.Resource, 0, len(c.wirings))
	for r := range c.wirings {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b *resource.Resource) int {
		if n := strings.Compare(a.String(), b.String()); n != 0 {
			return n
		}
		switch {
		case a.Hash() < b.Hash():
			return -1
		case a.Hash() > b.Hash():
			return 1
		}
		return 0
	})
	return out
}

func (c *Context) match(req *resource.Requirement, in []candidate) []candidate {
	out := make([]candidate, 0, len(in))
	for _, cand := range in {
		if req.MatchesIn(c.filters, cand.capability) {
			out = append(out, cand)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Filtering
// ---------------------------------------------------------------------------

func (c *Context) filterCandidates(req *resource.Requirement, in []candidate) []candidate {
	out := make([]candidate, 0, len(in))
	var blacklisted, denied int
	for _, cand := range in {
		r := cand.capability.Resource()
		if c.Blacklisted(r) {
			blacklisted++
			continue
		}
		if cand.tier == tierRepository && !isPermitted(r) {
			denied++
			continue
		}
		out = append(out, cand)
	}
	c.metrics.CandidatesDropped(metrics.DropBlacklist, blacklisted)
	c.metrics.CandidatesDropped(metrics.DropPermitted, denied)
	return c.applyHooks(req, out)
}

// isPermitted rejects repository resources without exactly one named
// identity, execution environment stand-ins and framework
// implementations.
func isPermitted(r *resource.Resource) bool {
	if r == nil {
		return false
	}
	ids := r.Capabilities(types.NamespaceIdentity)
	if len(ids) != 1 {
		return false
	}
	id, ok := resource.IdentityOf(ids[0])
	if !ok || id.Name == "" || strings.HasPrefix(id.Name, "ee.") {
		return false
	}
	for _, export := range r.Capabilities(types.NamespacePackage) {
		if view, ok := resource.PackageView(export); ok && view.Package == FrameworkPackage {
			return false
		}
	}
	return true
}

// applyHooks runs every hook in turn. Hooks cannot remove candidates
// owned by the system resource or the framework.
func (c *Context) applyHooks(req *resource.Requirement, in []candidate) []candidate {
	if len(c.hooks) == 0 || len(in) == 0 {
		return in
	}
	current := in
	for _, hook := range c.hooks {
		caps := make([]*resource.Capability, len(current))
		for i, cand := range current {
			caps[i] = cand.capability
		}
		kept := hook.FilterMatches(req, caps)
		next := make([]candidate, 0, len(current))
		for _, cand := range current {
			if cand.tier == tierSystem || cand.tier == tierFramework || slices.Contains(kept, cand.capability) {
				next = append(next, cand)
			}
		}
		c.metrics.CandidatesDropped(metrics.DropHook, len(current)-len(next))
		current = next
	}
	return current
}

// dedup keeps the first candidate of every resource.
func dedup(in []candidate) []candidate {
	out := make([]candidate, 0, len(in))
	for _, cand := range in {
		r := cand.capability.Resource()
		dup := r != nil && slices.ContainsFunc(out, func(o candidate) bool {
			return o.capability.Resource().Equal(r)
		})
		if !dup {
			out = append(out, cand)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

func (c *Context) cached(req *resource.Requirement) ([]*resource.Capability, bool) {
	for _, e := range c.cache[req.Hash()] {
		if e.req.Equal(req) {
			return slices.Clone(e.caps), true
		}
	}
	return nil, false
}

func (c *Context) store(req *resource.Requirement, caps []*resource.Capability) {
	h := req.Hash()
	c.cache[h] = append(c.cache[h], cacheEntry{req: req, caps: caps})
}
