// Package resolve answers provider queries for a solver: it gathers the
// capabilities that can satisfy a requirement from the system resource,
// the framework, existing wirings, mandatory resources and repositories,
// filters them and ranks the survivors deterministically.
package resolve

import (
	"context"
	"slices"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"capresolve/internal/filter"
	"capresolve/internal/metrics"
	"capresolve/internal/ports"
	"capresolve/internal/resource"
	"capresolve/internal/types"
)

const (
	SystemBundleName = "system.bundle"
	InitialIdentity  = "<<INITIAL>>"
	FrameworkPackage = "org.osgi.framework"
)

type Options struct {
	Repositories []ports.Repository
	// RepositoryOrder names repositories that are consulted first, in the
	// given order. Unnamed repositories follow in their configured order.
	RepositoryOrder []string

	// Framework is the identity of the framework resource, looked up in
	// the repositories at its highest version within FrameworkRange.
	Framework      string
	FrameworkRange string

	EE                 *types.EERef
	SystemPackages     []types.PackageRef
	SystemCapabilities []*resource.Builder

	Blacklist   []*resource.Requirement
	Preferences []string
	Effective   EffectiveSet
	Hooks       []ports.ResolverHook

	InputRequirements []*resource.Requirement
	Mandatory         []*resource.Resource
	Optional          []*resource.Resource

	Metrics *metrics.Recorder

	// FilterCache memoizes requirement filters for the session. A new
	// unbounded cache is created when nil.
	FilterCache *filter.Cache
}

// Context is read only once New returns, apart from its provider cache,
// filter cache and failed list. It is meant for a single resolution session.
type Context struct {
	repositories []ports.Repository
	system       *resource.Resource
	framework    *resource.Resource
	input        *resource.Resource
	mandatory    []*resource.Resource
	optional     []*resource.Resource
	wirings      map[*resource.Resource]ports.Wiring

	blacklist            []*resource.Requirement
	blacklistedResources []*resource.Resource
	preferences          map[string]int
	effective            EffectiveSet
	hooks                []ports.ResolverHook

	cache     map[uint64][]cacheEntry
	filters   *filter.Cache
	failed    []*resource.Requirement
	repoIndex map[*resource.Resource]int
	metrics   *metrics.Recorder
}

type cacheEntry struct {
	req  *resource.Requirement
	caps []*resource.Capability
}

var _ ports.ResolveContext = (*Context)(nil)

func New(ctx context.Context, opts Options) (*Context, error) {
	c := &Context{
		repositories: orderRepositories(opts.Repositories, opts.RepositoryOrder),
		mandatory:    slices.Clone(opts.Mandatory),
		optional:     slices.Clone(opts.Optional),
		wirings:      map[*resource.Resource]ports.Wiring{},
		preferences:  map[string]int{},
		effective:    opts.Effective,
		hooks:        slices.Clone(opts.Hooks),
		cache:        map[uint64][]cacheEntry{},
		repoIndex:    map[*resource.Resource]int{},
		metrics:      opts.Metrics,
		filters:      opts.FilterCache,
	}
	if c.filters == nil {
		c.filters = filter.NewCache()
	}
	if c.effective == nil {
		c.effective = EffectiveSet{}
	}
	for i, name := range opts.Preferences {
		if _, seen := c.preferences[name]; !seen {
			c.preferences[name] = i
		}
	}
	for _, q := range opts.Blacklist {
		c.blacklist = append(c.blacklist, resource.Unalias(q))
	}

	var framework *resource.Resource
	if opts.Framework != "" {
		fw, ok := c.HighestResource(ctx, opts.Framework, opts.FrameworkRange)
		if !ok {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("framework " + opts.Framework + " not found in any repository")
		}
		framework = fw
	}
	system, err := buildSystemResource(opts, framework)
	if err != nil {
		return nil, err
	}
	c.system = system
	c.framework = framework

	input, err := buildInputResource(opts.InputRequirements)
	if err != nil {
		return nil, err
	}
	c.input = input
	c.blacklistedResources = c.findBlacklisted(ctx)

	log.Ctx(ctx).Debug().
		Int("repositories", len(c.repositories)).
		Int("blacklisted", len(c.blacklistedResources)).
		Bool("framework", framework != nil).
		Msg("resolve context initialized")
	return c, nil
}

// orderRepositories moves the named repositories to the front, in the
// order given.
func orderRepositories(repos []ports.Repository, order []string) []ports.Repository {
	out := make([]ports.Repository, 0, len(repos))
	used := make([]bool, len(repos))
	for _, name := range order {
		for i, r := range repos {
			if !used[i] && r.Name() == name {
				out = append(out, r)
				used[i] = true
			}
		}
	}
	for i, r := range repos {
		if !used[i] {
			out = append(out, r)
		}
	}
	return out
}

func buildInputResource(reqs []*resource.Requirement) (*resource.Resource, error) {
	rb := resource.NewResourceBuilder()
	if err := rb.AddIdentity(InitialIdentity, "", types.IdentityTypeUnknown); err != nil {
		return nil, err
	}
	for _, q := range reqs {
		if err := rb.AddRequirement(resource.CloneRequirement(resource.Unalias(q))); err != nil {
			return nil, err
		}
	}
	return rb.Build()
}

// findBlacklisted collects the repository resources that provide a
// capability matching a blacklist requirement.
func (c *Context) findBlacklisted(ctx context.Context) []*resource.Resource {
	if len(c.blacklist) == 0 {
		return nil
	}
	var out []*resource.Resource
	for _, repo := range c.repositories {
		found, err := repo.FindProviders(ctx, c.blacklist)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("repository", repo.Name()).Msg("blacklist lookup failed")
			continue
		}
		for _, q := range c.blacklist {
			for _, capability := range found[q] {
				r := capability.Resource()
				if r != nil && !slices.ContainsFunc(out, r.Equal) {
					out = append(out, r)
				}
			}
		}
	}
	return out
}

func (c *Context) Repositories() []ports.Repository        { return slices.Clone(c.repositories) }
func (c *Context) SystemResource() *resource.Resource      { return c.system }
func (c *Context) Framework() *resource.Resource           { return c.framework }
func (c *Context) InputResource() *resource.Resource       { return c.input }
func (c *Context) OptionalResources() []*resource.Resource { return slices.Clone(c.optional) }

// MandatoryResources returns the input resource followed by the configured
// mandatory resources.
func (c *Context) MandatoryResources() []*resource.Resource {
	return append([]*resource.Resource{c.input}, c.mandatory...)
}

func (c *Context) Wirings() map[*resource.Resource]ports.Wiring {
	out := make(map[*resource.Resource]ports.Wiring, len(c.wirings))
	for r, w := range c.wirings {
		out[r] = w
	}
	return out
}

// SetWirings replaces the wirings of already resolved resources and drops
// cached provider answers.
func (c *Context) SetWirings(w map[*resource.Resource]ports.Wiring) {
	c.wirings = map[*resource.Resource]ports.Wiring{}
	for r, wiring := range w {
		c.wirings[r] = wiring
	}
	c.cache = map[uint64][]cacheEntry{}
	c.failed = nil
}

// Failed lists the requirements for which FindProviders found nothing, in
// query order.
func (c *Context) Failed() []*resource.Requirement {
	return slices.Clone(c.failed)
}

// Blacklisted reports whether r provides a capability matching one of the
// blacklist requirements.
func (c *Context) Blacklisted(r *resource.Resource) bool {
	if r == nil || len(c.blacklist) == 0 {
		return false
	}
	if slices.ContainsFunc(c.blacklistedResources, r.Equal) {
		return true
	}
	for _, q := range c.blacklist {
		for _, capability := range r.Capabilities(q.Namespace()) {
			if q.MatchesIn(c.filters, capability) {
				return true
			}
		}
	}
	return false
}

// ResourceIdentityEqual reports whether both resources have an identity
// with the same name and version.
func ResourceIdentityEqual(a, b *resource.Resource) bool {
	if a == nil || b == nil {
		return false
	}
	ia, okA := a.Identity()
	ib, okB := b.Identity()
	return okA && okB && ia.Name == ib.Name && ia.Version.Equal(ib.Version)
}

// HighestResource finds the highest version of the identity bsn within
// versionRange across all repositories. The first repository wins a tie.
func (c *Context) HighestResource(ctx context.Context, bsn, versionRange string) (*resource.Resource, bool) {
	req, err := resource.NewIdentityRequirement(bsn, versionRange).BuildSyntheticRequirement()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("identity", bsn).Msg("invalid identity requirement")
		return nil, false
	}
	var best *resource.Resource
	var bestID resource.IdentityView
	for _, repo := range c.repositories {
		found, err := repo.FindProviders(ctx, []*resource.Requirement{req})
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("repository", repo.Name()).Msg("identity lookup failed")
			continue
		}
		for _, capability := range found[req] {
			r := capability.Resource()
			if r == nil {
				continue
			}
			id, ok := r.Identity()
			if !ok {
				continue
			}
			if best == nil || bestID.Version.LessThan(id.Version) {
				best, bestID = r, id
			}
		}
	}
	return best, best != nil
}
