package resolve

import (
	"cmp"
	"math"
	"slices"

	"capresolve/internal/resource"
)

type rankKey struct {
	tier       tier
	preference int
	repo       int
	reqs       int
	caps       int
}

func (k rankKey) compare(o rankKey) int {
	return cmp.Or(
		cmp.Compare(k.tier, o.tier),
		cmp.Compare(k.preference, o.preference),
		cmp.Compare(k.repo, o.repo),
		cmp.Compare(k.reqs, o.reqs),
		cmp.Compare(o.caps, k.caps),
	)
}

// rank orders candidates by source tier. Repository candidates are then
// ordered by preference, repository order and resource weight; candidates
// of the other tiers keep their discovery order.
func (c *Context) rank(cands []candidate) {
	keys := make(map[int]rankKey, len(cands))
	for _, cand := range cands {
		keys[cand.seq] = c.keyOf(cand.capability.Resource(), cand.tier, cand.repo)
	}
	slices.SortStableFunc(cands, func(a, b candidate) int {
		return cmp.Or(keys[a.seq].compare(keys[b.seq]), cmp.Compare(a.seq, b.seq))
	})
}

func (c *Context) keyOf(r *resource.Resource, t tier, repo int) rankKey {
	k := rankKey{tier: t, preference: math.MaxInt, repo: repo}
	if r == nil || t != tierRepository {
		return k
	}
	if id, ok := r.Identity(); ok {
		if i, preferred := c.preferences[id.Name]; preferred {
			k.preference = i
		}
	}
	for _, req := range r.Requirements("") {
		if !req.IsOptional() {
			k.reqs++
		}
	}
	k.caps = len(r.Capabilities(""))
	return k
}

// tierOf classifies a resource that was not necessarily gathered by this
// context, for InsertHostedCapability.
func (c *Context) tierOf(r *resource.Resource) (tier, int) {
	switch {
	case r == nil:
		return tierRepository, len(c.repositories)
	case r == c.system:
		return tierSystem, -1
	case r == c.framework:
		return tierFramework, -1
	}
	if _, wired := c.wirings[r]; wired {
		return tierWired, -1
	}
	if r == c.input || slices.Contains(c.mandatory, r) {
		return tierMandatory, -1
	}
	if i, ok := c.repoIndex[r]; ok {
		return tierRepository, i
	}
	return tierRepository, len(c.repositories)
}

// InsertHostedCapability inserts hosted into the ranked list caps ahead
// of the first capability that ranks after it, and returns the new list.
func (c *Context) InsertHostedCapability(caps []*resource.Capability, hosted *resource.Capability) []*resource.Capability {
	key := func(capability *resource.Capability) rankKey {
		t, repo := c.tierOf(capability.Resource())
		return c.keyOf(capability.Resource(), t, repo)
	}
	hostedKey := key(hosted)
	at := len(caps)
	for i, existing := range caps {
		if hostedKey.compare(key(existing)) < 0 {
			at = i
			break
		}
	}
	return slices.Insert(slices.Clone(caps), at, hosted)
}
