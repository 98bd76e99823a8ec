package resource

import (
	"cmp"
	"hash/fnv"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/opencontainers/go-digest"

	"capresolve/internal/types"
)

var resourceSeq atomic.Uint64

// Resource is an immutable set of capabilities and requirements. It is
// created by ResourceBuilder and safe for concurrent use.
type Resource struct {
	seq          uint64
	capabilities []*Capability
	requirements []*Requirement
	supporting   []*Resource
	capsByNS     map[string][]*Capability
	reqsByNS     map[string][]*Requirement
	locations    map[string]digest.Digest

	hashOnce sync.Once
	hash     uint64
}

// Capabilities returns the capabilities in namespace, or all of them when
// namespace is empty.
func (r *Resource) Capabilities(namespace string) []*Capability {
	if namespace == "" {
		return slices.Clone(r.capabilities)
	}
	return slices.Clone(r.capsByNS[namespace])
}

func (r *Resource) Requirements(namespace string) []*Requirement {
	if namespace == "" {
		return slices.Clone(r.requirements)
	}
	return slices.Clone(r.reqsByNS[namespace])
}

func (r *Resource) SupportingResources() []*Resource {
	return slices.Clone(r.supporting)
}

// Locations maps each content URL to its digest.
func (r *Resource) Locations() map[string]digest.Digest {
	return maps.Clone(r.locations)
}

// Equal reports whether both resources describe the same artifact: they
// share a content URL with the same digest. A resource without content is
// only equal to itself.
func (r *Resource) Equal(o *Resource) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil || len(r.locations) == 0 || len(o.locations) == 0 {
		return false
	}
	for url, d := range r.locations {
		if od, ok := o.locations[url]; ok && od == d {
			return true
		}
	}
	return false
}

// Hash is derived from the sorted locations, or from the resource's
// creation sequence when it has no content.
func (r *Resource) Hash() uint64 {
	r.hashOnce.Do(func() {
		h := fnv.New64a()
		if len(r.locations) == 0 {
			h.Write([]byte(strconv.FormatUint(r.seq, 10)))
		}
		for _, url := range slices.Sorted(maps.Keys(r.locations)) {
			h.Write([]byte(url))
			h.Write([]byte{0})
			h.Write([]byte(r.locations[url]))
		}
		r.hash = h.Sum64()
	})
	return r.hash
}

func (r *Resource) String() string {
	if id, ok := r.Identity(); ok {
		return id.Name + ";version=" + id.Version.String()
	}
	if len(r.capabilities) > 0 {
		return r.capabilities[0].String()
	}
	return "<<anonymous resource " + strconv.FormatUint(r.seq, 10) + ">>"
}

// Identity returns the first identity capability as a view.
func (r *Resource) Identity() (IdentityView, bool) {
	for _, c := range r.capsByNS[types.NamespaceIdentity] {
		if v, ok := IdentityOf(c); ok {
			return v, true
		}
	}
	return IdentityView{}, false
}

// namespaceOrder sorts the wiring namespaces first in their fixed order
// and everything else by name.
func namespaceOrder(a, b string) int {
	ra, rb := types.WiringRank(a), types.WiringRank(b)
	switch {
	case ra >= 0 && rb >= 0:
		return cmp.Compare(ra, rb)
	case ra >= 0:
		return -1
	case rb >= 0:
		return 1
	}
	return strings.Compare(a, b)
}

func orderCapabilities(in []*Capability) []*Capability {
	out := make([]*Capability, 0, len(in))
	for _, c := range in {
		if !slices.ContainsFunc(out, c.Equal) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b *Capability) int {
		return namespaceOrder(a.namespace, b.namespace)
	})
	return out
}

func orderRequirements(in []*Requirement) []*Requirement {
	out := make([]*Requirement, 0, len(in))
	for _, q := range in {
		if !slices.ContainsFunc(out, q.Equal) {
			out = append(out, q)
		}
	}
	slices.SortStableFunc(out, func(a, b *Requirement) int {
		return namespaceOrder(a.namespace, b.namespace)
	})
	return out
}

// contentLocations collects url -> digest from osgi.content capabilities.
// The content attribute is a bare sha256 hex string or a full digest.
func contentLocations(caps []*Capability) map[string]digest.Digest {
	out := map[string]digest.Digest{}
	for _, c := range caps {
		if c.namespace != types.NamespaceContent {
			continue
		}
		view, ok := ContentOf(c)
		if !ok || view.URL == "" || view.Digest == "" {
			continue
		}
		out[view.URL] = view.Digest
	}
	return out
}

// parseContentDigest accepts "sha256:<hex>" or bare sha256 hex.
func parseContentDigest(raw string) (digest.Digest, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, ":") {
		raw = string(digest.SHA256) + ":" + strings.ToLower(raw)
	}
	d, err := digest.Parse(raw)
	if err != nil {
		return "", false
	}
	return d, true
}
