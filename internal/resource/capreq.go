// Package resource models capabilities, requirements and the immutable
// resources that declare them.
package resource

import (
	"hash/fnv"
	"maps"
	"slices"
	"strings"
	"sync"

	"capresolve/internal/attrs"
	"capresolve/internal/filter"
	"capresolve/internal/types"
)

// CapReq is the read side shared by capabilities and requirements.
type CapReq interface {
	Namespace() string
	Directives() map[string]string
	Directive(name string) (string, bool)
	Attributes() attrs.Map
	Attribute(name string) (attrs.Value, bool)
	Resource() *Resource
}

type flavor byte

const (
	flavorCapability  flavor = 'c'
	flavorRequirement flavor = 'r'
)

type capReq struct {
	namespace  string
	directives map[string]string
	attributes attrs.Map
	resource   *Resource

	hashOnce sync.Once
	hash     uint64
}

func (c *capReq) Namespace() string             { return c.namespace }
func (c *capReq) Directives() map[string]string { return maps.Clone(c.directives) }
func (c *capReq) Attributes() attrs.Map         { return c.attributes.Clone() }
func (c *capReq) Resource() *Resource           { return c.resource }

func (c *capReq) Directive(name string) (string, bool) {
	v, ok := c.directives[name]
	return v, ok
}

func (c *capReq) Attribute(name string) (attrs.Value, bool) {
	return c.attributes.Get(name)
}

func (c *capReq) equal(o *capReq) bool {
	return c.namespace == o.namespace &&
		c.resource == o.resource &&
		c.attributes.Equal(o.attributes) &&
		maps.Equal(c.directives, o.directives)
}

func (c *capReq) hashOf(f flavor) uint64 {
	c.hashOnce.Do(func() {
		h := fnv.New64a()
		h.Write([]byte{byte(f)})
		h.Write([]byte(c.namespace))
		for _, k := range c.attributes.Keys() {
			v := c.attributes[k]
			h.Write([]byte{0})
			h.Write([]byte(k))
			h.Write([]byte(v.TypeName()))
			h.Write([]byte(v.String()))
		}
		for _, k := range slices.Sorted(maps.Keys(c.directives)) {
			h.Write([]byte{1})
			h.Write([]byte(k))
			h.Write([]byte(c.directives[k]))
		}
		c.hash = h.Sum64()
	})
	return c.hash
}

// format renders "ns;attr=value;dir:=value" with attributes and
// directives in key order.
func (c *capReq) format() string {
	var b strings.Builder
	b.WriteString(c.namespace)
	if len(c.attributes) > 0 {
		b.WriteByte(';')
		b.WriteString(c.attributes.String())
	}
	for _, k := range slices.Sorted(maps.Keys(c.directives)) {
		b.WriteByte(';')
		b.WriteString(k)
		b.WriteString(":=\"")
		b.WriteString(c.directives[k])
		b.WriteByte('"')
	}
	return b.String()
}

// Capability is something a resource provides.
type Capability struct {
	capReq
}

func (c *Capability) Equal(o *Capability) bool {
	if c == o {
		return true
	}
	if c == nil || o == nil {
		return false
	}
	return c.equal(&o.capReq)
}

func (c *Capability) Hash() uint64   { return c.hashOf(flavorCapability) }
func (c *Capability) String() string { return c.format() }

// Requirement is something a resource needs, expressed through its
// filter directive.
type Requirement struct {
	capReq
}

func (r *Requirement) Equal(o *Requirement) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil {
		return false
	}
	return r.equal(&o.capReq)
}

func (r *Requirement) Hash() uint64   { return r.hashOf(flavorRequirement) }
func (r *Requirement) String() string { return r.format() }

// Filter returns the parsed filter directive, or nil when there is none.
// A malformed directive returns a *filter.SyntaxError. Parses go through
// filter.DefaultCache.
func (r *Requirement) Filter() (filter.Node, error) {
	return r.FilterIn(filter.DefaultCache)
}

// FilterIn is Filter with parses memoized in cache instead.
func (r *Requirement) FilterIn(cache *filter.Cache) (filter.Node, error) {
	raw, ok := r.directives[types.DirectiveFilter]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	if cache == nil {
		cache = filter.DefaultCache
	}
	return cache.Parse(raw)
}

func (r *Requirement) IsOptional() bool {
	return r.directives[types.DirectiveResolution] == types.ResolutionOptional
}

// Effective returns the effective directive, defaulting to "resolve".
func (r *Requirement) Effective() string {
	if v, ok := r.directives[types.DirectiveEffective]; ok && v != "" {
		return v
	}
	return types.EffectiveResolve
}

// Match reports whether c satisfies r: same namespace and a filter that
// holds over the capability's attributes. A requirement without a filter
// matches every capability in its namespace.
func (r *Requirement) Match(c *Capability) (bool, error) {
	return r.MatchIn(filter.DefaultCache, c)
}

// MatchIn is Match with the filter parsed through cache.
func (r *Requirement) MatchIn(cache *filter.Cache, c *Capability) (bool, error) {
	if c == nil || r.namespace != c.namespace {
		return false, nil
	}
	n, err := r.FilterIn(cache)
	if err != nil {
		return false, err
	}
	return filter.Eval(n, c.attributes), nil
}

// Matches is Match with filter errors treated as a mismatch.
func (r *Requirement) Matches(c *Capability) bool {
	ok, err := r.Match(c)
	return err == nil && ok
}

// MatchesIn is MatchIn with filter errors treated as a mismatch.
func (r *Requirement) MatchesIn(cache *filter.Cache, c *Capability) bool {
	ok, err := r.MatchIn(cache, c)
	return err == nil && ok
}
