package resource

import (
	"fmt"
	"maps"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"capresolve/internal/attrs"
	"capresolve/internal/types"
	"capresolve/internal/version"
)

var (
	_ CapReq = (*Capability)(nil)
	_ CapReq = (*Requirement)(nil)
)

// ErrMissingResource is returned when a non-synthetic capability or
// requirement is built without a resource.
var ErrMissingResource error = errbuilder.New().
	WithCode(errbuilder.CodeFailedPrecondition).
	WithMsg("capability or requirement has no resource")

// Builder accumulates the parts of a capability or requirement. It is
// reusable: built objects own copies of the builder's maps.
type Builder struct {
	namespace  string
	attributes attrs.Map
	directives map[string]string
	resource   *Resource
	err        error
}

func NewBuilder(namespace string) *Builder {
	return &Builder{
		namespace:  namespace,
		attributes: attrs.Map{},
		directives: map[string]string{},
	}
}

func (b *Builder) Namespace() string { return b.namespace }

// AddAttribute converts value with attrs.FromAny. Version attributes given
// as strings become versions when they parse. A nil value is skipped.
// Conversion errors surface from the next Build call.
func (b *Builder) AddAttribute(name string, value any) *Builder {
	if value == nil {
		return b
	}
	if s, ok := value.(string); ok && b.isVersionAttribute(name) {
		if v, err := version.Parse(s); err == nil {
			value = v
		}
	}
	v, err := attrs.FromAny(value)
	if err != nil {
		b.fail(errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("attribute %q: %s", name, err.Error())).
			WithCause(err))
		return b
	}
	b.attributes[name] = v
	return b
}

func (b *Builder) AddAttributeValue(name string, value attrs.Value) *Builder {
	if value.IsValid() {
		b.attributes[name] = value
	}
	return b
}

func (b *Builder) AddAttributes(values map[string]any) *Builder {
	for name, value := range values {
		b.AddAttribute(name, value)
	}
	return b
}

func (b *Builder) isVersionAttribute(name string) bool {
	return name == types.AttrVersion || name == types.VersionAttribute(b.namespace)
}

// AddDirective sets a directive. A trailing ':' on the name, as written in
// manifest headers, is dropped.
func (b *Builder) AddDirective(name, value string) *Builder {
	name = strings.TrimSuffix(name, ":")
	if name == "" {
		return b
	}
	b.directives[name] = value
	return b
}

func (b *Builder) AddDirectives(values map[string]string) *Builder {
	for name, value := range values {
		b.AddDirective(name, value)
	}
	return b
}

func (b *Builder) SetResource(r *Resource) *Builder {
	b.resource = r
	return b
}

// Filter sets the filter directive.
func (b *Builder) Filter(f string) *Builder {
	return b.AddDirective(types.DirectiveFilter, f)
}

// From copies the attributes and directives of src into the builder.
func (b *Builder) From(src CapReq) *Builder {
	maps.Copy(b.attributes, src.Attributes())
	maps.Copy(b.directives, src.Directives())
	return b
}

// Err returns the first error recorded while adding attributes.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// fill validates the builder and writes its state into dst, which must
// not have been shared yet.
func (b *Builder) fill(dst *capReq, requireResource bool) error {
	if b.err != nil {
		return b.err
	}
	if strings.TrimSpace(b.namespace) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("namespace is required")
	}
	if requireResource && b.resource == nil {
		return ErrMissingResource
	}
	dst.namespace = b.namespace
	dst.directives = maps.Clone(b.directives)
	dst.attributes = b.attributes.Clone()
	dst.resource = b.resource
	return nil
}

func (b *Builder) buildCapability(requireResource bool) (*Capability, error) {
	c := &Capability{}
	if err := b.fill(&c.capReq, requireResource); err != nil {
		return nil, err
	}
	return c, nil
}

func (b *Builder) buildRequirement(requireResource bool) (*Requirement, error) {
	r := &Requirement{}
	if err := b.fill(&r.capReq, requireResource); err != nil {
		return nil, err
	}
	return r, nil
}

func (b *Builder) BuildCapability() (*Capability, error) {
	return b.buildCapability(true)
}

func (b *Builder) BuildRequirement() (*Requirement, error) {
	return b.buildRequirement(true)
}

// BuildSyntheticCapability builds a capability that belongs to no
// resource.
func (b *Builder) BuildSyntheticCapability() (*Capability, error) {
	return b.buildCapability(false)
}

func (b *Builder) BuildSyntheticRequirement() (*Requirement, error) {
	return b.buildRequirement(false)
}

// CloneCapability copies c, keeping its resource.
func CloneCapability(c *Capability) *Builder {
	return NewBuilder(c.Namespace()).From(c).SetResource(c.Resource())
}

func CloneRequirement(r *Requirement) *Builder {
	return NewBuilder(r.Namespace()).From(r).SetResource(r.Resource())
}

// CopyCapability rebinds a copy of c to resource r.
func CopyCapability(c *Capability, r *Resource) (*Capability, error) {
	return NewBuilder(c.Namespace()).From(c).SetResource(r).BuildCapability()
}

func CopyRequirement(q *Requirement, r *Resource) (*Requirement, error) {
	return NewBuilder(q.Namespace()).From(q).SetResource(r).BuildRequirement()
}
