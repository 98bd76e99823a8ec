package resource

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/opencontainers/go-digest"

	"capresolve/internal/attrs"
	"capresolve/internal/types"
	"capresolve/internal/version"
)

// ErrResourceAlreadyBuilt is returned by every ResourceBuilder call made
// after Build.
var ErrResourceAlreadyBuilt error = errbuilder.New().
	WithCode(errbuilder.CodeFailedPrecondition).
	WithMsg("resource already built")

// ResourceBuilder collects capability and requirement builders and
// produces one Resource. It can build exactly once.
type ResourceBuilder struct {
	capabilities []*Builder
	requirements []*Builder
	supporting   []*Resource
	built        bool
}

func NewResourceBuilder() *ResourceBuilder {
	return &ResourceBuilder{}
}

// AddCapability snapshots b; later changes to b do not affect the
// resource.
func (rb *ResourceBuilder) AddCapability(b *Builder) error {
	if rb.built {
		return ErrResourceAlreadyBuilt
	}
	if b.Err() != nil {
		return b.Err()
	}
	rb.capabilities = append(rb.capabilities, b.snapshot())
	return nil
}

func (rb *ResourceBuilder) AddRequirement(b *Builder) error {
	if rb.built {
		return ErrResourceAlreadyBuilt
	}
	if b.Err() != nil {
		return b.Err()
	}
	rb.requirements = append(rb.requirements, b.snapshot())
	return nil
}

func (rb *ResourceBuilder) AddCapabilities(builders []*Builder) error {
	for _, b := range builders {
		if err := rb.AddCapability(b); err != nil {
			return err
		}
	}
	return nil
}

func (rb *ResourceBuilder) AddRequirements(builders []*Builder) error {
	for _, b := range builders {
		if err := rb.AddRequirement(b); err != nil {
			return err
		}
	}
	return nil
}

func (rb *ResourceBuilder) AddSupportingResource(r *Resource) error {
	if rb.built {
		return ErrResourceAlreadyBuilt
	}
	rb.supporting = append(rb.supporting, r)
	return nil
}

// Build binds every collected capability and requirement to a new
// Resource. Duplicates are dropped and wiring namespaces sorted first.
func (rb *ResourceBuilder) Build() (*Resource, error) {
	if rb.built {
		return nil, ErrResourceAlreadyBuilt
	}
	rb.built = true

	r := &Resource{
		seq:        resourceSeq.Add(1),
		supporting: slices.Clone(rb.supporting),
		capsByNS:   map[string][]*Capability{},
		reqsByNS:   map[string][]*Requirement{},
	}
	caps := make([]*Capability, 0, len(rb.capabilities))
	for _, b := range rb.capabilities {
		c, err := b.SetResource(r).BuildCapability()
		if err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	reqs := make([]*Requirement, 0, len(rb.requirements))
	for _, b := range rb.requirements {
		q, err := b.SetResource(r).BuildRequirement()
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, q)
	}
	r.capabilities = orderCapabilities(caps)
	r.requirements = orderRequirements(reqs)
	for _, c := range r.capabilities {
		r.capsByNS[c.namespace] = append(r.capsByNS[c.namespace], c)
	}
	for _, q := range r.requirements {
		r.reqsByNS[q.namespace] = append(r.reqsByNS[q.namespace], q)
	}
	r.locations = contentLocations(r.capabilities)
	return r, nil
}

func (b *Builder) snapshot() *Builder {
	return &Builder{
		namespace:  b.namespace,
		attributes: b.attributes.Clone(),
		directives: maps.Clone(b.directives),
	}
}

// ---------------------------------------------------------------------------
// Header helpers
// ---------------------------------------------------------------------------

// applyHeaderAttributes adds manifest style parameters: "name:=value" is a
// directive, "name:Type=value" a typed attribute, anything else a plain
// attribute.
func applyHeaderAttributes(b *Builder, params map[string]string) error {
	for _, key := range slices.Sorted(maps.Keys(params)) {
		value := params[key]
		if strings.HasSuffix(key, ":") {
			b.AddDirective(key, value)
			continue
		}
		name, typ := attrs.SplitTypedKey(key)
		if typ == "" {
			b.AddAttribute(name, value)
			continue
		}
		v, err := attrs.ParseTyped(typ, value)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("attribute %q: %s", key, err.Error())).
				WithCause(err)
		}
		b.AddAttributeValue(name, v)
	}
	return b.Err()
}

// directivesOf extracts the "name:" entries of params.
func directivesOf(params map[string]string) map[string]string {
	out := map[string]string{}
	for key, value := range params {
		if strings.HasSuffix(key, ":") {
			out[key] = value
		}
	}
	return out
}

// matchingAttributes returns the plain attributes of params except skip.
func matchingAttributes(params map[string]string, skip ...string) map[string]string {
	out := map[string]string{}
	for key, value := range params {
		if strings.HasSuffix(key, ":") || slices.Contains(skip, key) {
			continue
		}
		name, _ := attrs.SplitTypedKey(key)
		out[name] = value
	}
	return out
}

func (rb *ResourceBuilder) AddExportPackage(name string, params map[string]string) error {
	b := NewBuilder(types.NamespacePackage).AddAttribute(types.NamespacePackage, name)
	if err := applyHeaderAttributes(b, params); err != nil {
		return err
	}
	return rb.AddCapability(b)
}

// AddImportPackage keeps the header's directives, so resolution:=optional
// marks the requirement optional.
func (rb *ResourceBuilder) AddImportPackage(name string, params map[string]string) error {
	b := NewBuilder(types.NamespacePackage).
		AddDirectives(directivesOf(params)).
		AddFilter(types.NamespacePackage, name, params[types.AttrVersion], matchingAttributes(params, types.AttrVersion))
	return rb.AddRequirement(b)
}

func (rb *ResourceBuilder) AddRequireBundle(bsn string, params map[string]string) error {
	b := NewBuilder(types.NamespaceBundle).
		AddDirectives(directivesOf(params)).
		AddFilter(types.NamespaceBundle, bsn, params[types.AttrBundleVersion], matchingAttributes(params, types.AttrBundleVersion))
	return rb.AddRequirement(b)
}

func (rb *ResourceBuilder) AddFragmentHost(bsn, versionRange string) error {
	return rb.AddRequirement(NewSimpleRequirement(types.NamespaceHost, bsn, versionRange))
}

func (rb *ResourceBuilder) AddExecutionEnvironment(name, ver string) error {
	b := NewBuilder(types.NamespaceEE).AddAttribute(types.NamespaceEE, name)
	if ver != "" {
		b.AddAttribute(types.AttrVersion, ver)
	}
	return rb.AddCapability(b)
}

func (rb *ResourceBuilder) AddIdentity(name, ver, kind string) error {
	if kind == "" {
		kind = types.IdentityTypeBundle
	}
	if ver == "" {
		ver = version.Lowest.String()
	}
	b := NewBuilder(types.NamespaceIdentity).
		AddAttribute(types.NamespaceIdentity, name).
		AddAttribute(types.AttrVersion, ver).
		AddAttribute(types.AttrType, kind)
	return rb.AddCapability(b)
}

// AddContent adds an osgi.content capability. The content attribute holds
// the hex encoded digest.
func (rb *ResourceBuilder) AddContent(d digest.Digest, url string, size int64, mime string) error {
	if err := d.Validate(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid content digest %q", d)).
			WithCause(err)
	}
	b := NewBuilder(types.NamespaceContent).
		AddAttribute(types.NamespaceContent, d.Encoded()).
		AddAttribute(types.AttrURL, url)
	if size > 0 {
		b.AddAttribute(types.AttrSize, size)
	}
	if mime != "" {
		b.AddAttribute(types.AttrMIME, mime)
	}
	return rb.AddCapability(b)
}

// CopyCapabilities adds every capability of r outside ignoreNamespaces.
func (rb *ResourceBuilder) CopyCapabilities(ignoreNamespaces []string, r *Resource) error {
	for _, c := range r.Capabilities("") {
		if slices.Contains(ignoreNamespaces, c.Namespace()) {
			continue
		}
		if err := rb.AddCapability(CloneCapability(c)); err != nil {
			return err
		}
	}
	return nil
}

// AddManifest adds the capabilities and requirements a manifest source
// derives.
func (rb *ResourceBuilder) AddManifest(src interface {
	CapabilitiesAndRequirements() ([]*Builder, []*Builder, error)
}) error {
	caps, reqs, err := src.CapabilitiesAndRequirements()
	if err != nil {
		return err
	}
	if err := rb.AddCapabilities(caps); err != nil {
		return err
	}
	return rb.AddRequirements(reqs)
}
