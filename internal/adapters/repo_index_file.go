package adapters

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"capresolve/internal/attrs"
	"capresolve/internal/ports"
	"capresolve/internal/resource"
	"capresolve/internal/shared"
	"capresolve/internal/types"
)

// RepoIndexFileAdapter serves a YAML repository index as a repository.
// The file is read on first use.
type RepoIndexFileAdapter struct {
	Path        string
	name        string
	resources   []*resource.Resource
	byNamespace map[string][]*resource.Capability
	loaded      bool
}

func NewRepoIndexFileAdapter(path string) *RepoIndexFileAdapter {
	return &RepoIndexFileAdapter{Path: path}
}

// Name is the index's declared name, or the file name without extension
// when the index declares none or cannot be read.
func (a *RepoIndexFileAdapter) Name() string {
	if err := a.Load(); err == nil && a.name != "" {
		return a.name
	}
	base := filepath.Base(a.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (a *RepoIndexFileAdapter) Resources() ([]*resource.Resource, error) {
	if err := a.Load(); err != nil {
		return nil, err
	}
	return slices.Clone(a.resources), nil
}

func (a *RepoIndexFileAdapter) FindProviders(ctx context.Context, reqs []*resource.Requirement) (map[*resource.Requirement][]*resource.Capability, error) {
	if err := a.Load(); err != nil {
		return nil, err
	}
	out := make(map[*resource.Requirement][]*resource.Capability, len(reqs))
	for _, req := range reqs {
		for _, c := range a.byNamespace[req.Namespace()] {
			if req.Matches(c) {
				out[req] = append(out[req], c)
			}
		}
	}
	log.Ctx(ctx).Debug().Str("repository", a.name).Int("requirements", len(reqs)).Msg("repository queried")
	return out, nil
}

// Load reads and converts the index once.
func (a *RepoIndexFileAdapter) Load() error {
	if a.loaded {
		return nil
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("repo index file not found").
			WithCause(err)
	}
	var idx types.RepoIndexFile
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid repo index format").
			WithCause(err)
	}
	resources, err := indexResources(idx)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid repo index %s", a.Path)).
			WithCause(err)
	}
	a.name = idx.Name
	a.resources = resources
	a.byNamespace = map[string][]*resource.Capability{}
	for _, r := range resources {
		for _, c := range r.Capabilities("") {
			a.byNamespace[c.Namespace()] = append(a.byNamespace[c.Namespace()], c)
		}
	}
	a.loaded = true
	return nil
}

func indexResources(idx types.RepoIndexFile) ([]*resource.Resource, error) {
	var out []*resource.Resource
	conv := newVersionConverter(idx.Scheme)
	for _, entry := range idx.Resources {
		r, err := buildEntryResource(entry, conv)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	deb := newVersionConverter(types.VersionSchemeDeb)
	for _, name := range slices.Sorted(maps.Keys(idx.Apt)) {
		for _, entry := range idx.Apt[name] {
			if entry.Version == "" {
				continue
			}
			r, err := aptResource(name, entry, deb)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}

	pep := newVersionConverter(types.VersionSchemePEP440)
	for _, name := range slices.Sorted(maps.Keys(idx.Pip)) {
		for _, ver := range idx.Pip[name] {
			r, err := pipResource(name, ver, pep)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}
	return out, nil
}

// buildEntryResource converts a declared resource.
func buildEntryResource(entry types.ResourceEntry, conv *versionConverter) (*resource.Resource, error) {
	if strings.TrimSpace(entry.Identity) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("resource entry has no identity")
	}
	ver, err := conv.convert(entry.Version)
	if err != nil {
		return nil, err
	}
	rb := resource.NewResourceBuilder()
	if err := rb.AddIdentity(entry.Identity, ver.String(), entry.Type); err != nil {
		return nil, err
	}
	switch {
	case entry.SHA256 != "":
		d := digest.NewDigestFromEncoded(digest.SHA256, strings.ToLower(entry.SHA256))
		if err := rb.AddContent(d, entry.URL, entry.Size, ""); err != nil {
			return nil, err
		}
	case entry.URL != "":
		if err := rb.AddCapability(resource.NewBuilder(types.NamespaceContent).AddAttribute(types.AttrURL, entry.URL)); err != nil {
			return nil, err
		}
	}
	for _, c := range entry.Capabilities {
		b := resource.NewBuilder(c.Namespace).AddDirectives(c.Directives)
		if err := addEntryAttributes(b, c.Attributes, conv); err != nil {
			return nil, entryError(entry.Identity, "capability "+c.Namespace, err)
		}
		if err := rb.AddCapability(b); err != nil {
			return nil, err
		}
	}
	for _, q := range entry.Requirements {
		b := resource.NewBuilder(q.Namespace).AddDirectives(q.Directives)
		if q.Filter != "" {
			b.Filter(q.Filter)
		}
		if err := addEntryAttributes(b, q.Attributes, conv); err != nil {
			return nil, entryError(entry.Identity, "requirement "+q.Namespace, err)
		}
		if err := rb.AddRequirement(b); err != nil {
			return nil, err
		}
	}
	return rb.Build()
}

func entryError(identity, what string, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("resource %s: %s: %s", identity, what, cause.Error())).
		WithCause(cause)
}

// addEntryAttributes adds YAML attributes. "name:Type" keys go through
// the typed parser; version attributes are converted with conv.
func addEntryAttributes(b *resource.Builder, values map[string]any, conv *versionConverter) error {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		raw := values[key]
		name, typ := attrs.SplitTypedKey(key)
		switch {
		case typ != "":
			v, err := attrs.ParseTyped(typ, scalarText(raw))
			if err != nil {
				return err
			}
			b.AddAttributeValue(name, v)
		case name == types.AttrVersion || name == types.VersionAttribute(b.Namespace()):
			v, err := conv.convert(scalarText(raw))
			if err != nil {
				return err
			}
			b.AddAttributeValue(name, attrs.Version(v))
		default:
			b.AddAttribute(name, raw)
		}
	}
	return b.Err()
}

// scalarText renders a YAML scalar, or a sequence as a comma separated
// list.
func scalarText(raw any) string {
	if items, ok := raw.([]any); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(raw)
}

// aptResource turns one Debian package version into a resource with a
// deb.package capability per name it answers to and a requirement per
// Depends or Pre-Depends group.
func aptResource(name string, entry types.AptPackageVersion, conv *versionConverter) (*resource.Resource, error) {
	ver, err := conv.convert(entry.Version)
	if err != nil {
		return nil, err
	}
	ns := types.DependencyTypeApt.Namespace()
	rb := resource.NewResourceBuilder()
	if err := rb.AddIdentity(name, ver.String(), string(types.DependencyTypeApt)); err != nil {
		return nil, err
	}
	if err := rb.AddCapability(resource.NewBuilder(ns).
		AddAttribute(ns, name).
		AddAttributeValue(types.AttrVersion, attrs.Version(ver))); err != nil {
		return nil, err
	}
	for _, provide := range entry.Provides {
		spec, ok := parseAptDepSpec(provide)
		if !ok {
			continue
		}
		b := resource.NewBuilder(ns).AddAttribute(ns, spec.Name)
		if spec.Op == types.ConstraintOpEq {
			pv, err := conv.convert(spec.Version)
			if err != nil {
				return nil, err
			}
			b.AddAttributeValue(types.AttrVersion, attrs.Version(pv))
		}
		if err := rb.AddCapability(b); err != nil {
			return nil, err
		}
	}
	for _, group := range slices.Concat(entry.PreDepends, entry.Depends) {
		dep := parseAptDependency(group)
		if len(dep.Alternatives) == 0 {
			continue
		}
		f, err := dependencyFilter(dep, conv)
		if err != nil {
			return nil, err
		}
		if err := rb.AddRequirement(resource.NewBuilder(ns).Filter(f)); err != nil {
			return nil, err
		}
	}
	return rb.Build()
}

// pipResource publishes one Python distribution version under its PEP 503
// normalized name.
func pipResource(name, ver string, conv *versionConverter) (*resource.Resource, error) {
	v, err := conv.convert(ver)
	if err != nil {
		return nil, err
	}
	normalized := shared.NormalizePipName(name)
	ns := types.DependencyTypePip.Namespace()
	rb := resource.NewResourceBuilder()
	if err := rb.AddIdentity(normalized, v.String(), string(types.DependencyTypePip)); err != nil {
		return nil, err
	}
	if err := rb.AddCapability(resource.NewBuilder(ns).
		AddAttribute(ns, normalized).
		AddAttributeValue(types.AttrVersion, attrs.Version(v))); err != nil {
		return nil, err
	}
	return rb.Build()
}

var _ ports.Repository = (*RepoIndexFileAdapter)(nil)
