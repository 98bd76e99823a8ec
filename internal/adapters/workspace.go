package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"capresolve/internal/ports"
	"capresolve/internal/resource"
	"capresolve/internal/types"
)

const (
	WorkspaceRepositoryName  = "workspace"
	ResourceDescriptorSuffix = ".resource.yaml"
	descriptorMIME           = "application/yaml"
)

// WorkspaceAdapter finds "*.resource.yaml" descriptors below its roots
// and serves the described resources as a repository. Descriptors are
// derived through the resource cache.
type WorkspaceAdapter struct {
	Roots []string
	Cache *ResourceCache

	resources   []*resource.Resource
	byNamespace map[string][]*resource.Capability
	loaded      bool
}

func NewWorkspaceAdapter(cache *ResourceCache, roots ...string) *WorkspaceAdapter {
	return &WorkspaceAdapter{Roots: roots, Cache: cache}
}

func (a *WorkspaceAdapter) Name() string { return WorkspaceRepositoryName }

// FindDescriptors returns every descriptor below root in walk order.
func (a *WorkspaceAdapter) FindDescriptors(root string) ([]string, error) {
	if root == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("workspace root is empty")
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && shouldSkipWorkspaceDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ResourceDescriptorSuffix) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan workspace").
			WithCause(err)
	}
	return paths, nil
}

func shouldSkipWorkspaceDir(name string) bool {
	switch name {
	case ".git", "build", "out", "vendor":
		return true
	default:
		return false
	}
}

// Resources loads the workspace if needed and returns its resources.
func (a *WorkspaceAdapter) Resources(ctx context.Context) ([]*resource.Resource, error) {
	if err := a.Load(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(a.resources), nil
}

func (a *WorkspaceAdapter) FindProviders(ctx context.Context, reqs []*resource.Requirement) (map[*resource.Requirement][]*resource.Capability, error) {
	if err := a.Load(ctx); err != nil {
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
	return out, nil
}

// Load scans every root once.
func (a *WorkspaceAdapter) Load(ctx context.Context) error {
	if a.loaded {
		return nil
	}
	if a.Cache == nil {
		a.Cache = NewResourceCache(nil)
	}
	var resources []*resource.Resource
	for _, root := range a.Roots {
		paths, err := a.FindDescriptors(root)
		if err != nil {
			return err
		}
		for _, path := range paths {
			r, err := a.Cache.Get(ctx, path, DeriveDescriptorResource)
			if err != nil {
				return err
			}
			resources = append(resources, r)
		}
	}
	a.resources = resources
	a.byNamespace = map[string][]*resource.Capability{}
	for _, r := range resources {
		for _, c := range r.Capabilities("") {
			a.byNamespace[c.Namespace()] = append(a.byNamespace[c.Namespace()], c)
		}
	}
	a.loaded = true
	log.Ctx(ctx).Debug().Strs("roots", a.Roots).Int("resources", len(resources)).Msg("workspace loaded")
	return nil
}

// DeriveDescriptorResource reads a descriptor file and builds its
// resource. The file's own digest is published as osgi.content unless the
// descriptor names its content.
func DeriveDescriptorResource(_ context.Context, path string) (*resource.Resource, error) {
	src, err := LoadDescriptorSource(path)
	if err != nil {
		return nil, err
	}
	rb := resource.NewResourceBuilder()
	if err := rb.AddManifest(src); err != nil {
		return nil, err
	}
	return rb.Build()
}

// DescriptorSource derives capabilities and requirements from one
// resource descriptor.
type DescriptorSource struct {
	Path       string
	Descriptor types.ResourceDescriptor
	Digest     digest.Digest
	Size       int64
}

func LoadDescriptorSource(path string) (DescriptorSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DescriptorSource{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("resource descriptor not found").
			WithCause(err)
	}
	d, err := digest.Canonical.FromReader(bytes.NewReader(data))
	if err != nil {
		return DescriptorSource{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to digest resource descriptor").
			WithCause(err)
	}
	var desc types.ResourceDescriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return DescriptorSource{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid resource descriptor %s", path)).
			WithCause(err)
	}
	return DescriptorSource{Path: path, Descriptor: desc, Digest: d, Size: int64(len(data))}, nil
}

func (s DescriptorSource) CapabilitiesAndRequirements() ([]*resource.Builder, []*resource.Builder, error) {
	entry := s.Descriptor.ResourceEntry
	ownContent := entry.SHA256 == "" && entry.URL == "" && s.Digest != ""
	if ownContent {
		entry.SHA256 = s.Digest.Encoded()
		entry.URL = fileURL(s.Path)
		entry.Size = s.Size
	}
	r, err := buildEntryResource(entry, newVersionConverter(s.Descriptor.Scheme))
	if err != nil {
		return nil, nil, err
	}
	caps := make([]*resource.Builder, 0, len(r.Capabilities("")))
	for _, c := range r.Capabilities("") {
		b := resource.CloneCapability(c)
		if ownContent && c.Namespace() == types.NamespaceContent {
			b.AddAttribute(types.AttrMIME, descriptorMIME)
		}
		caps = append(caps, b)
	}
	reqs := make([]*resource.Builder, 0, len(r.Requirements("")))
	for _, q := range r.Requirements("") {
		reqs = append(reqs, resource.CloneRequirement(q))
	}
	return caps, reqs, nil
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}

var (
	_ ports.Repository     = (*WorkspaceAdapter)(nil)
	_ ports.WorkspacePort  = (*WorkspaceAdapter)(nil)
	_ ports.ManifestSource = DescriptorSource{}
)
