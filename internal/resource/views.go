package resource

import (
	"strings"

	"github.com/opencontainers/go-digest"

	"capresolve/internal/attrs"
	"capresolve/internal/types"
	"capresolve/internal/version"
)

// Typed views over well-known namespaces. Each view is copied out of the
// attribute map once; the Of/View functions report false when the
// capability is in a different namespace.

type IdentityView struct {
	Name    string
	Version version.Version
	Type    string
}

type PackageCapabilityView struct {
	Package            string
	Version            version.Version
	BundleSymbolicName string
	BundleVersion      version.Version
	Uses               []string
	Mandatory          []string
}

type ContentView struct {
	Digest digest.Digest
	URL    string
	Size   int64
	MIME   string
}

type HostView struct {
	Name    string
	Version version.Version
}

type BundleView struct {
	Name    string
	Version version.Version
}

type ServiceView struct {
	ObjectClass []string
}

type EEView struct {
	Name     string
	Versions []version.Version
}

func IdentityOf(c *Capability) (IdentityView, bool) {
	if c == nil || c.namespace != types.NamespaceIdentity {
		return IdentityView{}, false
	}
	kind := stringAttr(c.attributes, types.AttrType)
	if kind == "" {
		kind = types.IdentityTypeBundle
	}
	return IdentityView{
		Name:    stringAttr(c.attributes, types.NamespaceIdentity),
		Version: versionAttr(c.attributes, types.AttrVersion),
		Type:    kind,
	}, true
}

func PackageView(c *Capability) (PackageCapabilityView, bool) {
	if c == nil || c.namespace != types.NamespacePackage {
		return PackageCapabilityView{}, false
	}
	return PackageCapabilityView{
		Package:            stringAttr(c.attributes, types.NamespacePackage),
		Version:            versionAttr(c.attributes, types.AttrVersion),
		BundleSymbolicName: stringAttr(c.attributes, types.AttrBundleSymName),
		BundleVersion:      versionAttr(c.attributes, types.AttrBundleVersion),
		Uses:               splitList(c.directives[types.DirectiveUses]),
		Mandatory:          splitList(c.directives[types.DirectiveMandatory]),
	}, true
}

func ContentOf(c *Capability) (ContentView, bool) {
	if c == nil || c.namespace != types.NamespaceContent {
		return ContentView{}, false
	}
	view := ContentView{
		URL:  stringAttr(c.attributes, types.AttrURL),
		MIME: stringAttr(c.attributes, types.AttrMIME),
	}
	if d, ok := parseContentDigest(stringAttr(c.attributes, types.NamespaceContent)); ok {
		view.Digest = d
	}
	if v, ok := c.attributes.Get(types.AttrSize); ok {
		view.Size, _ = v.Long()
	}
	return view, true
}

func HostOf(c *Capability) (HostView, bool) {
	if c == nil || c.namespace != types.NamespaceHost {
		return HostView{}, false
	}
	return HostView{
		Name:    stringAttr(c.attributes, types.NamespaceHost),
		Version: versionAttr(c.attributes, types.AttrBundleVersion),
	}, true
}

func BundleOf(c *Capability) (BundleView, bool) {
	if c == nil || c.namespace != types.NamespaceBundle {
		return BundleView{}, false
	}
	return BundleView{
		Name:    stringAttr(c.attributes, types.NamespaceBundle),
		Version: versionAttr(c.attributes, types.AttrBundleVersion),
	}, true
}

func ServiceOf(c *Capability) (ServiceView, bool) {
	if c == nil || c.namespace != types.NamespaceService {
		return ServiceView{}, false
	}
	var classes []string
	if v, ok := c.attributes.Get(types.AttrObjectClass); ok {
		classes = v.Strings()
	}
	return ServiceView{ObjectClass: classes}, true
}

func EEOf(c *Capability) (EEView, bool) {
	if c == nil || c.namespace != types.NamespaceEE {
		return EEView{}, false
	}
	view := EEView{Name: stringAttr(c.attributes, types.NamespaceEE)}
	v, ok := c.attributes.Get(types.AttrVersion)
	if !ok {
		return view, true
	}
	items := []attrs.Value{v}
	if list, isList := v.List(); isList {
		items = list
	}
	for _, item := range items {
		if ver, isVersion := item.Ver(); isVersion {
			view.Versions = append(view.Versions, ver)
		} else if ver, err := version.Parse(item.String()); err == nil {
			view.Versions = append(view.Versions, ver)
		}
	}
	return view, true
}

func stringAttr(m attrs.Map, key string) string {
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	return v.String()
}

// versionAttr reads key as a version. Missing or unparsable values read
// as the lowest version.
func versionAttr(m attrs.Map, key string) version.Version {
	v, ok := m.Get(key)
	if !ok {
		return version.Lowest
	}
	if ver, isVersion := v.Ver(); isVersion {
		return ver
	}
	ver, err := version.Parse(v.String())
	if err != nil {
		return version.Lowest
	}
	return ver
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
