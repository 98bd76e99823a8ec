package resolve

import (
	"slices"

	"capresolve/internal/resource"
	"capresolve/internal/types"
)

// buildSystemResource creates the synthetic system.bundle resource. It
// carries the execution environment, the system packages, any configured
// system capabilities and, when set, a copy of the framework's
// capabilities.
func buildSystemResource(opts Options, framework *resource.Resource) (*resource.Resource, error) {
	rb := resource.NewResourceBuilder()
	if err := rb.AddIdentity(SystemBundleName, "", types.IdentityTypeBundle); err != nil {
		return nil, err
	}
	if opts.EE != nil && opts.EE.Name != "" {
		if err := rb.AddExecutionEnvironment(opts.EE.Name, opts.EE.Version); err != nil {
			return nil, err
		}
	}
	for _, pkg := range opts.SystemPackages {
		params := map[string]string{}
		if pkg.Version != "" {
			params[types.AttrVersion] = pkg.Version
		}
		if err := rb.AddExportPackage(pkg.Name, params); err != nil {
			return nil, err
		}
	}
	if err := rb.AddCapabilities(opts.SystemCapabilities); err != nil {
		return nil, err
	}
	if framework != nil {
		if err := SetFramework(rb, framework); err != nil {
			return nil, err
		}
	}
	return rb.Build()
}

// SetFramework copies the capabilities of framework into the system
// resource under construction, except its content. Bundle and host
// capabilities also answer to the name system.bundle; the system resource
// already carries that identity next to the framework's own.
func SetFramework(system *resource.ResourceBuilder, framework *resource.Resource) error {
	for _, c := range framework.Capabilities("") {
		b := resource.CloneCapability(c)
		switch ns := c.Namespace(); ns {
		case types.NamespaceContent:
			continue
		case types.NamespaceBundle, types.NamespaceHost:
			names := []string{}
			if v, ok := c.Attribute(ns); ok {
				names = v.Strings()
			}
			if !slices.Contains(names, SystemBundleName) {
				names = append(names, SystemBundleName)
			}
			b.AddAttribute(ns, names)
		}
		if err := system.AddCapability(b); err != nil {
			return err
		}
	}
	return nil
}
