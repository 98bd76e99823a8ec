package adapters

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"

	"capresolve/internal/types"
	"capresolve/internal/version"
)

// ConvertVersion maps a version written in the given scheme onto the
// major.minor.micro.qualifier model. An empty raw version is the lowest
// version in every scheme.
func ConvertVersion(scheme types.VersionScheme, raw string) (version.Version, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return version.Lowest, nil
	}
	switch scheme {
	case "", types.VersionSchemeOSGi:
		return convertOSGi(value)
	case types.VersionSchemeDeb:
		return convertDeb(value)
	case types.VersionSchemePEP440:
		return convertPEP440(value)
	case types.VersionSchemeSemver:
		return convertSemver(value)
	default:
		return version.Version{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown version scheme %q", scheme))
	}
}

func convertOSGi(value string) (version.Version, error) {
	if v, err := version.Parse(value); err == nil {
		return v, nil
	}
	return version.Parse(version.Cleanup(value))
}

// convertDeb drops the epoch. The upstream version supplies the numeric
// parts and any upstream suffix; the Debian revision is appended to the
// qualifier.
func convertDeb(value string) (version.Version, error) {
	if _, err := debversion.NewVersion(value); err != nil {
		return version.Version{}, invalidSchemeVersion(types.VersionSchemeDeb, value, err)
	}
	upstream := value
	if _, rest, found := strings.Cut(upstream, ":"); found {
		upstream = rest
	}
	revision := ""
	if idx := strings.LastIndex(upstream, "-"); idx >= 0 {
		upstream, revision = upstream[:idx], upstream[idx+1:]
	}
	v, err := version.Parse(version.Cleanup(upstream))
	if err != nil {
		return version.Version{}, invalidSchemeVersion(types.VersionSchemeDeb, value, err)
	}
	v.Qualifier = joinQualifier(v.Qualifier, revision)
	return v, nil
}

// convertPEP440 drops the epoch and local label. Pre, post and dev
// segments become the qualifier.
func convertPEP440(value string) (version.Version, error) {
	parsed, err := pep440.Parse(value)
	if err != nil {
		return version.Version{}, invalidSchemeVersion(types.VersionSchemePEP440, value, err)
	}
	base := withoutEpoch(parsed.BaseVersion())
	public := withoutEpoch(parsed.Public())
	v, err := version.Parse(version.Cleanup(base))
	if err != nil {
		return version.Version{}, invalidSchemeVersion(types.VersionSchemePEP440, value, err)
	}
	rest := strings.TrimLeft(strings.TrimPrefix(public, base), ".-_")
	v.Qualifier = joinQualifier(v.Qualifier, rest)
	return v, nil
}

func convertSemver(value string) (version.Version, error) {
	parsed, err := semver.NewVersion(value)
	if err != nil {
		return version.Version{}, invalidSchemeVersion(types.VersionSchemeSemver, value, err)
	}
	v := version.New(int(parsed.Major()), int(parsed.Minor()), int(parsed.Patch()))
	v.Qualifier = joinQualifier(parsed.Prerelease(), parsed.Metadata())
	return v, nil
}

func withoutEpoch(value string) string {
	if _, rest, found := strings.Cut(value, "!"); found {
		return rest
	}
	return value
}

func joinQualifier(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, version.SanitizeQualifier(p))
		}
	}
	return strings.Join(kept, "-")
}

func invalidSchemeVersion(scheme types.VersionScheme, value string, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid %s version %q", scheme, value)).
		WithCause(cause)
}

// versionConverter memoizes conversions for one scheme.
type versionConverter struct {
	scheme types.VersionScheme
	cache  map[string]version.Version
}

func newVersionConverter(scheme types.VersionScheme) *versionConverter {
	return &versionConverter{scheme: scheme, cache: map[string]version.Version{}}
}

func (c *versionConverter) convert(raw string) (version.Version, error) {
	if v, ok := c.cache[raw]; ok {
		return v, nil
	}
	v, err := ConvertVersion(c.scheme, raw)
	if err != nil {
		return version.Version{}, err
	}
	c.cache[raw] = v
	return v, nil
}
