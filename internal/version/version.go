// Package version implements the four-part module version and the
// interval type used by requirement filters.
package version

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Version is a major.minor.micro.qualifier module version. The empty
// qualifier sorts before every non-empty one.
type Version struct {
	Major     int
	Minor     int
	Micro     int
	Qualifier string
}

var (
	// Lowest is the smallest version, 0.0.0.
	Lowest = Version{}
	// Highest compares greater than every parseable version.
	Highest = Version{Major: math.MaxInt32, Minor: math.MaxInt32, Micro: math.MaxInt32, Qualifier: "￿"}
)

var strictPattern = regexp.MustCompile(`^(\d{1,9})(\.(\d{1,9})(\.(\d{1,9})(\.([-_0-9A-Za-z]+))?)?)?$`)

// New builds a version without a qualifier.
func New(major, minor, micro int) Version {
	return Version{Major: major, Minor: minor, Micro: micro}
}

// Parse reads a strict version string. Missing minor and micro parts
// default to zero.
func Parse(raw string) (Version, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Version{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("empty version")
	}
	m := strictPattern.FindStringSubmatch(value)
	if m == nil {
		return Version{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid syntax for version: %s", value))
	}
	v := Version{Qualifier: m[7]}
	v.Major, _ = strconv.Atoi(m[1])
	if m[3] != "" {
		v.Minor, _ = strconv.Atoi(m[3])
	}
	if m[5] != "" {
		v.Micro, _ = strconv.Atoi(m[5])
	}
	return v, nil
}

// ParseOrLowest is Parse with the empty string mapped to Lowest.
func ParseOrLowest(raw string) (Version, error) {
	if strings.TrimSpace(raw) == "" {
		return Lowest, nil
	}
	return Parse(raw)
}

// MustParse panics on invalid input. Intended for constants and tests.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmpInt(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpInt(v.Minor, o.Minor)
	case v.Micro != o.Micro:
		return cmpInt(v.Micro, o.Micro)
	}
	return strings.Compare(v.Qualifier, o.Qualifier)
}

func (v Version) Equal(o Version) bool    { return v.Compare(o) == 0 }
func (v Version) LessThan(o Version) bool { return v.Compare(o) < 0 }

// WithoutQualifier drops the qualifier.
func (v Version) WithoutQualifier() Version {
	return Version{Major: v.Major, Minor: v.Minor, Micro: v.Micro}
}

// BumpMinor returns the first version of the next minor line.
func (v Version) BumpMinor() Version {
	return Version{Major: v.Major, Minor: v.Minor + 1}
}

// BumpMajor returns the first version of the next major line.
func (v Version) BumpMajor() Version {
	return Version{Major: v.Major + 1}
}

func (v Version) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(v.Major))
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(v.Minor))
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(v.Micro))
	if v.Qualifier != "" {
		b.WriteByte('.')
		b.WriteString(v.Qualifier)
	}
	return b.String()
}

// MarshalText renders the canonical form.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText accepts the strict form.
func (v *Version) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
