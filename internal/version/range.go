package version

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Range is an interval of versions. A nil High means the range is
// unbounded above.
type Range struct {
	Low           Version
	LowInclusive  bool
	High          *Version
	HighInclusive bool
}

// AtLeast returns [low,∞).
func AtLeast(low Version) Range {
	return Range{Low: low, LowInclusive: true}
}

// Between returns [low,high).
func Between(low, high Version) Range {
	h := high
	return Range{Low: low, LowInclusive: true, High: &h}
}

// Exactly returns [v,v].
func Exactly(v Version) Range {
	h := v
	return Range{Low: v, LowInclusive: true, High: &h, HighInclusive: true}
}

// Any is [0.0.0,∞), the range that admits every version.
var Any = AtLeast(Lowest)

// ParseRange accepts the bracket forms "[a,b)", "(a,b]" and so on, or a
// bare version meaning "a and above".
func ParseRange(raw string) (Range, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Range{}, invalidRange(raw, "empty range")
	}
	first := value[0]
	if first != '[' && first != '(' {
		low, err := Parse(value)
		if err != nil {
			return Range{}, err
		}
		return AtLeast(low), nil
	}
	last := value[len(value)-1]
	if last != ']' && last != ')' {
		return Range{}, invalidRange(raw, "range must end with ']' or ')'")
	}
	lowRaw, highRaw, ok := strings.Cut(value[1:len(value)-1], ",")
	if !ok {
		return Range{}, invalidRange(raw, "range requires two bounds")
	}
	low, err := Parse(lowRaw)
	if err != nil {
		return Range{}, err
	}
	high, err := Parse(highRaw)
	if err != nil {
		return Range{}, err
	}
	r := Range{
		Low:           low,
		LowInclusive:  first == '[',
		High:          &high,
		HighInclusive: last == ']',
	}
	if high.LessThan(low) {
		return Range{}, invalidRange(raw, "low bound is above high bound")
	}
	if r.IsEmpty() {
		return Range{}, invalidRange(raw, "range is empty")
	}
	return r, nil
}

// MustParseRange panics on invalid input.
func MustParseRange(raw string) Range {
	r, err := ParseRange(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// IsRange reports whether raw parses as a range or a bare version.
func IsRange(raw string) bool {
	_, err := ParseRange(raw)
	return err == nil
}

func invalidRange(raw string, reason string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid version range %q: %s", raw, reason))
}

// Includes reports whether v lies inside the range.
func (r Range) Includes(v Version) bool {
	c := v.Compare(r.Low)
	if c < 0 || (c == 0 && !r.LowInclusive) {
		return false
	}
	if r.High == nil {
		return true
	}
	c = v.Compare(*r.High)
	return c < 0 || (c == 0 && r.HighInclusive)
}

// IsEmpty reports whether no version satisfies the range.
func (r Range) IsEmpty() bool {
	if r.High == nil {
		return false
	}
	c := r.Low.Compare(*r.High)
	if c > 0 {
		return true
	}
	return c == 0 && !(r.LowInclusive && r.HighInclusive)
}

// IsExact reports whether the range admits exactly one version.
func (r Range) IsExact() bool {
	return r.High != nil && r.LowInclusive && r.HighInclusive && r.Low.Equal(*r.High)
}

// IsAny reports whether the range is [0.0.0,∞).
func (r Range) IsAny() bool {
	return r.High == nil && r.LowInclusive && r.Low.Equal(Lowest)
}

// Intersect returns the overlap of two ranges. The result may be empty.
func (r Range) Intersect(o Range) Range {
	out := r
	switch c := o.Low.Compare(r.Low); {
	case c > 0:
		out.Low, out.LowInclusive = o.Low, o.LowInclusive
	case c == 0:
		out.LowInclusive = r.LowInclusive && o.LowInclusive
	}
	switch {
	case o.High == nil:
	case r.High == nil:
		h := *o.High
		out.High, out.HighInclusive = &h, o.HighInclusive
	default:
		switch c := o.High.Compare(*r.High); {
		case c < 0:
			h := *o.High
			out.High, out.HighInclusive = &h, o.HighInclusive
		case c == 0:
			out.HighInclusive = r.HighInclusive && o.HighInclusive
		}
	}
	return out
}

func (r Range) String() string {
	if r.High == nil {
		if r.LowInclusive {
			return r.Low.String()
		}
		return "(" + r.Low.String() + ",∞)"
	}
	var b strings.Builder
	if r.LowInclusive {
		b.WriteByte('[')
	} else {
		b.WriteByte('(')
	}
	b.WriteString(r.Low.String())
	b.WriteByte(',')
	b.WriteString(r.High.String())
	if r.HighInclusive {
		b.WriteByte(']')
	} else {
		b.WriteByte(')')
	}
	return b.String()
}

// ToFilter renders the range as an LDAP filter over attr. The range
// [0.0.0,∞) renders as "(&)", the filter that is always true.
func (r Range) ToFilter(attr string) string {
	if r.IsAny() {
		return "(&)"
	}
	lower := lowerClause(attr, r.Low, r.LowInclusive)
	if r.High == nil {
		return lower
	}
	var upper string
	if r.HighInclusive {
		upper = "(" + attr + "<=" + r.High.String() + ")"
	} else {
		upper = "(!(" + attr + ">=" + r.High.String() + "))"
	}
	return "(&" + lower + upper + ")"
}

func lowerClause(attr string, low Version, inclusive bool) string {
	if inclusive {
		return "(" + attr + ">=" + low.String() + ")"
	}
	return "(!(" + attr + "<=" + low.String() + "))"
}
