package attrs

import (
	"strconv"
	"strings"
	"unicode"

	"capresolve/internal/version"
)

// Op is a filter comparison operator.
type Op int

const (
	OpEqual Op = iota
	OpApprox
	OpGreaterEqual
	OpLessEqual
)

func (o Op) String() string {
	switch o {
	case OpApprox:
		return "~="
	case OpGreaterEqual:
		return ">="
	case OpLessEqual:
		return "<="
	default:
		return "="
	}
}

// Coerce parses literal as a value of the target kind. It reports false
// when the literal cannot be read as that kind; callers treat that as a
// non-match.
func Coerce(target Kind, literal string) (Value, bool) {
	switch target {
	case KindString:
		return String(literal), true
	case KindLong:
		n, err := strconv.ParseInt(strings.TrimSpace(literal), 10, 64)
		if err != nil {
			return Value{}, false
		}
		return Int(n), true
	case KindDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(literal), 64)
		if err != nil {
			return Value{}, false
		}
		return Float(f), true
	case KindBool:
		switch strings.ToLower(strings.TrimSpace(literal)) {
		case "true":
			return Boolean(true), true
		case "false":
			return Boolean(false), true
		}
		return Value{}, false
	case KindVersion:
		v, err := version.Parse(literal)
		if err != nil {
			return Value{}, false
		}
		return Version(v), true
	default:
		return Value{}, false
	}
}

// Compare matches v against a filter literal with op. Lists match when
// any element matches. Invalid values never match.
func Compare(v Value, op Op, literal string) bool {
	return v.anyScalar(func(item Value) bool {
		return compareScalar(item, op, literal)
	})
}

func compareScalar(v Value, op Op, literal string) bool {
	if v.kind == KindString && op == OpApprox {
		return strings.EqualFold(stripSpace(v.str), stripSpace(literal))
	}
	if op == OpApprox {
		op = OpEqual
	}
	if v.kind == KindBool && op != OpEqual {
		return false
	}
	other, ok := Coerce(v.kind, literal)
	if !ok {
		return false
	}
	c, ok := order(v, other)
	if !ok {
		return false
	}
	switch op {
	case OpEqual:
		return c == 0
	case OpGreaterEqual:
		return c >= 0
	case OpLessEqual:
		return c <= 0
	}
	return false
}

// order compares two scalars of the same kind.
func order(a, b Value) (int, bool) {
	switch a.kind {
	case KindString:
		return strings.Compare(a.str, b.str), true
	case KindLong:
		return cmpOrdered(a.num, b.num), true
	case KindDouble:
		return cmpOrdered(a.dbl, b.dbl), true
	case KindVersion:
		return a.ver.Compare(b.ver), true
	case KindBool:
		if a.flag == b.flag {
			return 0, true
		}
		return 1, true
	}
	return 0, false
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
