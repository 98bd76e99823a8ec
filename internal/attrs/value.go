// Package attrs holds the typed attribute values carried by capabilities
// and requirements, and the lenient coercion used when a filter literal
// is compared against them.
package attrs

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"capresolve/internal/version"
)

// Kind enumerates the value variants.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindLong
	KindDouble
	KindBool
	KindVersion
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindLong:
		return "Long"
	case KindDouble:
		return "Double"
	case KindBool:
		return "Boolean"
	case KindVersion:
		return "Version"
	case KindList:
		return "List"
	default:
		return "Invalid"
	}
}

// ErrNilValue is returned by FromAny for a nil input.
var ErrNilValue = errors.New("nil attribute value")

// Value is an immutable attribute value. The zero Value is invalid and
// behaves like an absent attribute.
type Value struct {
	kind  Kind
	str   string
	num   int64
	dbl   float64
	flag  bool
	ver   version.Version
	items []Value
	elem  Kind
}

func String(s string) Value           { return Value{kind: KindString, str: s} }
func Int(n int64) Value               { return Value{kind: KindLong, num: n} }
func Float(f float64) Value           { return Value{kind: KindDouble, dbl: f} }
func Boolean(b bool) Value            { return Value{kind: KindBool, flag: b} }
func Version(v version.Version) Value { return Value{kind: KindVersion, ver: v} }

// ListOf builds a homogeneous list. Nested lists and mixed element
// kinds are rejected.
func ListOf(items ...Value) (Value, error) {
	elem := KindInvalid
	for _, item := range items {
		if item.kind == KindList {
			return Value{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("list attributes cannot contain lists")
		}
		if item.kind == KindInvalid {
			return Value{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("list attributes cannot contain invalid values")
		}
		if elem == KindInvalid {
			elem = item.kind
			continue
		}
		if item.kind != elem {
			return Value{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("mixed list element kinds %s and %s", elem, item.kind))
		}
	}
	return Value{kind: KindList, items: slices.Clone(items), elem: elem}, nil
}

// FromAny converts a Go value into a Value. Slices become lists.
func FromAny(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Value{}, ErrNilValue
	case Value:
		return v, nil
	case string:
		return String(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return Int(int64(v)), nil //nolint:gosec // attribute values are bounded by manifest sizes
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case bool:
		return Boolean(v), nil
	case version.Version:
		return Version(v), nil
	case []Value:
		return ListOf(v...)
	case []string:
		return listFrom(v, String)
	case []int:
		return listFrom(v, func(n int) Value { return Int(int64(n)) })
	case []int64:
		return listFrom(v, Int)
	case []float64:
		return listFrom(v, Float)
	case []bool:
		return listFrom(v, Boolean)
	case []version.Version:
		return listFrom(v, Version)
	case []any:
		items := make([]Value, 0, len(v))
		for _, item := range v {
			converted, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, converted)
		}
		return ListOf(items...)
	default:
		return Value{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported attribute type %T", raw))
	}
}

func listFrom[T any](in []T, conv func(T) Value) (Value, error) {
	items := make([]Value, 0, len(in))
	for _, item := range in {
		items = append(items, conv(item))
	}
	return ListOf(items...)
}

func (v Value) Kind() Kind { return v.kind }

// ElemKind is the element kind of a list, KindInvalid for an empty list
// or a scalar.
func (v Value) ElemKind() Kind { return v.elem }

func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) Str() (string, bool)          { return v.str, v.kind == KindString }
func (v Value) Long() (int64, bool)          { return v.num, v.kind == KindLong }
func (v Value) Double() (float64, bool)      { return v.dbl, v.kind == KindDouble }
func (v Value) Bool() (bool, bool)           { return v.flag, v.kind == KindBool }
func (v Value) Ver() (version.Version, bool) { return v.ver, v.kind == KindVersion }
func (v Value) List() ([]Value, bool)        { return slices.Clone(v.items), v.kind == KindList }
func (v Value) Len() int                     { return len(v.items) }
func (v Value) Index(i int) Value            { return v.items[i] }

// anyScalar applies fn to the value, or to every element of a list,
// and reports whether any call returned true.
func (v Value) anyScalar(fn func(Value) bool) bool {
	if v.kind != KindList {
		return fn(v)
	}
	for _, item := range v.items {
		if fn(item) {
			return true
		}
	}
	return false
}

// Strings flattens a String or List of String into a slice.
func (v Value) Strings() []string {
	switch v.kind {
	case KindInvalid:
		return nil
	case KindList:
		out := make([]string, 0, len(v.items))
		for _, item := range v.items {
			out = append(out, item.String())
		}
		return out
	default:
		return []string{v.String()}
	}
}

// Equal is structural equality. Doubles compare by value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInvalid:
		return true
	case KindString:
		return v.str == o.str
	case KindLong:
		return v.num == o.num
	case KindDouble:
		return v.dbl == o.dbl
	case KindBool:
		return v.flag == o.flag
	case KindVersion:
		return v.ver.Equal(o.ver)
	case KindList:
		return slices.EqualFunc(v.items, o.items, Value.Equal)
	}
	return false
}

// String renders the value. Lists are comma joined.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindLong:
		return strconv.FormatInt(v.num, 10)
	case KindDouble:
		return strconv.FormatFloat(v.dbl, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindVersion:
		return v.ver.String()
	case KindList:
		parts := make([]string, 0, len(v.items))
		for _, item := range v.items {
			parts = append(parts, item.String())
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

// TypeName is the manifest type name, e.g. "List<Version>".
func (v Value) TypeName() string {
	if v.kind == KindList {
		elem := v.elem
		if elem == KindInvalid {
			elem = KindString
		}
		return "List<" + elem.String() + ">"
	}
	return v.kind.String()
}
