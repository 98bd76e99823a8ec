package attrs

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Map is a string keyed attribute map.
type Map map[string]Value

// Get returns the value stored under key. Absent keys yield an invalid
// Value.
func (m Map) Get(key string) (Value, bool) {
	v, ok := m[key]
	if !ok || !v.IsValid() {
		return Value{}, false
	}
	return v, true
}

// Clone returns a shallow copy. Values are immutable so this is a full
// copy in practice.
func (m Map) Clone() Map {
	if m == nil {
		return Map{}
	}
	return maps.Clone(m)
}

// Keys returns the keys in sorted order.
func (m Map) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Equal compares two maps entry by entry.
func (m Map) Equal(o Map) bool {
	return maps.EqualFunc(m, o, Value.Equal)
}

// String renders the map as name=value pairs sorted by name, with typed
// names for non-string values.
func (m Map) String() string {
	parts := make([]string, 0, len(m))
	for _, key := range m.Keys() {
		v := m[key]
		name := key
		if v.Kind() != KindString {
			name += ":" + v.TypeName()
		}
		parts = append(parts, fmt.Sprintf("%s=%q", name, v.String()))
	}
	return strings.Join(parts, ";")
}

// SplitTypedKey splits a manifest style key "name:Type" into its name
// and type. Keys without a type suffix return an empty type.
func SplitTypedKey(key string) (string, string) {
	name, typ, ok := strings.Cut(key, ":")
	if !ok {
		return strings.TrimSpace(key), ""
	}
	return strings.TrimSpace(name), strings.TrimSpace(typ)
}

// ParseTyped converts raw using a manifest type name such as "Long",
// "Version" or "List<Version>". An empty type name means String.
func ParseTyped(typeName string, raw string) (Value, error) {
	typeName = strings.ReplaceAll(strings.TrimSpace(typeName), " ", "")
	if typeName == "" {
		return String(raw), nil
	}
	if typeName == "List" {
		typeName = "List<String>"
	}
	if inner, ok := strings.CutPrefix(typeName, "List<"); ok {
		elemName, ok := strings.CutSuffix(inner, ">")
		if !ok {
			return Value{}, unknownType(typeName)
		}
		kind, ok := scalarKind(elemName)
		if !ok {
			return Value{}, unknownType(typeName)
		}
		parts := splitEscaped(raw)
		items := make([]Value, 0, len(parts))
		for _, part := range parts {
			item, err := parseScalar(kind, part)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return ListOf(items...)
	}
	kind, ok := scalarKind(typeName)
	if !ok {
		return Value{}, unknownType(typeName)
	}
	return parseScalar(kind, raw)
}

func parseScalar(kind Kind, raw string) (Value, error) {
	if kind == KindString {
		return String(raw), nil
	}
	v, ok := Coerce(kind, raw)
	if !ok {
		return Value{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("cannot read %q as %s", raw, kind))
	}
	return v, nil
}

func scalarKind(name string) (Kind, bool) {
	switch name {
	case "String":
		return KindString, true
	case "Long":
		return KindLong, true
	case "Double":
		return KindDouble, true
	case "Version":
		return KindVersion, true
	case "Boolean":
		return KindBool, true
	}
	return KindInvalid, false
}

func unknownType(name string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("unknown attribute type %q", name))
}

// splitEscaped splits on commas. A backslash escapes the next rune.
func splitEscaped(raw string) []string {
	var (
		out     []string
		current strings.Builder
		escaped bool
	)
	for _, r := range raw {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" || len(out) > 0 {
		out = append(out, tail)
	}
	return out
}
