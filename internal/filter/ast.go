// Package filter parses and evaluates RFC 1960 style LDAP filters over
// typed attribute maps.
package filter

import (
	"strings"

	"capresolve/internal/attrs"
)

// Node is a parsed filter. Nodes are immutable and safe to share.
type Node interface {
	// Eval reports whether the attribute map satisfies the filter.
	Eval(m attrs.Map) bool
	// String renders the normalized filter text.
	String() string
	write(b *strings.Builder)
}

// And matches when every child matches. An And with no children is the
// constant true filter "(&)".
type And struct {
	Children []Node
}

// Or matches when any child matches. An Or with no children is the
// constant false filter "(|)".
type Or struct {
	Children []Node
}

type Not struct {
	Child Node
}

// Compare is one of attr=value, attr~=value, attr>=value, attr<=value.
type Compare struct {
	Attr  string
	Op    attrs.Op
	Value string
}

// Substring is attr=pattern with at least one wildcard. An empty string
// in Parts stands for a wildcard.
type Substring struct {
	Attr  string
	Parts []string
}

type Present struct {
	Attr string
}

var (
	// True is the filter that always matches.
	True Node = And{}
	// False is the filter that never matches.
	False Node = Or{}
)

// Eval evaluates n against m. A nil node matches everything.
func Eval(n Node, m attrs.Map) bool {
	if n == nil {
		return true
	}
	return n.Eval(m)
}

func (n And) Eval(m attrs.Map) bool {
	for _, child := range n.Children {
		if !child.Eval(m) {
			return false
		}
	}
	return true
}

func (n Or) Eval(m attrs.Map) bool {
	for _, child := range n.Children {
		if child.Eval(m) {
			return true
		}
	}
	return false
}

func (n Not) Eval(m attrs.Map) bool {
	return !n.Child.Eval(m)
}

func (n Compare) Eval(m attrs.Map) bool {
	v, ok := m.Get(n.Attr)
	if !ok {
		return false
	}
	return attrs.Compare(v, n.Op, n.Value)
}

func (n Present) Eval(m attrs.Map) bool {
	_, ok := m.Get(n.Attr)
	return ok
}

func (n Substring) Eval(m attrs.Map) bool {
	v, ok := m.Get(n.Attr)
	if !ok {
		return false
	}
	if v.Kind() != attrs.KindList {
		return matchSubstring(v.String(), n.Parts)
	}
	items, _ := v.List()
	for _, item := range items {
		if matchSubstring(item.String(), n.Parts) {
			return true
		}
	}
	return false
}

// matchSubstring applies a wildcard pattern: the first literal must be a
// prefix, the last literal a suffix, and the literals in between must
// occur in order without overlapping.
func matchSubstring(s string, parts []string) bool {
	if len(parts) == 0 {
		return s == ""
	}
	if len(parts) == 1 && parts[0] != "" {
		return s == parts[0]
	}
	first, last := 0, len(parts)
	if parts[0] != "" {
		if !strings.HasPrefix(s, parts[0]) {
			return false
		}
		s = s[len(parts[0]):]
		first = 1
	}
	if last > first && parts[last-1] != "" {
		suffix := parts[last-1]
		if !strings.HasSuffix(s, suffix) {
			return false
		}
		s = s[:len(s)-len(suffix)]
		last--
	}
	for _, part := range parts[first:last] {
		if part == "" {
			continue
		}
		idx := strings.Index(s, part)
		if idx < 0 {
			return false
		}
		s = s[idx+len(part):]
	}
	return true
}

func (n And) String() string       { return render(n) }
func (n Or) String() string        { return render(n) }
func (n Not) String() string       { return render(n) }
func (n Compare) String() string   { return render(n) }
func (n Substring) String() string { return render(n) }
func (n Present) String() string   { return render(n) }

func render(n Node) string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n And) write(b *strings.Builder) {
	b.WriteString("(&")
	for _, child := range n.Children {
		child.write(b)
	}
	b.WriteByte(')')
}

func (n Or) write(b *strings.Builder) {
	b.WriteString("(|")
	for _, child := range n.Children {
		child.write(b)
	}
	b.WriteByte(')')
}

func (n Not) write(b *strings.Builder) {
	b.WriteString("(!")
	n.Child.write(b)
	b.WriteByte(')')
}

func (n Compare) write(b *strings.Builder) {
	b.WriteByte('(')
	b.WriteString(n.Attr)
	b.WriteString(n.Op.String())
	b.WriteString(EscapeValue(n.Value))
	b.WriteByte(')')
}

func (n Substring) write(b *strings.Builder) {
	b.WriteByte('(')
	b.WriteString(n.Attr)
	b.WriteByte('=')
	for _, part := range n.Parts {
		if part == "" {
			b.WriteByte('*')
			continue
		}
		b.WriteString(EscapeValue(part))
	}
	b.WriteByte(')')
}

func (n Present) write(b *strings.Builder) {
	b.WriteByte('(')
	b.WriteString(n.Attr)
	b.WriteString("=*)")
}

// EscapeValue escapes the characters that are special inside a filter
// value: backslash, asterisk and both parentheses.
func EscapeValue(s string) string {
	if !strings.ContainsAny(s, `\*()`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '*', '(', ')':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
