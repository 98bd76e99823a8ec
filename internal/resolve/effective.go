package resolve

import (
	"strings"

	"capresolve/internal/resource"
	"capresolve/internal/types"
)

// EffectiveSet maps an effective directive value to the namespaces it
// does not apply to.
type EffectiveSet map[string]map[string]struct{}

// ParseEffective reads a clause list such as
//
//	active;skip:="osgi.service,osgi.extender", arbitrary
//
// Each clause names an effective value; the optional skip directive lists
// namespaces excluded for that value. Empty clauses are ignored.
func ParseEffective(raw string) EffectiveSet {
	set := EffectiveSet{}
	for _, clause := range splitOutsideQuotes(raw, ',') {
		parts := splitOutsideQuotes(clause, ';')
		name := strings.TrimSpace(parts[0])
		if name == "" {
			continue
		}
		skip := map[string]struct{}{}
		for _, param := range parts[1:] {
			key, value, ok := strings.Cut(param, ":=")
			if !ok || strings.TrimSpace(key) != "skip" {
				continue
			}
			for _, ns := range strings.Split(unquote(value), ",") {
				if ns = strings.TrimSpace(ns); ns != "" {
					skip[ns] = struct{}{}
				}
			}
		}
		set[name] = skip
	}
	return set
}

// Add registers value with the given skipped namespaces.
func (s EffectiveSet) Add(value string, skip ...string) {
	m := map[string]struct{}{}
	for _, ns := range skip {
		m[ns] = struct{}{}
	}
	s[value] = m
}

// Includes reports whether a requirement with the given effective value
// and namespace takes part in resolution.
func (s EffectiveSet) Includes(effective, namespace string) bool {
	if effective == "" || effective == types.EffectiveResolve {
		return true
	}
	skip, ok := s[effective]
	if !ok {
		return false
	}
	_, skipped := skip[namespace]
	return !skipped
}

// IsEffective reports whether req takes part in resolution.
func (c *Context) IsEffective(req *resource.Requirement) bool {
	if req == nil {
		return false
	}
	return c.effective.Includes(req.Effective(), req.Namespace())
}

func splitOutsideQuotes(s string, sep byte) []string {
	var out []string
	quoted := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case sep:
			if !quoted {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
