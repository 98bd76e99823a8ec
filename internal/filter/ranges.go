package filter

import (
	"capresolve/internal/attrs"
	"capresolve/internal/version"
)

// FromRange builds the filter tree for r over attr. The output renders
// to the same text as r.ToFilter(attr).
func FromRange(r version.Range, attr string) Node {
	if r.IsAny() {
		return True
	}
	var lower Node
	if r.LowInclusive {
		lower = Compare{Attr: attr, Op: attrs.OpGreaterEqual, Value: r.Low.String()}
	} else {
		lower = Not{Child: Compare{Attr: attr, Op: attrs.OpLessEqual, Value: r.Low.String()}}
	}
	if r.High == nil {
		return lower
	}
	var upper Node
	if r.HighInclusive {
		upper = Compare{Attr: attr, Op: attrs.OpLessEqual, Value: r.High.String()}
	} else {
		upper = Not{Child: Compare{Attr: attr, Op: attrs.OpGreaterEqual, Value: r.High.String()}}
	}
	return And{Children: []Node{lower, upper}}
}

type boundKind int

const (
	boundNone boundKind = iota
	boundLower
	boundUpper
)

type bound struct {
	kind      boundKind
	v         version.Version
	inclusive bool
}

// classify recognizes a single version comparison over attr.
func classify(n Node, attr string) bound {
	inverted := false
	if not, ok := n.(Not); ok {
		inverted = true
		n = not.Child
	}
	cmp, ok := n.(Compare)
	if !ok || cmp.Attr != attr {
		return bound{}
	}
	v, err := version.Parse(cmp.Value)
	if err != nil {
		return bound{}
	}
	switch {
	case cmp.Op == attrs.OpGreaterEqual && !inverted:
		return bound{kind: boundLower, v: v, inclusive: true}
	case cmp.Op == attrs.OpLessEqual && inverted:
		return bound{kind: boundLower, v: v, inclusive: false}
	case cmp.Op == attrs.OpLessEqual && !inverted:
		return bound{kind: boundUpper, v: v, inclusive: true}
	case cmp.Op == attrs.OpGreaterEqual && inverted:
		return bound{kind: boundUpper, v: v, inclusive: false}
	}
	return bound{}
}

// RangeOf recovers the version range encoded by n over attr. It accepts
// the always-true filter, a single bound, or an And of one lower and one
// upper bound.
func RangeOf(n Node, attr string) (version.Range, bool) {
	var clauses []Node
	switch t := n.(type) {
	case And:
		clauses = t.Children
	default:
		clauses = []Node{n}
	}
	if len(clauses) > 2 {
		return version.Range{}, false
	}
	r := version.Range{Low: version.Lowest, LowInclusive: true}
	seenLower, seenUpper := false, false
	for _, clause := range clauses {
		b := classify(clause, attr)
		switch {
		case b.kind == boundLower && !seenLower:
			seenLower = true
			r.Low, r.LowInclusive = b.v, b.inclusive
		case b.kind == boundUpper && !seenUpper:
			seenUpper = true
			h := b.v
			r.High, r.HighInclusive = &h, b.inclusive
		default:
			return version.Range{}, false
		}
	}
	if r.IsEmpty() {
		return version.Range{}, false
	}
	return r, true
}
