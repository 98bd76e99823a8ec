package filter

import (
	"strings"

	"capresolve/internal/attrs"
	"capresolve/internal/types"
	"capresolve/internal/version"
)

// Expression is the query-oriented form of a filter. It evaluates exactly
// like the Node it was built from and renders a compact query string for
// display and search.
type Expression interface {
	Eval(m attrs.Map) bool
	// Query renders the human form, e.g. "p:com.example [1.0.0,2.0.0)".
	Query() string
	// String renders the equivalent filter text.
	String() string
	Node() Node
}

// QueryOp extends the filter operators with the strict comparisons that
// negation produces.
type QueryOp int

const (
	QueryEqual QueryOp = iota
	QueryApprox
	QueryGreaterEqual
	QueryLessEqual
	QueryGreater
	QueryLess
)

func (o QueryOp) String() string {
	switch o {
	case QueryApprox:
		return "~="
	case QueryGreaterEqual:
		return ">="
	case QueryLessEqual:
		return "<="
	case QueryGreater:
		return ">"
	case QueryLess:
		return "<"
	default:
		return "="
	}
}

type constExpression bool

var (
	TrueExpression  Expression = constExpression(true)
	FalseExpression Expression = constExpression(false)
)

func (c constExpression) Eval(attrs.Map) bool { return bool(c) }
func (c constExpression) String() string      { return c.Node().String() }

func (c constExpression) Query() string {
	if c {
		return "true"
	}
	return "false"
}

func (c constExpression) Node() Node {
	if c {
		return True
	}
	return False
}

// SimpleExpression is a single comparison. QueryGreater and QueryLess are
// the negations of QueryLessEqual and QueryGreaterEqual and, like them,
// hold when the attribute is absent.
type SimpleExpression struct {
	Key   string
	Op    QueryOp
	Value string
}

func (e SimpleExpression) Eval(m attrs.Map) bool { return e.Node().Eval(m) }
func (e SimpleExpression) String() string        { return e.Node().String() }
func (e SimpleExpression) Query() string         { return e.Key + e.Op.String() + e.Value }

func (e SimpleExpression) Node() Node {
	switch e.Op {
	case QueryApprox:
		return Compare{Attr: e.Key, Op: attrs.OpApprox, Value: e.Value}
	case QueryGreaterEqual:
		return Compare{Attr: e.Key, Op: attrs.OpGreaterEqual, Value: e.Value}
	case QueryLessEqual:
		return Compare{Attr: e.Key, Op: attrs.OpLessEqual, Value: e.Value}
	case QueryGreater:
		return Not{Child: Compare{Attr: e.Key, Op: attrs.OpLessEqual, Value: e.Value}}
	case QueryLess:
		return Not{Child: Compare{Attr: e.Key, Op: attrs.OpGreaterEqual, Value: e.Value}}
	default:
		return Compare{Attr: e.Key, Op: attrs.OpEqual, Value: e.Value}
	}
}

type PatternExpression struct {
	Key   string
	Parts []string
}

func (e PatternExpression) Eval(m attrs.Map) bool { return e.Node().Eval(m) }
func (e PatternExpression) String() string        { return e.Node().String() }
func (e PatternExpression) Node() Node            { return Substring{Attr: e.Key, Parts: e.Parts} }

func (e PatternExpression) Query() string {
	var b strings.Builder
	b.WriteString(e.Key)
	b.WriteByte('=')
	for _, part := range e.Parts {
		if part == "" {
			b.WriteByte('*')
			continue
		}
		b.WriteString(part)
	}
	return b.String()
}

type PresentExpression struct {
	Key string
}

func (e PresentExpression) Eval(m attrs.Map) bool { return e.Node().Eval(m) }
func (e PresentExpression) String() string        { return e.Node().String() }
func (e PresentExpression) Query() string         { return e.Key + "=*" }
func (e PresentExpression) Node() Node            { return Present{Attr: e.Key} }

type NotExpression struct {
	Child Expression
}

func (e NotExpression) Eval(m attrs.Map) bool { return !e.Child.Eval(m) }
func (e NotExpression) String() string        { return e.Node().String() }
func (e NotExpression) Query() string         { return "!(" + e.Child.Query() + ")" }
func (e NotExpression) Node() Node            { return Not{Child: e.Child.Node()} }

type AndExpression struct {
	Children []Expression
}

func (e AndExpression) String() string { return e.Node().String() }
func (e AndExpression) Query() string  { return joinQueries(e.Children, " & ") }

// Node inlines the bounds of merged ranges so the rendered filter keeps
// the flat shape it was parsed from.
func (e AndExpression) Node() Node {
	var children []Node
	for _, child := range e.Children {
		if r, ok := child.(RangeExpression); ok {
			children = append(children, nodesOf(r.bound)...)
			continue
		}
		children = append(children, child.Node())
	}
	return And{Children: children}
}

func (e AndExpression) Eval(m attrs.Map) bool {
	for _, child := range e.Children {
		if !child.Eval(m) {
			return false
		}
	}
	return true
}

type OrExpression struct {
	Children []Expression
}

func (e OrExpression) String() string { return e.Node().String() }
func (e OrExpression) Query() string  { return joinQueries(e.Children, " | ") }
func (e OrExpression) Node() Node     { return Or{Children: nodesOf(e.Children)} }

func (e OrExpression) Eval(m attrs.Map) bool {
	for _, child := range e.Children {
		if child.Eval(m) {
			return true
		}
	}
	return false
}

// RangeExpression is one or two version bounds on the same attribute
// merged into a range. It keeps the bound clauses it was built from so
// evaluation is unchanged.
type RangeExpression struct {
	Key   string
	Range version.Range
	bound []Expression
}

func (e RangeExpression) Eval(m attrs.Map) bool {
	for _, b := range e.bound {
		if !b.Eval(m) {
			return false
		}
	}
	return true
}

func (e RangeExpression) String() string { return e.Node().String() }

func (e RangeExpression) Node() Node {
	if len(e.bound) == 1 {
		return e.bound[0].Node()
	}
	return And{Children: nodesOf(e.bound)}
}

// Query renders "key range". A range with no effective constraint renders
// as the bare key.
func (e RangeExpression) Query() string {
	if e.Range.IsAny() {
		return e.Key
	}
	return e.Key + " " + e.Range.String()
}

// NamedExpression is a lookup by name in one of the wiring namespaces,
// optionally restricted to a version range. It renders with a short
// prefix: "p:" for packages, "bsn:" for identities, "bundle:" for
// required bundles and "host:" for fragment hosts.
type NamedExpression struct {
	Namespace string
	Name      string
	Range     *RangeExpression
	inner     Expression
}

func (e NamedExpression) Eval(m attrs.Map) bool { return e.inner.Eval(m) }
func (e NamedExpression) String() string        { return e.inner.String() }
func (e NamedExpression) Node() Node            { return e.inner.Node() }

func (e NamedExpression) Query() string {
	q := namedPrefix[e.Namespace] + e.Name
	if e.Range != nil && !e.Range.Range.IsAny() {
		q += " " + e.Range.Range.String()
	}
	return q
}

var namedPrefix = map[string]string{
	types.NamespacePackage:  "p:",
	types.NamespaceIdentity: "bsn:",
	types.NamespaceBundle:   "bundle:",
	types.NamespaceHost:     "host:",
}

// Simplify converts n into its query form. Constants are folded, double
// negations removed, negated comparisons flipped into strict operators and
// version bounds merged into ranges. Evaluation is preserved exactly.
func Simplify(n Node) Expression {
	switch t := n.(type) {
	case nil:
		return TrueExpression
	case And:
		return simplifyAnd(t)
	case Or:
		return simplifyOr(t)
	case Not:
		return negate(Simplify(t.Child))
	case Compare:
		e := SimpleExpression{Key: t.Attr, Op: queryOp(t.Op), Value: t.Value}
		if named, ok := asNamed([]Expression{e}); ok {
			return named
		}
		return e
	case Substring:
		return PatternExpression{Key: t.Attr, Parts: t.Parts}
	case Present:
		return PresentExpression{Key: t.Attr}
	}
	return TrueExpression
}

func queryOp(op attrs.Op) QueryOp {
	switch op {
	case attrs.OpApprox:
		return QueryApprox
	case attrs.OpGreaterEqual:
		return QueryGreaterEqual
	case attrs.OpLessEqual:
		return QueryLessEqual
	default:
		return QueryEqual
	}
}

func negate(e Expression) Expression {
	switch t := e.(type) {
	case constExpression:
		return !t
	case NotExpression:
		return t.Child
	case SimpleExpression:
		switch t.Op {
		case QueryGreaterEqual:
			t.Op = QueryLess
			return t
		case QueryLessEqual:
			t.Op = QueryGreater
			return t
		case QueryGreater:
			t.Op = QueryLessEqual
			return t
		case QueryLess:
			t.Op = QueryGreaterEqual
			return t
		}
	}
	return NotExpression{Child: e}
}

func simplifyAnd(n And) Expression {
	var children []Expression
	for _, c := range n.Children {
		switch e := Simplify(c).(type) {
		case constExpression:
			if !e {
				return FalseExpression
			}
		case AndExpression:
			children = append(children, e.Children...)
		default:
			children = append(children, e)
		}
	}
	children = mergeRanges(children, types.AttrVersion)
	children = mergeRanges(children, types.AttrBundleVersion)
	switch len(children) {
	case 0:
		return TrueExpression
	case 1:
		return children[0]
	}
	if named, ok := asNamed(children); ok {
		return named
	}
	return AndExpression{Children: children}
}

func simplifyOr(n Or) Expression {
	var children []Expression
	for _, c := range n.Children {
		switch e := Simplify(c).(type) {
		case constExpression:
			if e {
				return TrueExpression
			}
		case OrExpression:
			children = append(children, e.Children...)
		default:
			children = append(children, e)
		}
	}
	switch len(children) {
	case 0:
		return FalseExpression
	case 1:
		return children[0]
	}
	return OrExpression{Children: children}
}

// mergeRanges replaces the first lower and first upper version bound on
// key with a single RangeExpression at the position of the first one.
func mergeRanges(children []Expression, key string) []Expression {
	lowerAt, upperAt := -1, -1
	r := version.Range{Low: version.Lowest, LowInclusive: true}
	for i, c := range children {
		s, ok := c.(SimpleExpression)
		if !ok || s.Key != key {
			continue
		}
		v, err := version.Parse(s.Value)
		if err != nil {
			continue
		}
		switch s.Op {
		case QueryGreaterEqual, QueryGreater:
			if lowerAt < 0 {
				lowerAt = i
				r.Low, r.LowInclusive = v, s.Op == QueryGreaterEqual
			}
		case QueryLessEqual, QueryLess:
			if upperAt < 0 {
				upperAt = i
				r.High, r.HighInclusive = &v, s.Op == QueryLessEqual
			}
		}
	}
	if lowerAt < 0 && upperAt < 0 || r.IsEmpty() {
		return children
	}
	merged := RangeExpression{Key: key, Range: r}
	first := lowerAt
	if first < 0 || (upperAt >= 0 && upperAt < first) {
		first = upperAt
	}
	for _, at := range []int{lowerAt, upperAt} {
		if at >= 0 {
			merged.bound = append(merged.bound, children[at])
		}
	}
	out := make([]Expression, 0, len(children))
	for i, c := range children {
		switch i {
		case first:
			out = append(out, merged)
		case lowerAt, upperAt:
		default:
			out = append(out, c)
		}
	}
	return out
}

// asNamed recognizes "(ns=name)" optionally combined with a range on the
// namespace's version attribute.
func asNamed(children []Expression) (Expression, bool) {
	if len(children) > 2 {
		return nil, false
	}
	var named *NamedExpression
	var rng *RangeExpression
	for _, c := range children {
		switch t := c.(type) {
		case SimpleExpression:
			if _, ok := namedPrefix[t.Key]; !ok || t.Op != QueryEqual || named != nil {
				return nil, false
			}
			named = &NamedExpression{Namespace: t.Key, Name: t.Value}
		case NamedExpression:
			if t.Range != nil || named != nil {
				return nil, false
			}
			named = &NamedExpression{Namespace: t.Namespace, Name: t.Name}
		case RangeExpression:
			if rng != nil {
				return nil, false
			}
			rng = &t
		default:
			return nil, false
		}
	}
	if named == nil {
		return nil, false
	}
	if rng != nil {
		if rng.Key != types.VersionAttribute(named.Namespace) {
			return nil, false
		}
		named.Range = rng
	}
	if len(children) == 1 {
		named.inner = children[0]
	} else {
		named.inner = AndExpression{Children: children}
	}
	return *named, true
}

func nodesOf(exprs []Expression) []Node {
	nodes := make([]Node, len(exprs))
	for i, e := range exprs {
		nodes[i] = e.Node()
	}
	return nodes
}

func joinQueries(exprs []Expression, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		switch e.(type) {
		case AndExpression, OrExpression:
			parts[i] = "(" + e.Query() + ")"
		default:
			parts[i] = e.Query()
		}
	}
	return strings.Join(parts, sep)
}

// NamespaceCategory returns the display category of a namespace, or the
// namespace itself when it has none.
func NamespaceCategory(ns string) string {
	switch ns {
	case types.NamespacePackage:
		return "Import-Package"
	case types.NamespaceBundle:
		return "Require-Bundle"
	case types.NamespaceHost:
		return "Fragment-Host"
	case types.NamespaceIdentity:
		return "ID"
	case types.NamespaceContent:
		return "Content"
	case types.NamespaceExtender:
		return "Extender"
	case types.NamespaceService:
		return "Service"
	case types.NamespaceContract:
		return "Contract"
	case types.NamespaceEE:
		return "EE"
	}
	return ns
}
