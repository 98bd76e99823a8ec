package filter

import (
	"strings"
	"unicode"

	"capresolve/internal/attrs"
)

// Parse reads a filter string. Malformed input yields a *SyntaxError.
func Parse(s string) (Node, error) {
	p := &parser{src: s, in: []rune(s)}
	p.skipSpace()
	if p.eof() {
		return nil, p.fail(reasonEmpty)
	}
	n, err := p.filter()
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, p.fail(reasonTrailing)
	}
	return n, nil
}

// MustParse panics on malformed input. Intended for constants and tests.
func MustParse(s string) Node {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

type parser struct {
	src string
	in  []rune
	pos int
}

const eofRune = rune(-1)

func (p *parser) eof() bool { return p.pos >= len(p.in) }

func (p *parser) peek() rune {
	if p.eof() {
		return eofRune
	}
	return p.in[p.pos]
}

func (p *parser) peekAt(offset int) rune {
	if p.pos+offset >= len(p.in) {
		return eofRune
	}
	return p.in[p.pos+offset]
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.in[p.pos]) {
		p.pos++
	}
}

func (p *parser) fail(reason string) error {
	if p.eof() && reason != reasonEmpty && reason != reasonTrailing {
		reason = reasonEndedAbruptly
	}
	return &SyntaxError{Filter: p.src, Pos: p.pos, Reason: reason}
}

// filter ::= '(' filtercomp ')'
func (p *parser) filter() (Node, error) {
	p.skipSpace()
	if p.peek() != '(' {
		return nil, p.fail(reasonMissingOpen)
	}
	p.pos++
	n, err := p.filterComp()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() != ')' {
		return nil, p.fail(reasonMissingClose)
	}
	p.pos++
	p.skipSpace()
	return n, nil
}

func (p *parser) filterComp() (Node, error) {
	p.skipSpace()
	switch p.peek() {
	case '&':
		if children, ok, err := p.list(); ok || err != nil {
			return And{Children: children}, err
		}
	case '|':
		if children, ok, err := p.list(); ok || err != nil {
			return Or{Children: children}, err
		}
	case '!':
		start := p.pos
		p.pos++
		p.skipSpace()
		if p.peek() == '(' {
			child, err := p.filter()
			if err != nil {
				return nil, err
			}
			return Not{Child: child}, nil
		}
		p.pos = start
	}
	return p.item()
}

// list parses the operands of '&' or '|'. When the operator is not
// followed by '(' or ')' it is the first rune of an attribute name and
// ok is false.
func (p *parser) list() ([]Node, bool, error) {
	start := p.pos
	p.pos++
	p.skipSpace()
	if p.peek() != '(' && p.peek() != ')' {
		p.pos = start
		return nil, false, nil
	}
	var children []Node
	for p.peek() == '(' {
		child, err := p.filter()
		if err != nil {
			return nil, true, err
		}
		children = append(children, child)
	}
	return children, true, nil
}

// item ::= attr op value | attr '=*' | attr '=' substring
func (p *parser) item() (Node, error) {
	attr, err := p.attr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	switch p.peek() {
	case '~', '>', '<':
		op := compareOp(p.peek())
		if p.peekAt(1) != '=' {
			return nil, p.fail(reasonInvalidOp)
		}
		p.pos += 2
		value, err := p.value()
		if err != nil {
			return nil, err
		}
		return Compare{Attr: attr, Op: op, Value: value}, nil
	case '=':
		p.pos++
		if p.peek() == '*' {
			mark := p.pos
			p.pos++
			p.skipSpace()
			if p.peek() == ')' {
				return Present{Attr: attr}, nil
			}
			p.pos = mark
		}
		return p.substring(attr)
	}
	return nil, p.fail(reasonInvalidOp)
}

func compareOp(c rune) attrs.Op {
	switch c {
	case '~':
		return attrs.OpApprox
	case '>':
		return attrs.OpGreaterEqual
	default:
		return attrs.OpLessEqual
	}
}

func (p *parser) attr() (string, error) {
	p.skipSpace()
	begin, end := p.pos, p.pos
	for !p.eof() && !strings.ContainsRune("~<>=()", p.peek()) {
		p.pos++
		if !unicode.IsSpace(p.in[p.pos-1]) {
			end = p.pos
		}
	}
	if end == begin {
		return "", p.fail(reasonMissingAttr)
	}
	return string(p.in[begin:end]), nil
}

func (p *parser) value() (string, error) {
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		if c == ')' {
			break
		}
		if c == '(' {
			return "", p.fail(reasonInvalidValue)
		}
		if c == '\\' {
			p.pos++
			if p.eof() {
				break
			}
			c = p.peek()
		}
		b.WriteRune(c)
		p.pos++
	}
	if p.eof() {
		return "", p.fail(reasonEndedAbruptly)
	}
	if b.Len() == 0 {
		return "", p.fail(reasonMissingValue)
	}
	return b.String(), nil
}

// substring reads the value of an '=' item. Unescaped stars split it
// into literal parts; without stars the item is a plain equality.
func (p *parser) substring(attr string) (Node, error) {
	var (
		parts   []string
		current strings.Builder
		star    bool
	)
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}
	for !p.eof() {
		c := p.peek()
		switch c {
		case ')':
			flush()
			if !star {
				return Compare{Attr: attr, Op: attrs.OpEqual, Value: strings.Join(parts, "")}, nil
			}
			return Substring{Attr: attr, Parts: parts}, nil
		case '(':
			return nil, p.fail(reasonInvalidValue)
		case '*':
			flush()
			if len(parts) == 0 || parts[len(parts)-1] != "" {
				parts = append(parts, "")
			}
			star = true
			p.pos++
			continue
		case '\\':
			p.pos++
			if p.eof() {
				return nil, p.fail(reasonEndedAbruptly)
			}
			c = p.peek()
		}
		current.WriteRune(c)
		p.pos++
	}
	return nil, p.fail(reasonEndedAbruptly)
}
