package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax reports a query string that cannot be parsed.
var ErrSyntax = errors.New("query: syntax error")

// Condition is one parsed fragment of a media query.
type Condition struct {
	Feature  string
	Value    string
	HasValue bool
	Negated  bool
}

// String renders the condition in the form Build emits.
func (c Condition) String() string {
	switch {
	case c.HasValue:
		return "(" + c.Feature + ": " + c.Value + ")"
	case c.Negated:
		return "not " + c.Feature
	default:
		return c.Feature
	}
}

// Parse splits a query produced by Build (or written by hand in the same
// grammar) into conditions. Feature names are lower-cased.
//
//	query     = condition *( "and" condition )
//	condition = [ "not" ] ident | "(" ident ":" value ")"
func Parse(q string) ([]Condition, error) {
	p := parser{src: q}
	var conds []Condition
	p.skipSpace()
	if p.done() {
		return nil, nil
	}
	for {
		cond, err := p.condition()
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
		p.skipSpace()
		if p.done() {
			return conds, nil
		}
		word := p.ident()
		if !strings.EqualFold(word, "and") {
			return nil, p.errorf("expected \"and\", got %q", word)
		}
		p.skipSpace()
		if p.done() {
			return nil, p.errorf("dangling \"and\"")
		}
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool {
	return p.pos >= len(p.src)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) && isIdent(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) condition() (Condition, error) {
	if p.src[p.pos] == '(' {
		return p.valueCondition()
	}
	word := p.ident()
	if word == "" {
		return Condition{}, p.errorf("unexpected %q", p.src[p.pos])
	}
	if !strings.EqualFold(word, "not") {
		return Condition{Feature: strings.ToLower(word)}, nil
	}
	p.skipSpace()
	feature := p.ident()
	if feature == "" {
		return Condition{}, p.errorf("expected feature after \"not\"")
	}
	return Condition{Feature: strings.ToLower(feature), Negated: true}, nil
}

func (p *parser) valueCondition() (Condition, error) {
	open := p.pos
	p.pos++
	p.skipSpace()
	feature := p.ident()
	if feature == "" {
		return Condition{}, p.errorf("expected feature name")
	}
	p.skipSpace()
	if p.done() {
		return Condition{}, p.errorf("unterminated condition starting at %d", open)
	}
	if p.src[p.pos] == ')' {
		p.pos++
		return Condition{Feature: strings.ToLower(feature)}, nil
	}
	if p.src[p.pos] != ':' {
		return Condition{}, p.errorf("expected ':' after %q", feature)
	}
	p.pos++
	end := strings.IndexByte(p.src[p.pos:], ')')
	if end < 0 {
		return Condition{}, p.errorf("unterminated condition starting at %d", open)
	}
	value := strings.TrimSpace(p.src[p.pos : p.pos+end])
	p.pos += end + 1
	if value == "" {
		return Condition{}, p.errorf("empty value for %q", feature)
	}
	return Condition{Feature: strings.ToLower(feature), Value: value, HasValue: true}, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at %d in %q: %s", ErrSyntax, p.pos, p.src, fmt.Sprintf(format, args...))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdent(c byte) bool {
	return c == '-' || c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
