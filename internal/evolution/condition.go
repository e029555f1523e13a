package evolution

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"prokaryote/internal/logging"
)

// Unlock conditions are boolean expressions over skill levels, e.g.
// "web_scraping >= 5 AND api_calls >= 10". They are parsed into a small
// AST and evaluated against a closed set of known levels - never through
// a general-purpose evaluator. Grammar:
//
//	expr    := and ( OR and )*
//	and     := term ( AND term )*
//	term    := '(' expr ')' | ident cmp integer
//	cmp     := '>=' | '<=' | '>' | '<' | '==' | '!='
//
// AND/OR are case-insensitive. Any lex, parse, or eval failure means the
// condition is simply not met.

type condToken struct {
	kind condTokenKind
	text string
}

type condTokenKind int

const (
	tokIdent condTokenKind = iota
	tokNumber
	tokAnd
	tokOr
	tokCmp
	tokLParen
	tokRParen
)

func lexCondition(input string) ([]condToken, error) {
	var toks []condToken
	i := 0
	for i < len(input) {
		c := rune(input[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			toks = append(toks, condToken{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, condToken{tokRParen, ")"})
			i++
		case c == '>' || c == '<' || c == '=' || c == '!':
			op := string(c)
			if i+1 < len(input) && input[i+1] == '=' {
				op += "="
				i++
			}
			i++
			if op == "=" || op == "!" {
				return nil, fmt.Errorf("invalid operator %q", op)
			}
			toks = append(toks, condToken{tokCmp, op})
		case unicode.IsDigit(c):
			j := i
			for j < len(input) && unicode.IsDigit(rune(input[j])) {
				j++
			}
			toks = append(toks, condToken{tokNumber, input[i:j]})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(input) && (unicode.IsLetter(rune(input[j])) || unicode.IsDigit(rune(input[j])) || input[j] == '_' || input[j] == '-') {
				j++
			}
			word := input[i:j]
			switch strings.ToLower(word) {
			case "and":
				toks = append(toks, condToken{tokAnd, word})
			case "or":
				toks = append(toks, condToken{tokOr, word})
			default:
				toks = append(toks, condToken{tokIdent, word})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return toks, nil
}

// condNode is an evaluable expression node.
type condNode interface {
	eval(levels map[string]int) (bool, error)
}

type boolOpNode struct {
	op          condTokenKind // tokAnd or tokOr
	left, right condNode
}

func (n *boolOpNode) eval(levels map[string]int) (bool, error) {
	l, err := n.left.eval(levels)
	if err != nil {
		return false, err
	}
	r, err := n.right.eval(levels)
	if err != nil {
		return false, err
	}
	if n.op == tokAnd {
		return l && r, nil
	}
	return l || r, nil
}

type cmpNode struct {
	ident string
	op    string
	value int
}

func (n *cmpNode) eval(levels map[string]int) (bool, error) {
	level, ok := levels[n.ident]
	if !ok {
		return false, fmt.Errorf("unknown skill %q", n.ident)
	}
	switch n.op {
	case ">=":
		return level >= n.value, nil
	case "<=":
		return level <= n.value, nil
	case ">":
		return level > n.value, nil
	case "<":
		return level < n.value, nil
	case "==":
		return level == n.value, nil
	case "!=":
		return level != n.value, nil
	}
	return false, fmt.Errorf("unknown operator %q", n.op)
}

type condParser struct {
	toks []condToken
	pos  int
}

func (p *condParser) peek() (condToken, bool) {
	if p.pos >= len(p.toks) {
		return condToken{}, false
	}
	return p.toks[p.pos], true
}

func (p *condParser) next() (condToken, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *condParser) parseExpr() (condNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOr {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolOpNode{op: tokOr, left: left, right: right}
	}
}

func (p *condParser) parseAnd() (condNode, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokAnd {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &boolOpNode{op: tokAnd, left: left, right: right}
	}
}

func (p *condParser) parseTerm() (condNode, error) {
	t, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}

	if t.kind == tokLParen {
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.next()
		if !ok || closing.kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	}

	if t.kind != tokIdent {
		return nil, fmt.Errorf("expected skill identifier, got %q", t.text)
	}
	op, ok := p.next()
	if !ok || op.kind != tokCmp {
		return nil, fmt.Errorf("expected comparison after %q", t.text)
	}
	num, ok := p.next()
	if !ok || num.kind != tokNumber {
		return nil, fmt.Errorf("expected integer after %q %s", t.text, op.text)
	}
	value, err := strconv.Atoi(num.text)
	if err != nil {
		return nil, fmt.Errorf("bad integer %q: %w", num.text, err)
	}
	return &cmpNode{ident: t.text, op: op.text, value: value}, nil
}

func parseCondition(expr string) (condNode, error) {
	toks, err := lexCondition(expr)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	p := &condParser{toks: toks}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("trailing tokens after expression")
	}
	return node, nil
}

// CheckCondition reports whether an unlock condition is well-formed,
// without evaluating it. Used to validate seed files up front.
func CheckCondition(expr string) error {
	_, err := parseCondition(expr)
	return err
}

// EvalCondition evaluates an unlock condition against known skill levels.
// Malformed expressions and unknown skill references are "not met", never
// an error: a bad condition must not crash or unlock anything.
func EvalCondition(expr string, levels map[string]int) bool {
	node, err := parseCondition(expr)
	if err != nil {
		logging.UnlockDebug("condition %q not parseable: %v", expr, err)
		return false
	}
	met, err := node.eval(levels)
	if err != nil {
		logging.UnlockDebug("condition %q not evaluable: %v", expr, err)
		return false
	}
	return met
}
