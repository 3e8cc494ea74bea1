package filter

import (
	"fmt"
	"strings"
)

// Parse compiles a filter expression. An empty or blank expression yields a
// nil *Expr, which matches every row.
//
// Grammar:
//
//	expr    = and { "or" and }
//	and     = not { "and" not }
//	not     = "not" not | cmp
//	cmp     = primary [ ( "==" | "!=" | "in" | "not" "in" ) primary ]
//	primary = STRING | true | false | none | IDENT | "(" expr ")" | "[" [ expr { "," expr } ] "]"
func Parse(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}

	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}

	return &Expr{root: root, src: src}, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekN(n int) token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(t token, kw string) bool {
	return t.kind == tokIdent && t.text == kw
}

func (p *parser) parseOr() (node, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword(p.peek(), "or") {
		p.next()
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = logicNode{op: opOr, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseAnd() (node, error) {
	l, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword(p.peek(), "and") {
		p.next()
		r, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		l = logicNode{op: opAnd, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseNot() (node, error) {
	if p.isKeyword(p.peek(), "not") {
		p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notNode{x: x}, nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (node, error) {
	l, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	var op cmpOp
	t := p.peek()
	switch {
	case t.kind == tokEq:
		op = opEq
	case t.kind == tokNe:
		op = opNe
	case p.isKeyword(t, "in"):
		op = opIn
	case p.isKeyword(t, "not") && p.isKeyword(p.peekN(1), "in"):
		op = opNotIn
		p.next()
	default:
		return l, nil
	}
	p.next()

	r, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return cmpNode{op: op, l: l, r: r}, nil
}

var keywords = map[string]bool{"and": true, "or": true, "not": true, "in": true}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return literalNode{String(t.text)}, nil

	case tokIdent:
		switch t.text {
		case "true", "True":
			return literalNode{Bool(true)}, nil
		case "false", "False":
			return literalNode{Bool(false)}, nil
		case "none", "None":
			return literalNode{None()}, nil
		}
		if keywords[t.text] {
			return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected keyword %q", t.text)}
		}
		return attrNode{name: t.text}, nil

	case tokLParen:
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, &SyntaxError{Pos: c.pos, Msg: "expected ')'"}
		}
		return x, nil

	case tokLBracket:
		var items []node
		if p.peek().kind == tokRBracket {
			p.next()
			return listNode{}, nil
		}
		for {
			it, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			items = append(items, it)
			c := p.next()
			if c.kind == tokRBracket {
				return listNode{items: items}, nil
			}
			if c.kind != tokComma {
				return nil, &SyntaxError{Pos: c.pos, Msg: "expected ',' or ']'"}
			}
		}

	case tokEOF:
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected end of expression"}
	}

	return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
}
