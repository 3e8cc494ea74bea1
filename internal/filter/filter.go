// Package filter implements the row filter language: comparisons of row
// attributes combined with and/or/not.
//
//	feature == "block-jobs" and not all_ok
//	"ABC-12" in msg_issues or new == none
package filter

import (
	"fmt"
	"strings"
)

// Kind is the type of a Value
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindBool
	KindList
)

// Value is an attribute or literal value
type Value struct {
	Kind Kind
	Str  string
	Bool bool
	List []string
}

func None() Value               { return Value{Kind: KindNone} }
func String(s string) Value     { return Value{Kind: KindString, Str: s} }
func Bool(b bool) Value         { return Value{Kind: KindBool, Bool: b} }
func List(items []string) Value { return Value{Kind: KindList, List: items} }

// Truthy follows the usual rules: none, false, "" and [] are false
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindString:
		return v.Str != ""
	case KindBool:
		return v.Bool
	case KindList:
		return len(v.List) > 0
	default:
		return false
	}
}

func (v Value) equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindBool:
		return v.Bool == o.Bool
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != o.List[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// contains implements "v in container"
func contains(container, v Value) (bool, error) {
	switch container.Kind {
	case KindList:
		if v.Kind != KindString {
			return false, fmt.Errorf("filter: left side of 'in' must be a string when testing a list")
		}
		for _, item := range container.List {
			if item == v.Str {
				return true, nil
			}
		}
		return false, nil
	case KindString:
		if v.Kind != KindString {
			return false, fmt.Errorf("filter: left side of 'in' must be a string when testing a string")
		}
		return strings.Contains(container.Str, v.Str), nil
	case KindNone:
		return false, nil
	default:
		return false, fmt.Errorf("filter: 'in' needs a string or list on the right side")
	}
}

// Env resolves attribute names
type Env interface {
	Lookup(name string) (Value, bool)
}

// MapEnv is an Env backed by a map
type MapEnv map[string]Value

func (m MapEnv) Lookup(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}

// UnknownAttributeError is returned when an expression names an attribute
// the environment does not provide
type UnknownAttributeError struct {
	Name string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("filter: unknown attribute %q", e.Name)
}

// Expr is a parsed filter
type Expr struct {
	root node
	src  string
}

// String returns the source the expression was parsed from
func (e *Expr) String() string {
	return e.src
}

// Match evaluates the filter. A nil Expr matches everything.
func (e *Expr) Match(env Env) (bool, error) {
	if e == nil {
		return true, nil
	}
	v, err := e.root.eval(env)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

// Attributes returns the attribute names referenced by the expression
func (e *Expr) Attributes() []string {
	if e == nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	e.root.walk(func(n node) {
		if a, ok := n.(attrNode); ok && !seen[a.name] {
			seen[a.name] = true
			names = append(names, a.name)
		}
	})
	return names
}

type node interface {
	eval(env Env) (Value, error)
	walk(fn func(node))
}

type literalNode struct{ v Value }

func (n literalNode) eval(Env) (Value, error) { return n.v, nil }
func (n literalNode) walk(fn func(node))      { fn(n) }

type attrNode struct{ name string }

func (n attrNode) eval(env Env) (Value, error) {
	v, ok := env.Lookup(n.name)
	if !ok {
		return Value{}, &UnknownAttributeError{Name: n.name}
	}
	return v, nil
}
func (n attrNode) walk(fn func(node)) { fn(n) }

type notNode struct{ x node }

func (n notNode) eval(env Env) (Value, error) {
	v, err := n.x.eval(env)
	if err != nil {
		return Value{}, err
	}
	return Bool(!v.Truthy()), nil
}
func (n notNode) walk(fn func(node)) {
	fn(n)
	n.x.walk(fn)
}

type logicOp int

const (
	opAnd logicOp = iota
	opOr
)

type logicNode struct {
	op   logicOp
	l, r node
}

// eval short-circuits and yields the deciding operand
func (n logicNode) eval(env Env) (Value, error) {
	l, err := n.l.eval(env)
	if err != nil {
		return Value{}, err
	}
	if (n.op == opAnd && !l.Truthy()) || (n.op == opOr && l.Truthy()) {
		return l, nil
	}
	return n.r.eval(env)
}
func (n logicNode) walk(fn func(node)) {
	fn(n)
	n.l.walk(fn)
	n.r.walk(fn)
}

type cmpOp int

const (
	opEq cmpOp = iota
	opNe
	opIn
	opNotIn
)

type cmpNode struct {
	op   cmpOp
	l, r node
}

func (n cmpNode) eval(env Env) (Value, error) {
	l, err := n.l.eval(env)
	if err != nil {
		return Value{}, err
	}
	r, err := n.r.eval(env)
	if err != nil {
		return Value{}, err
	}

	switch n.op {
	case opEq:
		return Bool(l.equal(r)), nil
	case opNe:
		return Bool(!l.equal(r)), nil
	case opIn, opNotIn:
		in, err := contains(r, l)
		if err != nil {
			return Value{}, err
		}
		return Bool(in == (n.op == opIn)), nil
	}
	return Value{}, fmt.Errorf("filter: unknown operator")
}
func (n cmpNode) walk(fn func(node)) {
	fn(n)
	n.l.walk(fn)
	n.r.walk(fn)
}

type listNode struct{ items []node }

func (n listNode) eval(env Env) (Value, error) {
	items := make([]string, 0, len(n.items))
	for _, it := range n.items {
		v, err := it.eval(env)
		if err != nil {
			return Value{}, err
		}
		if v.Kind != KindString {
			return Value{}, fmt.Errorf("filter: list literals may only hold strings")
		}
		items = append(items, v.Str)
	}
	return List(items), nil
}
func (n listNode) walk(fn func(node)) {
	fn(n)
	for _, it := range n.items {
		it.walk(fn)
	}
}
