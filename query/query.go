// Package query evaluates predicates and projections over documents.
//
// A predicate is either a declarative expression or a Go function. An
// expression is a map whose keys are either plain field names, tested for
// equality, or operators:
//
//	{"type": "cat", "$gt": {"age": 2}, "$or": [{"owner": "Ann"}, {"owner": "Bob"}]}
//
// Operator keys wrap a map of field name to operand, except $and and $or
// (a list of expressions) and $not (a single expression). All top-level
// conditions must hold.
package query

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Document is a single record of a collection.
type Document = map[string]any

// Context is caller data passed through to predicate and updater
// functions. The engine never inspects it.
type Context = map[string]any

// Expr is a declarative query or update expression.
type Expr = map[string]any

// ErrMalformedExpression is returned when an operator's operand has the
// wrong shape.
var ErrMalformedExpression = errors.New("malformed expression")

// PredicateFunc tests a document.
type PredicateFunc func(doc Document, ctx Context) (bool, error)

// Query is a predicate: an expression or a function. The zero Query
// matches every document.
type Query struct {
	fn   PredicateFunc
	expr Expr
}

// Where returns a Query evaluating expr.
func Where(expr Expr) Query {
	return Query{expr: expr}
}

// Func returns a Query calling fn.
func Func(fn PredicateFunc) Query {
	return Query{fn: fn}
}

// IsFunc reports whether q wraps a function.
func (q Query) IsFunc() bool {
	return q.fn != nil
}

// Expr returns the expression of q, or nil for function queries.
func (q Query) Expr() Expr {
	if q.fn != nil {
		return nil
	}
	return q.expr
}

// Match reports whether doc satisfies q.
func (q Query) Match(doc Document, ctx Context) (bool, error) {
	if q.fn != nil {
		if ctx == nil {
			ctx = Context{}
		}
		return q.fn(doc, ctx)
	}
	return Match(doc, q.expr)
}

// Match evaluates expr against doc. Keys are evaluated in sorted order so
// that a malformed expression fails the same way on every call.
func Match(doc Document, expr Expr) (bool, error) {
	for _, key := range slices.Sorted(maps.Keys(expr)) {
		ok, err := matchKey(doc, key, expr[key])
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchKey(doc Document, key string, operand any) (bool, error) {
	switch key {
	case "$and":
		subs, err := exprList(key, operand)
		if err != nil {
			return false, err
		}
		for _, sub := range subs {
			ok, err := Match(doc, sub)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case "$or":
		subs, err := exprList(key, operand)
		if err != nil {
			return false, err
		}
		for _, sub := range subs {
			ok, err := Match(doc, sub)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case "$not":
		sub, ok := operand.(map[string]any)
		if !ok {
			return false, malformed(key, "expected an expression, got %T", operand)
		}
		ok, err := Match(doc, sub)
		return !ok && err == nil, err
	}

	if test, ok := fieldOperators[key]; ok {
		fields, ok := operand.(map[string]any)
		if !ok {
			return false, malformed(key, "expected a field map, got %T", operand)
		}
		for _, field := range slices.Sorted(maps.Keys(fields)) {
			value, present := doc[field]
			ok, err := test(value, present, fields[field])
			if err != nil {
				return false, fmt.Errorf("%s.%s: %w", key, field, err)
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}

	value, present := doc[key]
	return present && Equal(value, operand), nil
}

func exprList(op string, operand any) ([]Expr, error) {
	switch l := operand.(type) {
	case []Expr:
		return l, nil
	case nil:
		return nil, nil
	}
	list, ok := AsList(operand)
	if !ok {
		return nil, malformed(op, "expected a list of expressions, got %T", operand)
	}
	out := make([]Expr, 0, len(list))
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, malformed(op, "expected an expression, got %T", e)
		}
		out = append(out, m)
	}
	return out, nil
}

func malformed(op, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), ErrMalformedExpression)
}
