// Package update applies update expressions to documents.
//
// An update expression maps operators to a field map:
//
//	{"$set": {"name": "Tom"}, "$inc": {"age": 1}, "$push": {"tags": "new"}}
//
// Keys that are not operators assign the field directly, so a plain
// {"name": "Tom"} behaves like {"$set": {"name": "Tom"}}.
package update

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/stevemurr/simple-doc-store/query"
)

// ErrInvalidOperand is returned when an operator cannot be applied to the
// operand or to the current field value.
var ErrInvalidOperand = errors.New("invalid update operand")

// UpdateFunc mutates doc in place.
type UpdateFunc func(doc query.Document, ctx query.Context) error

// Updater is a function or an ordered list of expressions.
type Updater struct {
	fn    UpdateFunc
	exprs []query.Expr
}

// With returns an Updater applying exprs left to right.
func With(exprs ...query.Expr) Updater {
	return Updater{exprs: exprs}
}

// Func returns an Updater calling fn.
func Func(fn UpdateFunc) Updater {
	return Updater{fn: fn}
}

// IsFunc reports whether u wraps a function.
func (u Updater) IsFunc() bool {
	return u.fn != nil
}

// Exprs returns the expressions of u, or nil for function updaters.
func (u Updater) Exprs() []query.Expr {
	if u.fn != nil {
		return nil
	}
	return u.exprs
}

// Apply mutates doc according to u. An error leaves doc partially
// updated; callers discard the snapshot in that case.
func (u Updater) Apply(doc query.Document, ctx query.Context) error {
	if u.fn != nil {
		if ctx == nil {
			ctx = query.Context{}
		}
		return u.fn(doc, ctx)
	}
	for _, e := range u.exprs {
		if err := Apply(doc, e); err != nil {
			return err
		}
	}
	return nil
}

type operator func(doc query.Document, field string, arg any) error

var operators = map[string]operator{
	"$set":     set,
	"$inc":     add(1),
	"$dec":     add(-1),
	"$unset":   unset,
	"$rename":  rename,
	"$push":    push(false),
	"$pushset": push(true),
	"$pull":    pull,
	"$pullall": pullAll,
	"$merge":   merge,
}

// IsOperator reports whether key names an update operator.
func IsOperator(key string) bool {
	_, ok := operators[key]
	return ok
}

// Apply applies a single expression to doc. Keys are applied in sorted
// order.
func Apply(doc query.Document, expr query.Expr) error {
	for _, key := range slices.Sorted(maps.Keys(expr)) {
		arg := expr[key]
		op, ok := operators[key]
		if !ok {
			doc[key] = arg
			continue
		}
		if key == "$unset" {
			if names, ok := query.AsList(arg); ok {
				for _, n := range names {
					field, ok := n.(string)
					if !ok {
						return fmt.Errorf("$unset: field name %v: %w", n, ErrInvalidOperand)
					}
					delete(doc, field)
				}
				continue
			}
		}
		fields, ok := arg.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected a field map, got %T: %w", key, arg, ErrInvalidOperand)
		}
		for _, field := range slices.Sorted(maps.Keys(fields)) {
			if err := op(doc, field, fields[field]); err != nil {
				return fmt.Errorf("%s.%s: %w", key, field, err)
			}
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidOperand)...)
}

func set(doc query.Document, field string, arg any) error {
	doc[field] = arg
	return nil
}

func add(sign float64) operator {
	return func(doc query.Document, field string, arg any) error {
		delta, ok := query.ToFloat(arg)
		if !ok {
			return invalid("expected a numeric delta, got %T", arg)
		}
		cur := 0.0
		if v, present := doc[field]; present {
			if cur, ok = query.ToFloat(v); !ok {
				return invalid("field is %s, not a number", query.TypeName(v))
			}
		}
		doc[field] = cur + sign*delta
		return nil
	}
}

func unset(doc query.Document, field string, _ any) error {
	delete(doc, field)
	return nil
}

func rename(doc query.Document, field string, arg any) error {
	to, ok := arg.(string)
	if !ok || to == "" {
		return invalid("expected a new field name, got %v", arg)
	}
	v, present := doc[field]
	if !present {
		return nil
	}
	delete(doc, field)
	doc[to] = v
	return nil
}

func arrayField(doc query.Document, field string) ([]any, error) {
	v, present := doc[field]
	if !present || v == nil {
		return nil, nil
	}
	list, ok := query.AsList(v)
	if !ok {
		return nil, invalid("field is %s, not an array", query.TypeName(v))
	}
	return list, nil
}

func push(unique bool) operator {
	return func(doc query.Document, field string, arg any) error {
		list, err := arrayField(doc, field)
		if err != nil {
			return err
		}
		if unique && query.Contains(list, arg) {
			return nil
		}
		doc[field] = append(slices.Clip(list), arg)
		return nil
	}
}

func pull(doc query.Document, field string, arg any) error {
	return removeWhere(doc, field, func(e any) bool { return query.Equal(e, arg) })
}

func pullAll(doc query.Document, field string, arg any) error {
	values, ok := query.AsList(arg)
	if !ok {
		return invalid("expected a list, got %T", arg)
	}
	return removeWhere(doc, field, func(e any) bool { return query.Contains(values, e) })
}

func removeWhere(doc query.Document, field string, drop func(any) bool) error {
	list, err := arrayField(doc, field)
	if err != nil || list == nil {
		return err
	}
	kept := make([]any, 0, len(list))
	for _, e := range list {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	doc[field] = kept
	return nil
}

func merge(doc query.Document, field string, arg any) error {
	src, ok := arg.(map[string]any)
	if !ok {
		return invalid("expected an object, got %T", arg)
	}
	dst := map[string]any{}
	if v, present := doc[field]; present && v != nil {
		cur, ok := v.(map[string]any)
		if !ok {
			return invalid("field is %s, not an object", query.TypeName(v))
		}
		dst = maps.Clone(cur)
	}
	maps.Copy(dst, src)
	doc[field] = dst
	return nil
}

// MergeFields merges field maps into one document, later sources winning
// on key collisions. Within each source a key starting with "$"
// contributes the fields of its map value instead of itself; operator keys
// holding anything else (such as the list of $or) contribute nothing.
func MergeFields(sources ...map[string]any) query.Document {
	out := query.Document{}
	for _, src := range sources {
		for _, key := range slices.Sorted(maps.Keys(src)) {
			v := src[key]
			if strings.HasPrefix(key, "$") {
				if nested, ok := v.(map[string]any); ok {
					maps.Copy(out, nested)
				}
				continue
			}
			out[key] = v
		}
	}
	return out
}
