package query

import (
	"fmt"
	"regexp"
	"strings"
)

// fieldTest checks one document field against an operand. present is
// false when the field is missing; value is then nil.
type fieldTest func(value any, present bool, arg any) (bool, error)

var fieldOperators = map[string]fieldTest{
	"$gt":         compare(func(v, a float64) bool { return v > a }),
	"$lt":         compare(func(v, a float64) bool { return v < a }),
	"$gte":        compare(func(v, a float64) bool { return v >= a }),
	"$lte":        compare(func(v, a float64) bool { return v <= a }),
	"$in":         in,
	"$nin":        notIn,
	"$between":    between,
	"$exists":     exists,
	"$type":       typeIs,
	"$arrinc":     arrayIncludes(false),
	"$arrincall":  arrayIncludes(true),
	"$size":       size,
	"$regex":      regex,
	"$startsWith": stringTest(strings.HasPrefix),
	"$endsWith":   stringTest(strings.HasSuffix),
	"$subset":     subset,
}

func badOperand(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrMalformedExpression)...)
}

func compare(cmp func(v, a float64) bool) fieldTest {
	return func(value any, present bool, arg any) (bool, error) {
		a, ok := ToFloat(arg)
		if !ok {
			return false, badOperand("expected a number, got %T", arg)
		}
		v, ok := ToFloat(value)
		if !present || !ok {
			return false, nil
		}
		return cmp(v, a), nil
	}
}

func in(value any, present bool, arg any) (bool, error) {
	list, ok := AsList(arg)
	if !ok {
		return false, badOperand("expected a list, got %T", arg)
	}
	return present && Contains(list, value), nil
}

func notIn(value any, present bool, arg any) (bool, error) {
	ok, err := in(value, present, arg)
	return !ok && err == nil, err
}

func between(value any, present bool, arg any) (bool, error) {
	bounds, ok := AsList(arg)
	if !ok || len(bounds) != 2 {
		return false, badOperand("expected [low, high], got %v", arg)
	}
	low, okLow := ToFloat(bounds[0])
	high, okHigh := ToFloat(bounds[1])
	if !okLow || !okHigh {
		return false, badOperand("expected numeric bounds, got %v", arg)
	}
	v, ok := ToFloat(value)
	if !present || !ok {
		return false, nil
	}
	return low <= v && v <= high, nil
}

func exists(_ any, present bool, arg any) (bool, error) {
	want, ok := arg.(bool)
	if !ok {
		return false, badOperand("expected a boolean, got %T", arg)
	}
	return present == want, nil
}

func typeIs(value any, present bool, arg any) (bool, error) {
	name, ok := arg.(string)
	if !ok {
		return false, badOperand("expected a type name, got %T", arg)
	}
	return present && TypeName(value) == name, nil
}

func arrayIncludes(all bool) fieldTest {
	return func(value any, present bool, arg any) (bool, error) {
		want, ok := AsList(arg)
		if !ok {
			return false, badOperand("expected a list, got %T", arg)
		}
		have, ok := AsList(value)
		if !present || !ok {
			return false, nil
		}
		for _, w := range want {
			found := Contains(have, w)
			if all && !found {
				return false, nil
			}
			if !all && found {
				return true, nil
			}
		}
		return all, nil
	}
}

func size(value any, present bool, arg any) (bool, error) {
	n, ok := ToFloat(arg)
	if !ok {
		return false, badOperand("expected a number, got %T", arg)
	}
	list, ok := AsList(value)
	if !present || !ok {
		return false, nil
	}
	return float64(len(list)) == n, nil
}

func regex(value any, present bool, arg any) (bool, error) {
	var re *regexp.Regexp
	switch p := arg.(type) {
	case *regexp.Regexp:
		re = p
	case string:
		var err error
		re, err = regexp.Compile(p)
		if err != nil {
			return false, badOperand("invalid pattern %q: %v", p, err)
		}
	default:
		return false, badOperand("expected a pattern, got %T", arg)
	}
	s, ok := value.(string)
	if !present || !ok {
		return false, nil
	}
	return re.MatchString(s), nil
}

func stringTest(test func(s, affix string) bool) fieldTest {
	return func(value any, present bool, arg any) (bool, error) {
		affix, ok := arg.(string)
		if !ok {
			return false, badOperand("expected a string, got %T", arg)
		}
		s, ok := value.(string)
		if !present || !ok {
			return false, nil
		}
		return test(s, affix), nil
	}
}

// subset holds when every entry of the document's object field is present
// with an equal value in arg.
func subset(value any, present bool, arg any) (bool, error) {
	super, ok := arg.(map[string]any)
	if !ok {
		return false, badOperand("expected an object, got %T", arg)
	}
	obj, ok := value.(map[string]any)
	if !present || !ok {
		return false, nil
	}
	for k, v := range obj {
		sv, ok := super[k]
		if !ok || !Equal(v, sv) {
			return false, nil
		}
	}
	return true, nil
}
