package predicate

import (
	"cmp"
	"math"
	"reflect"
)

// AsFloat returns the numeric value of v as a float64, if v is a number.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// AsInt64 returns the integral value of v, if v is an integer.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	default:
		return 0, false
	}
}

// IsNumber returns true if v is a Go numeric value.
func IsNumber(v any) bool {
	_, ok := AsFloat(v)
	return ok
}

// Ceil returns the smallest integer not less than the number v.
func Ceil(v any) (int64, bool) {
	if i, ok := AsInt64(v); ok {
		return i, true
	}
	f, ok := AsFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(math.Ceil(f)), true
}

// Equal compares two values, treating numbers of different types as equal
// when they have the same numeric value.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ai, ok := AsInt64(a); ok {
		if bi, ok := AsInt64(b); ok {
			return ai == bi
		}
	}
	if af, ok := AsFloat(a); ok {
		if bf, ok := AsFloat(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two values of the same kind. The boolean is false when the
// values have no natural order relative to each other.
func Compare(a, b any) (int, bool) {
	if ai, ok := AsInt64(a); ok {
		if bi, ok := AsInt64(b); ok {
			return cmp.Compare(ai, bi), true
		}
	}
	if af, ok := AsFloat(a); ok {
		if bf, ok := AsFloat(b); ok {
			return cmp.Compare(af, bf), true
		}
		return 0, false
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return cmp.Compare(av, bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}

// Max returns the greatest of the values, provided all of them are mutually
// comparable.
func Max(values []any) (any, bool) {
	if len(values) == 0 {
		return nil, false
	}
	maxValue := values[0]
	for _, v := range values[1:] {
		c, ok := Compare(v, maxValue)
		if !ok {
			return nil, false
		}
		if c > 0 {
			maxValue = v
		}
	}
	if _, ok := Compare(maxValue, maxValue); !ok {
		return nil, false
	}
	return maxValue, true
}
