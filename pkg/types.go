package reaction

import (
	"fmt"
	"reflect"
	"strings"

	"go-hep.org/x/hep/fmom"
)

// Record holds the raw jagged arrays of one event, keyed by input column name.
type Record map[string]any

// TypeOf returns the type tag used to declare columns holding T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

var (
	tInt      = TypeOf[int]()
	tBool     = TypeOf[bool]()
	tFloat64  = TypeOf[float64]()
	tInt16s   = TypeOf[[]int16]()
	tInt32s   = TypeOf[[]int32]()
	tFloat64s = TypeOf[[]float64]()
	tP4       = TypeOf[fmom.PxPyPzE]()
	tRevMap   = TypeOf[ReverseMap]()
	tPerm     = TypeOf[Permutation]()
)

var typeNames = map[string]reflect.Type{
	"int":       tInt,
	"bool":      tBool,
	"float32":   TypeOf[float32](),
	"float64":   tFloat64,
	"int8":      TypeOf[int8](),
	"int16":     TypeOf[int16](),
	"int32":     TypeOf[int32](),
	"int64":     TypeOf[int64](),
	"[]int8":    TypeOf[[]int8](),
	"[]int16":   tInt16s,
	"[]int32":   tInt32s,
	"[]int64":   TypeOf[[]int64](),
	"[]float32": TypeOf[[]float32](),
	"[]float64": tFloat64s,
}

// ParseType maps a configuration type tag such as "[]float64" to its Go type.
func ParseType(name string) (reflect.Type, error) {
	t, ok := typeNames[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("unknown column type %q", name)
	}
	return t, nil
}

// toFloat converts numeric scalars to float64 for histograms and snapshots.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// elementFloat returns element i of a numeric slice as float64.
func elementFloat(v any, i int) (float64, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || !ValidIndex(i, rv.Len()) {
		return 0, false
	}
	return toFloat(rv.Index(i).Interface())
}
