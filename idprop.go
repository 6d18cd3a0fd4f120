package remotecoll

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// PropID returns an IDFunc reading the named property of an entity.
//
// Structs are matched by json tag first, then by field name (case-insensitive);
// maps with string keys are indexed directly. Pointers are followed. The value
// is formatted with fmt, floats without exponent so that integral JSON numbers
// match their integer form; a missing property or nil pointer yields "".
func PropID[V any](prop string) IDFunc[V] {
	return func(v V) string {
		return propString(reflect.ValueOf(v), prop)
	}
}

func propString(rv reflect.Value, prop string) string {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return ""
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return ""
		}
		f := rv.MapIndex(reflect.ValueOf(prop).Convert(rv.Type().Key()))
		return format(f)
	case reflect.Struct:
		if i, ok := fieldIndex(rv.Type(), prop); ok {
			f, err := rv.FieldByIndexErr(i)
			if err != nil { // promoted through a nil embedded pointer
				return ""
			}
			return format(f)
		}
	}
	return ""
}

func fieldIndex(t reflect.Type, prop string) ([]int, bool) {
	var byName []int
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag == prop {
			return f.Index, true
		}
		if byName == nil && strings.EqualFold(f.Name, prop) {
			byName = f.Index
		}
	}
	return byName, byName != nil
}

func format(v reflect.Value) string {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return ""
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Float32, reflect.Float64:
		// decoded JSON numbers are float64; 7 and 7.0 must name the same entity
		return strconv.FormatFloat(v.Float(), 'f', -1, v.Type().Bits())
	}
	return fmt.Sprint(v.Interface())
}
