package request

import (
	jsonlib "encoding/json"
	"fmt"
	"maps"
	"net/url"
	"reflect"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/cast"
)

// Query is a set of query parameters with scalar values.
// Nil values are omitted, so an optional parameter can be left unset by the caller.
// Slices produce repeated keys.
type Query map[string]any

// Values encodes the Query to url.Values.
func (q Query) Values() url.Values {
	out := make(url.Values)
	for k, v := range q {
		addValue(out, k, v)
	}
	return out
}

// Encode returns the query string, keys are sorted.
func (q Query) Encode() string {
	return q.Values().Encode()
}

// ToFormBody encodes a JSON like map to form values with the Query rules.
func ToFormBody(in map[string]any) url.Values {
	return Query(in).Values()
}

func addValue(out url.Values, key string, v any) {
	if isNil(v) {
		return
	}
	switch val := v.(type) {
	case []string:
		for _, item := range val {
			out.Add(key, item)
		}
		return
	case []any:
		for _, item := range val {
			addValue(out, key, item)
		}
		return
	case *orderedmap.OrderedMap, orderedmap.OrderedMap:
		out.Add(key, scalarString(val))
		return
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		addValue(out, key, rv.Elem().Interface())
		return
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		for i := range rv.Len() {
			addValue(out, key, rv.Index(i).Interface())
		}
		return
	}
	out.Add(key, scalarString(v))
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// scalarString formats a scalar value, an ordered map is encoded to compact JSON.
// A value cast cannot handle falls back to the fmt formatting.
func scalarString(v any) string {
	switch m := v.(type) {
	case *orderedmap.OrderedMap:
		if out, err := jsonlib.Marshal(m); err == nil {
			return string(out)
		}
	case orderedmap.OrderedMap:
		if out, err := jsonlib.Marshal(&m); err == nil {
			return string(out)
		}
	}
	if out, err := cast.ToStringE(v); err == nil {
		return out
	}
	return fmt.Sprint(v)
}

func cloneParams(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	maps.Copy(out, in)
	return out
}

func cloneURLValues(in url.Values) url.Values {
	out := make(url.Values, len(in)+1)
	for k, values := range in {
		out[k] = append([]string(nil), values...)
	}
	return out
}
