package engine

import (
	"reflect"
	"strconv"
	"strings"
)

// extractPath resolves a dotted path against a subject. Maps are indexed by
// key, slices by decimal index and structs by field name or json tag. The
// second result is false when any segment is absent.
func extractPath(subject interface{}, path string) (interface{}, bool) {
	if path == "" {
		return subject, subject != nil
	}

	current := subject
	for _, part := range strings.Split(path, ".") {
		next, ok := extractSegment(current, part)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func extractSegment(value interface{}, key string) (interface{}, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case map[string]interface{}:
		out, ok := v[key]
		return out, ok
	case []interface{}:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(v) {
			return nil, false
		}
		return v[i], true
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !out.IsValid() {
			return nil, false
		}
		return out.Interface(), true

	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true

	case reflect.Struct:
		return structField(rv, key)
	}

	return nil, false
}

func structField(rv reflect.Value, key string) (interface{}, bool) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			if tagName, _, _ := strings.Cut(tag, ","); tagName != "" && tagName != "-" {
				name = tagName
			}
		}
		if name == key || f.Name == key {
			fv := rv.Field(i)
			if fv.Kind() == reflect.Pointer && fv.IsNil() {
				return nil, false
			}
			return fv.Interface(), true
		}
	}
	return nil, false
}

// subjectID derives a subject identifier from an "id" entry or field.
func subjectID(subject interface{}) string {
	if ider, ok := subject.(interface{ SubjectID() string }); ok {
		return ider.SubjectID()
	}
	raw, ok := extractPath(subject, "id")
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}
