package codec

import (
	"fmt"
	"reflect"
	"strings"
)

// checkRequired walks doc alongside t and fails if a required struct field
// has no key in the corresponding object.
//
// A field is required when it is exported, not skipped with `json:"-"`, has
// no omitempty/omitzero option, and is not a pointer, map, slice, or
// interface. Embedded structs without a name tag contribute their fields to
// the parent object, matching encoding/json. Keys are matched the way the
// format's decoder matches them.
func checkRequired(f Format, t reflect.Type, doc any, path string) error {
	for t.Kind() == reflect.Pointer {
		if doc == nil {
			return nil
		}

		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return checkStruct(f, t, doc, path)
	case reflect.Slice, reflect.Array:
		items, ok := doc.([]any)
		if !ok {
			return nil
		}

		for i, item := range items {
			err := checkRequired(f, t.Elem(), item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func checkStruct(format Format, t reflect.Type, doc any, path string) error {
	fields := requiredFields(t)
	if len(fields) == 0 {
		return nil
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		if doc == nil {
			for _, f := range fields {
				if f.required {
					return fmt.Errorf("%w: %s is null, want object with field %q", ErrMalformedPayload, displayPath(path), f.name)
				}
			}
		}

		// Types with custom text encodings land here; the body decoder reports
		// real mismatches.
		return nil
	}

	for _, f := range fields {
		val, found := lookup(format, obj, f.name)
		fieldPath := joinPath(path, f.name)

		if !found {
			if f.required {
				return fmt.Errorf("%w: missing required field %q", ErrMalformedPayload, fieldPath)
			}

			continue
		}

		err := checkRequired(format, f.typ, val, fieldPath)
		if err != nil {
			return err
		}
	}

	return nil
}

type fieldInfo struct {
	name     string
	typ      reflect.Type
	required bool
}

// requiredFields lists the fields of t that need checking: required ones and
// optional ones whose nested values may have required fields of their own.
func requiredFields(t reflect.Type) []fieldInfo {
	var out []fieldInfo

	for i := range t.NumField() {
		sf := t.Field(i)

		tag := sf.Tag.Get(structTag)
		if tag == "-" {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")

		if sf.Anonymous && name == "" {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}

			if et.Kind() == reflect.Struct {
				embedded := requiredFields(et)
				if sf.Type.Kind() == reflect.Pointer {
					for j := range embedded {
						embedded[j].required = false
					}
				}

				out = append(out, embedded...)

				continue
			}
		}

		if !sf.IsExported() {
			continue
		}

		if name == "" {
			name = sf.Name
		}

		out = append(out, fieldInfo{
			name:     name,
			typ:      sf.Type,
			required: isRequired(sf.Type, opts),
		})
	}

	return out
}

func isRequired(t reflect.Type, opts string) bool {
	for opt := range strings.SplitSeq(opts, ",") {
		if opt == "omitempty" || opt == "omitzero" {
			return false
		}
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return false
	default:
		return true
	}
}

// lookup finds key in obj. JSON falls back to a case-insensitive match the
// way encoding/json does; msgpack field names match exactly.
func lookup(f Format, obj map[string]any, key string) (any, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}

	if f != FormatJSON {
		return nil, false
	}

	for k, v := range obj {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}

	return nil, false
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}

	return path + "." + name
}

func displayPath(path string) string {
	if path == "" {
		return "document"
	}

	return path
}
