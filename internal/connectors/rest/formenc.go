package rest

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EncodeForm encodes v as application/x-www-form-urlencoded using
// recursive bracket notation:
//
//	{"a": {"b": 1}, "c": [2, 3]}  →  a[b]=1&c[0]=2&c[1]=3
//
// Maps are encoded in sorted key order and structs in field declaration
// order, so the output is stable. Struct fields are named by their "form"
// tag, falling back to the "json" tag; ",omitempty" skips zero values and
// "-" skips the field. Nil pointers and nil interfaces are omitted.
// time.Time values are encoded as Unix seconds. Brackets are left literal;
// key segments and values are query-escaped.
func EncodeForm(v any) (string, error) {
	var pairs []string
	if err := encodeFormValue(&pairs, "", reflect.ValueOf(v)); err != nil {
		return "", err
	}
	return strings.Join(pairs, "&"), nil
}

var timeType = reflect.TypeOf(time.Time{})

func encodeFormValue(out *[]string, key string, v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		return appendFormScalar(out, key, strconv.FormatInt(t.Unix(), 10))
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("rest: cannot form-encode map with %s keys", v.Type().Key().Kind())
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			if err := encodeFormValue(out, formKey(key, k.String()), v.MapIndex(k)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Struct:
		return encodeFormStruct(out, key, v)

	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := encodeFormValue(out, key+"["+strconv.Itoa(i)+"]", v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}

	s, err := formScalar(v)
	if err != nil {
		return err
	}
	return appendFormScalar(out, key, s)
}

func encodeFormStruct(out *[]string, key string, v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitempty, skip := formFieldName(field)
		if skip {
			continue
		}
		fv := v.Field(i)
		if omitempty && fv.IsZero() {
			continue
		}
		if field.Anonymous && name == "" {
			if err := encodeFormValue(out, key, fv); err != nil {
				return err
			}
			continue
		}
		if name == "" {
			name = field.Name
		}
		if err := encodeFormValue(out, formKey(key, name), fv); err != nil {
			return err
		}
	}
	return nil
}

// formFieldName reads the form tag, falling back to the json tag.
func formFieldName(f reflect.StructField) (name string, omitempty, skip bool) {
	tag, ok := f.Tag.Lookup("form")
	if !ok {
		tag, ok = f.Tag.Lookup("json")
	}
	if !ok {
		return "", false, false
	}
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return parts[0], omitempty, false
}

func formKey(parent, name string) string {
	name = url.QueryEscape(name)
	if parent == "" {
		return name
	}
	return parent + "[" + name + "]"
}

func appendFormScalar(out *[]string, key, value string) error {
	if key == "" {
		return fmt.Errorf("rest: cannot form-encode a bare scalar")
	}
	*out = append(*out, key+"="+url.QueryEscape(value))
	return nil
}

func formScalar(v reflect.Value) (string, error) {
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("rest: cannot form-encode %s", v.Kind())
	}
}
