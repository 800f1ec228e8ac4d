package binder

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// boundField is one settable struct field and the parameter feeding it.
type boundField struct {
	index int
	name  string
	param string
}

type planKey struct {
	typ reflect.Type
	tag string
}

// plans caches the tagged fields of each (struct type, tag) pair.
var plans sync.Map

func planFor(t reflect.Type, tag string) []boundField {
	key := planKey{t, tag}
	if p, ok := plans.Load(key); ok {
		return p.([]boundField)
	}
	var fields []boundField
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		param, _, _ := strings.Cut(sf.Tag.Get(tag), ",")
		if param == "" || param == "-" {
			continue
		}
		fields = append(fields, boundField{index: i, name: sf.Name, param: param})
	}
	p, _ := plans.LoadOrStore(key, fields)
	return p.([]boundField)
}

// bindFields sets every field of the struct v points to whose tag names a
// parameter that lookup returns values for. Untagged fields are left alone.
func bindFields(v any, tag string, lookup func(param string) []string, kind error) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: target must be a non-nil struct pointer, got %T", kind, v)
	}
	rv = rv.Elem()

	for _, f := range planFor(rv.Type(), tag) {
		values := lookup(f.param)
		if len(values) == 0 {
			continue
		}
		if err := assign(rv.Field(f.index), values); err != nil {
			return fmt.Errorf("%w: %s: %v", kind, f.param, err)
		}
	}
	return nil
}

func assign(dst reflect.Value, values []string) error {
	switch dst.Kind() {
	case reflect.Pointer:
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), values); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	case reflect.Slice:
		items := splitList(values)
		out := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			if err := assignScalar(out.Index(i), item); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	}
	return assignScalar(dst, values[0])
}

var errUnsupported = errors.New("unsupported field type")

func assignScalar(dst reflect.Value, s string) error {
	switch dst.Kind() {
	case reflect.String:
		dst.SetString(s)
	case reflect.Bool:
		b, err := parseBool(s)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("%q is not an integer", s)
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("%q is not a non-negative integer", s)
		}
		dst.SetUint(n)
	default:
		return fmt.Errorf("%w %s", errUnsupported, dst.Type())
	}
	return nil
}

// parseBool extends strconv.ParseBool with yes/no and on/off.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%q is not a boolean", s)
	}
	return b, nil
}

// splitList flattens repeated and comma separated values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
