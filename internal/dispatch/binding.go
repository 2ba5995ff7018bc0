package dispatch

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"minimvc/internal/routing"
)

// Binding selects how string parameters are resolved
type Binding string

const (
	// BindingLegacy gives every string parameter the value of the last
	// query entry visited, multi-values joined with ",". Keys are visited
	// in sorted order, so the last entry is the greatest key.
	BindingLegacy Binding = "legacy"
	// BindingNamed gives each string parameter the first value of its
	// declared binding name.
	BindingNamed Binding = "named"
)

// ParseBinding maps a configuration value to a Binding
func ParseBinding(s string) (Binding, error) {
	switch Binding(strings.ToLower(strings.TrimSpace(s))) {
	case "", BindingLegacy:
		return BindingLegacy, nil
	case BindingNamed:
		return BindingNamed, nil
	}
	return "", fmt.Errorf("unknown parameter binding %q", s)
}

// commaSpace matches a comma and the single whitespace character after it.
var commaSpace = regexp.MustCompile(`,[\t\n\v\f\r ]`)

// legacyValue returns the value the legacy binding assigns to every string
// parameter, and false when the query holds no entries.
func legacyValue(form url.Values) (string, bool) {
	if len(form) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// rendered as "[a, b]", brackets dropped and a comma with the
	// whitespace after it folded to ","
	v := strings.Join(form[keys[len(keys)-1]], ", ")
	v = strings.NewReplacer("[", "", "]", "").Replace(v)
	return commaSpace.ReplaceAllString(v, ","), true
}

// stringValue resolves a string parameter
func stringValue(b Binding, form url.Values, p routing.Param) reflect.Value {
	var s string
	if b == BindingNamed {
		if p.Name != "" {
			s = form.Get(p.Name)
		}
	} else {
		s, _ = legacyValue(form)
	}
	v := reflect.New(p.Type).Elem()
	v.SetString(s)
	return v
}

// numericValue parses the value named by the parameter binding name.
func numericValue(form url.Values, p routing.Param) (reflect.Value, error) {
	if p.Name == "" {
		return reflect.Value{}, fmt.Errorf("parameter %d has no binding name", p.Index)
	}
	raw, ok := form[p.Name]
	if !ok || len(raw) == 0 {
		return reflect.Value{}, fmt.Errorf("missing value for %q", p.Name)
	}
	s := strings.TrimSpace(raw[0])

	v := reflect.New(p.Type).Elem()
	switch p.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, p.Type.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("parse %q: %w", p.Name, err)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, p.Type.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("parse %q: %w", p.Name, err)
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, p.Type.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("parse %q: %w", p.Name, err)
		}
		v.SetFloat(f)
	case reflect.Bool:
		bv, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("parse %q: %w", p.Name, err)
		}
		v.SetBool(bv)
	default:
		return reflect.Value{}, fmt.Errorf("%s is not numeric", p.Type)
	}
	return v, nil
}

// nillable reports whether the zero value of t is nil.
func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	}
	return false
}
