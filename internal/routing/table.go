package routing

import (
	"net/http"
	"reflect"
	"sort"
	"strings"
)

// ParamKind is how the dispatcher resolves a handler parameter
type ParamKind int

const (
	ParamUnsupported ParamKind = iota
	ParamRequest
	ParamResponse
	ParamString
	ParamNumeric
)

// String implements fmt.Stringer
func (k ParamKind) String() string {
	switch k {
	case ParamRequest:
		return "request"
	case ParamResponse:
		return "response"
	case ParamString:
		return "string"
	case ParamNumeric:
		return "numeric"
	default:
		return "unsupported"
	}
}

// MarshalText renders the kind by name in JSON
func (k ParamKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

var (
	requestType  = reflect.TypeOf((*http.Request)(nil))
	responseType = reflect.TypeOf((*http.ResponseWriter)(nil)).Elem()
)

// Param describes one handler parameter.
type Param struct {
	Index int          `json:"index"`
	Type  reflect.Type `json:"-"`
	Name  string       `json:"name,omitempty"`
	Kind  ParamKind    `json:"kind"`
}

// classify resolves the kind of a parameter type.
func classify(t reflect.Type) ParamKind {
	switch {
	case t == requestType:
		return ParamRequest
	case t == responseType:
		return ParamResponse
	}
	switch t.Kind() {
	case reflect.String:
		return ParamString
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return ParamNumeric
	}
	return ParamUnsupported
}

// Entry is one route: a normalized path and the handler it reaches.
// Entries are shared between requests and must not be modified.
type Entry struct {
	Path string `json:"path"`
	// Class is the fully-qualified name of the owning controller.
	Class string `json:"class"`
	// Owner is the simple name of the owning controller.
	Owner  string  `json:"owner"`
	Method string  `json:"method"`
	Params []Param `json:"params"`
}

// Table is the immutable path to handler mapping.
type Table struct {
	entries map[string]Entry
}

// newTable freezes the entries built by the Builder.
func newTable(entries map[string]Entry) *Table {
	m := make(map[string]Entry, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return &Table{entries: m}
}

// Lookup returns the route registered for path
func (t *Table) Lookup(path string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[path]
	return e, ok
}

// Entries returns all routes sorted by path
func (t *Table) Entries() []Entry {
	if t == nil {
		return []Entry{}
	}
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of routes
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Clean collapses every run of '/' into one.
func Clean(path string) string {
	if !strings.Contains(path, "//") {
		return path
	}
	var b strings.Builder
	b.Grow(len(path))
	prev := byte(0)
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '/' && prev == '/' {
			continue
		}
		b.WriteByte(c)
		prev = c
	}
	return b.String()
}

// Join builds the route path of a method mapping. Every '/' is removed from
// the method path, so "/a/b" becomes the single segment "ab".
func Join(prefix, methodPath string) string {
	return Clean("/" + prefix + "/" + strings.ReplaceAll(methodPath, "/", ""))
}
