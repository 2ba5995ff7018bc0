package meta

import (
	"reflect"
	"strings"
)

// Marker is the component marker carried by a class
type Marker int

const (
	MarkerNone Marker = iota
	MarkerController
	MarkerService
)

// String implements fmt.Stringer
func (m Marker) String() string {
	switch m {
	case MarkerController:
		return "controller"
	case MarkerService:
		return "service"
	default:
		return "none"
	}
}

// Mapping binds a method-level route path to a handler method.
// Bind holds the declared binding name of each handler parameter by
// position; parameters without a name use "".
type Mapping struct {
	Path   string   `json:"path"`
	Method string   `json:"method"`
	Bind   []string `json:"bind,omitempty"`
}

// BindingName returns the declared binding name of parameter i.
func (m Mapping) BindingName(i int) string {
	if i < 0 || i >= len(m.Bind) {
		return ""
	}
	return m.Bind[i]
}

// ClassDescriptor describes one class known to the framework.
type ClassDescriptor struct {
	Name       string
	Package    string
	SimpleName string
	Marker     Marker
	// BeanName is the explicit name given by the service marker.
	BeanName   string
	Prefix     string
	Mappings   []Mapping
	Interfaces []reflect.Type
	Type       reflect.Type
	// New is the no-argument constructor. It returns a pointer to a fresh
	// zero value of Type unless replaced with WithConstructor.
	New func() (any, error)
}

// Option configures a ClassDescriptor
type Option func(*ClassDescriptor)

// Describe builds the descriptor of the named type T.
func Describe[T any](opts ...Option) ClassDescriptor {
	t := reflect.TypeOf((*T)(nil)).Elem()
	d := ClassDescriptor{
		Name:       TypeName(t),
		Package:    t.PkgPath(),
		SimpleName: t.Name(),
		Type:       t,
	}
	if t.Kind() == reflect.Struct {
		d.New = func() (any, error) { return new(T), nil }
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// AsController marks the class as a controller.
func AsController() Option {
	return func(d *ClassDescriptor) {
		d.Marker = MarkerController
	}
}

// AsService marks the class as a service. An empty name registers the
// instance under each declared interface instead.
func AsService(name string) Option {
	return func(d *ClassDescriptor) {
		d.Marker = MarkerService
		d.BeanName = strings.TrimSpace(name)
	}
}

// RequestMapping sets the class-level route prefix.
func RequestMapping(prefix string) Option {
	return func(d *ClassDescriptor) {
		d.Prefix = prefix
	}
}

// Handle maps path to the exported method named method. binds are the
// binding names of the method parameters in order.
func Handle(path, method string, binds ...string) Option {
	return func(d *ClassDescriptor) {
		d.Mappings = append(d.Mappings, Mapping{
			Path:   path,
			Method: method,
			Bind:   append([]string(nil), binds...),
		})
	}
}

// Implements declares that the class implements interface I.
func Implements[I any]() Option {
	return func(d *ClassDescriptor) {
		d.Interfaces = append(d.Interfaces, reflect.TypeOf((*I)(nil)).Elem())
	}
}

// WithConstructor replaces the default constructor.
func WithConstructor(fn func() (any, error)) Option {
	return func(d *ClassDescriptor) {
		d.New = fn
	}
}

// Managed reports whether the class carries a component marker.
func (d ClassDescriptor) Managed() bool {
	return d.Marker != MarkerNone
}

// clone returns a copy that shares no slices with d.
func (d ClassDescriptor) clone() ClassDescriptor {
	out := d
	if d.Mappings != nil {
		out.Mappings = make([]Mapping, len(d.Mappings))
		for i, m := range d.Mappings {
			m.Bind = append([]string(nil), m.Bind...)
			out.Mappings[i] = m
		}
	}
	if d.Interfaces != nil {
		out.Interfaces = append([]reflect.Type(nil), d.Interfaces...)
	}
	return out
}
