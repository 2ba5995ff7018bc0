package container

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ErrRegistryFrozen is returned by Put once population has finished.
var ErrRegistryFrozen = errors.New("container: registry is frozen")

// Registry maps bean names to singleton instances. Several names may share
// one instance. It is written only while the container is populated and is
// read-only afterwards.
type Registry struct {
	mu     sync.RWMutex
	beans  map[string]any
	frozen bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{beans: make(map[string]any)}
}

// Put stores instance under name. It reports whether an earlier instance
// was replaced; duplicate names overwrite silently.
func (r *Registry) Put(name string, instance any) (replaced bool, err error) {
	if instance == nil {
		return false, fmt.Errorf("container: cannot register nil bean %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return false, ErrRegistryFrozen
	}
	_, replaced = r.beans[name]
	r.beans[name] = instance
	return replaced, nil
}

// Get returns the bean registered under name
func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.beans[name]
	return v, ok
}

// MustGet returns the bean or panics with a helpful message.
func (r *Registry) MustGet(name string) any {
	v, ok := r.Get(name)
	if !ok {
		panic(fmt.Errorf("container: registry missing bean %q", name))
	}
	return v
}

// Has reports whether a bean is registered under name
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns all bean names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.beans))
	for name := range r.beans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of bean names
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.beans)
}

// Instances returns each distinct instance once, in order of the first name
// it is registered under.
func (r *Registry) Instances() []any {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[any]struct{}, len(names))
	out := make([]any, 0, len(names))
	for _, name := range names {
		inst := r.beans[name]
		key := identity(name, inst)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, inst)
	}
	return out
}

// Freeze rejects further writes
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze was called
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// instanceKey identifies a pointer-like bean by type and address; the type
// keeps distinct zero-size values apart.
type instanceKey struct {
	t reflect.Type
	p uintptr
}

// identity returns a comparable key for inst. Non-pointer values that are
// not comparable are treated as distinct per name.
func identity(name string, inst any) any {
	v := reflect.ValueOf(inst)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice, reflect.UnsafePointer:
		return instanceKey{t: v.Type(), p: v.Pointer()}
	}
	if v.Type().Comparable() {
		return inst
	}
	return "name:" + name
}
