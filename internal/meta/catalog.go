package meta

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Catalog is the startup-time registration table of classes. It is written
// by bootstrap routines and read by the scanner, the container and the route
// builder.
type Catalog struct {
	mu       sync.RWMutex
	classes  map[string]ClassDescriptor
	byType   map[reflect.Type]string
	packages map[string]struct{}
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		classes:  make(map[string]ClassDescriptor),
		byType:   make(map[reflect.Type]string),
		packages: make(map[string]struct{}),
	}
}

// Add records a class. A later descriptor with the same name replaces the
// earlier one.
func (c *Catalog) Add(d ClassDescriptor) error {
	if d.Type == nil {
		return fmt.Errorf("class %q has no type", d.Name)
	}
	if d.Name == "" || d.SimpleName == "" {
		return fmt.Errorf("class of type %s has no name", d.Type)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.classes[d.Name] = d.clone()
	c.byType[d.Type] = d.Name
	c.packages[d.Package] = struct{}{}
	return nil
}

// Register adds every descriptor, stopping at the first invalid one.
func (c *Catalog) Register(descs ...ClassDescriptor) error {
	for _, d := range descs {
		if err := c.Add(d); err != nil {
			return err
		}
	}
	return nil
}

// Declare records a package that may hold no classes.
func (c *Catalog) Declare(pkg string) {
	pkg = strings.TrimSuffix(strings.TrimSpace(pkg), "/")
	if pkg == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.packages[pkg] = struct{}{}
}

// Lookup returns the descriptor of the class with the fully-qualified name.
func (c *Catalog) Lookup(name string) (ClassDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.classes[name]
	if !ok {
		return ClassDescriptor{}, false
	}
	return d.clone(), true
}

// LookupType returns the descriptor registered for t or for the type t
// points to.
func (c *Catalog) LookupType(t reflect.Type) (ClassDescriptor, bool) {
	if t == nil {
		return ClassDescriptor{}, false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	c.mu.RLock()
	name, ok := c.byType[t]
	c.mu.RUnlock()
	if !ok {
		return ClassDescriptor{}, false
	}
	return c.Lookup(name)
}

// Packages returns every known package path, sorted.
func (c *Catalog) Packages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.packages))
	for p := range c.packages {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of classes
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.classes)
}

// snapshot copies the package to class-name index.
func (c *Catalog) snapshot() (map[string][]string, []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byPkg := make(map[string][]string, len(c.packages))
	for _, d := range c.classes {
		byPkg[d.Package] = append(byPkg[d.Package], d.Name)
	}
	pkgs := make([]string, 0, len(c.packages))
	for p := range c.packages {
		pkgs = append(pkgs, p)
	}
	return byPkg, pkgs
}
