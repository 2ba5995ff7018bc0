package container

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	apperrors "minimvc/internal/errors"
	"minimvc/internal/meta"
)

// Options configures population
type Options struct {
	// Strict stops population at the first error.
	Strict bool
	Logger *slog.Logger
}

// PopulateResult summarizes a population pass
type PopulateResult struct {
	// Beans lists each bean name in registration order.
	Beans []string
	// Errors holds the configuration and instantiation errors met.
	Errors []error
}

// Container creates the singleton beans of scanned classes.
type Container struct {
	catalog  *meta.Catalog
	registry *Registry
	logger   *slog.Logger
	strict   bool
}

// New creates a container that fills a fresh registry from the catalog.
func New(catalog *meta.Catalog, opts Options) *Container {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Container{
		catalog:  catalog,
		registry: NewRegistry(),
		logger:   logger.With(slog.String("component", "container")),
		strict:   opts.Strict,
	}
}

// Registry returns the registry being filled
func (c *Container) Registry() *Registry {
	return c.registry
}

// Populate instantiates every managed class in classes and registers it
// under the names given by the naming policy:
//
//   - controller: the simple class name with its first letter lowered
//   - service with an explicit name: that name
//   - service without a name: the fully-qualified name of each declared
//     interface, all sharing one instance
//
// Failures are logged and collected. In strict mode the first one is also
// returned and population stops. The registry is frozen on return.
func (c *Container) Populate(ctx context.Context, classes []string) (*PopulateResult, error) {
	defer c.registry.Freeze()

	result := &PopulateResult{Beans: make([]string, 0), Errors: make([]error, 0)}

	fail := func(err error) error {
		c.logger.ErrorContext(ctx, "bean registration failed", slog.String("error", err.Error()))
		result.Errors = append(result.Errors, err)
		if c.strict {
			return err
		}
		return nil
	}

	for _, className := range classes {
		d, ok := c.catalog.Lookup(className)
		if !ok {
			if err := fail(apperrors.NewConfigurationError(className, "class is not in the catalog", nil)); err != nil {
				return result, err
			}
			continue
		}
		if !d.Managed() {
			continue
		}

		inst, err := instantiate(d)
		if err != nil {
			if err := fail(err); err != nil {
				return result, err
			}
			continue
		}

		for _, name := range beanNames(d) {
			if err := c.put(ctx, name, inst, d); err != nil {
				return result, err
			}
			result.Beans = append(result.Beans, name)
		}
		if d.Marker == meta.MarkerService && d.BeanName == "" && len(d.Interfaces) == 0 {
			c.logger.WarnContext(ctx, "service has neither a bean name nor interfaces, not registered",
				slog.String("class", d.Name))
		}
	}

	c.logger.InfoContext(ctx, "registry populated",
		slog.Int("beans", c.registry.Count()),
		slog.Int("errors", len(result.Errors)))

	return result, nil
}

func (c *Container) put(ctx context.Context, name string, inst any, d meta.ClassDescriptor) error {
	replaced, err := c.registry.Put(name, inst)
	if err != nil {
		return fmt.Errorf("register bean %q: %w", name, err)
	}
	if replaced {
		c.logger.DebugContext(ctx, "bean overwritten",
			slog.String("bean", name),
			slog.String("class", d.Name))
	}
	c.logger.DebugContext(ctx, "bean registered",
		slog.String("bean", name),
		slog.String("class", d.Name),
		slog.String("marker", d.Marker.String()))
	return nil
}

// beanNames applies the naming policy to a managed class.
func beanNames(d meta.ClassDescriptor) []string {
	switch d.Marker {
	case meta.MarkerController:
		return []string{meta.LowerFirst(d.SimpleName)}
	case meta.MarkerService:
		if d.BeanName != "" {
			return []string{d.BeanName}
		}
		names := make([]string, 0, len(d.Interfaces))
		for _, iface := range d.Interfaces {
			names = append(names, meta.TypeName(iface))
		}
		return names
	}
	return nil
}

// instantiate runs the class constructor, converting every failure,
// panics included, into an InstantiationError.
func instantiate(d meta.ClassDescriptor) (inst any, err error) {
	if d.Type != nil && d.Type.Kind() == reflect.Interface {
		return nil, apperrors.NewInstantiationError(d.Name, "cannot instantiate an interface", nil)
	}
	if d.New == nil {
		return nil, apperrors.NewInstantiationError(d.Name, "no default constructor", nil)
	}

	defer func() {
		if rec := recover(); rec != nil {
			inst = nil
			err = apperrors.NewInstantiationError(d.Name, "constructor panicked", fmt.Errorf("%v", rec))
		}
	}()

	inst, err = d.New()
	if err != nil {
		return nil, apperrors.NewInstantiationError(d.Name, "constructor failed", err)
	}
	if inst == nil {
		return nil, apperrors.NewInstantiationError(d.Name, "constructor returned nil", nil)
	}

	it := reflect.TypeOf(inst)
	for _, iface := range d.Interfaces {
		if iface.Kind() != reflect.Interface {
			return nil, apperrors.NewInstantiationError(d.Name,
				fmt.Sprintf("declared interface %s is not an interface", meta.TypeName(iface)), nil)
		}
		if !it.Implements(iface) {
			return nil, apperrors.NewInstantiationError(d.Name,
				fmt.Sprintf("%s does not implement %s", it, meta.TypeName(iface)), nil)
		}
	}
	return inst, nil
}
