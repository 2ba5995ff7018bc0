package routing

import (
	"context"
	"log/slog"
	"reflect"

	"minimvc/internal/container"
	apperrors "minimvc/internal/errors"
	"minimvc/internal/meta"
)

// Options configures the builder
type Options struct {
	// Strict stops the build at the first broken mapping.
	Strict bool
	Logger *slog.Logger
}

// BuildResult is the outcome of a build
type BuildResult struct {
	Table  *Table
	Errors []error
}

// Builder derives the route table from the mappings of controller beans.
type Builder struct {
	catalog  *meta.Catalog
	registry *container.Registry
	logger   *slog.Logger
	strict   bool
}

// NewBuilder creates a builder over an injected registry
func NewBuilder(catalog *meta.Catalog, registry *container.Registry, opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		catalog:  catalog,
		registry: registry,
		logger:   logger.With(slog.String("component", "routing")),
		strict:   opts.Strict,
	}
}

// Build maps every route of every controller bean. A mapping naming a
// method the bean lacks is a configuration error. A later mapping for an
// existing path replaces the earlier one. In strict mode the first error
// aborts the build and no table is returned.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	entries := make(map[string]Entry)
	result := &BuildResult{Errors: make([]error, 0)}

	for _, bean := range b.registry.Instances() {
		bt := reflect.TypeOf(bean)
		d, ok := b.catalog.LookupType(bt)
		if !ok || d.Marker != meta.MarkerController {
			continue
		}

		for _, m := range d.Mappings {
			method, ok := bt.MethodByName(m.Method)
			if !ok {
				err := apperrors.NewConfigurationError(d.Name+"."+m.Method, "handler method not found", nil)
				b.logger.ErrorContext(ctx, "route mapping failed",
					slog.String("path", m.Path),
					slog.String("error", err.Error()))
				result.Errors = append(result.Errors, err)
				if b.strict {
					return result, err
				}
				continue
			}

			path := Join(d.Prefix, m.Path)
			if prev, dup := entries[path]; dup {
				b.logger.WarnContext(ctx, "route replaced",
					slog.String("path", path),
					slog.String("previous", prev.Owner+"."+prev.Method),
					slog.String("handler", d.SimpleName+"."+m.Method))
			}

			entries[path] = Entry{
				Path:   path,
				Class:  d.Name,
				Owner:  d.SimpleName,
				Method: m.Method,
				Params: params(method.Type, m),
			}

			b.logger.InfoContext(ctx, "mapped url",
				slog.String("path", path),
				slog.String("handler", d.SimpleName+"."+m.Method))
		}
	}

	result.Table = newTable(entries)
	return result, nil
}

// params describes the parameters of a method value type whose first input
// is the receiver.
func params(ft reflect.Type, m meta.Mapping) []Param {
	out := make([]Param, 0, ft.NumIn()-1)
	for i := 1; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		out = append(out, Param{
			Index: i - 1,
			Type:  pt,
			Name:  m.BindingName(i - 1),
			Kind:  classify(pt),
		})
	}
	return out
}
