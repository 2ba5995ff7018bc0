package container

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"unsafe"

	apperrors "minimvc/internal/errors"
	"minimvc/internal/meta"
)

// InjectTag is the struct tag marking a managed field.
const InjectTag = "autowired"

// InjectResult summarizes an injection pass
type InjectResult struct {
	// Assigned lists "<class>.<field>" for every field that was set.
	Assigned []string
	// Warnings holds one InjectionWarning per field left unset.
	Warnings []error
}

// Injector assigns registered beans to the managed fields of other beans.
type Injector struct {
	registry *Registry
	logger   *slog.Logger
}

// NewInjector creates an injector over a populated registry
func NewInjector(registry *Registry, logger *slog.Logger) *Injector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Injector{
		registry: registry,
		logger:   logger.With(slog.String("component", "injector")),
	}
}

// Inject visits every distinct bean once. For each field tagged autowired it
// resolves the bean named by the tag value, or by the fully-qualified name of
// the field type when the tag is empty, and assigns it whether or not the
// field is exported. Unresolvable fields are left unset and reported as
// warnings; Inject never fails.
func (i *Injector) Inject(ctx context.Context) *InjectResult {
	result := &InjectResult{Assigned: make([]string, 0), Warnings: make([]error, 0)}

	for _, bean := range i.registry.Instances() {
		v := reflect.ValueOf(bean)
		if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
			continue
		}
		elem := v.Elem()
		t := elem.Type()

		for n := 0; n < t.NumField(); n++ {
			sf := t.Field(n)
			tag, ok := sf.Tag.Lookup(InjectTag)
			if !ok {
				continue
			}
			subject := meta.TypeName(t) + "." + sf.Name

			name := strings.TrimSpace(tag)
			if name == "" {
				name = meta.TypeName(sf.Type)
			}

			target, found := i.registry.Get(name)
			if !found {
				i.warn(ctx, result, apperrors.NewInjectionWarning(subject,
					fmt.Sprintf("no bean named %q", name)))
				continue
			}

			tv := reflect.ValueOf(target)
			if !tv.Type().AssignableTo(sf.Type) {
				i.warn(ctx, result, apperrors.NewInjectionWarning(subject,
					fmt.Sprintf("bean %q of type %s is not assignable to %s", name, tv.Type(), sf.Type)))
				continue
			}

			settable(elem.Field(n)).Set(tv)
			result.Assigned = append(result.Assigned, subject)

			i.logger.DebugContext(ctx, "field injected",
				slog.String("field", subject),
				slog.String("bean", name))
		}
	}

	i.logger.InfoContext(ctx, "injection complete",
		slog.Int("assigned", len(result.Assigned)),
		slog.Int("warnings", len(result.Warnings)))

	return result
}

func (i *Injector) warn(ctx context.Context, result *InjectResult, w error) {
	i.logger.WarnContext(ctx, "field left unset", slog.String("warning", w.Error()))
	result.Warnings = append(result.Warnings, w)
}

// settable returns a writable view of an addressable field, bypassing the
// export check for unexported fields.
func settable(f reflect.Value) reflect.Value {
	if f.CanSet() {
		return f
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
}
