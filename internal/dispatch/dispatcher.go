package dispatch

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"minimvc/internal/container"
	apperrors "minimvc/internal/errors"
	"minimvc/internal/infrastructure"
	"minimvc/internal/meta"
	"minimvc/internal/routing"
)

// NotFoundBody is written for paths without a route.
const NotFoundBody = "404 not found"

// Dispatch outcomes recorded in metrics
const (
	OutcomeMatched  = "matched"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
)

// RouteUnmatched is the route label of requests without a route. The
// request path stays on the span only.
const RouteUnmatched = "unmatched"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Options configures a Dispatcher
type Options struct {
	// ContextPath is stripped from the front of every request path.
	ContextPath string
	Binding     Binding
	// NumericParams enables parsing of numeric parameters by binding name.
	// When off they are left unset.
	NumericParams bool
	Logger        *slog.Logger
	Tracer        trace.Tracer
	Metrics       *infrastructure.Metrics
}

// Dispatcher routes every request it serves to a controller method.
type Dispatcher struct {
	registry *container.Registry
	routes   *routing.Table
	opts     Options
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates a dispatcher over a finished registry and route table
func New(registry *container.Registry, routes *routing.Table, opts Options) *Dispatcher {
	if opts.Binding == "" {
		opts.Binding = BindingLegacy
	}
	opts.ContextPath = strings.TrimSuffix(opts.ContextPath, "/")

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("minimvc/dispatch")
	}

	return &Dispatcher{
		registry: registry,
		routes:   routes,
		opts:     opts,
		logger:   infrastructure.WithComponent(opts.Logger, "dispatcher"),
		tracer:   tracer,
	}
}

// Normalize strips the context path and collapses repeated separators. The
// context path only matches whole segments: "/app" is stripped from
// "/app/x" but not from "/application/x".
func (d *Dispatcher) Normalize(path string) string {
	if cp := d.opts.ContextPath; cp != "" && strings.HasPrefix(path, cp) {
		if rest := path[len(cp):]; rest == "" || rest[0] == '/' {
			path = rest
		}
	}
	return routing.Clean(path)
}

// ServeHTTP implements http.Handler. Unknown paths get NotFoundBody with the
// default status. Handler failures are logged and swallowed; nothing is
// written for them.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	path := d.Normalize(r.URL.Path)

	ctx, span := d.tracer.Start(r.Context(), "mvc.dispatch",
		trace.WithAttributes(attribute.String("mvc.path", path)))
	defer span.End()
	r = r.WithContext(ctx)

	entry, ok := d.routes.Lookup(path)
	if !ok {
		_, _ = io.WriteString(w, NotFoundBody)
		infrastructure.RecordDispatch(ctx, d.opts.Metrics, RouteUnmatched, OutcomeNotFound, time.Since(start))
		return
	}
	span.SetAttributes(
		attribute.String("mvc.handler", entry.Owner+"."+entry.Method),
	)

	if err := d.dispatch(w, r, entry); err != nil {
		d.logger.ErrorContext(ctx, "dispatch failed",
			slog.String("path", path),
			slog.String("handler", entry.Owner+"."+entry.Method),
			slog.String("error", err.Error()))
		infrastructure.RecordError(ctx, err)
		infrastructure.RecordDispatch(ctx, d.opts.Metrics, entry.Path, OutcomeFailed, time.Since(start))
		return
	}

	infrastructure.RecordDispatch(ctx, d.opts.Metrics, entry.Path, OutcomeMatched, time.Since(start))
}

// dispatch resolves the arguments of entry and calls its handler on the
// owning bean.
func (d *Dispatcher) dispatch(w http.ResponseWriter, r *http.Request, entry routing.Entry) error {
	args, err := d.resolve(w, r, entry)
	if err != nil {
		return err
	}

	beanName := meta.LowerFirst(entry.Owner)
	bean, ok := d.registry.Get(beanName)
	if !ok {
		return apperrors.NewDispatchError(entry.Path, fmt.Sprintf("no bean named %q", beanName), nil)
	}
	method := reflect.ValueOf(bean).MethodByName(entry.Method)
	if !method.IsValid() {
		return apperrors.NewDispatchError(entry.Path,
			fmt.Sprintf("bean %q has no method %s", beanName, entry.Method), nil)
	}

	return invoke(entry.Path, method, args)
}

// resolve builds the argument list positionally from the route parameters.
func (d *Dispatcher) resolve(w http.ResponseWriter, r *http.Request, entry routing.Entry) ([]reflect.Value, error) {
	if err := r.ParseForm(); err != nil {
		// keep whatever parsed; a malformed pair drops only itself
		d.logger.DebugContext(r.Context(), "request parameters partially parsed",
			slog.String("path", entry.Path),
			slog.String("error", err.Error()))
	}

	args := make([]reflect.Value, len(entry.Params))
	for i, p := range entry.Params {
		switch p.Kind {
		case routing.ParamRequest:
			args[i] = reflect.ValueOf(r)
		case routing.ParamResponse:
			args[i] = reflect.ValueOf(&w).Elem()
		case routing.ParamString:
			args[i] = stringValue(d.opts.Binding, r.Form, p)
		case routing.ParamNumeric:
			if d.opts.NumericParams {
				v, err := numericValue(r.Form, p)
				if err != nil {
					return nil, apperrors.NewDispatchError(entry.Path, "cannot bind numeric parameter", err)
				}
				args[i] = v
			}
		}

		if args[i].IsValid() {
			continue
		}
		if !nillable(p.Type) {
			return nil, apperrors.NewDispatchError(entry.Path,
				fmt.Sprintf("parameter %d of type %s has no value", p.Index, p.Type), nil)
		}
		args[i] = reflect.Zero(p.Type)
	}
	return args, nil
}

// invoke calls the handler, turning a panic or a non-nil trailing error
// result into a DispatchError.
func invoke(path string, method reflect.Value, args []reflect.Value) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err = apperrors.NewDispatchError(path, "handler panicked", fmt.Errorf("%v", rec))
		}
	}()

	out := method.Call(args)
	if n := len(out); n > 0 {
		last := out[n-1]
		if last.Type().Implements(errorType) && !(nillable(last.Type()) && last.IsNil()) {
			return apperrors.NewDispatchError(path, "handler returned an error", last.Interface().(error))
		}
	}
	return nil
}
