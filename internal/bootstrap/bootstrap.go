// Package bootstrap runs the startup sequence of the framework and holds its
// result.
//
// Run scans the catalog beneath the configured package, populates the bean
// registry, injects managed fields and builds the route table, in that order.
// The returned Context is the only framework state the serving layer needs.
package bootstrap

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"minimvc/internal/container"
	"minimvc/internal/dispatch"
	apperrors "minimvc/internal/errors"
	"minimvc/internal/infrastructure"
	"minimvc/internal/meta"
	"minimvc/internal/routing"
)

// Options configures Run
type Options struct {
	ScanPackage string
	// Strict aborts startup at the first configuration or instantiation error.
	Strict bool
	// Issues are configuration errors found before Run, such as an
	// unreadable bootstrap resource. They are reported like startup errors.
	Issues []error
	Logger *slog.Logger
}

// Context is the application context produced by Run. It is read-only once
// Run returns.
type Context struct {
	Catalog  *meta.Catalog
	Registry *container.Registry
	Routes   *routing.Table
	Report   *Report
}

// Dispatcher creates the request dispatcher over this context
func (c *Context) Dispatcher(opts dispatch.Options) *dispatch.Dispatcher {
	return dispatch.New(c.Registry, c.Routes, opts)
}

// Run executes the startup sequence. Failures are collected in the report
// and startup continues with whatever could be built; a failed scan leaves
// an empty registry and route table. In strict mode the first failure is
// returned along with the partial report.
func Run(ctx context.Context, catalog *meta.Catalog, opts Options) (*Context, error) {
	logger := infrastructure.WithComponent(opts.Logger, "bootstrap")
	// one trace id ties the startup log lines together
	ctx = infrastructure.EnsureTraceID(ctx)

	start := time.Now()
	report := newReport(opts.Strict)
	abort := func(err error) (*Context, error) {
		report.finish(start)
		logger.ErrorContext(ctx, "startup aborted",
			slog.String("error", err.Error()),
			slog.Bool("strict", opts.Strict))
		return nil, &Error{Report: report, Err: err}
	}

	for _, issue := range opts.Issues {
		report.record(issue)
		if opts.Strict {
			return abort(issue)
		}
		logger.ErrorContext(ctx, "configuration issue", slog.String("error", issue.Error()))
	}

	logger.InfoContext(ctx, "scanning classes", slog.String("scan_package", opts.ScanPackage))
	classes, err := meta.NewScanner(catalog).Scan(opts.ScanPackage)
	if err != nil {
		report.record(err)
		if opts.Strict {
			return abort(err)
		}
		logger.ErrorContext(ctx, "scan failed, continuing without classes",
			slog.String("scan_package", opts.ScanPackage),
			slog.String("error", err.Error()))
		classes = make([]string, 0)
	}
	report.Classes = classes

	c := container.New(catalog, container.Options{Strict: opts.Strict, Logger: logger})
	populated, err := c.Populate(ctx, classes)
	report.record(populated.Errors...)
	if err != nil {
		return abort(err)
	}
	registry := c.Registry()
	report.Beans = registry.Names()

	injected := container.NewInjector(registry, logger).Inject(ctx)
	report.record(injected.Warnings...)

	built, err := routing.NewBuilder(catalog, registry, routing.Options{Strict: opts.Strict, Logger: logger}).Build(ctx)
	report.record(built.Errors...)
	if err != nil {
		return abort(err)
	}
	for _, e := range built.Table.Entries() {
		report.Routes = append(report.Routes, e.Path)
	}

	report.finish(start)
	logger.InfoContext(ctx, "startup complete",
		slog.Int("classes", len(report.Classes)),
		slog.Int("beans", len(report.Beans)),
		slog.Int("routes", len(report.Routes)),
		slog.Int("errors", len(report.Errors)),
		slog.Int("warnings", len(report.Warnings)),
		slog.Duration("duration", report.Duration))

	return &Context{
		Catalog:  catalog,
		Registry: registry,
		Routes:   built.Table,
		Report:   report,
	}, nil
}

// Error is returned by Run when startup aborts.
type Error struct {
	Report *Report
	Err    error
}

func (e *Error) Error() string {
	return "startup aborted: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ReportOf returns the partial report carried by an aborted startup error.
func ReportOf(err error) (*Report, bool) {
	var be *Error
	if stderrors.As(err, &be) {
		return be.Report, true
	}
	return nil, false
}

// Issue is one entry of the startup report
type Issue struct {
	Kind    apperrors.Kind `json:"kind,omitempty"`
	Subject string         `json:"subject,omitempty"`
	Message string         `json:"message"`
}

func issueOf(err error) Issue {
	var fe *apperrors.FrameworkError
	if stderrors.As(err, &fe) {
		return Issue{Kind: fe.Kind, Subject: fe.Subject, Message: err.Error()}
	}
	return Issue{Message: err.Error()}
}

// Report summarizes one startup run
type Report struct {
	Classes   []string      `json:"classes"`
	Beans     []string      `json:"beans"`
	Routes    []string      `json:"routes"`
	Errors    []Issue       `json:"errors"`
	Warnings  []Issue       `json:"warnings"`
	Strict    bool          `json:"strict"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

func newReport(strict bool) *Report {
	return &Report{
		Classes:   make([]string, 0),
		Beans:     make([]string, 0),
		Routes:    make([]string, 0),
		Errors:    make([]Issue, 0),
		Warnings:  make([]Issue, 0),
		Strict:    strict,
		StartedAt: time.Now().UTC(),
	}
}

// record files each error under Errors or Warnings by its kind.
func (r *Report) record(errs ...error) {
	for _, err := range errs {
		var fe *apperrors.FrameworkError
		if stderrors.As(err, &fe) && fe.Warning() {
			r.Warnings = append(r.Warnings, issueOf(err))
			continue
		}
		r.Errors = append(r.Errors, issueOf(err))
	}
}

func (r *Report) finish(start time.Time) {
	r.Duration = time.Since(start)
}

// Healthy reports whether startup finished without errors.
func (r *Report) Healthy() bool {
	return r != nil && len(r.Errors) == 0
}
