package dispatch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"minimvc/internal/container"
	"minimvc/internal/dispatch"
	"minimvc/internal/meta"
	"minimvc/internal/routing"
	"minimvc/internal/shared/testutil"
)

type CalcController struct{}

func (*CalcController) Query(w http.ResponseWriter, r *http.Request, name string) {
	fmt.Fprintf(w, "hello %s", name)
}

func (*CalcController) Pair(w http.ResponseWriter, first, second string) {
	fmt.Fprintf(w, "%s|%s", first, second)
}

func (*CalcController) Add(w http.ResponseWriter, r *http.Request, a, b int) {
	fmt.Fprintf(w, "%d + %d = %d", a, b, a+b)
}

func (*CalcController) Scale(w http.ResponseWriter, f float64, neg bool) {
	if neg {
		f = -f
	}
	fmt.Fprintf(w, "%.1f", f*2)
}

func (*CalcController) Odd(w http.ResponseWriter, m map[string]string, p *int) {
	fmt.Fprintf(w, "%t %t", m == nil, p == nil)
}

func (*CalcController) Struct(w http.ResponseWriter, s struct{ N int }) {
	fmt.Fprint(w, "unreachable")
}

func (*CalcController) Boom(w http.ResponseWriter) {
	panic("boom")
}

func (*CalcController) Abort(w http.ResponseWriter) {
	panic(http.ErrAbortHandler)
}

func (*CalcController) Fail(w http.ResponseWriter) error {
	return errors.New("nope")
}

func (*CalcController) Ok(w http.ResponseWriter) error {
	_, err := io.WriteString(w, "ok")
	return err
}

type statusError struct{ code int }

func (e statusError) Error() string { return fmt.Sprintf("status %d", e.code) }

func (*CalcController) Status(w http.ResponseWriter) statusError {
	_, _ = io.WriteString(w, "partial")
	return statusError{code: 418}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDispatcher(t *testing.T, opts dispatch.Options) *dispatch.Dispatcher {
	t.Helper()

	catalog := meta.NewCatalog()
	require.NoError(t, catalog.Register(meta.Describe[CalcController](
		meta.AsController(),
		meta.RequestMapping("calc"),
		meta.Handle("/query", "Query", "", "", "name"),
		meta.Handle("/pair", "Pair", "", "first", "second"),
		meta.Handle("/add", "Add", "", "", "a", "b"),
		meta.Handle("/scale", "Scale", "", "f", "neg"),
		meta.Handle("/odd", "Odd"),
		meta.Handle("/struct", "Struct"),
		meta.Handle("/boom", "Boom"),
		meta.Handle("/abort", "Abort"),
		meta.Handle("/fail", "Fail"),
		meta.Handle("/ok", "Ok"),
		meta.Handle("/status", "Status"),
	)))

	reg := container.NewRegistry()
	_, err := reg.Put("calcController", &CalcController{})
	require.NoError(t, err)
	reg.Freeze()

	result, err := routing.NewBuilder(catalog, reg, routing.Options{Logger: quietLogger()}).Build(context.Background())
	require.NoError(t, err)

	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	return dispatch.New(reg, result.Table, opts)
}

func serve(d http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)
	return w
}

func TestDispatcher_NotFound(t *testing.T) {
	d := newDispatcher(t, dispatch.Options{})

	w := serve(d, http.MethodGet, "/nowhere")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dispatch.NotFoundBody, w.Body.String())
	assert.Equal(t, "404 not found", w.Body.String())
}

func TestDispatcher_AnyMethod(t *testing.T) {
	d := newDispatcher(t, dispatch.Options{Binding: dispatch.BindingNamed})

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		w := serve(d, method, "/calc/query?name=zed")
		assert.Equal(t, "hello zed", w.Body.String(), method)
	}
}

func TestDispatcher_FormBody(t *testing.T) {
	d := newDispatcher(t, dispatch.Options{Binding: dispatch.BindingNamed})

	req := httptest.NewRequest(http.MethodPost, "/calc/query", bytes.NewBufferString("name=posted"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)

	assert.Equal(t, "hello posted", w.Body.String())
}

func TestDispatcher_LegacyBinding(t *testing.T) {
	d := newDispatcher(t, dispatch.Options{})

	tests := []struct {
		name, target, want string
	}{
		{"both params get the greatest key", "/calc/pair?first=x&second=y", "y|y"},
		{"key order not query order", "/calc/pair?second=y&first=x", "y|y"},
		{"multi values joined", "/calc/pair?b=1&b=2&a=z", "1,2|1,2"},
		{"brackets stripped", "/calc/pair?k=%5Bv%5D", "v|v"},
		{"comma and tab folded", "/calc/pair?k=a,%09b", "a,b|a,b"},
		{"comma and newline folded", "/calc/pair?k=a,%0Ab", "a,b|a,b"},
		{"only one space folded", "/calc/pair?k=a,%20%20b", "a, b|a, b"},
		{"empty query", "/calc/pair", "|"},
		{"name ignored", "/calc/query?name=zed&zz=last", "hello last"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(d, http.MethodGet, tt.target).Body.String())
		})
	}
}

func TestDispatcher_NamedBinding(t *testing.T) {
	d := newDispatcher(t, dispatch.Options{Binding: dispatch.BindingNamed})

	tests := []struct {
		name, target, want string
	}{
		{"by name", "/calc/pair?first=x&second=y", "x|y"},
		{"first value wins", "/calc/pair?first=a&first=b&second=c", "a|c"},
		{"missing name is empty", "/calc/pair?second=y", "|y"},
		{"empty query", "/calc/pair", "|"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(d, http.MethodGet, tt.target).Body.String())
		})
	}
}

func TestDispatcher_NumericParamsOff(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	d := newDispatcher(t, dispatch.Options{Logger: logger})

	w := serve(d, http.MethodGet, "/calc/add?a=1&b=2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String(), "handler is not invoked")
	testutil.AssertLogContains(t, logs, slog.LevelError, "dispatch failed")
	testutil.AssertLogAttr(t, logs, "path", "/calc/add")
	testutil.AssertLogAttr(t, logs, "component", "dispatcher")
}

func TestDispatcher_NumericParamsOn(t *testing.T) {
	d := newDispatcher(t, dispatch.Options{NumericParams: true})

	tests := []struct {
		name, target, want string
	}{
		{"sum", "/calc/add?a=1&b=2", "1 + 2 = 3"},
		{"negative", "/calc/add?a=-4&b=2", "-4 + 2 = -2"},
		{"padded", "/calc/add?a=+7&b=%201", "7 + 1 = 8"},
		{"missing value", "/calc/add?a=1", ""},
		{"unparsable", "/calc/add?a=x&b=2", ""},
		{"float and bool", "/calc/scale?f=1.5&neg=true", "-3.0"},
		{"bad bool", "/calc/scale?f=1.5&neg=maybe", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(d, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestDispatcher_UnsupportedParams(t *testing.T) {
	d := newDispatcher(t, dispatch.Options{})

	assert.Equal(t, "true true", serve(d, http.MethodGet, "/calc/odd").Body.String())
	assert.Empty(t, serve(d, http.MethodGet, "/calc/struct").Body.String())
}

func TestDispatcher_ContextPath(t *testing.T) {
	d := newDispatcher(t, dispatch.Options{ContextPath: "/app/", Binding: dispatch.BindingNamed})

	assert.Equal(t, "/calc/query", d.Normalize("/app/calc/query"))
	assert.Equal(t, "/calc/query", d.Normalize("/app//calc///query"))
	assert.Equal(t, "/other/app/x", d.Normalize("/other/app/x"), "only a leading context path is stripped")
	assert.Equal(t, "/application/x", d.Normalize("/application/x"), "whole segments only")
	assert.Equal(t, "/appx", d.Normalize("/appx"))
	assert.Equal(t, "", d.Normalize("/app"))

	assert.Equal(t, "hello z", serve(d, http.MethodGet, "/app//calc///query?name=z").Body.String())
	assert.Equal(t, dispatch.NotFoundBody, serve(d, http.MethodGet, "/calc/queryx").Body.String())
	assert.Equal(t, dispatch.NotFoundBody, serve(d, http.MethodGet, "/application/calc/query?name=z").Body.String())
}

func TestDispatcher_RepeatedSlashes(t *testing.T) {
	d := newDispatcher(t, dispatch.Options{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "//calc///ok"
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)

	assert.Equal(t, "ok", w.Body.String())
}

func TestDispatcher_HandlerFailuresAreSwallowed(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	d := newDispatcher(t, dispatch.Options{Logger: logger})

	for _, target := range []string{"/calc/boom", "/calc/fail"} {
		var w *httptest.ResponseRecorder
		require.NotPanics(t, func() { w = serve(d, http.MethodGet, target) }, target)
		assert.Equal(t, http.StatusOK, w.Code, target)
		assert.Empty(t, w.Body.String(), target)
	}

	errs := logs.GetRecordsByLevel(slog.LevelError)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Attrs["error"], "handler panicked: boom")
	assert.Contains(t, errs[1].Attrs["error"], "handler returned an error: nope")

	logs.Clear()
	assert.Equal(t, "ok", serve(d, http.MethodGet, "/calc/ok").Body.String())
	testutil.AssertNoErrors(t, logs)
}

func TestDispatcher_ValueErrorResult(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	d := newDispatcher(t, dispatch.Options{Logger: logger})

	w := serve(d, http.MethodGet, "/calc/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())

	errs := logs.GetRecordsByLevel(slog.LevelError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Attrs["error"], "handler returned an error: status 418")
	assert.NotContains(t, errs[0].Attrs["error"], "panicked")
}

func TestDispatcher_AbortHandlerPropagates(t *testing.T) {
	d := newDispatcher(t, dispatch.Options{})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		serve(d, http.MethodGet, "/calc/abort")
	})
}

func TestDispatcher_EmptyTable(t *testing.T) {
	d := dispatch.New(container.NewRegistry(), nil, dispatch.Options{Logger: quietLogger()})
	assert.Equal(t, dispatch.NotFoundBody, serve(d, http.MethodGet, "/calc/ok").Body.String())
}

func TestDispatcher_Concurrent(t *testing.T) {
	d := newDispatcher(t, dispatch.Options{Binding: dispatch.BindingNamed, NumericParams: true})

	var g errgroup.Group
	for i := 0; i < 64; i++ {
		g.Go(func() error {
			target := fmt.Sprintf("/calc/pair?first=f%d&second=s%d", i, i)
			if got, want := serve(d, http.MethodGet, target).Body.String(), fmt.Sprintf("f%d|s%d", i, i); got != want {
				return fmt.Errorf("pair %d: got %q want %q", i, got, want)
			}
			target = fmt.Sprintf("/calc/add?a=%d&b=%d", i, i)
			if got, want := serve(d, http.MethodGet, target).Body.String(), fmt.Sprintf("%d + %d = %d", i, i, 2*i); got != want {
				return fmt.Errorf("add %d: got %q want %q", i, got, want)
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
}

func TestParseBinding(t *testing.T) {
	for in, want := range map[string]dispatch.Binding{
		"":        dispatch.BindingLegacy,
		"legacy":  dispatch.BindingLegacy,
		" Named ": dispatch.BindingNamed,
	} {
		got, err := dispatch.ParseBinding(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := dispatch.ParseBinding("positional")
	assert.Error(t, err)
}
