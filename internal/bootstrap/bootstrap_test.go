package bootstrap_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimvc/internal/bootstrap"
	"minimvc/internal/config"
	"minimvc/internal/dispatch"
	apperrors "minimvc/internal/errors"
	"minimvc/internal/infrastructure"
	"minimvc/internal/meta"
)

type Greeter interface {
	Greet() string
}

type greeterImpl struct{}

func (*greeterImpl) Greet() string { return "hi there" }

type HelloController struct {
	Greeter Greeter `autowired:""`
	Missing *int    `autowired:"nope"`
}

func (c *HelloController) Hi(w http.ResponseWriter) {
	_, _ = io.WriteString(w, c.Greeter.Greet())
}

type brokenService struct{}

const scanRoot = "minimvc/internal/bootstrap_test"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func controller(extra ...meta.Option) meta.ClassDescriptor {
	opts := append([]meta.Option{
		meta.AsController(),
		meta.RequestMapping("hello"),
		meta.Handle("/hi", "Hi"),
	}, extra...)
	return meta.Describe[HelloController](opts...)
}

func greeter() meta.ClassDescriptor {
	return meta.Describe[greeterImpl](meta.AsService(""), meta.Implements[Greeter]())
}

func broken() meta.ClassDescriptor {
	return meta.Describe[brokenService](
		meta.AsService("broken"),
		meta.WithConstructor(func() (any, error) { return nil, errors.New("no database") }),
	)
}

func catalog(t *testing.T, descs ...meta.ClassDescriptor) *meta.Catalog {
	t.Helper()
	c := meta.NewCatalog()
	require.NoError(t, c.Register(descs...))
	return c
}

func TestRun_BestEffort(t *testing.T) {
	c := catalog(t, controller(meta.Handle("/gone", "Gone")), greeter(), broken())

	app, err := bootstrap.Run(context.Background(), c, bootstrap.Options{
		ScanPackage: scanRoot,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)

	report := app.Report
	assert.False(t, report.Strict)
	assert.False(t, report.Healthy())
	assert.Equal(t, []string{
		scanRoot + ".HelloController",
		scanRoot + ".brokenService",
		scanRoot + ".greeterImpl",
	}, report.Classes)
	assert.Equal(t, []string{"helloController", scanRoot + ".Greeter"}, report.Beans)
	assert.Equal(t, []string{"/hello/hi"}, report.Routes)

	require.Len(t, report.Errors, 2)
	assert.Equal(t, apperrors.KindInstantiation, report.Errors[0].Kind)
	assert.Equal(t, scanRoot+".brokenService", report.Errors[0].Subject)
	assert.Equal(t, apperrors.KindConfiguration, report.Errors[1].Kind)
	assert.Contains(t, report.Errors[1].Message, "Gone")

	require.Len(t, report.Warnings, 1)
	assert.Equal(t, apperrors.KindInjection, report.Warnings[0].Kind)
	assert.Equal(t, scanRoot+".HelloController.Missing", report.Warnings[0].Subject)

	assert.True(t, app.Registry.Frozen())

	d := app.Dispatcher(dispatch.Options{Logger: quietLogger()})
	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hello/hi", nil))
	assert.Equal(t, "hi there", w.Body.String())
}

func TestRun_StrictAbortsOnInstantiationError(t *testing.T) {
	c := catalog(t, controller(), greeter(), broken())

	app, err := bootstrap.Run(context.Background(), c, bootstrap.Options{
		ScanPackage: scanRoot,
		Strict:      true,
		Logger:      quietLogger(),
	})
	require.Error(t, err)
	assert.Nil(t, app)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInstantiation))
	assert.Contains(t, err.Error(), "no database")

	report, ok := bootstrap.ReportOf(err)
	require.True(t, ok)
	assert.True(t, report.Strict)
	assert.Len(t, report.Errors, 1)
	assert.Empty(t, report.Routes)
}

func TestRun_StrictAbortsOnBrokenMapping(t *testing.T) {
	c := catalog(t, controller(meta.Handle("/gone", "Gone")), greeter())

	_, err := bootstrap.Run(context.Background(), c, bootstrap.Options{
		ScanPackage: scanRoot,
		Strict:      true,
		Logger:      quietLogger(),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))

	report, ok := bootstrap.ReportOf(err)
	require.True(t, ok)
	assert.Len(t, report.Warnings, 1, "injection ran before the route build")
}

func TestRun_StrictSucceedsWhenClean(t *testing.T) {
	c := catalog(t, controller(), greeter())

	app, err := bootstrap.Run(context.Background(), c, bootstrap.Options{
		ScanPackage: scanRoot,
		Strict:      true,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	assert.True(t, app.Report.Healthy())
	assert.Equal(t, 1, app.Routes.Len())
}

func TestRun_ScanFailureBestEffort(t *testing.T) {
	c := catalog(t, controller(), greeter())

	for _, root := range []string{"", "minimvc/internal/elsewhere"} {
		app, err := bootstrap.Run(context.Background(), c, bootstrap.Options{
			ScanPackage: root,
			Logger:      quietLogger(),
		})
		require.NoError(t, err, root)

		report := app.Report
		assert.False(t, report.Healthy(), root)
		require.Len(t, report.Errors, 1, root)
		assert.Equal(t, apperrors.KindConfiguration, report.Errors[0].Kind, root)
		assert.Empty(t, report.Classes, root)
		assert.Empty(t, report.Beans, root)
		assert.Equal(t, 0, app.Routes.Len(), root)
		assert.True(t, app.Registry.Frozen(), root)

		d := app.Dispatcher(dispatch.Options{Logger: quietLogger()})
		w := httptest.NewRecorder()
		d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hello/hi", nil))
		assert.Equal(t, http.StatusOK, w.Code, root)
		assert.Equal(t, dispatch.NotFoundBody, w.Body.String(), root)
	}
}

func TestRun_ScanFailureStrict(t *testing.T) {
	c := catalog(t, controller(), greeter())

	for _, root := range []string{"", "minimvc/internal/elsewhere"} {
		app, err := bootstrap.Run(context.Background(), c, bootstrap.Options{
			ScanPackage: root,
			Strict:      true,
			Logger:      quietLogger(),
		})
		require.Error(t, err, root)
		assert.Nil(t, app, root)
		assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration), root)

		report, ok := bootstrap.ReportOf(err)
		require.True(t, ok)
		assert.Len(t, report.Errors, 1)
	}
}

func TestRun_Issues(t *testing.T) {
	issue := apperrors.NewConfigurationError("absent.yaml", "cannot load bootstrap resource", nil)

	app, err := bootstrap.Run(context.Background(), catalog(t, controller(), greeter()), bootstrap.Options{
		ScanPackage: scanRoot,
		Issues:      []error{issue},
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	require.Len(t, app.Report.Errors, 1)
	assert.Equal(t, "absent.yaml", app.Report.Errors[0].Subject)
	assert.Equal(t, 1, app.Routes.Len(), "startup continues past the issue")

	_, err = bootstrap.Run(context.Background(), catalog(t, controller(), greeter()), bootstrap.Options{
		ScanPackage: scanRoot,
		Strict:      true,
		Issues:      []error{issue},
		Logger:      quietLogger(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, issue)
}

func TestRun_EmptyPackage(t *testing.T) {
	c := meta.NewCatalog()
	c.Declare("minimvc/internal/empty")

	app, err := bootstrap.Run(context.Background(), c, bootstrap.Options{
		ScanPackage: "minimvc/internal/empty",
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	assert.Empty(t, app.Report.Classes)
	assert.Equal(t, 0, app.Routes.Len())
}

func TestRun_LogsShareTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := infrastructure.NewLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	_, err := bootstrap.Run(context.Background(), catalog(t, controller(), greeter()), bootstrap.Options{
		ScanPackage: scanRoot,
		Logger:      logger,
	})
	require.NoError(t, err)

	ids := make(map[string]bool)
	lines := 0
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		id, _ := entry["trace_id"].(string)
		require.NotEmpty(t, id, scanner.Text())
		ids[id] = true
		lines++
	}
	assert.Greater(t, lines, 1)
	assert.Len(t, ids, 1)
}

func TestReport_JSON(t *testing.T) {
	c := catalog(t, controller(), greeter(), broken())
	app, err := bootstrap.Run(context.Background(), c, bootstrap.Options{
		ScanPackage: scanRoot,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)

	raw, err := json.Marshal(app.Report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"classes", "beans", "routes", "errors", "warnings", "strict", "startedAt", "duration"} {
		assert.Contains(t, decoded, key)
	}
	errs := decoded["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "instantiation", errs[0].(map[string]any)["kind"])
}
