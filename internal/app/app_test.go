package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimvc/internal/config"
	"minimvc/internal/demo"
	apperrors "minimvc/internal/errors"
	"minimvc/internal/meta"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Framework.ScanPackage = demo.Package
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	require.NoError(t, cfg.Validate())
	application, err := NewApplication(context.Background(), cfg, quietLogger(), demo.Register)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.OTelProviders.Shutdown(context.Background()) })
	return application
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestApplication_Dispatch(t *testing.T) {
	application := newTestApp(t, testConfig())
	router := application.Router

	tests := []struct {
		name, method, target, want string
	}{
		{"query", http.MethodGet, "/my/query?name=ada", "hello ada"},
		{"query by post", http.MethodPost, "/my/query?name=bob", "hello bob"},
		{"repeated separators", http.MethodGet, "//my///query?name=cy", "hello cy"},
		{"legacy binding takes the last key", http.MethodGet, "/my/query?name=ada&zzz=eve", "hello eve"},
		{"add is inert by default", http.MethodGet, "/my/add?a=1&b=2", ""},
		{"unknown path", http.MethodGet, "/nowhere", "404 not found"},
		{"root", http.MethodDelete, "/", "404 not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, tt.method, tt.target)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_FrameworkOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Framework.ContextPath = "app"
	cfg.Framework.ParamBinding = "named"
	cfg.Framework.NumericParams = true
	application := newTestApp(t, cfg)

	assert.Equal(t, "hello ada", do(application.Router, http.MethodGet, "/app/my/query?name=ada&zzz=eve").Body.String())
	assert.Equal(t, "1 + 2 = 3", do(application.Router, http.MethodGet, "/app/my/add?a=1&b=2").Body.String())
	assert.Equal(t, "", do(application.Router, http.MethodGet, "/app/my/add?a=1").Body.String())
}

func TestApplication_AdminSurface(t *testing.T) {
	application := newTestApp(t, testConfig())

	w := do(application.Router, http.MethodGet, "/_mvc/health")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, Version, health["version"])
	assert.EqualValues(t, 2, health["routes"])

	w = do(application.Router, http.MethodGet, "/_mvc/routes")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"/my/add"`)
	assert.Contains(t, w.Body.String(), `"/my/query"`)
}

func TestApplication_AdminDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AdminPrefix = ""
	application := newTestApp(t, cfg)

	w := do(application.Router, http.MethodGet, "/_mvc/health")
	assert.Equal(t, "404 not found", w.Body.String())
}

func TestApplication_Metrics(t *testing.T) {
	application := newTestApp(t, testConfig())
	do(application.Router, http.MethodGet, "/my/query?name=ada")
	do(application.Router, http.MethodGet, "/nowhere")

	w := do(application.Router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "mvc_dispatch_total")
	assert.Contains(t, body, `outcome="matched"`)
	assert.Contains(t, body, `outcome="not_found"`)
	assert.Contains(t, body, "http_requests_total")
}

func TestApplication_MetricsUnknownPathsShareOneSeries(t *testing.T) {
	application := newTestApp(t, testConfig())
	for i := 0; i < 50; i++ {
		do(application.Router, http.MethodGet, fmt.Sprintf("/junk/%d", i))
	}

	body := do(application.Router, http.MethodGet, "/metrics").Body.String()
	series := 0
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "mvc_dispatch_total{") && strings.Contains(line, `outcome="not_found"`) {
			series++
			assert.Contains(t, line, `route="unmatched"`)
			assert.True(t, strings.HasSuffix(line, " 50"), line)
		}
	}
	assert.Equal(t, 1, series)
	assert.NotContains(t, body, "/junk/")
}

func TestApplication_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.MetricExporter = "none"
	application := newTestApp(t, cfg)

	assert.Nil(t, application.OTelProviders.PrometheusHTTP)
	assert.Equal(t, "404 not found", do(application.Router, http.MethodGet, "/metrics").Body.String())
}

func TestApplication_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.RPS = 0.001
	cfg.Security.RateLimit.Burst = 1
	application := newTestApp(t, cfg)

	assert.Equal(t, http.StatusOK, do(application.Router, http.MethodGet, "/my/query").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(application.Router, http.MethodGet, "/my/query").Code)
}

func TestNewApplication_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewApplication(ctx, nil, quietLogger())
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))

	cfg := testConfig()
	cfg.Framework.ParamBinding = "positional"
	_, err = NewApplication(ctx, cfg, quietLogger(), demo.Register)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))

	_, err = NewApplication(ctx, testConfig(), quietLogger(), func(*meta.Catalog) error {
		return errors.New("registration broke")
	})
	assert.ErrorContains(t, err, "registration broke")

	cfg = testConfig()
	cfg.Framework.ScanPackage = "minimvc/internal/missing"
	cfg.Framework.Strict = true
	_, err = NewApplication(ctx, cfg, quietLogger(), demo.Register)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))
}

func TestNewApplication_MissingScanPackage(t *testing.T) {
	cfg := testConfig()
	cfg.Framework.ScanPackage = "minimvc/internal/missing"
	application := newTestApp(t, cfg)

	assert.Equal(t, "404 not found", do(application.Router, http.MethodGet, "/my/query?name=ada").Body.String())

	w := do(application.Router, http.MethodGet, "/_mvc/health")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health["status"])
	assert.EqualValues(t, 0, health["routes"])
}

func TestNewApplication_ConfigurationIssues(t *testing.T) {
	cfg := testConfig()
	cfg.Issues = []error{apperrors.NewConfigurationError("absent.yaml", "cannot load bootstrap resource", nil)}
	application := newTestApp(t, cfg)

	require.Len(t, application.Context.Report.Errors, 1)
	assert.Equal(t, "absent.yaml", application.Context.Report.Errors[0].Subject)
	assert.Equal(t, "hello ada", do(application.Router, http.MethodGet, "/my/query?name=ada").Body.String())
}

func TestNewApplication_StrictStartup(t *testing.T) {
	broken := func(c *meta.Catalog) error {
		return c.Register(meta.Describe[brokenController](
			meta.AsController(),
			meta.Handle("/x", "Missing"),
		))
	}

	cfg := testConfig()
	cfg.Framework.ScanPackage = "minimvc/internal"
	_, err := NewApplication(context.Background(), cfg, quietLogger(), demo.Register, broken)
	require.NoError(t, err, "best effort tolerates the broken mapping")

	cfg.Framework.Strict = true
	_, err = NewApplication(context.Background(), cfg, quietLogger(), demo.Register, broken)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))
}

type brokenController struct{}

func TestApplication_Serve(t *testing.T) {
	application := newTestApp(t, testConfig())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/my/query?name=net")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello net", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestAdminPrefix(t *testing.T) {
	assert.Equal(t, "/_mvc", adminPrefix("/_mvc"))
	assert.Equal(t, "/_mvc", adminPrefix("_mvc/"))
	assert.Equal(t, "", adminPrefix("  "))
}
