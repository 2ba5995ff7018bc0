package http

import (
	"log/slog"
	"net/http"
	"reflect"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"minimvc/internal/bootstrap"
	"minimvc/internal/meta"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Routes  int    `json:"routes"`
	Beans   int    `json:"beans"`
	Errors  int    `json:"errors"`
}

// BeanInfo describes one registered bean
type BeanInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AdminHandler serves read-only views of the application context
type AdminHandler struct {
	app     *bootstrap.Context
	version string
	started time.Time
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(app *bootstrap.Context, version string, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		app:     app,
		version: version,
		started: time.Now(),
		logger:  logger.With(slog.String("handler", "admin")),
	}
}

// Routes returns the admin sub-router
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Get("/routes", h.RouteTable)
	r.Get("/beans", h.Beans)
	r.Get("/startup", h.Startup)
	return r
}

// Health handles GET /health. A startup that recorded errors reports
// "degraded" with status 200.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	errs := len(h.app.Report.Errors)
	if errs > 0 {
		status = "degraded"
	}

	render.JSON(w, r, HealthResponse{
		Status:  status,
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Routes:  h.app.Routes.Len(),
		Beans:   h.app.Registry.Count(),
		Errors:  errs,
	})
}

// RouteTable handles GET /routes
func (h *AdminHandler) RouteTable(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.app.Routes.Entries())
}

// Beans handles GET /beans
func (h *AdminHandler) Beans(w http.ResponseWriter, r *http.Request) {
	names := h.app.Registry.Names()
	beans := make([]BeanInfo, 0, len(names))
	for _, name := range names {
		bean, ok := h.app.Registry.Get(name)
		if !ok {
			continue
		}
		beans = append(beans, BeanInfo{Name: name, Type: meta.TypeName(reflect.TypeOf(bean))})
	}
	render.JSON(w, r, beans)
}

// Startup handles GET /startup
func (h *AdminHandler) Startup(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "startup report requested")
	render.JSON(w, r, h.app.Report)
}
