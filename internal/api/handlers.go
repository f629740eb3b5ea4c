package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"admin-dashboard/internal/auth"
	"admin-dashboard/internal/models"
	"admin-dashboard/internal/resource"
	"admin-dashboard/internal/services"
	"admin-dashboard/internal/shell"
	"admin-dashboard/internal/telemetry"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"columns": func(s models.Schema) int { return len(s.Fields) + 2 },
}).ParseFS(templateFS, "templates/dashboard.html"))

// RateLimiter reports whether a client has exceeded its mutation budget.
type RateLimiter interface {
	IsRateLimited(ctx context.Context, key string) bool
}

type Handler struct {
	registry   *shell.Registry
	sessions   *auth.Middleware
	limiter    RateLimiter
	trustProxy bool
}

type Option func(*Handler)

// WithRateLimiter limits mutations per client address.
func WithRateLimiter(l RateLimiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithTrustedProxy takes the client address from X-Forwarded-For/X-Real-IP.
// Only enable it behind a proxy that overwrites those headers.
func WithTrustedProxy(trust bool) Option {
	return func(h *Handler) { h.trustProxy = trust }
}

func NewHandler(registry *shell.Registry, sessions *auth.Middleware, opts ...Option) *Handler {
	h := &Handler{
		registry: registry,
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if h.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(telemetry.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.Session)

		r.Get("/", h.Index)
		r.Route("/{tab}", func(r chi.Router) {
			r.Get("/", h.View)
			r.Post("/edit", h.Edit)
			r.Post("/cancel", h.Cancel)
			r.Post("/refresh", h.Refresh)
			r.Post("/delete", h.RequestDelete)
			r.Post("/delete/decline", h.DeclineDelete)
			r.With(h.rateLimit).Post("/submit", h.Submit)
			r.With(h.rateLimit).Post("/delete/confirm", h.ConfirmDelete)
		})
	})
	return r
}

// Index sends the operator to the tab they were last on.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sh := h.shell(r)
	tab, _ := sh.Active()
	http.Redirect(w, r, "/"+string(tab), http.StatusSeeOther)
}

type page struct {
	Tabs          []shell.TabInfo
	View          resource.View
	Notifications []resource.Notification
}

func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	sh, pane, ok := h.pane(w, r)
	if !ok {
		return
	}

	data := page{
		Tabs:          sh.Tabs(),
		View:          pane.View(),
		Notifications: sh.Drain(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, data); err != nil {
		slog.Error("Render dashboard", "error", err)
	}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sh, pane, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	fields := make(models.Fields)
	for _, f := range pane.Schema().Fields {
		fields[f.Name] = r.PostForm.Get(f.Name)
	}
	logUpstream(r, "submit", pane.SubmitForm(r.Context(), r.PostForm.Get("editing"), fields))
	h.back(w, r, sh)
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	sh, pane, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := pane.Edit(r.PostFormValue("id")); err != nil {
		sh.Notify(resource.Notification{Level: resource.LevelWarning, Message: err.Error()})
	}
	h.back(w, r, sh)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	sh, pane, ok := h.open(w, r)
	if !ok {
		return
	}
	pane.Cancel()
	h.back(w, r, sh)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	sh, pane, ok := h.open(w, r)
	if !ok {
		return
	}
	logUpstream(r, "refresh", pane.Refresh(r.Context()))
	h.back(w, r, sh)
}

func (h *Handler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	sh, pane, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := pane.RequestDelete(r.PostFormValue("id")); err != nil {
		sh.Notify(resource.Notification{Level: resource.LevelWarning, Message: err.Error()})
	}
	h.back(w, r, sh)
}

func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	sh, pane, ok := h.open(w, r)
	if !ok {
		return
	}
	err := pane.ConfirmDelete(r.Context())
	if errors.Is(err, resource.ErrNoPendingDelete) {
		sh.Notify(resource.Notification{Level: resource.LevelWarning, Message: err.Error()})
	}
	logUpstream(r, "delete", err)
	h.back(w, r, sh)
}

func (h *Handler) DeclineDelete(w http.ResponseWriter, r *http.Request) {
	sh, pane, ok := h.open(w, r)
	if !ok {
		return
	}
	pane.DeclineDelete()
	h.back(w, r, sh)
}

func (h *Handler) shell(r *http.Request) *shell.Shell {
	sh, created := h.registry.Get(auth.SessionID(r.Context()))
	if created {
		slog.Debug("Session started", "request_id", middleware.GetReqID(r.Context()))
	}
	return sh
}

// pane selects the tab named in the URL and returns its manager, building
// it when the tab was not the visible one. Unknown tabs get a 404.
func (h *Handler) pane(w http.ResponseWriter, r *http.Request) (*shell.Shell, resource.Controller, bool) {
	sh := h.shell(r)
	pane, err := sh.Select(r.Context(), shell.Tab(chi.URLParam(r, "tab")))
	if err != nil {
		http.NotFound(w, r)
		return nil, nil, false
	}
	return sh, pane, true
}

// open returns the manager of the tab named in the URL for an action on it.
// Actions never switch tabs: when the tab is not the visible one the
// operator is sent to it with a warning and nothing else happens.
func (h *Handler) open(w http.ResponseWriter, r *http.Request) (*shell.Shell, resource.Controller, bool) {
	sh := h.shell(r)
	tab := shell.Tab(chi.URLParam(r, "tab"))
	pane, err := sh.Open(tab)
	switch {
	case errors.Is(err, shell.ErrUnknownTab):
		http.NotFound(w, r)
		return nil, nil, false
	case err != nil:
		sh.Notify(resource.Notification{Level: resource.LevelWarning, Message: err.Error()})
		http.Redirect(w, r, "/"+string(tab), http.StatusSeeOther)
		return nil, nil, false
	}
	return sh, pane, true
}

func (h *Handler) back(w http.ResponseWriter, r *http.Request, sh *shell.Shell) {
	tab, _ := sh.Active()
	http.Redirect(w, r, "/"+string(tab), http.StatusSeeOther)
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && h.limiter.IsRateLimited(r.Context(), clientIP(r)) {
			slog.Warn("Rate limit exceeded", "ip", clientIP(r))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// logUpstream records failed upstream calls. Local rejections were already
// shown to the operator and are not logged.
func logUpstream(r *http.Request, action string, err error) {
	var fe *services.FetchError
	if !errors.As(err, &fe) {
		return
	}
	slog.Warn("Upstream call failed",
		"action", action,
		"op", fe.Op,
		"url", fe.URL,
		"status", fe.StatusCode,
		"unreachable", services.IsUnreachable(err),
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
}
