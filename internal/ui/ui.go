// Package ui is the local web front end: server-rendered views for login,
// registration, search, upload and document history, gated by the route
// authorizer on every request.
package ui

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/docvault/internal/api"
	"github.com/me/docvault/internal/catalog"
	"github.com/me/docvault/internal/route"
	"github.com/me/docvault/internal/session"
)

// UI handles the web user interface.
type UI struct {
	sessions *session.Manager
	routes   *route.Watcher
	client   *api.Client
	catalog  *catalog.Catalog
	logger   *slog.Logger

	startTime time.Time
}

// New creates a UI over an already bootstrapped session manager.
func New(sessions *session.Manager, client *api.Client, cat *catalog.Catalog, logger *slog.Logger) *UI {
	return &UI{
		sessions: sessions,
		routes:   route.Watch(sessions),
		client:   client,
		catalog:  cat,
		logger:   logger.With("component", "ui"),

		startTime: time.Now(),
	}
}

// Close detaches the UI from the session manager.
func (ui *UI) Close() {
	ui.routes.Stop()
}

// Handler returns the complete router with global middleware.
func (ui *UI) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(ui.logger))
	r.Use(ui.crossOriginMiddleware)
	r.Get("/healthz", ui.HandleHealth)
	ui.RegisterRoutes(r)
	return r
}
