package ui

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all UI routes on the given router. Every route
// passes through GuardMiddleware, including paths no handler serves.
func (ui *UI) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(ui.GuardMiddleware)

		// Unauthenticated views.
		r.Get("/login", ui.HandleLogin)
		r.Post("/login", ui.HandleLoginPost)
		r.Get("/register", ui.HandleRegister)
		r.Get("/signup", ui.HandleRegister)
		r.Post("/register", ui.HandleRegisterPost)

		// Authenticated views.
		r.Get("/search", ui.HandleSearch)
		r.Get("/upload", ui.HandleUpload)
		r.Post("/upload", ui.HandleUploadPost)
		r.Route("/documents/{id}", func(r chi.Router) {
			r.Get("/", ui.HandleDocument)
			r.Get("/download", ui.HandleDownload)
		})
		r.Post("/logout", ui.HandleLogout)

		// The guard redirects "/" and unknown paths before these run.
		r.NotFound(ui.HandleNotFound)
		r.MethodNotAllowed(ui.HandleMethodNotAllowed)
	})
}
