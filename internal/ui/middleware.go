package ui

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/me/docvault/internal/route"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyOutcome   ctxKey = "route_outcome"
)

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// OutcomeFromContext returns the route outcome the guard resolved.
func OutcomeFromContext(ctx context.Context) route.Outcome {
	out, _ := ctx.Value(ctxKeyOutcome).(route.Outcome)
	return out
}

// GuardMiddleware resolves every navigation attempt against the current
// session. Disallowed and unknown paths redirect; "/" redirects to the
// session's default view so the address bar names the rendered view.
func (ui *UI) GuardMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := ui.sessions.Current()
		out := route.Resolve(sess, r.URL.Path)

		if out.Redirected() {
			ui.logger.Debug("route redirect", "path", r.URL.Path, "to", out.Redirect, "authenticated", sess.Authenticated())
			http.Redirect(w, r, out.Redirect, http.StatusSeeOther)
			return
		}
		if r.URL.Path == "/" {
			http.Redirect(w, r, out.Route.Path(), http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyOutcome, out)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// crossOriginMiddleware rejects state-changing requests that a browser
// reports as coming from another site. The server holds one shared
// credential, so a form on any page could otherwise act as the user.
// Requests without Sec-Fetch-Site or Origin (non-browser clients) pass.
func (ui *UI) crossOriginMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if !sameOrigin(r) {
			ui.logger.Warn("rejected cross-origin request",
				"method", r.Method,
				"path", r.URL.Path,
				"origin", r.Header.Get("Origin"),
				"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
				"request_id", RequestIDFromContext(r.Context()),
			)
			http.Error(w, "cross-origin request rejected", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sameOrigin reports whether r was issued by this server's own pages.
func sameOrigin(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "same-origin", "none":
		return true
	case "":
	default:
		return false
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Host == r.Host
}

// requestIDMiddleware generates a request_id and stores it in context.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := "req_" + uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs HTTP requests at INFO level (method, path, status, duration).
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
				"request_id", RequestIDFromContext(r.Context()),
			)
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
