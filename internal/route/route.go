// Package route decides which views are reachable for a session.
//
// Authorize and Resolve are pure functions of the session. They gate
// navigation only: the document service still authorizes every request.
package route

import (
	"slices"
	"strings"

	"github.com/me/docvault/internal/session"
)

// Route names a view or action.
type Route string

const (
	Login    Route = "login"
	Register Route = "register"
	Search   Route = "search"
	Upload   Route = "upload"
	Document Route = "document"
	Download Route = "download"
	Logout   Route = "logout"
)

// Path returns the canonical path of a route without parameters.
func (r Route) Path() string {
	switch r {
	case Document:
		return "/documents/{id}"
	case Download:
		return "/documents/{id}/download"
	default:
		return "/" + string(r)
	}
}

// NavItem is a navigation link shown for a session.
type NavItem struct {
	Label string
	Path  string
}

// Decision is the set of reachable views for a session.
type Decision struct {
	NavItems []NavItem
	Allowed  []Route
	Default  Route
}

// Allows reports whether r is reachable.
func (d Decision) Allows(r Route) bool {
	return slices.Contains(d.Allowed, r)
}

// Authorize returns the routing decision for s.
func Authorize(s session.Session) Decision {
	if !s.Authenticated() {
		return Decision{
			NavItems: []NavItem{
				{Label: "Login", Path: Login.Path()},
				{Label: "Register", Path: Register.Path()},
			},
			Allowed: []Route{Login, Register},
			Default: Login,
		}
	}
	return Decision{
		NavItems: []NavItem{
			{Label: "Search", Path: Search.Path()},
			{Label: "Upload", Path: Upload.Path()},
			{Label: "Logout", Path: Logout.Path()},
		},
		Allowed: []Route{Search, Upload, Document, Download, Logout},
		Default: Search,
	}
}

// Outcome is the result of a navigation attempt: either render Route or
// redirect to Redirect.
type Outcome struct {
	Route    Route
	Redirect string
	Params   map[string]string
}

// Redirected reports whether the navigation must go elsewhere.
func (o Outcome) Redirected() bool {
	return o.Redirect != ""
}

// Resolve decides what a request for path renders under s. The root path
// renders the default route; unknown paths and disallowed routes redirect
// to the default route's path.
func Resolve(s session.Session, path string) Outcome {
	d := Authorize(s)

	r, params, ok := Match(path)
	if path == "/" || path == "" {
		r, ok = d.Default, true
	}
	if !ok || !d.Allows(r) {
		return Outcome{Redirect: d.Default.Path()}
	}
	return Outcome{Route: r, Params: params}
}

// Match maps a request path to a route. "/signup" is accepted as an alias
// of "/register". Trailing slashes are ignored.
func Match(path string) (Route, map[string]string, bool) {
	p := strings.Trim(path, "/")
	parts := strings.Split(p, "/")

	switch {
	case len(parts) == 1:
		switch parts[0] {
		case "login":
			return Login, nil, true
		case "register", "signup":
			return Register, nil, true
		case "search":
			return Search, nil, true
		case "upload":
			return Upload, nil, true
		case "logout":
			return Logout, nil, true
		}
	case len(parts) == 2 && parts[0] == "documents" && parts[1] != "":
		return Document, map[string]string{"id": parts[1]}, true
	case len(parts) == 3 && parts[0] == "documents" && parts[1] != "" && parts[2] == "download":
		return Download, map[string]string{"id": parts[1]}, true
	}
	return "", nil, false
}
