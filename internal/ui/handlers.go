package ui

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/me/docvault/internal/api"
	"github.com/me/docvault/internal/identity"
	"github.com/me/docvault/internal/session"
	"github.com/me/docvault/pkg/model"
)

// maxUploadMemory bounds the multipart form held in memory; larger files
// spill to temporary files.
const maxUploadMemory = 32 << 20

// HandleLogin renders the login page.
func (ui *UI) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ui.render(w, r, "login", map[string]any{
		"Title": "Login - docvault",
	})
}

// HandleLoginPost authenticates against the document service and starts
// the session.
func (ui *UI) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/login", "error", "Invalid request")
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	// The epoch observed before the network call guards against a
	// logout (or another login) completing while this one is in flight.
	epoch := ui.sessions.Current().Epoch

	token, err := ui.client.Authenticate(r.Context(), email, password)
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			redirectWith(w, r, "/login", "error", "Email and password required")
			return
		}
		ui.logger.Warn("login failed", "email", email, "error", err)
		redirectWith(w, r, "/login", "error", "Failed to login. Please check your credentials.")
		return
	}

	if err := ui.sessions.LoginAt(epoch, token); err != nil {
		switch {
		case errors.Is(err, session.ErrStale):
			redirectWith(w, r, "/", "error", "Session changed while logging in. Please try again.")
		default:
			var de *identity.DecodeError
			if errors.As(err, &de) {
				ui.logger.Error("service returned an undecodable credential", "error", err)
			} else {
				ui.logger.Error("login failed", "error", err)
			}
			redirectWith(w, r, "/login", "error", "Failed to login.")
		}
		return
	}

	redirectWith(w, r, "/search", "notice", "Login successful!")
}

// HandleRegister renders the sign-up page with the department list.
func (ui *UI) HandleRegister(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title": "Sign Up - docvault",
	}
	deps, err := ui.catalog.Departments(r.Context())
	if err != nil {
		ui.logger.Warn("department list unavailable", "error", err)
		data["Error"] = "Could not load departments. Please try again later."
	}
	data["Departments"] = deps
	ui.render(w, r, "register", data)
}

// HandleRegisterPost creates an account and sends the user to login.
func (ui *UI) HandleRegisterPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/register", "error", "Invalid request")
		return
	}

	profile := model.Profile{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if ref := r.FormValue("department_id"); ref != "" {
		dep, err := ui.catalog.ResolveDepartment(r.Context(), ref)
		if err != nil {
			redirectWith(w, r, "/register", "error", "Please choose a department from the list.")
			return
		}
		profile.DepartmentID = dep.ID
	}

	if err := ui.client.RegisterUser(r.Context(), profile); err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			redirectWith(w, r, "/register", "error", "All fields are required.")
			return
		}
		ui.logger.Warn("registration failed", "email", profile.Email, "error", err)
		redirectWith(w, r, "/register", "error", "Registration failed. This email might already be registered.")
		return
	}

	ui.logger.Info("user registered", "email", profile.Email)
	redirectWith(w, r, "/login", "notice", "Registration successful! You can now log in.")
}

// HandleLogout ends the session.
func (ui *UI) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := ui.sessions.Logout(); err != nil {
		ui.logger.Error("logout failed to clear credential", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleSearch renders the search form and, once submitted, its results.
// A failed search shows an empty result list with an error.
func (ui *UI) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := map[string]any{
		"Title": "Search - docvault",
		"Query": q.Get("q"),
		"Tag":   q.Get("tag"),
	}

	if q.Has("q") || q.Has("tag") {
		docs, err := ui.client.SearchDocuments(r.Context(), q.Get("q"), q.Get("tag"))
		if err != nil {
			ui.logger.Warn("search failed", "error", err)
			data["Error"] = "Search failed."
			docs = nil
		}
		data["Searched"] = true
		data["Results"] = docs
	}
	ui.render(w, r, "search", data)
}

// HandleUpload renders the upload form.
func (ui *UI) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ui.render(w, r, "upload", map[string]any{
		"Title": "Upload - docvault",
	})
}

// HandleUploadPost forwards the submitted file to the document service.
func (ui *UI) HandleUploadPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		redirectWith(w, r, "/upload", "error", "Invalid upload")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	u := model.Upload{
		Title: strings.TrimSpace(r.FormValue("title")),
		Tags:  strings.TrimSpace(r.FormValue("tags")),
	}
	if f, hdr, err := r.FormFile("file"); err == nil {
		defer f.Close()
		u.Filename, u.Content = hdr.Filename, f
	}

	res, err := ui.client.UploadDocument(r.Context(), u)
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			msg := "Title and tags are required."
			for _, d := range ve.Details {
				if d.Field == "file" {
					msg = "Please select a file to upload."
				}
			}
			redirectWith(w, r, "/upload", "error", msg)
			return
		}
		ui.logger.Warn("upload failed", "title", u.Title, "error", err)
		redirectWith(w, r, "/upload", "error", "Failed to upload document.")
		return
	}

	ui.logger.Info("document uploaded", "document_id", res.DocumentID, "title", res.Title)
	redirectWith(w, r, "/upload", "notice", "Document uploaded successfully!")
}

// HandleDocument renders a document's version history.
func (ui *UI) HandleDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := ui.documentID(w, r)
	if !ok {
		return
	}

	data := map[string]any{
		"Title":      fmt.Sprintf("Document %d - docvault", id),
		"DocumentID": id,
	}
	versions, err := ui.client.ListVersions(r.Context(), id)
	if err != nil {
		ui.logger.Warn("version history failed", "document_id", id, "error", err)
		data["Error"] = "Could not load version history."
	}
	data["Versions"] = versions
	ui.render(w, r, "document", data)
}

// HandleDownload streams the latest version as an attachment.
func (ui *UI) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := ui.documentID(w, r)
	if !ok {
		return
	}
	epoch := ui.sessions.Current().Epoch

	filename := fmt.Sprintf("document_%d.bin", id)
	if versions, err := ui.client.ListVersions(r.Context(), id); err == nil && len(versions) > 0 {
		filename = model.SuggestedFilename(id, versions[0])
	}

	// Drop the download if the session changed while resolving the name.
	if !ui.sessions.IsCurrent(epoch) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	aw := &attachmentWriter{w: w, filename: filename}
	if _, err := ui.client.DownloadVersion(r.Context(), id, aw); err != nil {
		ui.logger.Warn("download failed", "document_id", id, "error", err)
		if !aw.started {
			redirectWith(w, r, fmt.Sprintf("/documents/%d", id), "error", "Download failed.")
		}
		return
	}
	if !aw.started {
		aw.writeHeader()
	}
}

// HandleNotFound renders the not-found page.
func (ui *UI) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	ui.renderStatus(w, r, http.StatusNotFound, "error", map[string]any{
		"Title":   "Not Found - docvault",
		"Message": "Page not found.",
	})
}

// HandleMethodNotAllowed renders the method-not-allowed page.
func (ui *UI) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	ui.renderStatus(w, r, http.StatusMethodNotAllowed, "error", map[string]any{
		"Title":   "Not Allowed - docvault",
		"Message": "Method not allowed.",
	})
}

func (ui *UI) documentID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(OutcomeFromContext(r.Context()).Params["id"])
	if err != nil || id <= 0 {
		ui.HandleNotFound(w, r)
		return 0, false
	}
	return id, true
}

// attachmentWriter sets download headers on first write so a failure
// before any byte arrives can still redirect.
type attachmentWriter struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func (a *attachmentWriter) writeHeader() {
	a.started = true
	h := a.w.Header()
	h.Set("Content-Type", api.BinaryContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.filename}))
	a.w.WriteHeader(http.StatusOK)
}

func (a *attachmentWriter) Write(p []byte) (int, error) {
	if !a.started {
		a.writeHeader()
	}
	return a.w.Write(p)
}

// redirectWith redirects to path with a single notification parameter.
func redirectWith(w http.ResponseWriter, r *http.Request, path, key, msg string) {
	http.Redirect(w, r, path+"?"+url.Values{key: {msg}}.Encode(), http.StatusSeeOther)
}

func (ui *UI) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	ui.renderStatus(w, r, http.StatusOK, name, data)
}

func (ui *UI) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	sess := ui.sessions.Current()
	data["Subject"] = sess.Subject()
	data["Nav"] = ui.routes.Decision().NavItems
	if _, ok := data["Error"]; !ok {
		data["Error"] = r.URL.Query().Get("error")
	}
	data["Notice"] = r.URL.Query().Get("notice")

	var buf bytes.Buffer
	if err := renderTemplate(&buf, name, data); err != nil {
		ui.logger.Error("template render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
