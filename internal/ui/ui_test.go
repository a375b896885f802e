package ui

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/me/docvault/internal/api"
	"github.com/me/docvault/internal/catalog"
	"github.com/me/docvault/internal/session"
	"github.com/me/docvault/internal/tokenstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mint(t *testing.T, sub string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return tok
}

// backend is a fake document service with hooks that run mid-request.
type backend struct {
	t *testing.T

	mu            sync.Mutex
	onLogin       func()
	onVersions    func()
	downloadHits  int
	lastAuth      string
	uploadedTitle string
}

func (b *backend) setHook(fn *func(), h func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	*fn = h
}

func (b *backend) hook(fn *func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *fn
}

type backendSeen struct {
	downloadHits  int
	lastAuth      string
	uploadedTitle string
}

func (b *backend) seen() backendSeen {
	b.mu.Lock()
	defer b.mu.Unlock()
	return backendSeen{downloadHits: b.downloadHits, lastAuth: b.lastAuth, uploadedTitle: b.uploadedTitle}
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/{$}", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if h := b.hook(&b.onLogin); h != nil {
			h()
		}
		if r.FormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"detail":"Incorrect email or password"}`)
			return
		}
		io.WriteString(w, `{"access_token":"`+mint(b.t, r.FormValue("username"))+`","token_type":"bearer"}`)
	})
	mux.HandleFunc("POST /register/{$}", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"department_id":2`) {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"detail":"bad department"}`)
			return
		}
		io.WriteString(w, `{"id":1}`)
	})
	mux.HandleFunc("GET /departments/{$}", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"name":"Finance"},{"id":2,"name":"Legal"}]`)
	})
	mux.HandleFunc("GET /documents/search/{$}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.lastAuth = r.Header.Get("Authorization")
		b.mu.Unlock()
		if r.URL.Query().Get("q") == "boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `[{"id":3,"title":"Q1 Report","tags":[{"id":1,"name":"finance"}],"versions":[{"id":8,"version_number":1}]}]`)
	})
	mux.HandleFunc("POST /documents/upload/{$}", func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		b.mu.Lock()
		b.uploadedTitle = r.FormValue("title")
		b.mu.Unlock()
		io.WriteString(w, `{"filename":"q1.pdf","document_id":3,"title":"Q1 Report"}`)
	})
	mux.HandleFunc("GET /documents/{id}/versions/{$}", func(w http.ResponseWriter, r *http.Request) {
		if h := b.hook(&b.onVersions); h != nil {
			h()
		}
		io.WriteString(w, `[{"id":9,"version_number":2,"storage_path":"uploads/q1.report.pdf","created_at":"2024-05-01T12:30:00","uploader":{"name":"Alice"}}]`)
	})
	mux.HandleFunc("GET /documents/{id}/download/{$}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.downloadHits++
		b.mu.Unlock()
		w.Write([]byte("%PDF-data"))
	})
	return mux
}

type harness struct {
	ui       *UI
	handler  http.Handler
	sessions *session.Manager
	store    *tokenstore.MemoryStore
	backend  *backend
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	be := &backend{t: t}
	ts := httptest.NewServer(be.handler())
	t.Cleanup(ts.Close)

	store := tokenstore.NewMemoryStore()
	sessions := session.NewManager(store, testLogger())
	sessions.Bootstrap()
	client := api.NewClient(ts.URL, store, 5*time.Second, testLogger())
	cat := catalog.New(client, sessions, testLogger())
	t.Cleanup(cat.Close)

	u := New(sessions, client, cat, testLogger())
	t.Cleanup(u.Close)
	return &harness{ui: u, handler: u.Handler(), sessions: sessions, store: store, backend: be}
}

func (h *harness) do(method, target string, body io.Reader, ctype string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}
	return h.send(req)
}

func (h *harness) send(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(target string) *httptest.ResponseRecorder {
	return h.do(http.MethodGet, target, nil, "")
}

func (h *harness) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	if err := h.sessions.Login(mint(t, "alice@example.com")); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, wantPath string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303 (body %q)", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location: %v", err)
	}
	if loc.Path != wantPath {
		t.Errorf("redirect path = %q, want %q", loc.Path, wantPath)
	}
}

func TestGuardRedirectsUnauthenticated(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/", "/search", "/upload", "/documents/3", "/documents/3/download", "/nowhere"} {
		t.Run(path, func(t *testing.T) {
			assertRedirect(t, h.get(path), "/login")
		})
	}
}

func TestGuardRedirectsAuthenticated(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	for _, path := range []string{"/", "/login", "/register", "/signup", "/nowhere"} {
		t.Run(path, func(t *testing.T) {
			assertRedirect(t, h.get(path), "/search")
		})
	}
}

func TestLoginPageShowsUnauthenticatedNav(t *testing.T) {
	h := newHarness(t)

	rec := h.get("/login?error=Bad+things")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`href="/login"`, `href="/register"`, "Bad things"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, `action="/logout"`) {
		t.Error("unauthenticated nav should not offer logout")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestLoginFlow(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/login", url.Values{"email": {"alice@example.com"}, "password": {"secret"}})
	assertRedirect(t, rec, "/search")

	s := h.sessions.Current()
	if !s.Authenticated() || s.Subject() != "alice@example.com" {
		t.Fatalf("session = %+v, want alice authenticated", s)
	}
	if _, ok := h.store.Load(); !ok {
		t.Error("credential not persisted")
	}

	page := h.get("/search").Body.String()
	for _, want := range []string{`href="/search"`, `href="/upload"`, `action="/logout"`, "alice@example.com"} {
		if !strings.Contains(page, want) {
			t.Errorf("search page missing %q", want)
		}
	}
}

func TestLoginBadCredentials(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong"}})
	assertRedirect(t, rec, "/login")
	loc, _ := url.Parse(rec.Header().Get("Location"))
	if got := loc.Query().Get("error"); got != "Failed to login. Please check your credentials." {
		t.Errorf("error = %q", got)
	}
	if h.sessions.Current().Authenticated() {
		t.Error("session should stay unauthenticated")
	}
}

func TestLoginMissingFields(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/login", url.Values{"email": {"alice@example.com"}})
	assertRedirect(t, rec, "/login")
	loc, _ := url.Parse(rec.Header().Get("Location"))
	if got := loc.Query().Get("error"); got != "Email and password required" {
		t.Errorf("error = %q", got)
	}
}

func TestLoginSupersededByConcurrentLogin(t *testing.T) {
	h := newHarness(t)
	other := mint(t, "bob@example.com")
	h.backend.setHook(&h.backend.onLogin, func() {
		if err := h.sessions.Login(other); err != nil {
			t.Errorf("concurrent Login: %v", err)
		}
	})

	h.postForm("/login", url.Values{"email": {"alice@example.com"}, "password": {"secret"}})

	if got := h.sessions.Current().Subject(); got != "bob@example.com" {
		t.Errorf("subject = %q, want the later login to win", got)
	}
	if cred, _ := h.store.Load(); cred != other {
		t.Error("stale login overwrote the stored credential")
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	assertRedirect(t, h.postForm("/logout", nil), "/login")
	if h.sessions.Current().Authenticated() {
		t.Error("session still authenticated after logout")
	}
	if _, ok := h.store.Load(); ok {
		t.Error("credential not cleared")
	}
	assertRedirect(t, h.get("/search"), "/login")
}

func TestLogoutRejectsGet(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	rec := h.get("/logout")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /logout status = %d, want 405", rec.Code)
	}
	if !h.sessions.Current().Authenticated() {
		t.Error("GET /logout ended the session")
	}
}

func TestCrossSiteRequestsRejected(t *testing.T) {
	uploadBody := func() (io.Reader, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		mw.WriteField("title", "Planted")
		fw, _ := mw.CreateFormFile("file", "x.pdf")
		fw.Write([]byte("%PDF"))
		mw.Close()
		return &buf, mw.FormDataContentType()
	}

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"sec-fetch-site cross-site", map[string]string{"Origin": "https://evil.example", "Sec-Fetch-Site": "cross-site"}},
		{"sec-fetch-site same-site", map[string]string{"Sec-Fetch-Site": "same-site"}},
		{"foreign origin only", map[string]string{"Origin": "https://evil.example"}},
		{"null origin", map[string]string{"Origin": "null"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.login(t)

			body, ctype := uploadBody()
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ctype)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if rec := h.send(req); rec.Code != http.StatusForbidden {
				t.Errorf("POST /upload status = %d, want 403", rec.Code)
			}
			if got := h.backend.seen().uploadedTitle; got != "" {
				t.Errorf("upload reached backend with title %q", got)
			}

			req = httptest.NewRequest(http.MethodPost, "/logout", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if rec := h.send(req); rec.Code != http.StatusForbidden {
				t.Errorf("POST /logout status = %d, want 403", rec.Code)
			}
			if !h.sessions.Current().Authenticated() {
				t.Error("cross-site logout ended the session")
			}
		})
	}
}

func TestCrossSiteLoginRejected(t *testing.T) {
	h := newHarness(t)

	form := url.Values{"email": {"alice@example.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	if rec := h.send(req); rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if h.sessions.Current().Authenticated() {
		t.Error("cross-site login established a session")
	}
}

func TestSameOriginPostAllowed(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"sec-fetch-site same-origin", map[string]string{"Origin": "http://example.com", "Sec-Fetch-Site": "same-origin"}},
		{"sec-fetch-site none", map[string]string{"Sec-Fetch-Site": "none"}},
		{"matching origin", map[string]string{"Origin": "http://example.com"}},
		{"no browser headers", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.login(t)

			req := httptest.NewRequest(http.MethodPost, "/logout", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assertRedirect(t, h.send(req), "/login")
			if h.sessions.Current().Authenticated() {
				t.Error("same-origin logout did not end the session")
			}
		})
	}
}

func TestRegisterResolvesDepartment(t *testing.T) {
	h := newHarness(t)

	page := h.get("/register").Body.String()
	if !strings.Contains(page, "Legal") {
		t.Error("register page missing department list")
	}

	rec := h.postForm("/register", url.Values{
		"name": {"Alice"}, "email": {"alice@example.com"}, "password": {"pw"}, "department_id": {"legal"},
	})
	assertRedirect(t, rec, "/login")
	loc, _ := url.Parse(rec.Header().Get("Location"))
	if loc.Query().Get("notice") == "" {
		t.Error("missing success notice")
	}

	rec = h.postForm("/register", url.Values{
		"name": {"Alice"}, "email": {"alice@example.com"}, "password": {"pw"}, "department_id": {"Marketing"},
	})
	assertRedirect(t, rec, "/register")
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	rec := h.get("/search")
	if strings.Contains(rec.Body.String(), "No documents found") {
		t.Error("results shown before a search was submitted")
	}

	rec = h.get("/search?q=report")
	body := rec.Body.String()
	if !strings.Contains(body, "Q1 Report") || !strings.Contains(body, "finance") {
		t.Errorf("results missing document: %s", body)
	}
	cred, _ := h.store.Load()
	if got := h.backend.seen().lastAuth; got != "Bearer "+cred {
		t.Errorf("Authorization = %q", got)
	}

	rec = h.get("/search?q=boom")
	if !strings.Contains(rec.Body.String(), "Search failed.") {
		t.Error("missing search failure message")
	}
}

func TestUpload(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("title", "Q1 Report")
	mw.WriteField("tags", "finance")
	fw, _ := mw.CreateFormFile("file", "q1.pdf")
	fw.Write([]byte("%PDF"))
	mw.Close()

	rec := h.do(http.MethodPost, "/upload", &buf, mw.FormDataContentType())
	assertRedirect(t, rec, "/upload")
	loc, _ := url.Parse(rec.Header().Get("Location"))
	if loc.Query().Get("notice") == "" {
		t.Errorf("missing notice, got %q", loc.RawQuery)
	}
	if got := h.backend.seen().uploadedTitle; got != "Q1 Report" {
		t.Errorf("uploaded title = %q", got)
	}
}

func TestUploadWithoutFile(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("title", "Q1 Report")
	mw.WriteField("tags", "finance")
	mw.Close()

	rec := h.do(http.MethodPost, "/upload", &buf, mw.FormDataContentType())
	loc, _ := url.Parse(rec.Header().Get("Location"))
	if got := loc.Query().Get("error"); got != "Please select a file to upload." {
		t.Errorf("error = %q", got)
	}
}

func TestDocumentHistory(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	rec := h.get("/documents/3")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"v2", "Alice", "2024-05-01 12:30:00"} {
		if !strings.Contains(body, want) {
			t.Errorf("history missing %q", want)
		}
	}

	if rec := h.get("/documents/abc"); rec.Code != http.StatusNotFound {
		t.Errorf("non-numeric id status = %d, want 404", rec.Code)
	}
}

func TestDownloadHeaders(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	rec := h.get("/documents/3/download")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename=q1.report_v2.pdf` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec.Body.String() != "%PDF-data" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestDownloadDroppedAfterLogout(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.setHook(&h.backend.onVersions, func() {
		if err := h.sessions.Logout(); err != nil {
			t.Errorf("Logout: %v", err)
		}
	})

	rec := h.get("/documents/3/download")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if h.backend.seen().downloadHits != 0 {
		t.Error("download proceeded after logout")
	}
	if h.sessions.Current().Authenticated() {
		t.Error("stale download resurrected the session")
	}
}

func TestHealthBypassesGuard(t *testing.T) {
	h := newHarness(t)

	rec := h.get("/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status        string `json:"status"`
		Authenticated bool   `json:"authenticated"`
		RequestID     string `json:"request_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" || body.Authenticated || body.RequestID == "" {
		t.Errorf("health = %+v", body)
	}
}
