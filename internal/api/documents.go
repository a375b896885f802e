package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/me/docvault/pkg/model"
)

// BinaryContentType is the content type downloads are delivered with.
const BinaryContentType = "application/octet-stream"

// Authenticate exchanges email and password for a credential
// (POST /login/, form-encoded username/password).
func (c *Client) Authenticate(ctx context.Context, email, password string) (string, error) {
	if err := (model.LoginForm{Email: email, Password: password}).Validate(); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var tok model.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/login/", strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded", &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", &RequestFailed{Method: http.MethodPost, Path: "/login/", Status: http.StatusOK,
			Err: fmt.Errorf("response has no access_token")}
	}
	return tok.AccessToken, nil
}

// RegisterUser creates an account (POST /register/).
func (c *Client) RegisterUser(ctx context.Context, p model.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return c.postJSON(ctx, "/register/", p, nil)
}

// ListDepartments returns the departments users can register into.
func (c *Client) ListDepartments(ctx context.Context) ([]model.Department, error) {
	var out []model.Department
	if err := c.getJSON(ctx, "/departments/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchDocuments searches by title text and tag. Empty values are sent
// as-is; the service decides the result set.
func (c *Client) SearchDocuments(ctx context.Context, query, tag string) ([]model.DocumentSummary, error) {
	q := "q=" + url.QueryEscape(query) + "&tag=" + url.QueryEscape(tag)
	var out []model.DocumentSummary
	if err := c.getJSON(ctx, "/documents/search/?"+q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadDocument uploads a new document or a new version of an existing
// one (POST /documents/upload/, multipart title/tags/file). The body is
// streamed; the file is never held in memory.
func (c *Client) UploadDocument(ctx context.Context, u model.Upload) (*model.UploadResult, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUpload(mw, u))
	}()

	var out model.UploadResult
	err := c.do(ctx, http.MethodPost, "/documents/upload/", pr, mw.FormDataContentType(), &out)
	// Unblock the writer if the request ended before the body was consumed.
	pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func writeUpload(mw *multipart.Writer, u model.Upload) error {
	if err := mw.WriteField("title", u.Title); err != nil {
		return err
	}
	if err := mw.WriteField("tags", u.Tags); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", u.Filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, u.Content); err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	return mw.Close()
}

// ListVersions returns a document's version history, newest first.
func (c *Client) ListVersions(ctx context.Context, docID int) ([]model.VersionRecord, error) {
	var out []model.VersionRecord
	if err := c.getJSON(ctx, "/documents/"+strconv.Itoa(docID)+"/versions/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DownloadVersion streams the latest version of a document into w and
// returns the number of bytes written.
func (c *Client) DownloadVersion(ctx context.Context, docID int, w io.Writer) (int64, error) {
	path := "/documents/" + strconv.Itoa(docID) + "/download/"
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", BinaryContentType)

	resp, err := c.send(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &RequestFailed{Method: http.MethodGet, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return n, nil
}
