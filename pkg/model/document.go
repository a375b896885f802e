package model

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Tag labels a document. Tags are free text on upload.
type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Uploader is the user who created a version.
type Uploader struct {
	Name string `json:"name"`
}

// VersionRecord is one entry of a document's version history.
type VersionRecord struct {
	ID               int       `json:"id"`
	VersionNumber    int       `json:"version_number"`
	StoragePath      string    `json:"storage_path,omitempty"`
	CreatedAt        Timestamp `json:"created_at"`
	UploadedByUserID int       `json:"uploaded_by_user_id,omitempty"`
	Uploader         *Uploader `json:"uploader,omitempty"`
}

// UploaderName returns the uploader's name, or "unknown".
func (v VersionRecord) UploaderName() string {
	if v.Uploader == nil || v.Uploader.Name == "" {
		return "unknown"
	}
	return v.Uploader.Name
}

// DocumentSummary is a search result.
type DocumentSummary struct {
	ID       int             `json:"id"`
	Title    string          `json:"title"`
	Tags     []Tag           `json:"tags"`
	Versions []VersionRecord `json:"versions"`
}

// TagNames returns the names of the document's tags.
func (d DocumentSummary) TagNames() []string {
	names := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Upload is a document upload request. Tags is a comma-separated list,
// e.g. "Finance,Report".
type Upload struct {
	Title    string
	Tags     string
	Filename string
	Content  io.Reader
}

// Validate checks that title, tags and file are present.
func (u Upload) Validate() error {
	var details []FieldError
	if strings.TrimSpace(u.Title) == "" {
		details = append(details, FieldError{Field: "title", Message: "required"})
	}
	if strings.TrimSpace(u.Tags) == "" {
		details = append(details, FieldError{Field: "tags", Message: "required"})
	}
	if u.Content == nil || u.Filename == "" {
		details = append(details, FieldError{Field: "file", Message: "please select a file to upload"})
	}
	if len(details) > 0 {
		return NewValidationError("Invalid upload", details...)
	}
	return nil
}

// UploadResult is the body returned by POST /documents/upload/.
type UploadResult struct {
	Filename   string `json:"filename"`
	DocumentID int    `json:"document_id"`
	Title      string `json:"title"`
}

// SuggestedFilename builds the save-as name for a version download:
// "<name>_v<N>.<ext>" from the last element of the storage path. An empty
// last element (no path, or a trailing slash) falls back to document_<id>.bin.
func SuggestedFilename(docID int, v VersionRecord) string {
	p := strings.ReplaceAll(v.StoragePath, "\\", "/")
	base := p[strings.LastIndex(p, "/")+1:]
	if base == "" || base == "." || base == ".." {
		base = fmt.Sprintf("document_%d.bin", docID)
	}
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s_v%d.%s", name, v.VersionNumber, ext)
}

// Timestamp decodes the service's datetimes, which may omit the zone
// (naive UTC) or carry one.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}
