package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// CredentialsFileName is the file FileStore writes under the state directory.
const CredentialsFileName = "credentials.json"

// credentials is the file layout. A file without a token key holds no
// credential; an empty token is a stored empty string.
type credentials struct {
	Token *string `json:"token"`
}

// FileStore keeps the credential in a JSON file ({"token": "..."}) readable
// only by the owner.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger.With("component", "tokenstore", "backend", BackendFile)}
}

// Path returns the credentials file location.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Save(credential string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(credentials{Token: &credential}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	// Write to a sibling file and rename so a crash never leaves a torn slot.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write credentials: %w", err)
	}
	f.logger.Debug("credential saved", "path", f.path)
	return nil
}

func (f *FileStore) Load() (string, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("credentials unreadable", "path", f.path, "error", err)
		}
		return "", false
	}
	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		f.logger.Warn("credentials file corrupt", "path", f.path, "error", err)
		return "", false
	}
	if creds.Token == nil {
		return "", false
	}
	return *creds.Token, true
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	f.logger.Debug("credential cleared", "path", f.path)
	return nil
}
