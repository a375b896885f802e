// Package tokenstore persists the single bearer credential across restarts.
//
// A store holds at most one credential in a slot with a fixed name. It does
// not validate what it stores; decoding is the identity package's job.
package tokenstore

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
)

// SlotName is the fixed key of the credential slot.
const SlotName = "accessToken"

// Store is a durable single-slot credential store.
//
// Load never fails: an absent slot or inaccessible storage reports ok=false.
// Clear on an empty slot succeeds.
type Store interface {
	Save(credential string) error
	Load() (credential string, ok bool)
	Clear() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the store for backend rooted at stateDir. The returned close
// function releases any underlying resources and is always non-nil.
func Open(backend, stateDir string, logger *slog.Logger) (Store, func() error, error) {
	noop := func() error { return nil }
	switch backend {
	case "", BackendFile:
		return NewFileStore(filepath.Join(stateDir, CredentialsFileName), logger), noop, nil
	case BackendSQLite:
		st, err := NewSQLiteStore(filepath.Join(stateDir, StateDBName), logger)
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	case BackendMemory:
		return NewMemoryStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown token store %q (want file, sqlite or memory)", backend)
	}
}

// MemoryStore keeps the credential in process memory only.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(credential string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.set = credential, true
	return nil
}

func (m *MemoryStore) Load() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.set
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.set = "", false
	return nil
}
