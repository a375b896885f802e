// Package session owns the client's authentication state.
//
// A Manager has two states, Unauthenticated and Authenticated(Identity),
// derived from the credential in a tokenstore.Store. It is the single
// writer of both the Session and the stored credential. Observers are
// notified synchronously before a transition returns, so anything that
// reads Current() right after Login or Logout sees the new state.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/me/docvault/internal/identity"
	"github.com/me/docvault/internal/tokenstore"
)

// ErrStale is returned by LoginAt when the session changed after the
// caller observed its epoch.
var ErrStale = errors.New("session changed since request started")

// Session is a snapshot of the authentication state.
type Session struct {
	// Identity is nil when unauthenticated.
	Identity *identity.Identity
	// Epoch increments on every transition.
	Epoch uint64
}

// Authenticated reports whether the session carries an identity.
func (s Session) Authenticated() bool {
	return s.Identity != nil
}

// Subject returns the identity's subject, or "" when unauthenticated.
func (s Session) Subject() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Subject
}

// Observer receives the new Session after every transition.
type Observer func(Session)

// DecodeFunc turns a credential into an Identity.
type DecodeFunc func(credential string) (identity.Identity, error)

// Manager is the owner of the current Session.
type Manager struct {
	store  tokenstore.Store
	decode DecodeFunc
	now    func() time.Time
	logger *slog.Logger

	mu           sync.Mutex
	current      Session
	bootstrapped bool

	obsMu     sync.Mutex
	observers map[uint64]Observer
	nextObs   uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithDecoder replaces identity.Decode.
func WithDecoder(fn DecodeFunc) Option {
	return func(m *Manager) { m.decode = fn }
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates an Unauthenticated Manager over st. Call Bootstrap
// before making any route decision.
func NewManager(st tokenstore.Store, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:     st,
		decode:    identity.Decode,
		now:       time.Now,
		logger:    logger.With("component", "session"),
		observers: make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bootstrap loads the persisted credential and derives the initial
// Session. An undecodable or expired credential is cleared so the next
// start does not fail the same way. Only the first call has any effect.
func (m *Manager) Bootstrap() Session {
	m.mu.Lock()
	if m.bootstrapped {
		s := m.current
		m.mu.Unlock()
		return s
	}
	m.bootstrapped = true
	s := m.setLocked(m.restoreLocked())
	m.mu.Unlock()

	m.notify(s)
	return s
}

// restoreLocked returns the identity of the stored credential, or nil.
func (m *Manager) restoreLocked() *identity.Identity {
	cred, ok := m.store.Load()
	if !ok {
		m.logger.Debug("bootstrap: no stored credential")
		return nil
	}

	id, err := m.decode(cred)
	if err != nil {
		m.logger.Warn("bootstrap: discarding undecodable credential", "error", err)
		m.clearLocked()
		return nil
	}
	if id.Expired(m.now()) {
		m.logger.Info("bootstrap: discarding expired credential", "subject", id.Subject, "expired_at", id.ExpiresAt)
		m.clearLocked()
		return nil
	}

	m.logger.Debug("bootstrap: restored session", "subject", id.Subject)
	return &id
}

// Login persists credential and transitions to Authenticated.
//
// The credential is expected to come from a successful authentication
// call. If it cannot be decoded anyway, the slot is cleared, the session
// is left Unauthenticated and the *identity.DecodeError is returned.
func (m *Manager) Login(credential string) error {
	m.mu.Lock()
	return m.loginLocked(credential)
}

// LoginAt is Login guarded by the epoch the caller observed before
// starting its authentication request. If any transition happened since,
// nothing is changed and ErrStale is returned.
func (m *Manager) LoginAt(epoch uint64, credential string) error {
	m.mu.Lock()
	if m.current.Epoch != epoch {
		cur := m.current.Epoch
		m.mu.Unlock()
		m.logger.Info("discarding stale login", "observed_epoch", epoch, "current_epoch", cur)
		return ErrStale
	}
	return m.loginLocked(credential)
}

// loginLocked must be called with mu held; it releases mu before notifying.
func (m *Manager) loginLocked(credential string) error {
	if err := m.store.Save(credential); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("persist credential: %w", err)
	}

	id, err := m.decode(credential)
	var s Session
	if err != nil {
		m.logger.Error("login with undecodable credential", "error", err)
		m.clearLocked()
		s = m.setLocked(nil)
	} else {
		m.logger.Info("logged in", "subject", id.Subject)
		s = m.setLocked(&id)
	}
	m.mu.Unlock()

	m.notify(s)
	return err
}

// Logout clears the stored credential and transitions to Unauthenticated.
// It is idempotent: storage is cleared on every call, but only a call that
// leaves Authenticated is a transition. The in-memory session is dropped
// even when clearing storage fails; that error is returned.
func (m *Manager) Logout() error {
	m.mu.Lock()
	var err error
	if cerr := m.store.Clear(); cerr != nil {
		err = fmt.Errorf("clear credential: %w", cerr)
	}
	if !m.current.Authenticated() {
		m.mu.Unlock()
		return err
	}
	m.logger.Info("logged out", "subject", m.current.Subject())
	s := m.setLocked(nil)
	m.mu.Unlock()

	m.notify(s)
	return err
}

// Current returns the current Session.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Guard runs fn with the current Session only if its epoch still equals
// epoch, and reports whether fn ran. fn runs with the Manager locked, so
// no transition can land between the check and fn; fn must not call
// Manager methods. Result handlers for requests started under an older
// session use it to drop stale responses.
func (m *Manager) Guard(epoch uint64, fn func(Session)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.Epoch != epoch {
		m.logger.Debug("dropping stale result", "observed_epoch", epoch, "current_epoch", m.current.Epoch)
		return false
	}
	fn(m.current)
	return true
}

// IsCurrent reports whether epoch is still the current session epoch. The
// answer can be outdated by the time the caller acts on it; use Guard when
// the follow-up must not interleave with a transition.
func (m *Manager) IsCurrent(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Epoch == epoch
}

// Subscribe registers an observer and returns a function that removes it.
// Observers must not call Login, LoginAt or Logout.
func (m *Manager) Subscribe(fn Observer) (unsubscribe func()) {
	m.obsMu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

func (m *Manager) notify(s Session) {
	m.obsMu.Lock()
	ids := make([]uint64, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]Observer, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.observers[id])
	}
	m.obsMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// setLocked replaces the current identity and bumps the epoch.
func (m *Manager) setLocked(id *identity.Identity) Session {
	m.current = Session{Identity: id, Epoch: m.current.Epoch + 1}
	return m.current
}

// clearLocked removes the stored credential, logging failures.
func (m *Manager) clearLocked() {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("clear credential failed", "error", err)
	}
}
