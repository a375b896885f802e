package route

import (
	"sync"

	"github.com/me/docvault/internal/session"
)

// Watcher keeps the Decision for the latest session of a Manager.
type Watcher struct {
	mu          sync.RWMutex
	epoch       uint64
	decision    Decision
	unsubscribe func()
}

// Watch subscribes to m and re-evaluates on every transition.
func Watch(m *session.Manager) *Watcher {
	w := &Watcher{}
	w.unsubscribe = m.Subscribe(w.update)
	w.update(m.Current())
	return w
}

// Decision returns the most recent decision.
func (w *Watcher) Decision() Decision {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.decision
}

// Stop detaches the watcher from its manager.
func (w *Watcher) Stop() {
	w.unsubscribe()
}

// update ignores notifications older than the one already applied.
func (w *Watcher) update(s session.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s.Epoch < w.epoch {
		return
	}
	w.epoch = s.Epoch
	w.decision = Authorize(s)
}
