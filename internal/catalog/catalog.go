// Package catalog caches server-provided enumerations for the current
// session.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/me/docvault/internal/session"
	"github.com/me/docvault/pkg/model"
)

// DepartmentLister fetches the department list. *api.Client satisfies it.
type DepartmentLister interface {
	ListDepartments(ctx context.Context) ([]model.Department, error)
}

// Catalog fetches the department list at most once per session and drops
// it whenever the session changes.
type Catalog struct {
	lister DepartmentLister
	logger *slog.Logger

	mu          sync.Mutex
	departments []model.Department
	loaded      bool
	generation  uint64 // bumped by Invalidate
	unsubscribe func()
}

// New creates a Catalog invalidated by transitions of m. m may be nil, in
// which case the list is cached for the Catalog's lifetime.
func New(lister DepartmentLister, m *session.Manager, logger *slog.Logger) *Catalog {
	c := &Catalog{
		lister:      lister,
		logger:      logger.With("component", "catalog"),
		unsubscribe: func() {},
	}
	if m != nil {
		c.unsubscribe = m.Subscribe(func(session.Session) { c.Invalidate() })
	}
	return c
}

// Close detaches the Catalog from its session manager.
func (c *Catalog) Close() {
	c.unsubscribe()
}

// Departments returns the cached department list, fetching it on first use.
// The lock is not held during the fetch; a result that arrives after an
// Invalidate is returned but not cached. A failed fetch is not cached.
func (c *Catalog) Departments(ctx context.Context) ([]model.Department, error) {
	c.mu.Lock()
	if c.loaded {
		deps := c.departments
		c.mu.Unlock()
		return deps, nil
	}
	gen := c.generation
	c.mu.Unlock()

	deps, err := c.lister.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		c.logger.Debug("departments fetched for a previous session, not caching")
		return deps, nil
	}
	c.logger.Debug("departments loaded", "count", len(deps))
	c.departments, c.loaded = deps, true
	return deps, nil
}

// Invalidate drops the cached list and any fetch in flight.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.departments, c.loaded = nil, false
	c.generation++
	c.mu.Unlock()
}

// ResolveDepartment finds a department by numeric id or by case-insensitive
// name among the enumerated values.
func (c *Catalog) ResolveDepartment(ctx context.Context, ref string) (model.Department, error) {
	deps, err := c.Departments(ctx)
	if err != nil {
		return model.Department{}, err
	}
	ref = strings.TrimSpace(ref)
	id, numErr := strconv.Atoi(ref)
	for _, d := range deps {
		if (numErr == nil && d.ID == id) || strings.EqualFold(d.Name, ref) {
			return d, nil
		}
	}
	return model.Department{}, model.NewValidationError("Unknown department",
		model.FieldError{Field: "department_id", Message: fmt.Sprintf("%q is not one of the listed departments", ref)})
}
