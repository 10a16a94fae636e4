// Package namedquery stores parameterized query templates and expands
// them with positional arguments at run time.
package namedquery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/mongosql/internal/sqlerr"
)

// NamedQuery is one saved template. Params is derived from the highest
// $N placeholder in the text at save time.
type NamedQuery struct {
	Name      string
	Text      string
	Params    int
	CreatedAt time.Time
}

// Execution is one audit record of a template expansion.
type Execution struct {
	ID        string
	QueryName string
	Args      []string
	RanAt     time.Time
}

// Store persists named queries. Implementations must be safe for
// concurrent use.
type Store interface {
	Save(ctx context.Context, q NamedQuery) error
	Load(ctx context.Context, name string) (*NamedQuery, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]NamedQuery, error)
	RecordExecution(ctx context.Context, e Execution) error
}

// Registry is the template engine over a Store. The mutex serializes
// save/delete against concurrent expansion so a template is never read
// half-replaced.
type Registry struct {
	mu    sync.RWMutex
	store Store
}

// NewRegistry wraps a store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Save registers (or replaces) a template under name.
func (r *Registry) Save(ctx context.Context, name, text string) (*NamedQuery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := NamedQuery{
		Name:      strings.TrimSpace(name),
		Text:      text,
		Params:    ParamCount(text),
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Save(ctx, q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Delete removes a template. Deleting an unknown name is an error so
// typos surface.
func (r *Registry) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.Load(ctx, name); err != nil {
		return err
	}
	return r.store.Delete(ctx, name)
}

// List returns all templates sorted by name.
func (r *Registry) List(ctx context.Context) ([]NamedQuery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.List(ctx)
}

// Get returns one template.
func (r *Registry) Get(ctx context.Context, name string) (*NamedQuery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.Load(ctx, name)
}

// Expand loads a template, substitutes the arguments and records the
// execution. Arity is exact: a template with $1 and $2 takes exactly
// two arguments.
func (r *Registry) Expand(ctx context.Context, name string, args []string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, err := r.store.Load(ctx, name)
	if err != nil {
		return "", err
	}
	if q.Params != len(args) && !usesVariadic(q.Text) {
		return "", sqlerr.NewParamCountMismatch(q.Name, q.Params, len(args))
	}

	expanded := Substitute(q.Text, args)

	// Audit is best effort: a failed write never blocks the query.
	_ = r.store.RecordExecution(ctx, Execution{
		ID:        uuid.NewString(),
		QueryName: q.Name,
		Args:      args,
		RanAt:     time.Now().UTC(),
	})
	return expanded, nil
}
