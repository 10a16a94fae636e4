package namedquery

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/mongosql/internal/sqlerr"
)

// MemoryStore is an in-process Store for tests and for shells started
// without a state directory.
type MemoryStore struct {
	mu         sync.RWMutex
	queries    map[string]NamedQuery
	executions []Execution
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{queries: make(map[string]NamedQuery)}
}

// Save inserts or replaces a template.
func (m *MemoryStore) Save(_ context.Context, q NamedQuery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries[q.Name] = q
	return nil
}

// Load fetches one template by name.
func (m *MemoryStore) Load(_ context.Context, name string) (*NamedQuery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.queries[name]
	if !ok {
		return nil, sqlerr.NewQueryNotFound(name)
	}
	return &q, nil
}

// Delete removes a template.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queries, name)
	return nil
}

// List returns all templates ordered by name.
func (m *MemoryStore) List(_ context.Context) ([]NamedQuery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]NamedQuery, 0, len(m.queries))
	for _, q := range m.queries {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RecordExecution appends one audit row.
func (m *MemoryStore) RecordExecution(_ context.Context, e Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions = append(m.executions, e)
	return nil
}

// Executions returns the audit trail for one template in insertion
// order.
func (m *MemoryStore) Executions(name string) []Execution {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Execution
	for _, e := range m.executions {
		if e.QueryName == name {
			out = append(out, e)
		}
	}
	return out
}
