// Package records holds the append-only log of observed selection rounds.
package records

import (
	"context"
	"sync"

	"github.com/TobiSchelling/wonderpick/internal/recommend"
)

// Store is a durable, append-only collection of records.
type Store interface {
	// ReadAll returns every record in insertion order.
	ReadAll(ctx context.Context) ([]recommend.Record, error)
	// Append validates rec and adds it to the end of the log.
	Append(ctx context.Context, rec recommend.Record) error
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []recommend.Record
}

// NewMemoryStore creates a MemoryStore seeded with a copy of initial.
func NewMemoryStore(initial ...recommend.Record) *MemoryStore {
	return &MemoryStore{records: append([]recommend.Record(nil), initial...)}
}

func (m *MemoryStore) ReadAll(_ context.Context) ([]recommend.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]recommend.Record{}, m.records...), nil
}

func (m *MemoryStore) Append(_ context.Context, rec recommend.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}
