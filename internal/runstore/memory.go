package runstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvdxf/internal/pipeline"
)

// Memory is a process-local Store. Drafts are stored encoded so callers
// never share mutable state with the store.
type Memory struct {
	mu     sync.RWMutex
	drafts map[uuid.UUID][]byte
}

func NewMemory() *Memory {
	return &Memory{drafts: make(map[uuid.UUID][]byte)}
}

func (m *Memory) Save(ctx context.Context, d *pipeline.Draft) error {
	data, err := encode(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[d.RunID] = data
	return nil
}

func (m *Memory) Get(ctx context.Context, id uuid.UUID) (*pipeline.Draft, error) {
	m.mu.RLock()
	data, ok := m.drafts[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(id, data)
}

func (m *Memory) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[id]; !ok {
		return ErrNotFound
	}
	delete(m.drafts, id)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Len returns the number of stored drafts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.drafts)
}
