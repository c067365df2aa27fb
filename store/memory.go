package store

import (
	"context"
	"sync"
)

type memoryStore struct {
	table   TableConfig
	records map[Key]Record
	order   []Key
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory Store. Scan returns records in
// insertion order.
func NewMemoryStore(table TableConfig) Store {
	return &memoryStore{
		table:   table,
		records: make(map[Key]Record),
	}
}

func (s *memoryStore) Get(_ context.Context, key Key) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *memoryStore) Put(_ context.Context, rec Record) error {
	key, err := keyOf(s.table, rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[key]; !exists {
		s.order = append(s.order, key)
	}
	s.records[key] = rec.Clone()
	return nil
}

func (s *memoryStore) Query(_ context.Context, attr, value string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, key := range s.order {
		if rec := s.records[key]; matches(rec, attr, value) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (s *memoryStore) Scan(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.records[key].Clone())
	}
	return out, nil
}
