// Package memory provides an in-process DeadlineStore.
package memory

import (
	"context"
	"sync"

	"github.com/goodtune/countdown/internal/storage"
)

// Store keeps deadline records in a map.
type Store struct {
	mu      sync.RWMutex
	records map[string]storage.Record
}

var _ storage.DeadlineStore = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[string]storage.Record)}
}

func (s *Store) Save(_ context.Context, identity string, record storage.Record) error {
	if err := storage.CheckIdentity(identity); err != nil {
		return err
	}
	s.mu.Lock()
	s.records[identity] = record
	s.mu.Unlock()
	return nil
}

func (s *Store) Load(_ context.Context, identity string) (*storage.Record, error) {
	if err := storage.CheckIdentity(identity); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[identity]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &record, nil
}

func (s *Store) Delete(_ context.Context, identity string) error {
	if err := storage.CheckIdentity(identity); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, identity)
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }
