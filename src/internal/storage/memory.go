package storage

import (
	"context"
	"sync"

	"buildhub-client/src/internal/models"
)

type memoryStorage struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

// NewMemory returns process-local snapshot storage. It is the fallback when
// no durable backend is reachable: the session survives for the process
// lifetime only, which degrades to "user must log in again" after a restart.
func NewMemory() Storage {
	return &memoryStorage{}
}

func (s *memoryStorage) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return nil, models.ErrSnapshotNotFound
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

func (s *memoryStorage) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make([]byte, len(data))
	copy(s.data, data)
	s.set = true
	return nil
}

func (s *memoryStorage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.set = false
	return nil
}
