package storage

import (
	"context"
	"sync"

	"max.ks1230/expenses-bot/internal/entity/user"
)

// InMemStorage keeps user records in a process-local map. Used by tests
// and for running the bot without a database. Locked because the
// scheduler and the message loop read it concurrently.
type InMemStorage struct {
	mu      sync.RWMutex
	userMap map[int64]user.Record
}

func NewInMemStorage() *InMemStorage {
	return &InMemStorage{userMap: make(map[int64]user.Record)}
}

func (s *InMemStorage) GetByID(_ context.Context, id int64) (user.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.userMap[id]
	if !ok {
		return user.Record{}, nil
	}
	return u, nil
}

func (s *InMemStorage) SaveByID(_ context.Context, id int64, rec user.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userMap[id] = rec
	return nil
}

func (s *InMemStorage) GetAll(_ context.Context) (map[int64]user.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make(map[int64]user.Record, len(s.userMap))
	for id, rec := range s.userMap {
		res[id] = rec
	}
	return res, nil
}
