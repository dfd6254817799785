package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bcnelson/dyndns/internal/domain"
	"github.com/bcnelson/dyndns/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
type Store struct {
	mu    sync.RWMutex
	hosts map[string]domain.HostRecord // key: name
	now   func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory store using the wall clock.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates a new in-memory store that reads timestamps from now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		hosts: make(map[string]domain.HostRecord),
		now:   now,
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) GetHost(ctx context.Context, name string) (*domain.HostRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	host, ok := s.hosts[name]
	if !ok {
		return nil, false, nil
	}
	return &host, true, nil
}

func (s *Store) InsertHost(ctx context.Context, name, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.hosts[name]; exists {
		return domain.ErrAlreadyExists
	}
	now := s.now()
	s.hosts[name] = domain.HostRecord{
		Name:        name,
		Address:     address,
		LastUpdated: now,
		LastTouched: now,
	}
	return nil
}

func (s *Store) UpdateHostAddress(ctx context.Context, name, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	host, ok := s.hosts[name]
	if !ok {
		return domain.ErrNotFound
	}
	now := s.now()
	host.Address = address
	host.LastUpdated = now
	host.LastTouched = now
	s.hosts[name] = host
	return nil
}

func (s *Store) TouchHost(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	host, ok := s.hosts[name]
	if !ok {
		return domain.ErrNotFound
	}
	host.LastTouched = s.now()
	s.hosts[name] = host
	return nil
}

func (s *Store) ListHosts(ctx context.Context) ([]*domain.HostRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.HostRecord, 0, len(s.hosts))
	for _, h := range s.hosts {
		host := h
		result = append(result, &host)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}
