package backend

import (
	"context"
	"sync"
)

// Part is one entry of a Fingerprint part database. In a real system the
// fingerprint is a binary feature vector; the simulation stores a
// pseudo-fingerprint string derived from the identifying fields.
type Part struct {
	Fingerprint string `json:"fingerprint"`
	PartID      string `json:"part_id"`
	BatchID     string `json:"batch_id"`
	PartType    string `json:"part_type"`
}

// PartStore holds the named part databases used by the Mockup provider.
//
// Implementations must be thread-safe. The Mockup provider is the only
// writer and serializes its calls, but the HTTP API may read concurrently.
type PartStore interface {
	// Databases returns the names of all existing part databases.
	Databases(ctx context.Context) ([]string, error)

	// List returns all parts of the named database.
	// Returns ErrDatabaseNotFound if the database does not exist.
	List(ctx context.Context, database string) ([]Part, error)

	// Add inserts a part into the named database, creating the database
	// if it does not exist.
	Add(ctx context.Context, database string, part Part) error

	// Remove deletes a part from the named database.
	// Returns ErrDatabaseNotFound or ErrPartNotFound as appropriate.
	Remove(ctx context.Context, database string, part Part) error
}

// MemoryPartStore is the in-memory PartStore used when no database path is
// configured. Contents are lost on restart.
type MemoryPartStore struct {
	mu        sync.RWMutex
	databases map[string][]Part
	order     []string // creation order, kept stable for Databases()
}

// NewMemoryPartStore creates an empty in-memory part store.
func NewMemoryPartStore() *MemoryPartStore {
	return &MemoryPartStore{databases: make(map[string][]Part)}
}

// Databases implements PartStore.
func (s *MemoryPartStore) Databases(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names, nil
}

// List implements PartStore.
func (s *MemoryPartStore) List(_ context.Context, database string) ([]Part, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parts, ok := s.databases[database]
	if !ok {
		return nil, ErrDatabaseNotFound
	}
	out := make([]Part, len(parts))
	copy(out, parts)
	return out, nil
}

// Add implements PartStore.
func (s *MemoryPartStore) Add(_ context.Context, database string, part Part) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.databases[database]; !ok {
		s.order = append(s.order, database)
	}
	s.databases[database] = append(s.databases[database], part)
	return nil
}

// Remove implements PartStore.
func (s *MemoryPartStore) Remove(_ context.Context, database string, part Part) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	parts, ok := s.databases[database]
	if !ok {
		return ErrDatabaseNotFound
	}
	for i := range parts {
		if parts[i] == part {
			s.databases[database] = append(parts[:i], parts[i+1:]...)
			return nil
		}
	}
	return ErrPartNotFound
}
