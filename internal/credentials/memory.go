package credentials

import (
	"context"
	"sync"
)

// MemoryStore is a process-local store. Its contents vanish on exit.
type MemoryStore struct {
	keyed
	mu     sync.Mutex
	values map[string]string
	fail   error
	reads  int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{values: map[string]string{}}
	s.keyed = keyed{m: s}
	return s
}

// SetFailure makes every subsequent operation fail with err wrapped in
// ErrStorageUnavailable. nil restores normal operation.
func (s *MemoryStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Reads returns how many reads reached the store.
func (s *MemoryStore) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.fail != nil {
		return "", unavailable("get "+key, s.fail)
	}
	return s.values[key], nil
}

func (s *MemoryStore) put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return unavailable("put "+key, s.fail)
	}
	s.values[key] = value
	return nil
}

func (s *MemoryStore) del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return unavailable("delete "+key, s.fail)
	}
	delete(s.values, key)
	return nil
}
