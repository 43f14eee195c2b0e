package memory

import (
	"context"
	"sync"
)

// KV is a set of keys with atomic set-if-absent.
type KV struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewKV constructs an empty KV.
func NewKV() *KV {
	return &KV{keys: make(map[string]struct{})}
}

// SetIfAbsent adds key and reports whether it was newly added.
func (s *KV) SetIfAbsent(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = struct{}{}
	return true, nil
}

// Exists reports whether key is present.
func (s *KV) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

// Delete removes key.
func (s *KV) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

// Len reports the number of keys.
func (s *KV) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Close is a no-op.
func (s *KV) Close() error { return nil }
