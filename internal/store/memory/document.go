package memory

import (
	"context"
	"sync"
)

// Document keeps inserted documents in insertion order.
type Document struct {
	mu   sync.RWMutex
	docs []map[string]any
}

// NewDocument constructs an empty Document store.
func NewDocument() *Document {
	return &Document{}
}

// InsertOne appends a shallow copy of doc.
func (s *Document) InsertOne(_ context.Context, doc map[string]any) error {
	cp := make(map[string]any, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, cp)
	return nil
}

// FindAll returns the stored documents.
func (s *Document) FindAll(_ context.Context) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]any, len(s.docs))
	copy(out, s.docs)
	return out, nil
}

// Close is a no-op.
func (s *Document) Close(context.Context) error { return nil }
