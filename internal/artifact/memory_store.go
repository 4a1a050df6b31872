package artifact

import (
	"context"
	"fmt"
	"sync"
)

type memoryEntry struct {
	content []byte
	mime    string
}

// MemoryStore keeps artifacts in process memory. Reads take the shared lock
// only long enough to copy the slice header; content is never mutated after
// Put, so concurrent readers need no further coordination.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Put(_ context.Context, content []byte, mimeType string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	if len(content) == 0 {
		return "", fmt.Errorf("content is required")
	}
	id := ContentID(content)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		s.data[id] = memoryEntry{content: append([]byte(nil), content...), mime: mimeType}
	}
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) ([]byte, string, error) {
	if s == nil {
		return nil, "", fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	if !ok {
		return nil, "", ErrNotFound
	}
	return append([]byte(nil), e.content...), e.mime, nil
}
