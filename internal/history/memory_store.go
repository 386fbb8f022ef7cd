package history

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-memory Store for tests and ephemeral use.
type MemoryStore struct {
	mu       sync.Mutex
	canvases []json.RawMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// List returns all canvases, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]json.RawMessage, len(s.canvases))
	copy(out, s.canvases)
	return out, nil
}

// Save upserts a canvas by id, inserting new canvases at the front.
func (s *MemoryStore) Save(ctx context.Context, canvas json.RawMessage) (json.RawMessage, error) {
	id, err := canvasID(canvas)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.canvases {
		existingID, err := canvasID(existing)
		if err == nil && existingID == id {
			s.canvases[i] = canvas
			return canvas, nil
		}
	}
	s.canvases = append([]json.RawMessage{canvas}, s.canvases...)
	return canvas, nil
}

// Delete removes a canvas by id. Idempotent.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.canvases[:0]
	for _, canvas := range s.canvases {
		existingID, err := canvasID(canvas)
		if err == nil && existingID == id {
			continue
		}
		kept = append(kept, canvas)
	}
	s.canvases = kept
	return nil
}
