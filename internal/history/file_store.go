package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all canvases in one JSON file. Writes go through a
// temp file and rename so a crash never leaves a half-written history; a
// corrupt file on load is backed up and reset rather than treated as
// fatal, since history loss beats a backend that won't start.
type FileStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileStore opens (or creates) the history file at path.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("history file path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStore{path: path, logger: logger.With("component", "history")}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.write([]json.RawMessage{}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// List returns all canvases, newest first.
func (s *FileStore) List(ctx context.Context) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save upserts a canvas by id, inserting new canvases at the front.
func (s *FileStore) Save(ctx context.Context, canvas json.RawMessage) (json.RawMessage, error) {
	id, err := canvasID(canvas)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	canvases, err := s.load()
	if err != nil {
		return nil, err
	}
	replaced := false
	for i, existing := range canvases {
		existingID, err := canvasID(existing)
		if err != nil {
			continue
		}
		if existingID == id {
			canvases[i] = canvas
			replaced = true
			break
		}
	}
	if !replaced {
		canvases = append([]json.RawMessage{canvas}, canvases...)
	}
	if err := s.write(canvases); err != nil {
		return nil, err
	}
	return canvas, nil
}

// Delete removes a canvas by id. Idempotent.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	canvases, err := s.load()
	if err != nil {
		return err
	}
	kept := canvases[:0]
	for _, canvas := range canvases {
		existingID, err := canvasID(canvas)
		if err == nil && existingID == id {
			continue
		}
		kept = append(kept, canvas)
	}
	return s.write(kept)
}

func (s *FileStore) load() ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(data) == 0 {
		return []json.RawMessage{}, nil
	}
	var canvases []json.RawMessage
	if err := json.Unmarshal(data, &canvases); err != nil {
		s.logger.Warn("history file corrupt, resetting", "error", err)
		backup := s.path + ".backup"
		if backupErr := os.WriteFile(backup, data, 0o644); backupErr == nil {
			s.logger.Info("backed up corrupt history", "path", backup)
		}
		if err := s.write([]json.RawMessage{}); err != nil {
			return nil, err
		}
		return []json.RawMessage{}, nil
	}
	return canvases, nil
}

func (s *FileStore) write(canvases []json.RawMessage) error {
	data, err := json.MarshalIndent(canvases, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
