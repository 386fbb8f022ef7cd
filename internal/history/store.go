package history

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrInvalidCanvas is returned when a canvas payload has no usable id.
var ErrInvalidCanvas = errors.New("canvas requires an id")

// Store persists canvas documents. Canvases are kept as raw JSON: the
// front end owns the document shape (drawing elements, app state,
// embedded files) and decoding into a fixed struct would silently drop
// fields it adds.
type Store interface {
	// List returns all canvases, newest first.
	List(ctx context.Context) ([]json.RawMessage, error)

	// Save upserts a canvas by its "id" field. New canvases go to the
	// front of the list.
	Save(ctx context.Context, canvas json.RawMessage) (json.RawMessage, error)

	// Delete removes a canvas by id. Deleting a missing id is not an
	// error.
	Delete(ctx context.Context, id string) error
}

// canvasID extracts the id field from a raw canvas document.
func canvasID(canvas json.RawMessage) (string, error) {
	var envelope struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(canvas, &envelope); err != nil {
		return "", err
	}
	if envelope.ID == "" {
		return "", ErrInvalidCanvas
	}
	return envelope.ID, nil
}
