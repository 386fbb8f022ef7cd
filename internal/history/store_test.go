package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "chat_history.json"), nil)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	return map[string]Store{
		"file":   fileStore,
		"memory": NewMemoryStore(),
	}
}

func TestStoreSaveListDelete(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first := json.RawMessage(`{"id":"a","name":"First","messages":[]}`)
			second := json.RawMessage(`{"id":"b","name":"Second","messages":[]}`)
			if _, err := store.Save(ctx, first); err != nil {
				t.Fatalf("save: %v", err)
			}
			if _, err := store.Save(ctx, second); err != nil {
				t.Fatalf("save: %v", err)
			}

			canvases, err := store.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(canvases) != 2 {
				t.Fatalf("got %d canvases, want 2", len(canvases))
			}
			// Newest first.
			if id, _ := canvasID(canvases[0]); id != "b" {
				t.Errorf("first canvas id = %q, want b", id)
			}

			if err := store.Delete(ctx, "a"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			canvases, _ = store.List(ctx)
			if len(canvases) != 1 {
				t.Fatalf("got %d canvases after delete, want 1", len(canvases))
			}
			// Idempotent.
			if err := store.Delete(ctx, "a"); err != nil {
				t.Fatalf("repeat delete: %v", err)
			}
		})
	}
}

func TestStoreUpsertReplaces(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Save(ctx, json.RawMessage(`{"id":"a","name":"v1"}`)); err != nil {
				t.Fatalf("save: %v", err)
			}
			if _, err := store.Save(ctx, json.RawMessage(`{"id":"a","name":"v2"}`)); err != nil {
				t.Fatalf("save: %v", err)
			}
			canvases, _ := store.List(ctx)
			if len(canvases) != 1 {
				t.Fatalf("upsert duplicated: %d canvases", len(canvases))
			}
			var doc struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(canvases[0], &doc); err != nil || doc.Name != "v2" {
				t.Fatalf("canvas not replaced: %s", canvases[0])
			}
		})
	}
}

func TestStorePreservesUnknownFields(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			raw := json.RawMessage(`{"id":"a","data":{"elements":[{"x":1}],"appState":{"zoom":2}}}`)
			if _, err := store.Save(ctx, raw); err != nil {
				t.Fatalf("save: %v", err)
			}
			canvases, _ := store.List(ctx)
			var doc map[string]any
			if err := json.Unmarshal(canvases[0], &doc); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			data, ok := doc["data"].(map[string]any)
			if !ok || data["appState"] == nil {
				t.Fatalf("front-end fields dropped: %s", canvases[0])
			}
		})
	}
}

func TestStoreRejectsMissingID(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Save(context.Background(), json.RawMessage(`{"name":"anonymous"}`)); err == nil {
				t.Fatalf("canvas without id accepted")
			}
		})
	}
}

func TestFileStoreRecoversFromCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat_history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	store, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	canvases, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list after corruption: %v", err)
	}
	if len(canvases) != 0 {
		t.Fatalf("got %d canvases from corrupt file", len(canvases))
	}
	if _, err := os.Stat(path + ".backup"); err != nil {
		t.Errorf("corrupt file was not backed up: %v", err)
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat_history.json")
	store, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Save(context.Background(), json.RawMessage(`{"id":"a"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	canvases, _ := reopened.List(context.Background())
	if len(canvases) != 1 {
		t.Fatalf("got %d canvases after reopen, want 1", len(canvases))
	}
}
