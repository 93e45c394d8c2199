package store

import (
	"context"
	"testing"
)

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Create(ctx, "things", "a", map[string]any{"name": "uno", "n": 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	doc, err := s.GetByID(ctx, "things", "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["name"] != "uno" {
		t.Fatalf("doc = %+v", doc)
	}
	// Los números llegan normalizados como float64, igual que con JSONB.
	if doc["n"] != float64(1) {
		t.Fatalf("n = %v (%T)", doc["n"], doc["n"])
	}

	if err := s.Update(ctx, "things", "a", map[string]any{"name": "dos"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	doc, _ = s.GetByID(ctx, "things", "a")
	if doc["name"] != "dos" || doc["n"] != float64(1) {
		t.Fatalf("patch no fue parcial: %+v", doc)
	}

	if err := s.Delete(ctx, "things", "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetByID(ctx, "things", "a"); !IsNotFound(err) {
		t.Fatalf("tras delete: got %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_MissingDocument(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.GetByID(ctx, "things", "nope"); !IsNotFound(err) {
		t.Fatalf("get missing: %v", err)
	}
	if err := s.Update(ctx, "things", "nope", map[string]any{"x": 1}); !IsNotFound(err) {
		t.Fatalf("update missing: %v", err)
	}
	if err := s.Delete(ctx, "things", "nope"); !IsNotFound(err) {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.Create(ctx, "things", "a", map[string]any{"name": "uno"})
	doc, _ := s.GetByID(ctx, "things", "a")
	doc["name"] = "mutado"

	again, _ := s.GetByID(ctx, "things", "a")
	if again["name"] != "uno" {
		t.Fatalf("el documento almacenado fue mutado: %+v", again)
	}
}
