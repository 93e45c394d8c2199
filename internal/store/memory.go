package store

import (
	"context"
	"encoding/json"
	"sync"
)

// memoryStore implementa DocumentStore en memoria. Pensado para tests y
// desarrollo local; normaliza los documentos por round-trip JSON para que el
// comportamiento calce con el backend postgres (números como float64, etc.).
type memoryStore struct {
	mu      sync.RWMutex
	docs    map[string]map[string]any // "collection/id" → doc
	deleted map[string]bool
}

// NewMemoryStore crea un DocumentStore en memoria.
func NewMemoryStore() DocumentStore {
	return &memoryStore{
		docs:    make(map[string]map[string]any),
		deleted: make(map[string]bool),
	}
}

func memKey(collection, id string) string { return collection + "/" + id }

func normalize(doc map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *memoryStore) Create(ctx context.Context, collection, id string, doc map[string]any) error {
	norm, err := normalize(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(collection, id)
	s.docs[k] = norm
	delete(s.deleted, k)
	return nil
}

func (s *memoryStore) GetByID(ctx context.Context, collection, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k := memKey(collection, id)
	doc, ok := s.docs[k]
	if !ok || s.deleted[k] {
		return nil, ErrNotFound
	}
	// Copia defensiva: el caller no debe mutar el documento almacenado.
	out := make(map[string]any, len(doc))
	for f, v := range doc {
		out[f] = v
	}
	return out, nil
}

func (s *memoryStore) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	norm, err := normalize(patch)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(collection, id)
	doc, ok := s.docs[k]
	if !ok || s.deleted[k] {
		return ErrNotFound
	}
	for f, v := range norm {
		doc[f] = v
	}
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(collection, id)
	if _, ok := s.docs[k]; !ok || s.deleted[k] {
		return ErrNotFound
	}
	s.deleted[k] = true
	return nil
}

func (s *memoryStore) Ping(ctx context.Context) error { return nil }

func (s *memoryStore) Close() error { return nil }
