// Package store define la persistencia de documentos del servicio.
//
// El backend es un document store genérico (colección → id → documento JSON)
// con borrado lógico vía deletedAt. Drivers: postgres (tabla JSONB) y memory
// (tests / desarrollo local).
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound indica que el documento no existe o está borrado lógicamente.
var ErrNotFound = errors.New("store: document not found")

// IsNotFound reporta si err es (o envuelve) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// DocumentStore es el contrato mínimo de persistencia de documentos.
type DocumentStore interface {
	// Create inserta el documento bajo (collection, id).
	Create(ctx context.Context, collection, id string, doc map[string]any) error

	// GetByID devuelve el documento. ErrNotFound si no existe o fue borrado.
	GetByID(ctx context.Context, collection, id string) (map[string]any, error)

	// Update aplica un patch parcial campo a campo sobre el documento.
	Update(ctx context.Context, collection, id string, patch map[string]any) error

	// Delete marca el documento como borrado (soft delete).
	Delete(ctx context.Context, collection, id string) error

	// Ping verifica conectividad con el backend.
	Ping(ctx context.Context) error

	// Close libera recursos del backend.
	Close() error
}

// Config describe el backend de persistencia.
type Config struct {
	// Driver: "postgres" | "memory".
	Driver string `yaml:"driver"`

	// DSN cadena de conexión (solo postgres).
	DSN string `yaml:"dsn"`

	// MaxConns tamaño máximo del pool (solo postgres, 0 = default).
	MaxConns int `yaml:"max_conns"`
}

// New construye el DocumentStore según cfg.Driver.
func New(ctx context.Context, cfg Config) (DocumentStore, error) {
	switch cfg.Driver {
	case "postgres":
		return newPGStore(ctx, cfg)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
