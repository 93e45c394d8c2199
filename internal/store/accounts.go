package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/influmart/influmart/internal/domain"
)

// accountsCollection nombre de la colección de cuentas vinculadas.
const accountsCollection = "accounts"

// AccountStore persiste domain.Account como documentos. Es una capa fina
// sobre DocumentStore: serializa la entidad al mapa del documento y de vuelta.
type AccountStore struct {
	docs DocumentStore
}

// NewAccountStore crea el AccountStore sobre el DocumentStore dado.
func NewAccountStore(docs DocumentStore) *AccountStore {
	return &AccountStore{docs: docs}
}

func accountToDoc(a *domain.Account) (map[string]any, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func docToAccount(doc map[string]any) (*domain.Account, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var a domain.Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserta una cuenta nueva. Genera el id si viene vacío y estampa
// createdAt/updatedAt.
func (s *AccountStore) Create(ctx context.Context, a *domain.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	doc, err := accountToDoc(a)
	if err != nil {
		return err
	}
	return s.docs.Create(ctx, accountsCollection, a.ID, doc)
}

// Get devuelve la cuenta por id. ErrNotFound si no existe o fue borrada.
func (s *AccountStore) Get(ctx context.Context, id string) (*domain.Account, error) {
	doc, err := s.docs.GetByID(ctx, accountsCollection, id)
	if err != nil {
		return nil, err
	}
	return docToAccount(doc)
}

// Update aplica un patch parcial de campos arbitrarios y estampa updatedAt.
func (s *AccountStore) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	patch := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		patch[k] = v
	}
	patch["updatedAt"] = time.Now().UTC().Format(time.RFC3339Nano)
	return s.docs.Update(ctx, accountsCollection, id, patch)
}

// ApplyPatch persiste el resultado de un refresh. Un patch nil o vacío es un
// no-op.
func (s *AccountStore) ApplyPatch(ctx context.Context, id string, p *domain.AccountPatch) error {
	fields := p.Fields()
	if fields == nil {
		return nil
	}
	return s.Update(ctx, id, fields)
}

// Delete borra lógicamente la cuenta.
func (s *AccountStore) Delete(ctx context.Context, id string) error {
	return s.docs.Delete(ctx, accountsCollection, id)
}
