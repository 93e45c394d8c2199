// Package accounts exposes the account read/update/delete operations behind
// the HTTP layer. Reads are cache-fronted enriched views; every mutation
// invalidates the cached view for that id.
package accounts

import (
	"context"

	"github.com/influmart/influmart/internal/enrich"
	"github.com/influmart/influmart/internal/observability/logger"
	"github.com/influmart/influmart/internal/store"
)

// Service is the account operations contract.
type Service interface {
	// Get returns the enriched view for the account.
	Get(ctx context.Context, id string) (enrich.View, error)

	// Update persists a partial field update and invalidates the cached view.
	Update(ctx context.Context, id string, fields map[string]any) error

	// Delete soft-deletes the account and invalidates the cached view.
	Delete(ctx context.Context, id string) error
}

// Deps contains dependencies for the accounts service.
type Deps struct {
	Accounts *store.AccountStore
	Enrich   *enrich.Service
}

type service struct {
	accounts *store.AccountStore
	enrich   *enrich.Service
}

// NewService creates the accounts service.
func NewService(d Deps) Service {
	return &service{accounts: d.Accounts, enrich: d.Enrich}
}

func (s *service) Get(ctx context.Context, id string) (enrich.View, error) {
	return s.enrich.Get(ctx, id)
}

// immutableFields cannot be changed through the generic update endpoint.
var immutableFields = map[string]bool{
	"id": true, "platform": true, "userId": true,
	"createdAt": true, "updatedAt": true, "deletedAt": true,
}

func (s *service) Update(ctx context.Context, id string, fields map[string]any) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("accounts"),
		logger.AccountID(id),
	)

	filtered := make(map[string]any, len(fields))
	for k, v := range fields {
		if immutableFields[k] {
			continue
		}
		filtered[k] = v
	}

	if err := s.accounts.Update(ctx, id, filtered); err != nil {
		return err
	}
	if err := s.enrich.Invalidate(ctx, id); err != nil {
		// A stale cached view would outlive the mutation; surface it.
		return err
	}
	log.Info("account updated", logger.Count(len(filtered)))
	return nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.enrich.Invalidate(ctx, id); err != nil {
		return err
	}
	logger.From(ctx).Info("account deleted",
		logger.Layer("service"), logger.Component("accounts"), logger.AccountID(id))
	return nil
}
