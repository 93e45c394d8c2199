// Package pending stages registration form fields between the start of a
// linking flow and its OAuth callback.
//
// The entry is written before the redirect to the provider and read-and-
// deleted inside the callback. No TTL is enforced: an abandoned flow leaves
// an orphaned entry until a later attempt for the same user overwrites it.
package pending

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/influmart/influmart/internal/cache"
)

const keyPrefix = "pending:"

// Registration holds the arbitrary staged form fields, keyed by userID.
type Registration map[string]any

// Store is the thin key-value wrapper over the cache client.
type Store struct {
	cache cache.Client
}

// NewStore creates the pending-registration store.
func NewStore(c cache.Client) *Store {
	return &Store{cache: c}
}

// Set stages fields for userID, replacing any previous entry.
func (s *Store) Set(ctx context.Context, userID string, reg Registration) error {
	raw, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, keyPrefix+userID, string(raw), 0)
}

// Get returns the staged fields for userID. A missing entry returns
// (nil, nil): the callback tolerates absence and proceeds with token fields
// only.
func (s *Store) Get(ctx context.Context, userID string) (Registration, error) {
	raw, err := s.cache.Get(ctx, keyPrefix+userID)
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var reg Registration
	if err := json.Unmarshal([]byte(raw), &reg); err != nil {
		return nil, fmt.Errorf("pending: corrupt entry for user %s: %w", userID, err)
	}
	return reg, nil
}

// Delete removes the staged entry. Deleting a missing entry is not an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	err := s.cache.Delete(ctx, keyPrefix+userID)
	if err != nil && cache.IsNotFound(err) {
		return nil
	}
	return err
}
