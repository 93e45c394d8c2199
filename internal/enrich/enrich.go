// Package enrich builds the live, merged view of a linked account: stored
// listing fields plus a fresh profile-and-posts snapshot from the platform.
package enrich

import (
	"context"
	"encoding/json"
	"time"

	"github.com/influmart/influmart/internal/cache"
	"github.com/influmart/influmart/internal/domain"
	"github.com/influmart/influmart/internal/metrics"
	"github.com/influmart/influmart/internal/observability/logger"
	"github.com/influmart/influmart/internal/platform"
	"github.com/influmart/influmart/internal/store"
)

const keyPrefix = "enriched:"

// DefaultHorizon is how long a cached enriched view stays fresh.
const DefaultHorizon = time.Hour

// View is the merged account document returned to readers. Live platform
// fields win over stored listing fields on collision.
type View map[string]any

// entry is the cached value: the merged view plus its wall-clock expiry.
// Staleness is decided against ExpiresAt, not a backend TTL, so a stale
// entry that is still physically present triggers a refetch.
type entry struct {
	Account   View      `json:"account"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service runs the enrichment pipeline, cache-fronted.
type Service struct {
	accounts *store.AccountStore
	registry *platform.Registry
	cache    cache.Client
	horizon  time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// Deps are the collaborators the service needs.
type Deps struct {
	Accounts *store.AccountStore
	Registry *platform.Registry
	Cache    cache.Client

	// Horizon overrides DefaultHorizon when > 0.
	Horizon time.Duration
}

// NewService creates the enrichment service.
func NewService(d Deps) *Service {
	h := d.Horizon
	if h <= 0 {
		h = DefaultHorizon
	}
	return &Service{
		accounts: d.Accounts,
		registry: d.Registry,
		cache:    d.Cache,
		horizon:  h,
		now:      time.Now,
	}
}

// Get returns the enriched view for accountID, serving from cache while the
// entry is within its horizon. The cache is best-effort: a read or write
// failure falls through to the full pipeline.
func (s *Service) Get(ctx context.Context, accountID string) (View, error) {
	log := logger.From(ctx).With(logger.Component("enrich"), logger.AccountID(accountID))

	if raw, err := s.cache.Get(ctx, keyPrefix+accountID); err == nil {
		var e entry
		if jsonErr := json.Unmarshal([]byte(raw), &e); jsonErr == nil && s.now().Before(e.ExpiresAt) {
			metrics.EnrichmentCache.WithLabelValues("hit").Inc()
			log.Debug("enriched view served from cache")
			return e.Account, nil
		}
		// Present but stale (or corrupt): fall through to a fresh fetch.
		metrics.EnrichmentCache.WithLabelValues("stale").Inc()
	} else {
		metrics.EnrichmentCache.WithLabelValues("miss").Inc()
		if !cache.IsNotFound(err) {
			log.Warn("enrichment cache read failed", logger.Err(err))
		}
	}

	view, err := s.Enrich(ctx, accountID)
	if err != nil {
		return nil, err
	}

	e := entry{Account: view, ExpiresAt: s.now().Add(s.horizon)}
	if raw, err := json.Marshal(e); err == nil {
		if err := s.cache.Set(ctx, keyPrefix+accountID, string(raw), 0); err != nil {
			log.Warn("enrichment cache write failed", logger.Err(err))
		}
	}
	return view, nil
}

// Enrich runs the full pipeline, bypassing the cache. Steps are not retried;
// the view either fully materializes or the call fails.
func (s *Service) Enrich(ctx context.Context, accountID string) (View, error) {
	log := logger.From(ctx).With(logger.Component("enrich"), logger.AccountID(accountID))

	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	adapter, err := s.registry.ForTag(acct.Platform)
	if err != nil {
		return nil, err
	}

	res, err := adapter.Refresh(ctx, acct)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues(acct.Platform, "failed").Inc()
		return nil, err
	}
	if res.Patch != nil {
		if err := s.accounts.ApplyPatch(ctx, accountID, res.Patch); err != nil {
			return nil, err
		}
		metrics.TokenRefreshes.WithLabelValues(acct.Platform, "refreshed").Inc()
		log.Info("token material refreshed", logger.PlatformName(acct.Platform))
	} else {
		metrics.TokenRefreshes.WithLabelValues(acct.Platform, "noop").Inc()
	}

	page, err := adapter.FetchPage(ctx, res.AccessToken)
	if err != nil {
		return nil, err
	}

	return mergeView(acct, page)
}

// Invalidate drops the cached view for accountID. Every account mutation must
// be followed by this.
func (s *Service) Invalidate(ctx context.Context, accountID string) error {
	err := s.cache.Delete(ctx, keyPrefix+accountID)
	if err != nil && cache.IsNotFound(err) {
		return nil
	}
	return err
}

// mergeView overlays the live page on the stored account document.
func mergeView(acct *domain.Account, page *platform.Page) (View, error) {
	raw, err := json.Marshal(acct)
	if err != nil {
		return nil, err
	}
	view := make(View)
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, err
	}

	live, err := json.Marshal(page.Profile)
	if err != nil {
		return nil, err
	}
	liveFields := make(map[string]any)
	if err := json.Unmarshal(live, &liveFields); err != nil {
		return nil, err
	}
	for k, v := range liveFields {
		view[k] = v
	}
	view["posts"] = page.Posts
	return view, nil
}
