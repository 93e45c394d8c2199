package link

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/influmart/influmart/internal/domain"
	"github.com/influmart/influmart/internal/metrics"
	"github.com/influmart/influmart/internal/observability/logger"
	"github.com/influmart/influmart/internal/pending"
	"github.com/influmart/influmart/internal/platform"
	"github.com/influmart/influmart/internal/store"
)

// CallbackDeps contains dependencies for callback service.
type CallbackDeps struct {
	Registry *platform.Registry
	State    *platform.StateCodec
	Pending  *pending.Store
	Accounts *store.AccountStore

	// SuccessRedirectURL is where the browser lands after a created account.
	SuccessRedirectURL string
}

type callbackService struct {
	registry   *platform.Registry
	state      *platform.StateCodec
	pending    *pending.Store
	accounts   *store.AccountStore
	successURL string
}

// NewCallbackService creates a new CallbackService.
func NewCallbackService(d CallbackDeps) CallbackService {
	return &callbackService{
		registry:   d.Registry,
		state:      d.State,
		pending:    d.Pending,
		accounts:   d.Accounts,
		successURL: d.SuccessRedirectURL,
	}
}

// protectedFields are account fields a staged registration can never set.
var protectedFields = map[string]bool{
	"id": true, "platform": true, "userId": true,
	"token": true, "tokenExpiry": true,
	"refreshToken": true, "refreshTokenExpiry": true,
	"scope": true, "tokenType": true,
	"createdAt": true, "updatedAt": true, "deletedAt": true,
}

// Callback processes the OAuth callback: validate → exchange code → merge
// staged fields → create Account → delete staged entry. The staged entry is
// deleted only after the Account write succeeds, so a retried callback can
// still observe it and create a second Account (the code exchange carries no
// idempotency key).
func (s *callbackService) Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("link.callback"),
		logger.PlatformName(req.Platform),
	)

	if req.State == "" {
		return nil, ErrCallbackMissingState
	}
	if req.Code == "" {
		return nil, ErrCallbackMissingCode
	}

	adapter, err := s.registry.ForTag(req.Platform)
	if err != nil {
		return nil, err
	}

	userID, err := s.state.Decode(req.State)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCallbackInvalidState, err)
	}
	log = log.With(logger.UserID(userID))

	bundle, err := adapter.ExchangeCode(ctx, req.Code)
	if err != nil {
		metrics.LinkFailed.WithLabelValues(req.Platform, "exchange").Inc()
		return nil, err
	}

	now := time.Now().UTC()
	acct := &domain.Account{
		Platform:           req.Platform,
		UserID:             userID,
		Token:              bundle.AccessToken,
		TokenExpiry:        platform.ExpiryAt(now, bundle.ExpiresIn),
		RefreshToken:       bundle.RefreshToken,
		RefreshTokenExpiry: platform.ExpiryAt(now, bundle.RefreshExpiresIn),
		Scope:              bundle.Scope,
		TokenType:          bundle.TokenType,
		IsActive:           true,
	}

	// Absent staged fields are tolerated: the account is created with token
	// fields only.
	staged, err := s.pending.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(staged) > 0 {
		if err := applyStaged(acct, staged); err != nil {
			return nil, err
		}
	}

	if err := s.accounts.Create(ctx, acct); err != nil {
		metrics.LinkFailed.WithLabelValues(req.Platform, "persist").Inc()
		return nil, err
	}

	if err := s.pending.Delete(ctx, userID); err != nil {
		// The account exists; a leftover staged entry is overwritten by the
		// next attempt. Not fatal.
		log.Warn("staged registration cleanup failed", logger.Err(err))
	}

	metrics.LinkCompleted.WithLabelValues(req.Platform).Inc()
	log.Info("account linked", logger.AccountID(acct.ID))
	return &CallbackResult{Account: acct, RedirectURL: s.successURL}, nil
}

// applyStaged overlays the staged form fields on the account, skipping
// protected fields.
func applyStaged(acct *domain.Account, staged pending.Registration) error {
	raw, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	doc := make(map[string]any)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for k, v := range staged {
		if protectedFields[k] {
			continue
		}
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, acct)
}
