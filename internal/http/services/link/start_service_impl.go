package link

import (
	"context"

	"github.com/influmart/influmart/internal/metrics"
	"github.com/influmart/influmart/internal/observability/logger"
	"github.com/influmart/influmart/internal/pending"
	"github.com/influmart/influmart/internal/platform"
)

// StartDeps contains dependencies for start service.
type StartDeps struct {
	Registry *platform.Registry
	Pending  *pending.Store
}

type startService struct {
	registry *platform.Registry
	pending  *pending.Store
}

// NewStartService creates a new StartService.
func NewStartService(d StartDeps) StartService {
	return &startService{registry: d.Registry, pending: d.Pending}
}

func (s *startService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("link.start"),
		logger.PlatformName(req.Platform),
	)

	if req.UserID == "" {
		return nil, ErrStartMissingUserID
	}

	adapter, err := s.registry.ForTag(req.Platform)
	if err != nil {
		return nil, err
	}

	// Stage the form fields before redirecting; the callback reads and
	// deletes them. A later attempt for the same user overwrites the entry.
	if len(req.Fields) > 0 {
		if err := s.pending.Set(ctx, req.UserID, req.Fields); err != nil {
			return nil, err
		}
	}

	u, err := adapter.AuthorizationURL(req.UserID)
	if err != nil {
		return nil, err
	}

	metrics.LinkStarted.WithLabelValues(req.Platform).Inc()
	log.Info("link flow started", logger.UserID(req.UserID))
	return &StartResult{RedirectURL: u}, nil
}
