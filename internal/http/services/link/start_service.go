package link

import (
	"context"
	"errors"

	"github.com/influmart/influmart/internal/pending"
)

// StartService handles the first phase of account linking: staging the
// registration form fields and producing the provider consent URL.
type StartService interface {
	// Start stages req.Fields (if any) and returns the consent redirect URL.
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
}

// StartRequest contains the parameters to begin a linking flow.
type StartRequest struct {
	Platform string
	UserID   string

	// Fields are the staged form fields picked up later by the callback.
	Fields pending.Registration
}

// StartResult contains the redirect target.
type StartResult struct {
	RedirectURL string
}

// Errors for start service.
var (
	ErrStartMissingUserID = errors.New("missing userId")
)
