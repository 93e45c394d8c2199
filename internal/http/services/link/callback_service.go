package link

import (
	"context"
	"errors"

	"github.com/influmart/influmart/internal/domain"
)

// CallbackService handles the callback phase of account linking.
type CallbackService interface {
	// Callback exchanges the code, merges staged fields and creates the
	// Account.
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error)
}

// CallbackRequest contains the parameters for processing the callback.
type CallbackRequest struct {
	Platform string
	Code     string
	State    string
}

// CallbackResult contains the created account and the redirect target.
type CallbackResult struct {
	Account     *domain.Account
	RedirectURL string
}

// Errors for callback service.
var (
	ErrCallbackMissingCode  = errors.New("missing code")
	ErrCallbackMissingState = errors.New("missing state")
	ErrCallbackInvalidState = errors.New("invalid state")
)
