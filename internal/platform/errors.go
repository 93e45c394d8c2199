package platform

import (
	"errors"
	"fmt"
)

// Error taxonomy for provider interactions. Services match with errors.Is
// and map to HTTP responses at the boundary. No layer retries automatically.
var (
	// ErrAuthExchange: the provider rejected the code exchange or returned a
	// non-token payload.
	ErrAuthExchange = errors.New("platform: authorization code exchange failed")

	// ErrInvalidResponse: a provider payload failed structural validation.
	ErrInvalidResponse = errors.New("platform: invalid provider response")

	// ErrRefreshFailure: a token refresh call failed. For rotating-token
	// platforms this can leave the account unrecoverable without
	// re-authentication; it must surface, never be swallowed.
	ErrRefreshFailure = errors.New("platform: token refresh failed")
)

// UnknownPlatformError reports an unmapped platform tag.
type UnknownPlatformError struct {
	Tag string
}

func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("platform: unknown platform %q", e.Tag)
}

// IsUnknownPlatform verifica si el error corresponde a un tag no mapeado.
func IsUnknownPlatform(err error) bool {
	var upe *UnknownPlatformError
	return errors.As(err, &upe)
}
