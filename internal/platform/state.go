package platform

import (
	"errors"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// StateAudience is the audience claim for link-state tokens.
const StateAudience = "link-state"

// Errors for state operations.
var (
	ErrStateInvalid  = errors.New("invalid state token")
	ErrStateAudience = errors.New("state audience mismatch")
)

// StateCodec signs and recovers the OAuth state parameter. The state is an
// HS256 JWT carrying only sub (the marketplace user id) and aud, so encoding
// is deterministic: the same user id always produces the same state, which
// keeps AuthorizationURL deterministic while staying tamper-evident.
type StateCodec struct {
	secret []byte
}

// NewStateCodec creates a codec with the shared signing secret.
func NewStateCodec(secret string) *StateCodec {
	return &StateCodec{secret: []byte(secret)}
}

// Encode signs a state token embedding userID.
func (c *StateCodec) Encode(userID string) (string, error) {
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"sub": userID,
		"aud": StateAudience,
	})
	return tok.SignedString(c.secret)
}

// Decode validates a state token and recovers the userID.
func (c *StateCodec) Decode(state string) (string, error) {
	tok, err := jwtv5.Parse(state,
		func(t *jwtv5.Token) (any, error) { return c.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !tok.Valid {
		return "", ErrStateInvalid
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return "", ErrStateInvalid
	}

	if aud, _ := claims["aud"].(string); aud != StateAudience {
		return "", ErrStateAudience
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrStateInvalid
	}
	return sub, nil
}
