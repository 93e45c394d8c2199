// Package domain contains the core marketplace entities shared across layers.
package domain

import "time"

// Account links one social profile to one marketplace user via OAuth
// credentials. Created once per successful callback; token fields are mutated
// by refresh operations, listing fields by the update endpoint. Soft-deleted
// via DeletedAt.
type Account struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	UserID   string `json:"userId"`

	// Token material.
	Token              string     `json:"token"`
	TokenExpiry        *time.Time `json:"tokenExpiry,omitempty"`
	RefreshToken       string     `json:"refreshToken,omitempty"`
	RefreshTokenExpiry *time.Time `json:"refreshTokenExpiry,omitempty"`
	Scope              string     `json:"scope,omitempty"`
	TokenType          string     `json:"tokenType,omitempty"`

	// Listing fields captured at link time.
	Username          string             `json:"username,omitempty"`
	Followers         int                `json:"followers,omitempty"`
	Category          string             `json:"category,omitempty"`
	Country           string             `json:"country,omitempty"`
	City              string             `json:"city,omitempty"`
	Language          string             `json:"language,omitempty"`
	Prices            map[string]float64 `json:"prices,omitempty"`
	AvailableServices []string           `json:"availableServices,omitempty"`
	IsVerified        bool               `json:"isVerified"`
	IsActive          bool               `json:"isActive"`
	HideIdentity      bool               `json:"hideIdentity"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// TokenExpired reports whether the access token is past its expiry.
// Accounts without an expiry never expire.
func (a *Account) TokenExpired(now time.Time) bool {
	return a.TokenExpiry != nil && !now.Before(*a.TokenExpiry)
}

// RefreshTokenExpired reports whether the refresh token is past its expiry.
func (a *Account) RefreshTokenExpired(now time.Time) bool {
	return a.RefreshTokenExpiry != nil && !now.Before(*a.RefreshTokenExpiry)
}

// AccountPatch is a partial update to an Account's token material. Refresh
// operations return one instead of writing to storage themselves; the caller
// applies it. Nil pointer fields are left untouched.
type AccountPatch struct {
	Token              *string    `json:"token,omitempty"`
	TokenExpiry        *time.Time `json:"tokenExpiry,omitempty"`
	RefreshToken       *string    `json:"refreshToken,omitempty"`
	RefreshTokenExpiry *time.Time `json:"refreshTokenExpiry,omitempty"`
}

// Fields returns the patch as a document-store field map, skipping nil
// entries.
func (p *AccountPatch) Fields() map[string]any {
	if p == nil {
		return nil
	}
	m := make(map[string]any, 4)
	if p.Token != nil {
		m["token"] = *p.Token
	}
	if p.TokenExpiry != nil {
		m["tokenExpiry"] = p.TokenExpiry.UTC().Format(time.RFC3339Nano)
	}
	if p.RefreshToken != nil {
		m["refreshToken"] = *p.RefreshToken
	}
	if p.RefreshTokenExpiry != nil {
		m["refreshTokenExpiry"] = p.RefreshTokenExpiry.UTC().Format(time.RFC3339Nano)
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
