// Package platform defines the multi-platform account-linking adapters.
//
// Each supported social platform implements the Adapter interface in its own
// sub-package (instagram, facebook, tiktok, youtube, twitter, linkedin).
// The set is closed: dispatch goes through Registry and an unmapped platform
// tag fails loudly with UnknownPlatformError.
//
// Adapters never touch storage. Refresh returns a RefreshResult carrying the
// token to use plus an optional AccountPatch; the caller persists the patch.
package platform

import (
	"context"
	"time"

	"github.com/influmart/influmart/internal/domain"
)

// Platform identifies one of the six supported social platforms.
type Platform string

const (
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
)

// All lists every supported platform.
func All() []Platform {
	return []Platform{Instagram, Facebook, TikTok, YouTube, Twitter, LinkedIn}
}

// Parse maps a string tag to a Platform. Unknown tags return
// UnknownPlatformError, never a silent default.
func Parse(s string) (Platform, error) {
	switch Platform(s) {
	case Instagram, Facebook, TikTok, YouTube, Twitter, LinkedIn:
		return Platform(s), nil
	}
	return "", &UnknownPlatformError{Tag: s}
}

// TokenBundle is the normalized result of an authorization code exchange.
type TokenBundle struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int // seconds; 0 means the platform reported no expiry
	RefreshExpiresIn int // seconds; only dual-expiry platforms set this
	Scope            string
	TokenType        string
}

// Profile is a normalized live profile snapshot.
type Profile struct {
	ID          string `json:"platformId"`
	DisplayName string `json:"username"`
	AvatarURL   string `json:"avatarUrl"`
	Followers   int    `json:"followers"`
}

// Post is a normalized recent-post snapshot.
type Post struct {
	ID        string    `json:"id"`
	Caption   string    `json:"caption"`
	MediaURL  string    `json:"mediaUrl"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Permalink string    `json:"permalink,omitempty"`
}

// Page is the exact union of a profile and its recent posts.
type Page struct {
	Profile
	Posts []Post `json:"posts"`
}

// RefreshResult carries the access token to use after a refresh decision.
// Patch is non-nil only when the platform issued new token material that the
// caller must persist.
type RefreshResult struct {
	AccessToken string
	Patch       *domain.AccountPatch
}

// Adapter is the uniform contract over the six platform authorization
// protocols.
type Adapter interface {
	// Platform returns the platform tag this adapter serves.
	Platform() Platform

	// AuthorizationURL builds the provider consent URL. Deterministic: the
	// same userID always yields the same URL. The state parameter embeds
	// userID recoverably.
	AuthorizationURL(userID string) (string, error)

	// ExchangeCode trades an authorization code for tokens. Platforms with a
	// short-lived→long-lived step do both round trips here.
	ExchangeCode(ctx context.Context, code string) (*TokenBundle, error)

	// Refresh resolves a usable access token for the account, per the
	// platform's policy. It performs no storage writes.
	Refresh(ctx context.Context, acct *domain.Account) (*RefreshResult, error)

	// FetchProfile returns the live profile snapshot.
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)

	// FetchRecentPosts returns the latest posts, newest first.
	FetchRecentPosts(ctx context.Context, accessToken string) ([]Post, error)

	// FetchPage returns profile and posts together. Same network paths as
	// the two calls above, not a third one.
	FetchPage(ctx context.Context, accessToken string) (*Page, error)
}

// Config holds the per-platform credentials passed to adapter constructors.
// No globals: wiring builds one Config per platform from the app config.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	State        *StateCodec
}
