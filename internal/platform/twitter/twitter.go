// Package twitter implements the X/Twitter OAuth 2.0 adapter.
//
// Rotating policy: every refresh invalidates the previous refresh token and
// issues a new pair. X publishes no refresh-token expiry, so only the access
// token expiry drives the refresh decision.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/influmart/influmart/internal/domain"
	"github.com/influmart/influmart/internal/platform"
)

const (
	defaultAuthEndpoint  = "https://twitter.com/i/oauth2/authorize"
	defaultTokenEndpoint = "https://api.twitter.com/2/oauth2/token"
	defaultAPIBase       = "https://api.twitter.com/2"

	// Deterministic plain-text PKCE verifier. The consent URL must be a pure
	// function of userID, which rules out a per-request random verifier.
	pkceVerifier = "influmart-link-verifier"
)

// Client is the X/Twitter adapter.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthEndpoint  string
	TokenEndpoint string
	APIBase       string

	state *platform.StateCodec
	http  *http.Client
}

// New creates a Twitter adapter from the platform config.
func New(cfg platform.Config) *Client {
	return &Client{
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		RedirectURL:   cfg.RedirectURL,
		AuthEndpoint:  defaultAuthEndpoint,
		TokenEndpoint: defaultTokenEndpoint,
		APIBase:       defaultAPIBase,
		state:         cfg.State,
		http:          &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Platform() platform.Platform { return platform.Twitter }

// AuthorizationURL builds the consent URL with userID embedded in state.
func (c *Client) AuthorizationURL(userID string) (string, error) {
	state, err := c.state.Encode(userID)
	if err != nil {
		return "", err
	}
	u, _ := url.Parse(c.AuthEndpoint)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("scope", "tweet.read users.read offline.access")
	q.Set("state", state)
	q.Set("code_challenge", pkceVerifier)
	q.Set("code_challenge_method", "plain")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (c *Client) tokenCall(ctx context.Context, form url.Values, sentinel error) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.ClientID, c.ClientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel, err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrInvalidResponse, err)
	}
	if resp.StatusCode/100 != 2 || tr.Error != "" {
		return nil, fmt.Errorf("%w: %s %s (http %d)", sentinel, tr.Error, tr.ErrorDescription, resp.StatusCode)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token in token payload", platform.ErrInvalidResponse)
	}
	return &tr, nil
}

// ExchangeCode trades the authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.RedirectURL)
	form.Set("code_verifier", pkceVerifier)

	tr, err := c.tokenCall(ctx, form, platform.ErrAuthExchange)
	if err != nil {
		return nil, err
	}
	return &platform.TokenBundle{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
		Scope:        tr.Scope,
		TokenType:    tr.TokenType,
	}, nil
}

// Refresh rotates the token pair once the access token is past expiry. The
// previous refresh token becomes invalid server-side the moment the rotation
// succeeds, so a concurrent second refresh with the stale token fails and
// that failure must reach the caller.
func (c *Client) Refresh(ctx context.Context, acct *domain.Account) (*platform.RefreshResult, error) {
	now := time.Now()
	if !acct.TokenExpired(now) {
		return &platform.RefreshResult{AccessToken: acct.Token}, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", acct.RefreshToken)

	tr, err := c.tokenCall(ctx, form, platform.ErrRefreshFailure)
	if err != nil {
		return nil, err
	}
	if tr.RefreshToken == "" {
		return nil, fmt.Errorf("%w: rotation returned no refresh_token", platform.ErrInvalidResponse)
	}

	return &platform.RefreshResult{
		AccessToken: tr.AccessToken,
		Patch: &domain.AccountPatch{
			Token:        &tr.AccessToken,
			TokenExpiry:  platform.ExpiryAt(now, tr.ExpiresIn),
			RefreshToken: &tr.RefreshToken,
		},
	}, nil
}

type meResponse struct {
	Data struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
		PublicMetrics   struct {
			FollowersCount int `json:"followers_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// FetchProfile returns the normalized profile snapshot.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*platform.Profile, error) {
	u := c.APIBase + "/users/me?" + url.Values{
		"user.fields": {"profile_image_url,public_metrics"},
	}.Encode()

	var mr meResponse
	if err := c.getJSON(ctx, u, accessToken, &mr); err != nil {
		return nil, err
	}
	if mr.Data.ID == "" || mr.Data.Username == "" {
		return nil, fmt.Errorf("%w: user payload missing id/username", platform.ErrInvalidResponse)
	}
	return &platform.Profile{
		ID:          mr.Data.ID,
		DisplayName: mr.Data.Username,
		AvatarURL:   mr.Data.ProfileImageURL,
		Followers:   mr.Data.PublicMetrics.FollowersCount,
	}, nil
}

type tweetsResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		CreatedAt string `json:"created_at"`
	} `json:"data"`
}

// FetchRecentPosts returns the latest tweets. X's timeline endpoint is keyed
// by user id, so this is two calls: users/me then the timeline.
func (c *Client) FetchRecentPosts(ctx context.Context, accessToken string) ([]platform.Post, error) {
	prof, err := c.FetchProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	u := c.APIBase + "/users/" + prof.ID + "/tweets?" + url.Values{
		"tweet.fields": {"created_at"},
	}.Encode()

	var tr tweetsResponse
	if err := c.getJSON(ctx, u, accessToken, &tr); err != nil {
		return nil, err
	}

	posts := make([]platform.Post, 0, len(tr.Data))
	for _, t := range tr.Data {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: tweet entry missing id", platform.ErrInvalidResponse)
		}
		ts, _ := time.Parse(time.RFC3339, t.CreatedAt)
		posts = append(posts, platform.Post{
			ID:        t.ID,
			Caption:   t.Text,
			Timestamp: ts,
			Permalink: "https://twitter.com/" + prof.DisplayName + "/status/" + t.ID,
		})
	}
	return posts, nil
}

// FetchPage returns profile and posts together.
func (c *Client) FetchPage(ctx context.Context, accessToken string) (*platform.Page, error) {
	return platform.JoinPage(ctx, c, accessToken)
}

func (c *Client) getJSON(ctx context.Context, u, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: api http %d", platform.ErrInvalidResponse, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", platform.ErrInvalidResponse, err)
	}
	return nil
}
