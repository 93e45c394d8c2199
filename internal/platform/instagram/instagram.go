// Package instagram implements the Instagram Basic Display adapter.
//
// Exchange is two round trips: the short-lived token from the code exchange
// is immediately traded for a long-lived one. Refresh policy is
// long-lived-exchange: once the stored token is past its expiry, one call to
// the refresh endpoint issues a replacement.
package instagram

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
	defaultAuthEndpoint  = "https://api.instagram.com/oauth/authorize"
	defaultTokenEndpoint = "https://api.instagram.com/oauth/access_token"
	defaultGraphBase     = "https://graph.instagram.com"
)

// Client is the Instagram adapter.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint overrides, used by tests to point at fake servers.
	AuthEndpoint  string
	TokenEndpoint string
	GraphBase     string

	state *platform.StateCodec
	http  *http.Client
}

// New creates an Instagram adapter from the platform config.
func New(cfg platform.Config) *Client {
	return &Client{
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		RedirectURL:   cfg.RedirectURL,
		AuthEndpoint:  defaultAuthEndpoint,
		TokenEndpoint: defaultTokenEndpoint,
		GraphBase:     defaultGraphBase,
		state:         cfg.State,
		http:          &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Platform() platform.Platform { return platform.Instagram }

// AuthorizationURL builds the consent URL with userID embedded in state.
func (c *Client) AuthorizationURL(userID string) (string, error) {
	state, err := c.state.Encode(userID)
	if err != nil {
		return "", err
	}
	u, _ := url.Parse(c.AuthEndpoint)
	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("scope", "user_profile,user_media")
	q.Set("response_type", "code")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type shortTokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      any    `json:"user_id"`
}

type longTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeCode trades the code for a short-lived token, then upgrades it to
// a long-lived one. Two round trips.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.RedirectURL)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, "POST", c.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrAuthExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: token http %d: %s", platform.ErrAuthExchange, resp.StatusCode, apiError(resp))
	}

	var short shortTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&short); err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrInvalidResponse, err)
	}
	if short.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token in exchange payload", platform.ErrAuthExchange)
	}

	long, err := c.exchangeLongLived(ctx, short.AccessToken)
	if err != nil {
		return nil, err
	}

	return &platform.TokenBundle{
		AccessToken: long.AccessToken,
		ExpiresIn:   long.ExpiresIn,
		TokenType:   long.TokenType,
		Scope:       "user_profile,user_media",
	}, nil
}

// exchangeLongLived upgrades a short-lived token (second round trip).
func (c *Client) exchangeLongLived(ctx context.Context, shortToken string) (*longTokenResponse, error) {
	u := c.GraphBase + "/access_token?" + url.Values{
		"grant_type":    {"ig_exchange_token"},
		"client_secret": {c.ClientSecret},
		"access_token":  {shortToken},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrAuthExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: long-lived exchange http %d: %s", platform.ErrAuthExchange, resp.StatusCode, apiError(resp))
	}

	var long longTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&long); err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrInvalidResponse, err)
	}
	if long.AccessToken == "" || long.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: incomplete long-lived token payload", platform.ErrInvalidResponse)
	}
	return &long, nil
}

// Refresh re-issues the long-lived token once it is past expiry. A token
// still inside its window is returned unchanged with zero provider calls.
func (c *Client) Refresh(ctx context.Context, acct *domain.Account) (*platform.RefreshResult, error) {
	now := time.Now()
	if !acct.TokenExpired(now) {
		return &platform.RefreshResult{AccessToken: acct.Token}, nil
	}

	u := c.GraphBase + "/refresh_access_token?" + url.Values{
		"grant_type":   {"ig_refresh_token"},
		"access_token": {acct.Token},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrRefreshFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: refresh http %d: %s", platform.ErrRefreshFailure, resp.StatusCode, apiError(resp))
	}

	var long longTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&long); err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrInvalidResponse, err)
	}
	if long.AccessToken == "" || long.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: incomplete refresh payload", platform.ErrInvalidResponse)
	}

	return &platform.RefreshResult{
		AccessToken: long.AccessToken,
		Patch: &domain.AccountPatch{
			Token:       &long.AccessToken,
			TokenExpiry: platform.ExpiryAt(now, long.ExpiresIn),
		},
	}, nil
}

type profileResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FollowersCount int    `json:"followers_count"`
}

// FetchProfile returns the normalized profile snapshot.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*platform.Profile, error) {
	u := c.GraphBase + "/me?" + url.Values{
		"fields":       {"id,username,followers_count"},
		"access_token": {accessToken},
	}.Encode()

	var pr profileResponse
	if err := c.getJSON(ctx, u, &pr); err != nil {
		return nil, err
	}
	if pr.ID == "" || pr.Username == "" {
		return nil, fmt.Errorf("%w: profile payload missing id/username", platform.ErrInvalidResponse)
	}
	return &platform.Profile{
		ID:          pr.ID,
		DisplayName: pr.Username,
		Followers:   pr.FollowersCount,
	}, nil
}

type mediaResponse struct {
	Data []struct {
		ID           string `json:"id"`
		Caption      string `json:"caption"`
		MediaURL     string `json:"media_url"`
		ThumbnailURL string `json:"thumbnail_url"`
		Timestamp    string `json:"timestamp"`
		Permalink    string `json:"permalink"`
	} `json:"data"`
}

// FetchRecentPosts returns the latest media entries.
func (c *Client) FetchRecentPosts(ctx context.Context, accessToken string) ([]platform.Post, error) {
	u := c.GraphBase + "/me/media?" + url.Values{
		"fields":       {"id,caption,media_url,thumbnail_url,timestamp,permalink"},
		"access_token": {accessToken},
	}.Encode()

	var mr mediaResponse
	if err := c.getJSON(ctx, u, &mr); err != nil {
		return nil, err
	}
	if mr.Data == nil {
		return nil, fmt.Errorf("%w: media payload missing data", platform.ErrInvalidResponse)
	}

	posts := make([]platform.Post, 0, len(mr.Data))
	for _, m := range mr.Data {
		if m.ID == "" {
			return nil, fmt.Errorf("%w: media entry missing id", platform.ErrInvalidResponse)
		}
		posts = append(posts, platform.Post{
			ID:        m.ID,
			Caption:   m.Caption,
			MediaURL:  m.MediaURL,
			Thumbnail: m.ThumbnailURL,
			Timestamp: parseTimestamp(m.Timestamp),
			Permalink: m.Permalink,
		})
	}
	return posts, nil
}

// FetchPage returns profile and posts together.
func (c *Client) FetchPage(ctx context.Context, accessToken string) (*platform.Page, error) {
	return platform.JoinPage(ctx, c, accessToken)
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: graph http %d: %s", platform.ErrInvalidResponse, resp.StatusCode, apiError(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", platform.ErrInvalidResponse, err)
	}
	return nil
}

// apiError extracts the provider error message from an error body.
func apiError(resp *http.Response) string {
	var b struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
		ErrorMessage string `json:"error_message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&b)
	if b.Error.Message != "" {
		return b.Error.Message
	}
	return b.ErrorMessage
}

// parseTimestamp accepts both RFC3339 and the Graph API's compact offset
// layout.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02T15:04:05-0700", s)
	return t
}
