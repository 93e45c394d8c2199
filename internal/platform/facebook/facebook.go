// Package facebook implements the Facebook Graph adapter.
//
// The code exchange yields a short-lived user token that is upgraded to a
// long-lived one via fb_exchange_token. There is no refresh grant; refresh
// policy is long-lived-exchange, re-running the fb_exchange_token upgrade on
// the current token once it is past expiry.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/influmart/influmart/internal/domain"
	"github.com/influmart/influmart/internal/platform"
)

const (
	defaultAuthEndpoint = "https://www.facebook.com/v19.0/dialog/oauth"
	defaultGraphBase    = "https://graph.facebook.com/v19.0"
)

// Client is the Facebook adapter.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthEndpoint string
	GraphBase    string

	state *platform.StateCodec
	http  *http.Client
}

// New creates a Facebook adapter from the platform config.
func New(cfg platform.Config) *Client {
	return &Client{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		AuthEndpoint: defaultAuthEndpoint,
		GraphBase:    defaultGraphBase,
		state:        cfg.State,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Platform() platform.Platform { return platform.Facebook }

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
	q.Set("scope", "public_profile,user_posts")
	q.Set("response_type", "code")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeCode trades the code for a token and upgrades it to long-lived.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	u := c.GraphBase + "/oauth/access_token?" + url.Values{
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"redirect_uri":  {c.RedirectURL},
		"code":          {code},
	}.Encode()

	short, err := c.tokenCall(ctx, u, platform.ErrAuthExchange)
	if err != nil {
		return nil, err
	}

	long, err := c.exchangeLongLived(ctx, short.AccessToken)
	if err != nil {
		return nil, err
	}

	return &platform.TokenBundle{
		AccessToken: long.AccessToken,
		ExpiresIn:   long.ExpiresIn,
		TokenType:   long.TokenType,
		Scope:       "public_profile,user_posts",
	}, nil
}

// exchangeLongLived upgrades a user token via fb_exchange_token.
func (c *Client) exchangeLongLived(ctx context.Context, token string) (*tokenResponse, error) {
	u := c.GraphBase + "/oauth/access_token?" + url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {c.ClientID},
		"client_secret":     {c.ClientSecret},
		"fb_exchange_token": {token},
	}.Encode()
	return c.tokenCall(ctx, u, platform.ErrAuthExchange)
}

func (c *Client) tokenCall(ctx context.Context, u string, sentinel error) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: token http %d: %s", sentinel, resp.StatusCode, graphError(resp))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrInvalidResponse, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token in token payload", platform.ErrInvalidResponse)
	}
	return &tr, nil
}

// Refresh re-runs the long-lived exchange once the token is past expiry.
// Inside the window the stored token is returned with zero provider calls.
func (c *Client) Refresh(ctx context.Context, acct *domain.Account) (*platform.RefreshResult, error) {
	now := time.Now()
	if !acct.TokenExpired(now) {
		return &platform.RefreshResult{AccessToken: acct.Token}, nil
	}

	long, err := c.exchangeLongLived(ctx, acct.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrRefreshFailure, err)
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
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
	FollowersCount int `json:"followers_count"`
}

// FetchProfile returns the normalized profile snapshot.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*platform.Profile, error) {
	u := c.GraphBase + "/me?" + url.Values{
		"fields":       {"id,name,picture,followers_count"},
		"access_token": {accessToken},
	}.Encode()

	var pr profileResponse
	if err := c.getJSON(ctx, u, &pr); err != nil {
		return nil, err
	}
	if pr.ID == "" || pr.Name == "" {
		return nil, fmt.Errorf("%w: profile payload missing id/name", platform.ErrInvalidResponse)
	}
	return &platform.Profile{
		ID:          pr.ID,
		DisplayName: pr.Name,
		AvatarURL:   pr.Picture.Data.URL,
		Followers:   pr.FollowersCount,
	}, nil
}

type postsResponse struct {
	Data []struct {
		ID           string `json:"id"`
		Message      string `json:"message"`
		FullPicture  string `json:"full_picture"`
		CreatedTime  string `json:"created_time"`
		PermalinkURL string `json:"permalink_url"`
	} `json:"data"`
}

// FetchRecentPosts returns the latest feed posts.
func (c *Client) FetchRecentPosts(ctx context.Context, accessToken string) ([]platform.Post, error) {
	u := c.GraphBase + "/me/posts?" + url.Values{
		"fields":       {"id,message,full_picture,created_time,permalink_url"},
		"access_token": {accessToken},
	}.Encode()

	var pr postsResponse
	if err := c.getJSON(ctx, u, &pr); err != nil {
		return nil, err
	}
	if pr.Data == nil {
		return nil, fmt.Errorf("%w: posts payload missing data", platform.ErrInvalidResponse)
	}

	posts := make([]platform.Post, 0, len(pr.Data))
	for _, p := range pr.Data {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: post entry missing id", platform.ErrInvalidResponse)
		}
		ts, _ := time.Parse("2006-01-02T15:04:05-0700", p.CreatedTime)
		if ts.IsZero() {
			ts, _ = time.Parse(time.RFC3339, p.CreatedTime)
		}
		posts = append(posts, platform.Post{
			ID:        p.ID,
			Caption:   p.Message,
			MediaURL:  p.FullPicture,
			Timestamp: ts,
			Permalink: p.PermalinkURL,
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
		return fmt.Errorf("%w: graph http %d: %s", platform.ErrInvalidResponse, resp.StatusCode, graphError(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", platform.ErrInvalidResponse, err)
	}
	return nil
}

func graphError(resp *http.Response) string {
	var b struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&b)
	return b.Error.Message
}
