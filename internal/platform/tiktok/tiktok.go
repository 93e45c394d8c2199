// Package tiktok implements the TikTok open-API adapter.
//
// Dual-expiry rotating policy: access and refresh tokens each carry an
// expiry, and a refresh rotates BOTH. The old refresh token is single-use;
// TikTok invalidates it server-side on rotation, so a second refresh reusing
// it surfaces a refresh failure (it cannot be hidden).
package tiktok

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
	defaultAuthEndpoint  = "https://www.tiktok.com/v2/auth/authorize/"
	defaultTokenEndpoint = "https://open.tiktokapis.com/v2/oauth/token/"
	defaultAPIBase       = "https://open.tiktokapis.com/v2"
)

// Client is the TikTok adapter. TikTok names the client id "client_key".
type Client struct {
	ClientKey    string
	ClientSecret string
	RedirectURL  string

	AuthEndpoint  string
	TokenEndpoint string
	APIBase       string

	state *platform.StateCodec
	http  *http.Client
}

// New creates a TikTok adapter from the platform config.
func New(cfg platform.Config) *Client {
	return &Client{
		ClientKey:     cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		RedirectURL:   cfg.RedirectURL,
		AuthEndpoint:  defaultAuthEndpoint,
		TokenEndpoint: defaultTokenEndpoint,
		APIBase:       defaultAPIBase,
		state:         cfg.State,
		http:          &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Platform() platform.Platform { return platform.TikTok }

// AuthorizationURL builds the consent URL with userID embedded in state.
func (c *Client) AuthorizationURL(userID string) (string, error) {
	state, err := c.state.Encode(userID)
	if err != nil {
		return "", err
	}
	u, _ := url.Parse(c.AuthEndpoint)
	q := u.Query()
	q.Set("client_key", c.ClientKey)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("scope", "user.info.basic,video.list")
	q.Set("response_type", "code")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
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
	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token payload missing access/refresh token", platform.ErrInvalidResponse)
	}
	return &tr, nil
}

// ExchangeCode trades the authorization code for the dual-expiry token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	form := url.Values{}
	form.Set("client_key", c.ClientKey)
	form.Set("client_secret", c.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.RedirectURL)

	tr, err := c.tokenCall(ctx, form, platform.ErrAuthExchange)
	if err != nil {
		return nil, err
	}
	return &platform.TokenBundle{
		AccessToken:      tr.AccessToken,
		RefreshToken:     tr.RefreshToken,
		ExpiresIn:        tr.ExpiresIn,
		RefreshExpiresIn: tr.RefreshExpiresIn,
		Scope:            tr.Scope,
		TokenType:        tr.TokenType,
	}, nil
}

// Refresh rotates both tokens once either the access or the refresh token is
// past its expiry. Both new values and both new expiries go into one patch so
// the caller persists them together. Concurrent refreshes on the same account
// race: the loser's (now invalidated) refresh token makes TikTok reject the
// call, which surfaces here as ErrRefreshFailure.
func (c *Client) Refresh(ctx context.Context, acct *domain.Account) (*platform.RefreshResult, error) {
	now := time.Now()
	if !acct.TokenExpired(now) && !acct.RefreshTokenExpired(now) {
		return &platform.RefreshResult{AccessToken: acct.Token}, nil
	}

	form := url.Values{}
	form.Set("client_key", c.ClientKey)
	form.Set("client_secret", c.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", acct.RefreshToken)

	tr, err := c.tokenCall(ctx, form, platform.ErrRefreshFailure)
	if err != nil {
		return nil, err
	}

	return &platform.RefreshResult{
		AccessToken: tr.AccessToken,
		Patch: &domain.AccountPatch{
			Token:              &tr.AccessToken,
			TokenExpiry:        platform.ExpiryAt(now, tr.ExpiresIn),
			RefreshToken:       &tr.RefreshToken,
			RefreshTokenExpiry: platform.ExpiryAt(now, tr.RefreshExpiresIn),
		},
	}, nil
}

type userInfoResponse struct {
	Data struct {
		User struct {
			OpenID        string `json:"open_id"`
			DisplayName   string `json:"display_name"`
			AvatarURL     string `json:"avatar_url"`
			FollowerCount int    `json:"follower_count"`
		} `json:"user"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchProfile returns the normalized profile snapshot.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*platform.Profile, error) {
	u := c.APIBase + "/user/info/?" + url.Values{
		"fields": {"open_id,display_name,avatar_url,follower_count"},
	}.Encode()

	var ur userInfoResponse
	if err := c.getJSON(ctx, u, accessToken, &ur); err != nil {
		return nil, err
	}
	user := ur.Data.User
	if user.OpenID == "" {
		return nil, fmt.Errorf("%w: user payload missing open_id", platform.ErrInvalidResponse)
	}
	return &platform.Profile{
		ID:          user.OpenID,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Followers:   user.FollowerCount,
	}, nil
}

type videoListResponse struct {
	Data struct {
		Videos []struct {
			ID         string `json:"id"`
			Title      string `json:"title"`
			EmbedLink  string `json:"embed_link"`
			CoverImage string `json:"cover_image_url"`
			CreateTime int64  `json:"create_time"`
			ShareURL   string `json:"share_url"`
		} `json:"videos"`
	} `json:"data"`
}

// FetchRecentPosts returns the latest published videos.
func (c *Client) FetchRecentPosts(ctx context.Context, accessToken string) ([]platform.Post, error) {
	u := c.APIBase + "/video/list/?" + url.Values{
		"fields": {"id,title,embed_link,cover_image_url,create_time,share_url"},
	}.Encode()

	var vr videoListResponse
	if err := c.getJSON(ctx, u, accessToken, &vr); err != nil {
		return nil, err
	}
	if vr.Data.Videos == nil {
		return nil, fmt.Errorf("%w: video payload missing data.videos", platform.ErrInvalidResponse)
	}

	posts := make([]platform.Post, 0, len(vr.Data.Videos))
	for _, v := range vr.Data.Videos {
		if v.ID == "" {
			return nil, fmt.Errorf("%w: video entry missing id", platform.ErrInvalidResponse)
		}
		posts = append(posts, platform.Post{
			ID:        v.ID,
			Caption:   v.Title,
			MediaURL:  v.EmbedLink,
			Thumbnail: v.CoverImage,
			Timestamp: time.Unix(v.CreateTime, 0).UTC(),
			Permalink: v.ShareURL,
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
