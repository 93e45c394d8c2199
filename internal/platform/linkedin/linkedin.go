// Package linkedin implements the LinkedIn adapter.
//
// No-refresh policy: programmatic refresh is restricted to approved
// partners, so the adapter returns the stored token unchanged even past its
// expiry. That limitation is preserved, not papered over; downstream API
// calls fail once the token is truly dead and the member must relink.
package linkedin

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
	defaultAuthEndpoint  = "https://www.linkedin.com/oauth/v2/authorization"
	defaultTokenEndpoint = "https://www.linkedin.com/oauth/v2/accessToken"
	defaultAPIBase       = "https://api.linkedin.com/v2"
)

// Client is the LinkedIn adapter.
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

// New creates a LinkedIn adapter from the platform config.
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

func (c *Client) Platform() platform.Platform { return platform.LinkedIn }

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
	q.Set("scope", "openid profile w_member_social")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode trades the authorization code for an access token. LinkedIn
// issues no refresh token on the standard tier.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("redirect_uri", c.RedirectURL)

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

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrInvalidResponse, err)
	}
	if resp.StatusCode/100 != 2 || tr.Error != "" {
		return nil, fmt.Errorf("%w: %s %s (http %d)", platform.ErrAuthExchange, tr.Error, tr.ErrorDescription, resp.StatusCode)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token in token payload", platform.ErrInvalidResponse)
	}

	return &platform.TokenBundle{
		AccessToken: tr.AccessToken,
		ExpiresIn:   tr.ExpiresIn,
		Scope:       tr.Scope,
		TokenType:   "Bearer",
	}, nil
}

// Refresh returns the stored token unchanged, with zero provider calls and
// no patch. Expiry is intentionally ignored: the platform offers no refresh
// grant on this tier.
func (c *Client) Refresh(ctx context.Context, acct *domain.Account) (*platform.RefreshResult, error) {
	return &platform.RefreshResult{AccessToken: acct.Token}, nil
}

type userinfoResponse struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// FetchProfile returns the normalized profile snapshot via OpenID userinfo.
// LinkedIn exposes no follower count on this endpoint.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*platform.Profile, error) {
	var ur userinfoResponse
	if err := c.getJSON(ctx, c.APIBase+"/userinfo", accessToken, &ur); err != nil {
		return nil, err
	}
	if ur.Sub == "" {
		return nil, fmt.Errorf("%w: userinfo payload missing sub", platform.ErrInvalidResponse)
	}
	return &platform.Profile{
		ID:          ur.Sub,
		DisplayName: ur.Name,
		AvatarURL:   ur.Picture,
	}, nil
}

type ugcPostsResponse struct {
	Elements []struct {
		ID              string `json:"id"`
		FirstPublished  int64  `json:"firstPublishedAt"`
		SpecificContent struct {
			ShareContent struct {
				ShareCommentary struct {
					Text string `json:"text"`
				} `json:"shareCommentary"`
			} `json:"com.linkedin.ugc.ShareContent"`
		} `json:"specificContent"`
	} `json:"elements"`
}

// FetchRecentPosts returns the member's latest UGC posts. The author URN is
// derived from the userinfo sub, so this is two calls.
func (c *Client) FetchRecentPosts(ctx context.Context, accessToken string) ([]platform.Post, error) {
	prof, err := c.FetchProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	u := c.APIBase + "/ugcPosts?" + url.Values{
		"q":       {"authors"},
		"authors": {"List(urn:li:person:" + prof.ID + ")"},
	}.Encode()

	var pr ugcPostsResponse
	if err := c.getJSON(ctx, u, accessToken, &pr); err != nil {
		return nil, err
	}
	if pr.Elements == nil {
		return nil, fmt.Errorf("%w: posts payload missing elements", platform.ErrInvalidResponse)
	}

	posts := make([]platform.Post, 0, len(pr.Elements))
	for _, el := range pr.Elements {
		if el.ID == "" {
			return nil, fmt.Errorf("%w: post element missing id", platform.ErrInvalidResponse)
		}
		posts = append(posts, platform.Post{
			ID:        el.ID,
			Caption:   el.SpecificContent.ShareContent.ShareCommentary.Text,
			Timestamp: time.UnixMilli(el.FirstPublished).UTC(),
			Permalink: "https://www.linkedin.com/feed/update/" + el.ID,
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
