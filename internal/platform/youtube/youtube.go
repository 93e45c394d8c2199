// Package youtube implements the YouTube adapter on Google's OAuth 2.0.
//
// Offline-client policy: refresh is delegated to the oauth2 package's
// TokenSource, which holds the refresh state and decides when to renew. A
// renewal that comes back without an access token is fatal.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/influmart/influmart/internal/domain"
	"github.com/influmart/influmart/internal/platform"
)

const defaultAPIBase = "https://www.googleapis.com/youtube/v3"

// Client is the YouTube adapter.
type Client struct {
	// OAuth is exported so tests can point Endpoint at a fake server.
	OAuth oauth2.Config

	APIBase string

	state *platform.StateCodec
	http  *http.Client
}

// New creates a YouTube adapter from the platform config.
func New(cfg platform.Config) *Client {
	return &Client{
		OAuth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"https://www.googleapis.com/auth/youtube.readonly"},
		},
		APIBase: defaultAPIBase,
		state:   cfg.State,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Platform() platform.Platform { return platform.YouTube }

// AuthorizationURL builds the consent URL with userID embedded in state.
// access_type=offline requests a refresh token for the offline client.
func (c *Client) AuthorizationURL(userID string) (string, error) {
	state, err := c.state.Encode(userID)
	if err != nil {
		return "", err
	}
	return c.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// ExchangeCode trades the authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	tok, err := c.OAuth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrAuthExchange, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token in exchange payload", platform.ErrAuthExchange)
	}

	expiresIn := 0
	if !tok.Expiry.IsZero() {
		expiresIn = int(time.Until(tok.Expiry).Seconds())
	}
	return &platform.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    tok.TokenType,
		Scope:        "https://www.googleapis.com/auth/youtube.readonly",
	}, nil
}

// Refresh delegates to the oauth2 TokenSource built from the stored token.
// The source renews only when the token is invalid; a renewal without an
// access token is fatal. New token material comes back as a patch.
func (c *Client) Refresh(ctx context.Context, acct *domain.Account) (*platform.RefreshResult, error) {
	stored := &oauth2.Token{
		AccessToken:  acct.Token,
		RefreshToken: acct.RefreshToken,
		TokenType:    acct.TokenType,
	}
	if acct.TokenExpiry != nil {
		stored.Expiry = *acct.TokenExpiry
	}

	fresh, err := c.OAuth.TokenSource(ctx, stored).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrRefreshFailure, err)
	}
	if fresh.AccessToken == "" {
		return nil, fmt.Errorf("%w: provider client returned no access token", platform.ErrRefreshFailure)
	}

	res := &platform.RefreshResult{AccessToken: fresh.AccessToken}
	if fresh.AccessToken != acct.Token {
		expiry := fresh.Expiry.UTC()
		res.Patch = &domain.AccountPatch{
			Token:       &fresh.AccessToken,
			TokenExpiry: &expiry,
		}
		if fresh.RefreshToken != "" && fresh.RefreshToken != acct.RefreshToken {
			res.Patch.RefreshToken = &fresh.RefreshToken
		}
	}
	return res, nil
}

type channelsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title      string `json:"title"`
			Thumbnails struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// FetchProfile returns the channel as the normalized profile snapshot.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*platform.Profile, error) {
	u := c.APIBase + "/channels?" + url.Values{
		"part": {"snippet,statistics"},
		"mine": {"true"},
	}.Encode()

	var cr channelsResponse
	if err := c.getJSON(ctx, u, accessToken, &cr); err != nil {
		return nil, err
	}
	if len(cr.Items) == 0 || cr.Items[0].ID == "" {
		return nil, fmt.Errorf("%w: channels payload has no items", platform.ErrInvalidResponse)
	}

	item := cr.Items[0]
	var subs int
	fmt.Sscanf(item.Statistics.SubscriberCount, "%d", &subs)

	return &platform.Profile{
		ID:          item.ID,
		DisplayName: item.Snippet.Title,
		AvatarURL:   item.Snippet.Thumbnails.High.URL,
		Followers:   subs,
	}, nil
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			Thumbnails  struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// FetchRecentPosts returns the channel's latest uploads.
func (c *Client) FetchRecentPosts(ctx context.Context, accessToken string) ([]platform.Post, error) {
	u := c.APIBase + "/search?" + url.Values{
		"part":       {"snippet"},
		"forMine":    {"true"},
		"type":       {"video"},
		"order":      {"date"},
		"maxResults": {"25"},
	}.Encode()

	var sr searchResponse
	if err := c.getJSON(ctx, u, accessToken, &sr); err != nil {
		return nil, err
	}
	if sr.Items == nil {
		return nil, fmt.Errorf("%w: search payload missing items", platform.ErrInvalidResponse)
	}

	posts := make([]platform.Post, 0, len(sr.Items))
	for _, it := range sr.Items {
		if it.ID.VideoID == "" {
			return nil, fmt.Errorf("%w: search item missing videoId", platform.ErrInvalidResponse)
		}
		ts, _ := time.Parse(time.RFC3339, it.Snippet.PublishedAt)
		posts = append(posts, platform.Post{
			ID:        it.ID.VideoID,
			Caption:   it.Snippet.Title,
			MediaURL:  "https://www.youtube.com/watch?v=" + it.ID.VideoID,
			Thumbnail: it.Snippet.Thumbnails.High.URL,
			Timestamp: ts,
			Permalink: "https://www.youtube.com/watch?v=" + it.ID.VideoID,
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
