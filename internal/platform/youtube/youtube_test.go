package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influmart/influmart/internal/domain"
	"github.com/influmart/influmart/internal/platform"
)

func newTestClient(tokenURL, apiBase string) *Client {
	c := New(platform.Config{
		ClientID:     "cid",
		ClientSecret: "csecret",
		RedirectURL:  "https://app.example.com/cb",
		State:        platform.NewStateCodec("s"),
	})
	if tokenURL != "" {
		c.OAuth.Endpoint.TokenURL = tokenURL
		c.OAuth.Endpoint.AuthURL = tokenURL
	}
	if apiBase != "" {
		c.APIBase = apiBase
	}
	return c
}

func TestAuthorizationURL_RequestsOfflineAccess(t *testing.T) {
	c := newTestClient("", "")
	u, err := c.AuthorizationURL("u1")
	if err != nil {
		t.Fatalf("AuthorizationURL: %v", err)
	}
	if want := "access_type=offline"; !strings.Contains(u, want) {
		t.Fatalf("URL %s missing %s", u, want)
	}
}

func TestRefresh_ExpiredToken_RenewsViaTokenSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %s", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "rt1" {
			t.Errorf("refresh_token = %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh-at","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")

	past := time.Now().Add(-time.Minute)
	acct := &domain.Account{Token: "stale-at", TokenExpiry: &past, RefreshToken: "rt1"}

	res, err := c.Refresh(context.Background(), acct)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.AccessToken != "fresh-at" {
		t.Fatalf("token = %s", res.AccessToken)
	}
	if res.Patch == nil || res.Patch.Token == nil || *res.Patch.Token != "fresh-at" {
		t.Fatalf("patch = %+v", res.Patch)
	}
	if res.Patch.TokenExpiry == nil {
		t.Fatal("patch missing expiry")
	}
}

func TestRefresh_ValidToken_NoRenewalNoPatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected token endpoint call")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")

	future := time.Now().Add(time.Hour)
	acct := &domain.Account{Token: "at", TokenExpiry: &future, RefreshToken: "rt"}

	res, err := c.Refresh(context.Background(), acct)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.AccessToken != "at" || res.Patch != nil {
		t.Fatalf("res = %+v", res)
	}
}

func TestRefresh_ProviderRejection_IsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	past := time.Now().Add(-time.Minute)

	_, err := c.Refresh(context.Background(), &domain.Account{Token: "t", TokenExpiry: &past, RefreshToken: "revoked"})
	if !errors.Is(err, platform.ErrRefreshFailure) {
		t.Fatalf("got %v, want ErrRefreshFailure", err)
	}
}

func TestFetchPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %s", got)
		}
		fmt.Fprint(w, `{"items":[{"id":"yt1","snippet":{"title":"Canal","thumbnails":{"high":{"url":"https://cdn/c.jpg"}}},"statistics":{"subscriberCount":"15000"}}]}`)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"id":{"videoId":"v1"},"snippet":{"title":"intro","publishedAt":"2024-03-01T10:00:00Z","thumbnails":{"high":{"url":"https://cdn/v1.jpg"}}}}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient("", srv.URL)

	page, err := c.FetchPage(context.Background(), "tok")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if page.ID != "yt1" || page.Followers != 15000 {
		t.Fatalf("profile = %+v", page.Profile)
	}
	if len(page.Posts) != 1 || page.Posts[0].Permalink != "https://www.youtube.com/watch?v=v1" {
		t.Fatalf("posts = %+v", page.Posts)
	}
}
