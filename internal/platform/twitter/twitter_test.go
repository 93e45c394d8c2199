package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/influmart/influmart/internal/domain"
	"github.com/influmart/influmart/internal/platform"
)

func newTestClient(tokenEndpoint, apiBase string) *Client {
	c := New(platform.Config{
		ClientID:     "cid",
		ClientSecret: "csecret",
		RedirectURL:  "https://app.example.com/cb",
		State:        platform.NewStateCodec("s"),
	})
	if tokenEndpoint != "" {
		c.TokenEndpoint = tokenEndpoint
	}
	if apiBase != "" {
		c.APIBase = apiBase
	}
	return c
}

func TestExchangeCode_BasicAuthAndVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "csecret" {
			t.Errorf("basic auth = %s:%s", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("code_verifier"); got != pkceVerifier {
			t.Errorf("code_verifier = %s", got)
		}
		fmt.Fprint(w, `{"access_token":"at1","refresh_token":"rt1","expires_in":7200,"token_type":"bearer"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")

	bundle, err := c.ExchangeCode(context.Background(), "code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if bundle.AccessToken != "at1" || bundle.RefreshToken != "rt1" {
		t.Fatalf("bundle = %+v", bundle)
	}
}

func TestRefresh_RotatesPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %s", got)
		}
		fmt.Fprint(w, `{"access_token":"new-at","refresh_token":"new-rt","expires_in":7200}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")

	past := time.Now().Add(-time.Minute)
	acct := &domain.Account{Token: "old-at", TokenExpiry: &past, RefreshToken: "old-rt"}

	res, err := c.Refresh(context.Background(), acct)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.Patch == nil || res.Patch.RefreshToken == nil || *res.Patch.RefreshToken != "new-rt" {
		t.Fatalf("patch = %+v, want rotated refresh token", res.Patch)
	}
}

func TestRefresh_RotationWithoutNewRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"new-at","expires_in":7200}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	past := time.Now().Add(-time.Minute)

	_, err := c.Refresh(context.Background(), &domain.Account{Token: "t", TokenExpiry: &past, RefreshToken: "rt"})
	if !errors.Is(err, platform.ErrInvalidResponse) {
		t.Fatalf("got %v, want ErrInvalidResponse", err)
	}
}

func TestRefresh_StaleSingleUseToken_Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_request","error_description":"Value passed for the token was invalid"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	past := time.Now().Add(-time.Minute)

	_, err := c.Refresh(context.Background(), &domain.Account{Token: "t", TokenExpiry: &past, RefreshToken: "used"})
	if !errors.Is(err, platform.ErrRefreshFailure) {
		t.Fatalf("got %v, want ErrRefreshFailure", err)
	}
}

func TestRefresh_ValidToken_NoCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected provider call")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	future := time.Now().Add(time.Hour)

	res, err := c.Refresh(context.Background(), &domain.Account{Token: "at", TokenExpiry: &future, RefreshToken: "rt"})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.AccessToken != "at" || res.Patch != nil {
		t.Fatalf("res = %+v", res)
	}
}

func TestFetchRecentPosts_TwoCalls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"id":"u9","name":"Nadia","username":"nadia","public_metrics":{"followers_count":3300}}}`)
	})
	mux.HandleFunc("/users/u9/tweets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"t1","text":"gm","created_at":"2024-03-01T10:00:00Z"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient("", srv.URL)

	posts, err := c.FetchRecentPosts(context.Background(), "tok")
	if err != nil {
		t.Fatalf("FetchRecentPosts: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "t1" {
		t.Fatalf("posts = %+v", posts)
	}
	if posts[0].Permalink != "https://twitter.com/nadia/status/t1" {
		t.Fatalf("permalink = %s", posts[0].Permalink)
	}
}
