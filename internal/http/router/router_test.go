package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/influmart/influmart/internal/cache"
	"github.com/influmart/influmart/internal/domain"
	"github.com/influmart/influmart/internal/enrich"
	httpx "github.com/influmart/influmart/internal/http"
	acctctrl "github.com/influmart/influmart/internal/http/controllers/accounts"
	healthctrl "github.com/influmart/influmart/internal/http/controllers/health"
	linkctrl "github.com/influmart/influmart/internal/http/controllers/link"
	"github.com/influmart/influmart/internal/http/router"
	acctsvc "github.com/influmart/influmart/internal/http/services/accounts"
	linksvc "github.com/influmart/influmart/internal/http/services/link"
	"github.com/influmart/influmart/internal/pending"
	"github.com/influmart/influmart/internal/platform"
	"github.com/influmart/influmart/internal/store"
)

type fakeAdapter struct {
	codec  *platform.StateCodec
	bundle *platform.TokenBundle
}

func (f *fakeAdapter) Platform() platform.Platform { return platform.Instagram }
func (f *fakeAdapter) AuthorizationURL(userID string) (string, error) {
	state, err := f.codec.Encode(userID)
	if err != nil {
		return "", err
	}
	return "https://provider.example/authorize?state=" + url.QueryEscape(state), nil
}
func (f *fakeAdapter) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	return f.bundle, nil
}
func (f *fakeAdapter) Refresh(ctx context.Context, acct *domain.Account) (*platform.RefreshResult, error) {
	return &platform.RefreshResult{AccessToken: acct.Token}, nil
}
func (f *fakeAdapter) FetchProfile(ctx context.Context, token string) (*platform.Profile, error) {
	return &platform.Profile{ID: "ig1", DisplayName: "nadia", Followers: 1200}, nil
}
func (f *fakeAdapter) FetchRecentPosts(ctx context.Context, token string) ([]platform.Post, error) {
	return []platform.Post{{ID: "m1", Caption: "hola"}}, nil
}
func (f *fakeAdapter) FetchPage(ctx context.Context, token string) (*platform.Page, error) {
	profile, _ := f.FetchProfile(ctx, token)
	posts, _ := f.FetchRecentPosts(ctx, token)
	return &platform.Page{Profile: *profile, Posts: posts}, nil
}

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

type fixture struct {
	handler  http.Handler
	codec    *platform.StateCodec
	accounts *store.AccountStore
	pending  *pending.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec := platform.NewStateCodec("router-test-secret")
	adapter := &fakeAdapter{
		codec:  codec,
		bundle: &platform.TokenBundle{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600},
	}
	registry := platform.NewRegistry(adapter)

	docs := store.NewMemoryStore()
	accountStore := store.NewAccountStore(docs)
	cacheClient := cache.NewMemory("")
	pendingStore := pending.NewStore(cacheClient)

	enrichSvc := enrich.NewService(enrich.Deps{
		Accounts: accountStore,
		Registry: registry,
		Cache:    cacheClient,
	})

	metricsHandler, err := httpx.RegisterMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	handler := router.New(router.Deps{
		Link: linkctrl.NewControllers(linkctrl.Deps{
			Start: linksvc.NewStartService(linksvc.StartDeps{
				Registry: registry,
				Pending:  pendingStore,
			}),
			Callback: linksvc.NewCallbackService(linksvc.CallbackDeps{
				Registry:           registry,
				State:              codec,
				Pending:            pendingStore,
				Accounts:           accountStore,
				SuccessRedirectURL: "https://app.example.com/linked",
			}),
		}),
		Accounts: acctctrl.NewController(acctsvc.NewService(acctsvc.Deps{
			Accounts: accountStore,
			Enrich:   enrichSvc,
		})),
		Health:  healthctrl.NewController(map[string]healthctrl.Pinger{"store": okPinger{}}),
		Metrics: metricsHandler,
	})
	return &fixture{handler: handler, codec: codec, accounts: accountStore, pending: pendingStore}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStart_RedirectsWithRecoverableState(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/instagram/auth?userId=u1&category=fashion", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "provider.example", loc.Host)

	userID, err := f.codec.Decode(loc.Query().Get("state"))
	require.NoError(t, err)
	require.Equal(t, "u1", userID)

	staged, err := f.pending.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "fashion", staged["category"])
}

func TestStart_MissingUserID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/instagram/auth", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "missing_user_id", decodeError(t, rec)["error"])
}

func TestStart_POSTStagesBodyFieldsAndReturnsAuthURL(t *testing.T) {
	f := newFixture(t)

	body := strings.NewReader(`{"userId":"u2","category":"gaming"}`)
	req := httptest.NewRequest(http.MethodPost, "/instagram/auth", body)
	req.Header.Set("Content-Type", "application/json")

	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	authURL, err := url.Parse(resp["authUrl"])
	require.NoError(t, err)
	userID, err := f.codec.Decode(authURL.Query().Get("state"))
	require.NoError(t, err)
	require.Equal(t, "u2", userID)

	staged, err := f.pending.Get(context.Background(), "u2")
	require.NoError(t, err)
	require.Equal(t, "gaming", staged["category"])
}

func TestCallback_SuccessRedirectsAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.pending.Set(ctx, "u1", pending.Registration{"category": "fashion"}))
	state, err := f.codec.Encode("u1")
	require.NoError(t, err)

	rec := f.do(httptest.NewRequest(http.MethodGet,
		"/cb/instagram?code=abc&state="+url.QueryEscape(state), nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://app.example.com/linked", rec.Header().Get("Location"))
}

func TestCallback_InvalidStateAnswers500(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/cb/instagram?code=abc&state=forged", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeError(t, rec)
	require.Equal(t, "invalid_state", body["error"])
	require.NotEmpty(t, body["details"])
}

func TestCallback_ProviderErrorParam(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/cb/instagram?error=access_denied", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "provider_error", decodeError(t, rec)["error"])
}

func TestAccounts_ReadUpdateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acct := &domain.Account{Platform: "instagram", UserID: "u1", Token: "tok", Category: "fashion"}
	require.NoError(t, f.accounts.Create(ctx, acct))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/accounts/"+acct.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "nadia", view["username"])
	require.Equal(t, "fashion", view["category"])

	req := httptest.NewRequest(http.MethodPatch, "/accounts/"+acct.ID,
		strings.NewReader(`{"category":"travel"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = f.do(req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The cached view was invalidated by the update.
	rec = f.do(httptest.NewRequest(http.MethodGet, "/accounts/"+acct.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	view = map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "travel", view["category"])

	rec = f.do(httptest.NewRequest(http.MethodDelete, "/accounts/"+acct.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/accounts/"+acct.ID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", decodeError(t, rec)["error"])
}

func TestAccounts_EmptyUpdateRejected(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPatch, "/accounts/any", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := f.do(req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "empty_update", decodeError(t, rec)["error"])
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestRequestIDPropagation(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := f.do(req)
	require.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	// Sin header entrante, el middleware genera uno.
	rec = f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
