package link

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/influmart/influmart/internal/cache"
	"github.com/influmart/influmart/internal/domain"
	"github.com/influmart/influmart/internal/pending"
	"github.com/influmart/influmart/internal/platform"
	"github.com/influmart/influmart/internal/store"
)

type fakeAdapter struct {
	p           platform.Platform
	bundle      *platform.TokenBundle
	exchangeErr error
	gotCode     string
}

func (f *fakeAdapter) Platform() platform.Platform { return f.p }
func (f *fakeAdapter) AuthorizationURL(userID string) (string, error) {
	return "https://provider.example/auth", nil
}
func (f *fakeAdapter) ExchangeCode(ctx context.Context, code string) (*platform.TokenBundle, error) {
	f.gotCode = code
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.bundle, nil
}
func (f *fakeAdapter) Refresh(ctx context.Context, acct *domain.Account) (*platform.RefreshResult, error) {
	return &platform.RefreshResult{AccessToken: acct.Token}, nil
}
func (f *fakeAdapter) FetchProfile(ctx context.Context, token string) (*platform.Profile, error) {
	return &platform.Profile{ID: "p"}, nil
}
func (f *fakeAdapter) FetchRecentPosts(ctx context.Context, token string) ([]platform.Post, error) {
	return nil, nil
}
func (f *fakeAdapter) FetchPage(ctx context.Context, token string) (*platform.Page, error) {
	return &platform.Page{}, nil
}

type callbackFixture struct {
	svc      CallbackService
	adapter  *fakeAdapter
	pending  *pending.Store
	accounts *store.AccountStore
	docs     store.DocumentStore
	codec    *platform.StateCodec
}

func newCallbackFixture(t *testing.T) *callbackFixture {
	t.Helper()

	codec := platform.NewStateCodec("cb-test-secret")
	adapter := &fakeAdapter{
		p:      platform.Instagram,
		bundle: &platform.TokenBundle{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600},
	}
	docs := store.NewMemoryStore()
	accounts := store.NewAccountStore(docs)
	pendingStore := pending.NewStore(cache.NewMemory(""))

	svc := NewCallbackService(CallbackDeps{
		Registry:           platform.NewRegistry(adapter),
		State:              codec,
		Pending:            pendingStore,
		Accounts:           accounts,
		SuccessRedirectURL: "https://app.example.com/linked",
	})
	return &callbackFixture{svc: svc, adapter: adapter, pending: pendingStore, accounts: accounts, docs: docs, codec: codec}
}

func TestCallback_MissingParams(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	state, _ := f.codec.Encode("u1")

	_, err := f.svc.Callback(ctx, CallbackRequest{Platform: "instagram", Code: "abc"})
	require.ErrorIs(t, err, ErrCallbackMissingState)

	_, err = f.svc.Callback(ctx, CallbackRequest{Platform: "instagram", State: state})
	require.ErrorIs(t, err, ErrCallbackMissingCode)
}

func TestCallback_InvalidState(t *testing.T) {
	f := newCallbackFixture(t)

	_, err := f.svc.Callback(context.Background(), CallbackRequest{
		Platform: "instagram", Code: "abc", State: "forged",
	})
	require.ErrorIs(t, err, ErrCallbackInvalidState)
}

func TestCallback_UnknownPlatform(t *testing.T) {
	f := newCallbackFixture(t)
	state, _ := f.codec.Encode("u1")

	_, err := f.svc.Callback(context.Background(), CallbackRequest{
		Platform: "myspace", Code: "abc", State: state,
	})
	require.True(t, platform.IsUnknownPlatform(err), "got %v", err)
}

func TestCallback_MergesStagedFieldsAndDeletesEntry(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	require.NoError(t, f.pending.Set(ctx, "u1", pending.Registration{
		"category": "fashion",
		"prices":   map[string]any{"follow": 5},
	}))

	state, _ := f.codec.Encode("u1")
	res, err := f.svc.Callback(ctx, CallbackRequest{Platform: "instagram", Code: "abc", State: state})
	require.NoError(t, err)
	require.Equal(t, "abc", f.adapter.gotCode)
	require.Equal(t, "https://app.example.com/linked", res.RedirectURL)

	acct := res.Account
	require.NotEmpty(t, acct.ID)
	require.Equal(t, "u1", acct.UserID)
	require.Equal(t, "instagram", acct.Platform)
	require.Equal(t, "at", acct.Token)
	require.NotNil(t, acct.TokenExpiry)
	require.Equal(t, "fashion", acct.Category)
	require.Equal(t, 5.0, acct.Prices["follow"])

	stored, err := f.accounts.Get(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, "fashion", stored.Category)

	// The staged entry is gone once the account write succeeded.
	staged, err := f.pending.Get(ctx, "u1")
	require.NoError(t, err)
	require.Nil(t, staged)
}

func TestCallback_AbsentStagedEntry_TokenFieldsOnly(t *testing.T) {
	f := newCallbackFixture(t)
	state, _ := f.codec.Encode("u1")

	res, err := f.svc.Callback(context.Background(), CallbackRequest{
		Platform: "instagram", Code: "abc", State: state,
	})
	require.NoError(t, err)
	require.Equal(t, "at", res.Account.Token)
	require.Empty(t, res.Account.Category)
}

func TestCallback_StagedFieldsCannotTouchProtectedFields(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	require.NoError(t, f.pending.Set(ctx, "u1", pending.Registration{
		"token":    "stolen",
		"userId":   "someone-else",
		"category": "fitness",
	}))

	state, _ := f.codec.Encode("u1")
	res, err := f.svc.Callback(ctx, CallbackRequest{Platform: "instagram", Code: "abc", State: state})
	require.NoError(t, err)
	require.Equal(t, "at", res.Account.Token)
	require.Equal(t, "u1", res.Account.UserID)
	require.Equal(t, "fitness", res.Account.Category)
}

func TestCallback_ExchangeFailure_NoAccountNoDeletion(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	require.NoError(t, f.pending.Set(ctx, "u1", pending.Registration{"category": "fashion"}))
	f.adapter.exchangeErr = platform.ErrAuthExchange

	state, _ := f.codec.Encode("u1")
	_, err := f.svc.Callback(ctx, CallbackRequest{Platform: "instagram", Code: "bad", State: state})
	require.ErrorIs(t, err, platform.ErrAuthExchange)

	// The staged entry survives a failed callback.
	staged, err := f.pending.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "fashion", staged["category"])
}

// A retried callback re-observes nothing staged but still creates a second
// account: the code exchange carries no idempotency key.
func TestCallback_RetriedCallbackCreatesSecondAccount(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()
	state, _ := f.codec.Encode("u1")

	first, err := f.svc.Callback(ctx, CallbackRequest{Platform: "instagram", Code: "abc", State: state})
	require.NoError(t, err)
	second, err := f.svc.Callback(ctx, CallbackRequest{Platform: "instagram", Code: "abc", State: state})
	require.NoError(t, err)

	require.NotEqual(t, first.Account.ID, second.Account.ID)
}

func TestCallback_ExchangeErrorsAreNotRetried(t *testing.T) {
	f := newCallbackFixture(t)
	f.adapter.exchangeErr = errors.New("provider down")

	state, _ := f.codec.Encode("u1")
	_, err := f.svc.Callback(context.Background(), CallbackRequest{
		Platform: "instagram", Code: "abc", State: state,
	})
	require.Error(t, err)
	require.Equal(t, "abc", f.adapter.gotCode)
}
