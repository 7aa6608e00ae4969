package token_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/isprambiente/pdnd-client/internal/cache"
	"github.com/isprambiente/pdnd-client/internal/pdnderr"
	"github.com/isprambiente/pdnd-client/internal/testhelpers"
	"github.com/isprambiente/pdnd-client/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSigner struct {
	assertion string
	err       error
	calls     int
}

func (s *staticSigner) Sign() (string, error) {
	s.calls++
	return s.assertion, s.err
}

// countingVendor returns successive tokens and records the number of calls.
type countingVendor struct {
	tokens []token.AccessToken
	err    error
	calls  int
}

func (c *countingVendor) Vend(ctx context.Context) (token.AccessToken, error) {
	c.calls++
	if c.err != nil {
		return token.AccessToken{}, c.err
	}
	return c.tokens[c.calls-1], nil
}

type failingStore struct {
	cache.TokenCache[token.AccessToken]
	getErr error
	setErr error
}

func (f failingStore) Get(ctx context.Context, key string) (token.AccessToken, bool, error) {
	return token.AccessToken{}, false, f.getErr
}

func (f failingStore) Set(ctx context.Context, key string, value token.AccessToken) error {
	return f.setErr
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewVendor_SignsAndExchanges(t *testing.T) {
	server := testhelpers.SetupMockTokenServer(t)
	signer := &staticSigner{assertion: "signed.client.assertion"}

	v := token.NewVendor(signer, token.NewExchanger(nil, server.URL()), "client-id")

	tok, err := v(context.Background())
	require.NoError(t, err)

	assert.True(t, tok.Valid())
	assert.Equal(t, 1, signer.calls)
	assert.Equal(t, "signed.client.assertion", server.LastForm().Get("client_assertion"))
}

func TestNewVendor_SigningFailure(t *testing.T) {
	server := testhelpers.SetupMockTokenServer(t)
	signer := &staticSigner{err: pdnderr.New(pdnderr.SigningFailure, "no key")}

	v := token.NewVendor(signer, token.NewExchanger(nil, server.URL()), "client-id")

	_, err := v(context.Background())

	assert.True(t, pdnderr.Is(err, pdnderr.SigningFailure))
	assert.Equal(t, 0, server.RequestCount())
}

func TestCached_ReusesValidToken(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	store := cache.NewFile[token.AccessToken](t.TempDir())
	require.NoError(t, store.Set(ctx, "staging", expiringAt(1060)))

	vendor := &countingVendor{}
	v := token.Cached(store, "staging", fixedClock(now))(vendor.Vend)

	tok, err := v(ctx)
	require.NoError(t, err)

	assert.Equal(t, expiringAt(1060), tok)
	assert.Equal(t, 0, vendor.calls)
}

func TestCached_RefreshesExpiredToken(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	store := cache.NewFile[token.AccessToken](t.TempDir())
	require.NoError(t, store.Set(ctx, "staging", expiringAt(1000)))

	vendor := &countingVendor{tokens: []token.AccessToken{expiringAt(2000)}}
	v := token.Cached(store, "staging", fixedClock(now))(vendor.Vend)

	tok, err := v(ctx)
	require.NoError(t, err)
	assert.Equal(t, expiringAt(2000), tok)
	assert.Equal(t, 1, vendor.calls)

	stored, found, err := store.Get(ctx, "staging")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, expiringAt(2000), stored)
}

func TestCached_RefreshesTokenWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	store := cache.NewFile[token.AccessToken](t.TempDir())
	require.NoError(t, store.Set(ctx, "staging", token.AccessToken{Token: "opaque"}))

	vendor := &countingVendor{tokens: []token.AccessToken{expiringAt(2000)}}
	v := token.Cached(store, "staging", fixedClock(time.Unix(1000, 0)))(vendor.Vend)

	_, err := v(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, vendor.calls)
}

func TestCached_VendFailureLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	store := cache.NewFile[token.AccessToken](t.TempDir())

	vendor := &countingVendor{err: pdnderr.New(pdnderr.TokenExchangeFailure, "token request failed (HTTP 401)")}
	v := token.Cached(store, "staging", nil)(vendor.Vend)

	_, err := v(ctx)
	assert.True(t, pdnderr.Is(err, pdnderr.TokenExchangeFailure))

	_, found, err := store.Get(ctx, "staging")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCached_ReadErrorFallsBackToVendor(t *testing.T) {
	store := failingStore{getErr: errors.New("permission denied")}
	vendor := &countingVendor{tokens: []token.AccessToken{expiringAt(2000)}}

	v := token.Cached(store, "staging", fixedClock(time.Unix(1000, 0)))(vendor.Vend)

	tok, err := v(context.Background())
	require.NoError(t, err)
	assert.Equal(t, expiringAt(2000), tok)
}

func TestCached_WriteErrorFails(t *testing.T) {
	store := failingStore{setErr: errors.New("read-only file system")}
	vendor := &countingVendor{tokens: []token.AccessToken{expiringAt(2000)}}

	v := token.Cached(store, "staging", nil)(vendor.Vend)

	_, err := v(context.Background())
	assert.ErrorContains(t, err, "saving token: read-only file system")
}

func TestNewTokenSource_ExchangesOncePerSource(t *testing.T) {
	server := testhelpers.SetupMockTokenServer(t)
	v := token.NewVendor(&staticSigner{assertion: "a.b.c"}, token.NewExchanger(nil, server.URL()), "client-id")

	src := token.NewTokenSource(context.Background(), v)

	first, err := src.Token()
	require.NoError(t, err)
	second, err := src.Token()
	require.NoError(t, err)

	assert.Equal(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, 1, server.RequestCount())
}

func TestNewTokenSource_PropagatesError(t *testing.T) {
	server := testhelpers.SetupMockTokenServer(t)
	server.StatusCode = http.StatusBadRequest
	v := token.NewVendor(&staticSigner{assertion: "a.b.c"}, token.NewExchanger(nil, server.URL()), "client-id")

	_, err := token.NewTokenSource(context.Background(), v).Token()

	assert.True(t, pdnderr.Is(err, pdnderr.TokenExchangeFailure))
}
