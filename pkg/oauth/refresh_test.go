package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresh_Success(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	transport := &fakeTransport{responses: []fakeResponse{{status: 200, body: tokenJSON("at-2", "rt-2", 100)}}}
	opener := &fakeOpener{window: &fakeWindow{}}
	a := New(
		WithTransport(transport),
		WithWindowOpener(opener),
		WithClock(func() time.Time { return now }),
	)

	cfg := newCodeConfig(&errorRecorder{})
	cfg.ClientSecret = "sec"
	result := a.Refresh(context.Background(), cfg, RefreshConfiguration{RefreshToken: "rt-1"})

	require.NotNil(t, result)
	assert.False(t, result.Reauthorized)
	assert.Equal(t, "at-2", result.AccessToken)
	assert.Equal(t, "rt-2", result.RefreshToken)
	assert.Equal(t, now.Add(90*time.Second).UnixMilli(), result.AccessTokenExpirationDate)
	assert.Zero(t, opener.calls())

	require.Equal(t, 1, transport.calls())
	req := transport.request(0)
	assert.Equal(t, "https://auth.example.com/oauth/token", req.endpoint)
	assert.Equal(t, ContentTypeFormURLEncoded, req.contentType)
	assert.Equal(t, "refresh_token", req.form.Get("grant_type"))
	assert.Equal(t, "rt-1", req.form.Get("refresh_token"))
	assert.Equal(t, "client-1", req.form.Get("client_id"))
	assert.Equal(t, "sec", req.form.Get("client_secret"))
	assert.False(t, req.form.Has("scope"))
}

func TestRefresh_FallsBackToAuthorizationCode(t *testing.T) {
	rec := &errorRecorder{}
	bus := NewMessageBus()
	opener := &fakeOpener{window: &fakeWindow{}}
	opener.onOpen = func(string) {
		postWhenListening(bus, message(map[string]string{"name": testAuthorized, "code": "fresh-code"}))
	}
	transport := &fakeTransport{responses: []fakeResponse{
		{status: 400, body: `{"error":"invalid_grant"}`},
		{status: 200, body: tokenJSON("at-new", "rt-new", 3600)},
	}}
	a := New(WithTransport(transport), WithWindowOpener(opener), WithMessageSource(bus))

	result := a.Refresh(context.Background(), newCodeConfig(rec), RefreshConfiguration{RefreshToken: "expired"})

	require.NotNil(t, result)
	assert.True(t, result.Reauthorized)
	assert.Equal(t, "at-new", result.AccessToken)
	assert.Equal(t, "rt-new", result.RefreshToken)
	assert.Equal(t, 1, opener.calls())
	assert.Zero(t, rec.count())

	require.Equal(t, 2, transport.calls())
	assert.Equal(t, "refresh_token", transport.request(0).form.Get("grant_type"))
	assert.Equal(t, "authorization_code", transport.request(1).form.Get("grant_type"))
	assert.Equal(t, "fresh-code", transport.request(1).form.Get("code"))
}

func TestRefresh_FallsBackToClientCredentials(t *testing.T) {
	rec := &errorRecorder{}
	opener := &fakeOpener{window: &fakeWindow{}}
	transport := &fakeTransport{responses: []fakeResponse{
		{status: 401, body: "expired"},
		{status: 200, body: tokenJSON("svc-new", "", 600)},
	}}
	a := New(WithTransport(transport), WithWindowOpener(opener))

	result := a.Refresh(context.Background(), newCredentialsConfig(rec), RefreshConfiguration{RefreshToken: "old"})

	require.NotNil(t, result)
	assert.True(t, result.Reauthorized)
	assert.Equal(t, "svc-new", result.AccessToken)
	assert.Zero(t, opener.calls())
	assert.Zero(t, rec.count())

	require.Equal(t, 2, transport.calls())
	assert.Equal(t, "refresh_token", transport.request(0).form.Get("grant_type"))
	assert.Equal(t, "client_credentials", transport.request(1).form.Get("grant_type"))
}

func TestRefresh_FallbackFails(t *testing.T) {
	t.Run("authorization code popup blocked", func(t *testing.T) {
		rec := &errorRecorder{}
		opener := &fakeOpener{}
		transport := &fakeTransport{responses: []fakeResponse{{status: 400, body: "bad"}}}
		a := New(WithTransport(transport), WithWindowOpener(opener))

		result := a.Refresh(context.Background(), newCodeConfig(rec), RefreshConfiguration{RefreshToken: "x"})

		assert.Nil(t, result)
		assert.Equal(t, 1, opener.calls())
		require.Equal(t, 1, rec.count())
		assert.ErrorIs(t, rec.last(), ErrPopupNotOpened)
		assert.Equal(t, 1, transport.calls())
	})

	t.Run("client credentials rejected twice", func(t *testing.T) {
		rec := &errorRecorder{}
		transport := &fakeTransport{responses: []fakeResponse{
			{status: 400, body: "bad refresh"},
			{status: 401, body: "bad client"},
		}}
		a := New(WithTransport(transport))

		result := a.Refresh(context.Background(), newCredentialsConfig(rec), RefreshConfiguration{RefreshToken: "x"})

		assert.Nil(t, result)
		require.Equal(t, 1, rec.count())
		var exchangeErr *TokenExchangeError
		require.ErrorAs(t, rec.last(), &exchangeErr)
		assert.Equal(t, 401, exchangeErr.StatusCode)
	})

	t.Run("malformed refresh response", func(t *testing.T) {
		rec := &errorRecorder{}
		transport := &fakeTransport{responses: []fakeResponse{
			{status: 200, body: "not json"},
			{status: 200, body: tokenJSON("t", "", 0)},
		}}
		a := New(WithTransport(transport))

		result := a.Refresh(context.Background(), newCredentialsConfig(rec), RefreshConfiguration{RefreshToken: "x"})

		require.NotNil(t, result)
		assert.True(t, result.Reauthorized)
		assert.Equal(t, 2, transport.calls())
	})
}

func TestRefresh_NilConfiguration(t *testing.T) {
	transport := &fakeTransport{}
	a := New(WithTransport(transport))

	var codeCfg *AuthorizationCodeConfig
	var credCfg *ClientCredentialsConfig

	assert.Nil(t, a.Refresh(context.Background(), nil, RefreshConfiguration{RefreshToken: "x"}))
	assert.Nil(t, a.Refresh(context.Background(), codeCfg, RefreshConfiguration{RefreshToken: "x"}))
	assert.Nil(t, a.Refresh(context.Background(), credCfg, RefreshConfiguration{RefreshToken: "x"}))
	assert.Zero(t, transport.calls())
}
