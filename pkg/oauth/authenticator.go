package oauth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Authenticator runs the OAuth 2.0 authorization and refresh flows.
// It keeps no state between calls; configurations are read-only inputs
// and results belong to the caller.
type Authenticator struct {
	transport    Transport
	opener       WindowOpener
	messages     MessageSource
	logger       *slog.Logger
	pollInterval time.Duration
	now          func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithTransport sets the token endpoint transport.
func WithTransport(t Transport) Option {
	return func(a *Authenticator) {
		a.transport = t
	}
}

// WithHTTPClient uses an HTTPTransport backed by httpClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(a *Authenticator) {
		a.transport = NewHTTPTransport(httpClient)
	}
}

// WithWindowOpener sets how popup windows are opened.
func WithWindowOpener(o WindowOpener) Option {
	return func(a *Authenticator) {
		a.opener = o
	}
}

// WithMessageSource sets where redirect page messages arrive.
func WithMessageSource(m MessageSource) Option {
	return func(a *Authenticator) {
		a.messages = m
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// WithPollInterval sets how often the popup is checked for being closed.
func WithPollInterval(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// WithClock sets the time source used for expiration dates.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// New creates an Authenticator. Without WithWindowOpener the authorization
// code flow always fails with popup_not_opened.
func New(opts ...Option) *Authenticator {
	a := &Authenticator{
		transport:    NewHTTPTransport(nil),
		opener:       noWindowOpener{},
		logger:       slog.Default(),
		pollInterval: DefaultPollInterval,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.messages == nil {
		a.messages = NewMessageBus()
	}
	return a
}

// AuthorizeWithAuthorizationCode runs the authorization code flow: it opens
// a popup at the authorization endpoint, waits for the redirect page to
// post the code and redeems it at the token endpoint.
//
// It never returns an error. Failures are passed to cfg.OnError and the
// result is nil.
func (a *Authenticator) AuthorizeWithAuthorizationCode(ctx context.Context, cfg *AuthorizationCodeConfig) *AuthorizeResult {
	if err := cfg.Validate(); err != nil {
		a.logger.Error("Invalid authorization code configuration", "error", err)
		return nil
	}

	var challenge *CodeChallenge
	if cfg.PKCEEnabled() {
		var err error
		challenge, err = CreateChallenge()
		if err != nil {
			a.fail(cfg, err)
			return nil
		}
	}

	authURL := BuildAuthorizationURL(cfg, challenge)

	session := newPopupSession(cfg.RedirectConfiguration, a.logger)
	session.listen(a.messages)

	window, err := a.opener.Open(ctx, authURL)
	if err != nil || window == nil {
		session.teardown()
		a.fail(cfg, &AuthError{
			Code:        ErrorCodePopupNotOpened,
			Description: string(ErrorCodePopupNotOpened),
			Cause:       err,
		})
		return nil
	}

	session.attach(window, a.pollInterval)
	a.logger.Debug("Waiting for authorization",
		"popup_session", session.id,
		"authorization_endpoint", cfg.ServiceConfiguration.AuthorizationEndpoint)

	code, err := session.wait(ctx)
	if err != nil {
		a.fail(cfg, err)
		return nil
	}

	var verifier string
	if challenge != nil {
		verifier = challenge.Verifier
	}

	token, err := a.fetchToken(ctx, cfg.ServiceConfiguration, authorizationCodeForm(cfg, code, verifier))
	if err != nil {
		a.fail(cfg, err)
		return nil
	}

	return &AuthorizeResult{
		TokenResult:       a.tokenResult(token),
		Scopes:            cfg.Scopes,
		AuthorizationCode: code,
	}
}

// AuthorizeWithClientCredentials runs the client credentials grant.
//
// It never returns an error. Failures are passed to cfg.OnError and the
// result is nil.
func (a *Authenticator) AuthorizeWithClientCredentials(ctx context.Context, cfg *ClientCredentialsConfig) *AuthorizeResult {
	if err := cfg.Validate(); err != nil {
		if cfg != nil {
			a.fail(cfg, err)
		} else {
			a.logger.Error("Invalid client credentials configuration", "error", err)
		}
		return nil
	}

	token, err := a.fetchToken(ctx, cfg.ServiceConfiguration, clientCredentialsForm(cfg))
	if err != nil {
		a.fail(cfg, err)
		return nil
	}

	scopes := cfg.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	return &AuthorizeResult{
		TokenResult: a.tokenResult(token),
		Scopes:      scopes,
	}
}

// AccessTokenExpirationDate is GetAccessTokenExpirationDate using the
// Authenticator's clock.
func (a *Authenticator) AccessTokenExpirationDate(expiresIn int) int64 {
	return expirationDate(a.now(), expiresIn).UnixMilli()
}

// fetchToken posts form to the token endpoint and decodes the response.
func (a *Authenticator) fetchToken(ctx context.Context, svc ServiceConfiguration, form url.Values) (*tokenResponse, error) {
	resp, err := a.transport.PostForm(ctx, svc.TokenEndpoint, form, svc.ContentType)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		a.logger.Debug("Token request failed",
			"grant_type", form.Get("grant_type"),
			"status", resp.StatusCode)
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var token tokenResponse
	if err := json.Unmarshal(resp.Body, &token); err != nil {
		return nil, &MalformedResponseError{Body: string(resp.Body), Err: err}
	}
	return &token, nil
}

func (a *Authenticator) tokenResult(token *tokenResponse) TokenResult {
	return TokenResult{
		AccessToken:               token.AccessToken,
		TokenType:                 token.TokenType,
		AccessTokenExpirationDate: a.AccessTokenExpirationDate(token.ExpiresIn),
		RefreshToken:              token.RefreshToken,
	}
}

// fail reports err through the configuration's error callback.
func (a *Authenticator) fail(cfg Configuration, err error) {
	a.logger.Debug("Authorization failed",
		"grant_type", cfg.GrantType(),
		"error", err)

	if onError := cfg.base().OnError; onError != nil {
		onError(err, cfg)
	}
}

func authorizationCodeForm(cfg *AuthorizationCodeConfig, code, verifier string) url.Values {
	form := url.Values{
		"grant_type":   {string(GrantTypeAuthorizationCode)},
		"code":         {code},
		"client_id":    {cfg.ClientID},
		"redirect_uri": {cfg.RedirectConfiguration.URL},
		"scope":        {joinScopes(cfg.Scopes)},
	}
	if cfg.ClientSecret != "" {
		form.Set("client_secret", cfg.ClientSecret)
	}
	if verifier != "" {
		form.Set("code_verifier", verifier)
	}
	return form
}

func clientCredentialsForm(cfg *ClientCredentialsConfig) url.Values {
	form := url.Values{
		"grant_type":    {string(GrantTypeClientCredentials)},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
	}
	if len(cfg.Scopes) > 0 {
		form.Set("scope", joinScopes(cfg.Scopes))
	}
	return form
}

func refreshForm(cfg Configuration, refresh RefreshConfiguration) url.Values {
	b := cfg.base()
	form := url.Values{
		"grant_type":    {string(refresh.GrantType())},
		"refresh_token": {refresh.RefreshToken},
		"client_id":     {b.ClientID},
	}
	if b.ClientSecret != "" {
		form.Set("client_secret", b.ClientSecret)
	}
	return form
}
