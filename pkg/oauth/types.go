package oauth

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// GrantType identifies an OAuth 2.0 grant.
type GrantType string

const (
	GrantTypeAuthorizationCode GrantType = "authorization_code"
	GrantTypeClientCredentials GrantType = "client_credentials"
	GrantTypeRefreshToken      GrantType = "refresh_token"
	GrantTypePassword          GrantType = "password"
)

// ContentType is the body encoding used for token endpoint requests.
type ContentType string

const (
	// ContentTypeFormData sends a multipart/form-data body.
	ContentTypeFormData ContentType = "form-data"
	// ContentTypeFormURLEncoded sends an application/x-www-form-urlencoded body.
	ContentTypeFormURLEncoded ContentType = "x-www-form-urlencoded"
)

// ServiceConfiguration holds the endpoints of the authorization server.
type ServiceConfiguration struct {
	// AuthorizationEndpoint is the fully formed authorization URL,
	// usually ending with /oauth/authorize.
	AuthorizationEndpoint string `json:"authorizationEndpoint" yaml:"authorizationEndpoint"`

	// TokenEndpoint is the fully formed token exchange URL,
	// usually ending with /oauth/token.
	TokenEndpoint string `json:"tokenEndpoint" yaml:"tokenEndpoint"`

	// ContentType is the preferred body encoding for token requests.
	ContentType ContentType `json:"contentType,omitempty" yaml:"contentType,omitempty"`
}

// RedirectConfiguration describes the redirect page and the message
// names it posts back to the opener.
type RedirectConfiguration struct {
	// URL is where the authorization server sends the user after consent.
	URL string `json:"url" yaml:"url"`

	// AuthorizedMessage is the name of the message sent on success.
	AuthorizedMessage string `json:"authorizedMessage" yaml:"authorizedMessage"`

	// RejectedMessage is the name of the message sent on rejection.
	RejectedMessage string `json:"rejectedMessage" yaml:"rejectedMessage"`
}

// ErrorCallback receives every error the authorize operations swallow.
// It is called synchronously, before the operation returns nil.
type ErrorCallback func(err error, cfg Configuration)

// Configuration is an authorization configuration discriminated by grant
// type. It is implemented by *AuthorizationCodeConfig and
// *ClientCredentialsConfig only.
type Configuration interface {
	GrantType() GrantType
	Validate() error
	base() *BaseConfiguration
}

// BaseConfiguration holds the fields shared by every grant.
type BaseConfiguration struct {
	// ClientID is the public identifier of the application.
	ClientID string `json:"clientId" yaml:"clientId"`

	// ClientSecret is known only to the application and the server.
	ClientSecret string `json:"clientSecret,omitempty" yaml:"clientSecret,omitempty"`

	// Scopes requested, in order. May be empty.
	Scopes []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`

	ServiceConfiguration ServiceConfiguration `json:"serviceConfiguration" yaml:"serviceConfiguration"`

	// OnError is invoked in place of returning errors. Optional.
	OnError ErrorCallback `json:"-" yaml:"-"`
}

func (b *BaseConfiguration) base() *BaseConfiguration { return b }

// AuthorizationCodeConfig configures the popup based authorization code flow.
type AuthorizationCodeConfig struct {
	BaseConfiguration `yaml:",inline"`

	RedirectConfiguration RedirectConfiguration `json:"redirectConfiguration" yaml:"redirectConfiguration"`

	// UsePKCE enables Proof Key for Code Exchange. Nil means enabled.
	UsePKCE *bool `json:"usePKCE,omitempty" yaml:"usePKCE,omitempty"`
}

// GrantType implements Configuration.
func (c *AuthorizationCodeConfig) GrantType() GrantType { return GrantTypeAuthorizationCode }

// PKCEEnabled reports whether a code challenge is sent with the request.
func (c *AuthorizationCodeConfig) PKCEEnabled() bool {
	return c.UsePKCE == nil || *c.UsePKCE
}

// Validate implements Configuration.
func (c *AuthorizationCodeConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: configuration is nil", ErrInvalidConfiguration)
	}
	return nil
}

// ClientCredentialsConfig configures the client credentials grant.
type ClientCredentialsConfig struct {
	BaseConfiguration `yaml:",inline"`
}

// GrantType implements Configuration.
func (c *ClientCredentialsConfig) GrantType() GrantType { return GrantTypeClientCredentials }

// Validate implements Configuration. The client secret is mandatory.
func (c *ClientCredentialsConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: configuration is nil", ErrInvalidConfiguration)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("%w: client_credentials requires a client secret", ErrInvalidConfiguration)
	}
	return nil
}

// RefreshConfiguration carries the refresh token for a refresh grant.
type RefreshConfiguration struct {
	// RefreshToken is the token received from authorization or a previous refresh.
	RefreshToken string `json:"refreshToken" yaml:"refreshToken"`
}

// GrantType is always refresh_token.
func (RefreshConfiguration) GrantType() GrantType { return GrantTypeRefreshToken }

// CodeChallenge is a PKCE verifier and its S256 challenge.
type CodeChallenge struct {
	// Verifier is sent only with the token exchange.
	Verifier string
	// Challenge is sent with the authorization request.
	Challenge string
}

// TokenResult holds the fields common to authorize and refresh results.
type TokenResult struct {
	AccessToken string `json:"accessToken" yaml:"accessToken"`

	// TokenType is usually "Bearer".
	TokenType string `json:"tokenType" yaml:"tokenType"`

	// AccessTokenExpirationDate is the expiry in Unix milliseconds,
	// already shortened by the safety margin.
	AccessTokenExpirationDate int64 `json:"accessTokenExpirationDate" yaml:"accessTokenExpirationDate"`

	RefreshToken string `json:"refreshToken,omitempty" yaml:"refreshToken,omitempty"`
}

// ExpiresAt returns AccessTokenExpirationDate as a time.Time.
func (r TokenResult) ExpiresAt() time.Time {
	return time.UnixMilli(r.AccessTokenExpirationDate)
}

// OAuth2Token converts the result for use with golang.org/x/oauth2.
func (r TokenResult) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
		Expiry:       r.ExpiresAt(),
	}
}

// TokenSource returns a static oauth2.TokenSource for the access token.
// No refreshing happens behind the caller's back.
func (r TokenResult) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(r.OAuth2Token())
}

// AuthorizeResult is returned by the authorize operations.
type AuthorizeResult struct {
	TokenResult `yaml:",inline"`

	// Scopes requested with the authorization.
	Scopes []string `json:"scopes" yaml:"scopes"`

	// AuthorizationCode is set for the authorization code flow.
	AuthorizationCode string `json:"authorizationCode,omitempty" yaml:"authorizationCode,omitempty"`
}

// RefreshResult is returned by Refresh.
type RefreshResult struct {
	TokenResult `yaml:",inline"`

	// Reauthorized is true when the refresh grant failed and the result
	// came from running the original grant again.
	Reauthorized bool `json:"reauthorized,omitempty" yaml:"reauthorized,omitempty"`
}

// tokenResponse is the token endpoint JSON body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// joinScopes joins scopes for a token request body.
func joinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}
