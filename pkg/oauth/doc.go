// Package oauth implements client-side OAuth 2.0 authorization for
// applications without a backend: the authorization code grant driven
// through a popup window (with PKCE by default), the client credentials
// grant, and refresh with fallback to re-authorization.
//
// # Core Components
//
//   - Authenticator: runs the flows; collaborators are injected with options
//   - WindowOpener / Window: the popup host (browser, loopback server, fakes)
//   - MessageSource / MessageBus: where the redirect page posts its message
//   - Transport: form POST to the token endpoint
//   - CreateChallenge: PKCE verifier and S256 challenge
//   - GetAccessTokenExpirationDate: expiry with a 10% margin, capped at 24h
//   - Discoverer: RFC 8414 / OIDC metadata discovery
//
// # Redirect Page Protocol
//
// The page at RedirectConfiguration.URL must post a JSON message to the
// opener. On success:
//
//	{"name": "<AuthorizedMessage>", "code": "..."}
//
// On rejection:
//
//	{"name": "<RejectedMessage>", "error": "access_denied", "error_description": "..."}
//
// Messages with any other name are ignored.
//
// # Error Reporting
//
// The authorize operations and Refresh never return errors. Failures are
// handed to the configuration's OnError callback and the result is nil:
//
//	cfg := &oauth.AuthorizationCodeConfig{...}
//	cfg.OnError = func(err error, _ oauth.Configuration) {
//	    if errors.Is(err, oauth.ErrPopupClosedUnexpectedly) {
//	        // user gave up
//	    }
//	}
//
//	auth := oauth.New(oauth.WithWindowOpener(opener), oauth.WithMessageSource(bus))
//	result := auth.AuthorizeWithAuthorizationCode(ctx, cfg)
//	if result == nil {
//	    return
//	}
//
// Tokens are not stored; persisting results is the caller's job.
package oauth
