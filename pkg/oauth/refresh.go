package oauth

import "context"

// Refresh exchanges a refresh token for a new access token.
//
// If the refresh grant fails for any reason the original grant is run
// again: the popup flow for *AuthorizationCodeConfig, the client
// credentials grant for *ClientCredentialsConfig. Whatever that flow
// returns, including nil, is the result. Refresh never returns an error.
func (a *Authenticator) Refresh(ctx context.Context, cfg Configuration, refresh RefreshConfiguration) *RefreshResult {
	b := configBase(cfg)
	if b == nil {
		a.logger.Error("Refresh called without a configuration")
		return nil
	}

	token, err := a.fetchToken(ctx, b.ServiceConfiguration, refreshForm(cfg, refresh))
	if err == nil {
		return &RefreshResult{TokenResult: a.tokenResult(token)}
	}

	a.logger.Info("Refresh failed, authorizing again",
		"grant_type", cfg.GrantType(),
		"error", err)

	var result *AuthorizeResult
	switch c := cfg.(type) {
	case *AuthorizationCodeConfig:
		result = a.AuthorizeWithAuthorizationCode(ctx, c)
	case *ClientCredentialsConfig:
		result = a.AuthorizeWithClientCredentials(ctx, c)
	}

	if result == nil {
		return nil
	}
	return &RefreshResult{TokenResult: result.TokenResult, Reauthorized: true}
}

// configBase returns the shared fields of cfg, or nil for a nil
// configuration of either variant.
func configBase(cfg Configuration) *BaseConfiguration {
	switch c := cfg.(type) {
	case nil:
		return nil
	case *AuthorizationCodeConfig:
		if c == nil {
			return nil
		}
	case *ClientCredentialsConfig:
		if c == nil {
			return nil
		}
	}
	return cfg.base()
}
