package jsbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"popauth/pkg/oauth"
)

// DecodeConfiguration decodes a JSON configuration object. Its grantType
// field selects the variant. onError becomes the configuration's OnError.
func DecodeConfiguration(data string, onError oauth.ErrorCallback) (oauth.Configuration, error) {
	if !gjson.Valid(data) {
		return nil, errors.New("configuration is not a JSON object")
	}

	switch grant := oauth.GrantType(gjson.Get(data, "grantType").String()); grant {
	case oauth.GrantTypeAuthorizationCode:
		var cfg oauth.AuthorizationCodeConfig
		if err := json.Unmarshal([]byte(data), &cfg); err != nil {
			return nil, fmt.Errorf("invalid authorization code configuration: %w", err)
		}
		cfg.OnError = onError
		return &cfg, nil
	case oauth.GrantTypeClientCredentials:
		var cfg oauth.ClientCredentialsConfig
		if err := json.Unmarshal([]byte(data), &cfg); err != nil {
			return nil, fmt.Errorf("invalid client credentials configuration: %w", err)
		}
		cfg.OnError = onError
		return &cfg, nil
	default:
		return nil, fmt.Errorf("%w: unsupported grantType %q", oauth.ErrInvalidConfiguration, grant)
	}
}

// DecodeRefreshConfiguration decodes a JSON refresh configuration.
func DecodeRefreshConfiguration(data string) (oauth.RefreshConfiguration, error) {
	var refresh oauth.RefreshConfiguration
	if err := json.Unmarshal([]byte(data), &refresh); err != nil {
		return refresh, fmt.Errorf("invalid refresh configuration: %w", err)
	}
	return refresh, nil
}

// ChallengeFields is the JavaScript shape of a code challenge.
func ChallengeFields(c *oauth.CodeChallenge) map[string]any {
	return map[string]any{
		"verifier":  c.Verifier,
		"challenge": c.Challenge,
	}
}

// ErrorFields describes err for a JavaScript error callback. OAuth errors
// carry their code, token endpoint failures their status and body.
func ErrorFields(err error) map[string]any {
	fields := map[string]any{"message": err.Error()}

	var authErr *oauth.AuthError
	if errors.As(err, &authErr) {
		fields["error"] = string(authErr.Code)
		if authErr.Description != "" {
			fields["error_description"] = authErr.Description
		}
	}

	var exchangeErr *oauth.TokenExchangeError
	if errors.As(err, &exchangeErr) {
		fields["status"] = exchangeErr.StatusCode
		fields["body"] = exchangeErr.Body
	}
	return fields
}

// ExpiresIn converts a JavaScript expiresIn argument. Anything that is
// not a finite number means "not provided" and yields 0.
func ExpiresIn(value float64, isNumber bool) int {
	if !isNumber || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	if value > math.MaxInt32 {
		return math.MaxInt32
	}
	if value < math.MinInt32 {
		return math.MinInt32
	}
	return int(value)
}
