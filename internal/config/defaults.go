package config

import "popauth/pkg/oauth"

const (
	// DefaultRedirectURL is the loopback redirect URI used when a profile
	// does not set one.
	DefaultRedirectURL = "http://127.0.0.1:8085/callback"

	DefaultAuthorizedMessage = "popauth:authorized"
	DefaultRejectedMessage   = "popauth:rejected"

	// DefaultContentType is the token request encoding used when a profile
	// does not set one. RFC 6749 token endpoints expect URL-encoded bodies.
	DefaultContentType = oauth.ContentTypeFormURLEncoded
)

// GetDefaultConfig returns the configuration used when no config.yaml exists.
func GetDefaultConfig() Config {
	return Config{Profiles: map[string]Profile{}}
}

// withDefaults fills unset optional fields.
func (p Profile) withDefaults() Profile {
	if p.Grant == "" {
		p.Grant = oauth.GrantTypeAuthorizationCode
	}
	if p.ContentType == "" {
		p.ContentType = DefaultContentType
	}
	if p.Grant == oauth.GrantTypeAuthorizationCode {
		if p.RedirectURL == "" {
			p.RedirectURL = DefaultRedirectURL
		}
		if p.AuthorizedMessage == "" {
			p.AuthorizedMessage = DefaultAuthorizedMessage
		}
		if p.RejectedMessage == "" {
			p.RejectedMessage = DefaultRejectedMessage
		}
	}
	return p
}
