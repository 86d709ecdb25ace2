package config

import (
	"context"
	"fmt"

	"popauth/pkg/oauth"
)

// MetadataDiscoverer fetches authorization server metadata.
type MetadataDiscoverer interface {
	Discover(ctx context.Context, issuer string) (*oauth.Metadata, error)
}

// Resolve fills endpoints left empty from the issuer's metadata. Profiles
// without an issuer are returned unchanged.
func (p Profile) Resolve(ctx context.Context, d MetadataDiscoverer) (Profile, error) {
	if p.Issuer == "" || (p.TokenEndpoint != "" && (p.AuthorizationEndpoint != "" || p.Grant != oauth.GrantTypeAuthorizationCode)) {
		return p, nil
	}

	m, err := d.Discover(ctx, p.Issuer)
	if err != nil {
		return p, err
	}

	if p.TokenEndpoint == "" {
		p.TokenEndpoint = m.TokenEndpoint
	}
	if p.AuthorizationEndpoint == "" {
		p.AuthorizationEndpoint = m.AuthorizationEndpoint
	}
	if p.Grant == oauth.GrantTypeAuthorizationCode && p.AuthorizationEndpoint == "" {
		return p, fmt.Errorf("issuer %s does not advertise an authorization endpoint", p.Issuer)
	}
	if p.UsePKCE == nil && !m.SupportsPKCE() {
		disabled := false
		p.UsePKCE = &disabled
	}
	return p, nil
}

// AuthConfiguration builds the configuration passed to the Authenticator.
func (p Profile) AuthConfiguration(onError oauth.ErrorCallback) oauth.Configuration {
	base := oauth.BaseConfiguration{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Scopes:       p.Scopes,
		ServiceConfiguration: oauth.ServiceConfiguration{
			AuthorizationEndpoint: p.AuthorizationEndpoint,
			TokenEndpoint:         p.TokenEndpoint,
			ContentType:           p.ContentType,
		},
		OnError: onError,
	}

	if p.Grant == oauth.GrantTypeClientCredentials {
		return &oauth.ClientCredentialsConfig{BaseConfiguration: base}
	}
	return &oauth.AuthorizationCodeConfig{
		BaseConfiguration: base,
		RedirectConfiguration: oauth.RedirectConfiguration{
			URL:               p.RedirectURL,
			AuthorizedMessage: p.AuthorizedMessage,
			RejectedMessage:   p.RejectedMessage,
		},
		UsePKCE: p.UsePKCE,
	}
}
