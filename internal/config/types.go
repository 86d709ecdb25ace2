package config

import "popauth/pkg/oauth"

// Config is the top-level configuration structure for popauth.
type Config struct {
	// DefaultProfile is used when --profile is not given.
	DefaultProfile string `yaml:"defaultProfile,omitempty"`

	Profiles map[string]Profile `yaml:"profiles,omitempty"`
}

// Profile describes one client registration at one authorization server.
type Profile struct {
	Grant oauth.GrantType `yaml:"grant"`

	// Issuer enables metadata discovery for endpoints left empty.
	Issuer string `yaml:"issuer,omitempty"`

	ClientID     string   `yaml:"clientId"`
	ClientSecret string   `yaml:"clientSecret,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`

	AuthorizationEndpoint string            `yaml:"authorizationEndpoint,omitempty"`
	TokenEndpoint         string            `yaml:"tokenEndpoint,omitempty"`
	ContentType           oauth.ContentType `yaml:"contentType,omitempty"`

	// Authorization code grant only.
	RedirectURL       string `yaml:"redirectUrl,omitempty"`
	AuthorizedMessage string `yaml:"authorizedMessage,omitempty"`
	RejectedMessage   string `yaml:"rejectedMessage,omitempty"`
	UsePKCE           *bool  `yaml:"usePkce,omitempty"`
}
