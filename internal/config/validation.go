package config

import (
	"fmt"
	"net/url"
	"strings"

	"popauth/pkg/oauth"
)

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) *ConfigurationError {
	if strings.TrimSpace(value) == "" {
		e := NewConfigurationError("", field, "validation", fmt.Sprintf("is required for %s", entityType))
		return &e
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) *ConfigurationError {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	e := NewConfigurationError("", field, "validation",
		fmt.Sprintf("%q must be one of: %s", value, strings.Join(allowed, ", ")))
	return &e
}

// ValidateURL checks that an optional field holds an absolute URL.
func ValidateURL(field, value string) *ConfigurationError {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		e := NewConfigurationError("", field, "validation", fmt.Sprintf("%q is not an absolute URL", value))
		return &e
	}
	return nil
}

// Validate checks a profile after defaults have been applied. Endpoints
// may be omitted when Issuer is set.
func (p Profile) Validate() []ConfigurationError {
	var errs []ConfigurationError
	add := func(e *ConfigurationError) {
		if e != nil {
			errs = append(errs, *e)
		}
	}

	grant := string(p.Grant)
	add(ValidateOneOf("grant", grant, []string{
		string(oauth.GrantTypeAuthorizationCode),
		string(oauth.GrantTypeClientCredentials),
	}))
	add(ValidateOneOf("contentType", string(p.ContentType), []string{
		string(oauth.ContentTypeFormURLEncoded),
		string(oauth.ContentTypeFormData),
	}))
	add(ValidateRequired("clientId", p.ClientID, grant))

	for field, value := range map[string]string{
		"issuer":                p.Issuer,
		"authorizationEndpoint": p.AuthorizationEndpoint,
		"tokenEndpoint":         p.TokenEndpoint,
		"redirectUrl":           p.RedirectURL,
	} {
		add(ValidateURL(field, value))
	}

	if p.Issuer == "" {
		add(ValidateRequired("tokenEndpoint", p.TokenEndpoint, grant))
	}

	switch p.Grant {
	case oauth.GrantTypeAuthorizationCode:
		if p.Issuer == "" {
			add(ValidateRequired("authorizationEndpoint", p.AuthorizationEndpoint, grant))
		}
		if p.AuthorizedMessage == p.RejectedMessage {
			e := NewConfigurationError("", "rejectedMessage", "validation",
				"must differ from authorizedMessage")
			add(&e)
		}
	case oauth.GrantTypeClientCredentials:
		if e := ValidateRequired("clientSecret", p.ClientSecret, grant); e != nil {
			e.Suggestions = []string{"Reference an environment variable, e.g. clientSecret: ${MY_CLIENT_SECRET}"}
			add(e)
		}
	}

	return errs
}
