package cli

import (
	"strconv"
	"strings"
	"time"

	"popauth/internal/config"
	"popauth/pkg/oauth"
)

// TokenView is the printed form of an issued token. Token values are
// masked unless ShowSecrets was set when the view was built.
type TokenView struct {
	Profile           string    `json:"profile" yaml:"profile"`
	Grant             string    `json:"grant" yaml:"grant"`
	AccessToken       string    `json:"accessToken" yaml:"accessToken"`
	TokenType         string    `json:"tokenType" yaml:"tokenType"`
	ExpiresAt         time.Time `json:"expiresAt" yaml:"expiresAt"`
	RefreshToken      string    `json:"refreshToken,omitempty" yaml:"refreshToken,omitempty"`
	Scopes            []string  `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	AuthorizationCode string    `json:"authorizationCode,omitempty" yaml:"authorizationCode,omitempty"`
	Reauthorized      bool      `json:"reauthorized,omitempty" yaml:"reauthorized,omitempty"`
}

// NewTokenView builds a view of token.
func NewTokenView(profile string, grant oauth.GrantType, token oauth.TokenResult, showSecrets bool) *TokenView {
	v := &TokenView{
		Profile:      profile,
		Grant:        string(grant),
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.ExpiresAt().UTC(),
		RefreshToken: token.RefreshToken,
	}
	if !showSecrets {
		v.AccessToken = Mask(v.AccessToken)
		v.RefreshToken = Mask(v.RefreshToken)
	}
	return v
}

func (v *TokenView) TableHeader() []string { return []string{"field", "value"} }

func (v *TokenView) TableRows() [][]string {
	rows := [][]string{
		{"profile", v.Profile},
		{"grant", v.Grant},
		{"access_token", v.AccessToken},
		{"token_type", v.TokenType},
		{"expires_at", v.ExpiresAt.Format(time.RFC3339)},
	}
	if v.RefreshToken != "" {
		rows = append(rows, []string{"refresh_token", v.RefreshToken})
	}
	if len(v.Scopes) > 0 {
		rows = append(rows, []string{"scopes", strings.Join(v.Scopes, " ")})
	}
	if v.AuthorizationCode != "" {
		rows = append(rows, []string{"authorization_code", v.AuthorizationCode})
	}
	if v.Reauthorized {
		rows = append(rows, []string{"reauthorized", "true"})
	}
	return rows
}

// Mask hides all but the first and last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 12 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", 8) + secret[len(secret)-4:]
}

// ChallengeView is the printed form of a PKCE pair.
type ChallengeView struct {
	Verifier  string `json:"codeVerifier" yaml:"codeVerifier"`
	Challenge string `json:"codeChallenge" yaml:"codeChallenge"`
	Method    string `json:"codeChallengeMethod" yaml:"codeChallengeMethod"`
}

func (v *ChallengeView) TableHeader() []string { return []string{"field", "value"} }

func (v *ChallengeView) TableRows() [][]string {
	return [][]string{
		{"code_verifier", v.Verifier},
		{"code_challenge", v.Challenge},
		{"code_challenge_method", v.Method},
	}
}

// ExpiryView is the printed form of a computed expiration date.
type ExpiryView struct {
	ExpiresIn      int       `json:"expiresIn" yaml:"expiresIn"`
	ExpirationDate int64     `json:"accessTokenExpirationDate" yaml:"accessTokenExpirationDate"`
	ExpiresAt      time.Time `json:"expiresAt" yaml:"expiresAt"`
}

func (v *ExpiryView) TableHeader() []string { return []string{"field", "value"} }

func (v *ExpiryView) TableRows() [][]string {
	return [][]string{
		{"expires_in", strconv.Itoa(v.ExpiresIn)},
		{"expiration_date_ms", strconv.FormatInt(v.ExpirationDate, 10)},
		{"expires_at", v.ExpiresAt.Format(time.RFC3339)},
	}
}

// MetadataView is the printed form of discovered server metadata.
type MetadataView struct {
	*oauth.Metadata
}

func (v MetadataView) TableHeader() []string { return []string{"field", "value"} }

func (v MetadataView) TableRows() [][]string {
	return [][]string{
		{"issuer", v.Issuer},
		{"authorization_endpoint", v.AuthorizationEndpoint},
		{"token_endpoint", v.TokenEndpoint},
		{"scopes_supported", strings.Join(v.ScopesSupported, " ")},
		{"grant_types_supported", strings.Join(v.GrantTypesSupported, " ")},
		{"code_challenge_methods_supported", strings.Join(v.CodeChallengeMethodsSupported, " ")},
		{"pkce", strconv.FormatBool(v.SupportsPKCE())},
	}
}

// ProfileList is the printed form of the configured profiles.
type ProfileList []ProfileRow

// ProfileRow summarizes one profile and its cached token.
type ProfileRow struct {
	Name       string `json:"name" yaml:"name"`
	Default    bool   `json:"default" yaml:"default"`
	Grant      string `json:"grant" yaml:"grant"`
	ClientID   string `json:"clientId" yaml:"clientId"`
	Endpoint   string `json:"endpoint" yaml:"endpoint"`
	TokenState string `json:"token" yaml:"token"`
}

// NewProfileList summarizes cfg. tokens maps profile names to their cached
// token, if any.
func NewProfileList(cfg config.Config, tokens map[string]*config.StoredToken, now time.Time) ProfileList {
	list := make(ProfileList, 0, len(cfg.Profiles))
	for _, name := range cfg.ProfileNames() {
		p := cfg.Profiles[name]
		endpoint := p.TokenEndpoint
		if endpoint == "" {
			endpoint = p.Issuer
		}

		state := "none"
		if t, ok := tokens[name]; ok {
			state = "valid until " + t.ExpiresAt().UTC().Format(time.RFC3339)
			if t.Expired(now) {
				state = "expired"
			}
		}

		list = append(list, ProfileRow{
			Name:       name,
			Default:    name == cfg.DefaultProfile,
			Grant:      string(p.Grant),
			ClientID:   p.ClientID,
			Endpoint:   endpoint,
			TokenState: state,
		})
	}
	return list
}

func (l ProfileList) TableHeader() []string {
	return []string{"name", "default", "grant", "client id", "endpoint", "token"}
}

func (l ProfileList) TableRows() [][]string {
	rows := make([][]string, len(l))
	for i, r := range l {
		def := ""
		if r.Default {
			def = "*"
		}
		rows[i] = []string{r.Name, def, r.Grant, r.ClientID, r.Endpoint, r.TokenState}
	}
	return rows
}
