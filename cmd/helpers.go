package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"popauth/internal/config"
	"popauth/internal/loopback"
	"popauth/pkg/logging"
	"popauth/pkg/oauth"
)

// httpTimeout bounds every request to the authorization server.
const httpTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

func newDiscoverer() *oauth.Discoverer {
	return oauth.NewDiscoverer(
		oauth.WithDiscoveryHTTPClient(newHTTPClient()),
		oauth.WithDiscoveryLogger(logging.Logger("discovery")),
	)
}

// loadProfile loads config.yaml, selects the --profile profile and fills
// its endpoints from the issuer metadata when needed.
func loadProfile(ctx context.Context) (config.Profile, string, error) {
	cfg, err := config.LoadConfig(resolvedConfigPath())
	if err != nil {
		return config.Profile{}, "", err
	}

	profile, name, err := cfg.Profile(profileName)
	if err != nil {
		return config.Profile{}, "", err
	}

	profile, err = profile.Resolve(ctx, newDiscoverer())
	if err != nil {
		return config.Profile{}, "", fmt.Errorf("failed to resolve endpoints for profile %s: %w", name, err)
	}
	return profile, name, nil
}

// flowOptions are the flags shared by commands that may open a browser.
type flowOptions struct {
	noBrowser   bool
	noStore     bool
	showSecrets bool
	timeout     time.Duration
}

// newAuthenticator wires an Authenticator for profile. Authorization code
// profiles get a loopback opener whose callback posts to the same bus the
// Authenticator listens on.
func newAuthenticator(profile config.Profile, name string, opts flowOptions, out io.Writer) (*oauth.Authenticator, error) {
	options := []oauth.Option{
		oauth.WithHTTPClient(newHTTPClient()),
		oauth.WithLogger(logging.Logger("oauth")),
	}

	if profile.Grant == oauth.GrantTypeAuthorizationCode {
		bus := oauth.NewMessageBus()
		opener, err := loopback.NewOpener(loopback.Options{
			RedirectURL:       profile.RedirectURL,
			AuthorizedMessage: profile.AuthorizedMessage,
			RejectedMessage:   profile.RejectedMessage,
			Bus:               bus,
			ClientName:        name,
			AbandonTimeout:    opts.timeout,
			NoBrowser:         opts.noBrowser,
			Out:               out,
			Logger:            logging.Logger("loopback"),
		})
		if err != nil {
			return nil, err
		}
		options = append(options, oauth.WithWindowOpener(opener), oauth.WithMessageSource(bus))
	}

	return oauth.New(options...), nil
}

// saveToken caches token for profile unless --no-store was given.
func saveToken(name string, token oauth.TokenResult, scopes []string, opts flowOptions) error {
	if opts.noStore {
		return nil
	}
	store := config.NewTokenStore(resolvedConfigPath())
	err := store.Save(name, &config.StoredToken{
		TokenResult: token,
		Scopes:      scopes,
		IssuedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to cache token for profile %s: %w", name, err)
	}
	logging.Debug("CLI", "Cached token for profile %s", name)
	return nil
}
