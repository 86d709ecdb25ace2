package cmd

import (
	"errors"
	"fmt"

	"popauth/internal/cli"
	"popauth/internal/config"
	"popauth/pkg/oauth"

	"github.com/spf13/cobra"
)

var (
	refreshOpts  flowOptions
	refreshToken string
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew the access token of a profile",
	Long: `Exchange the cached refresh token of a profile for a new access token.

If the refresh grant fails, the profile's original grant is run again:
a browser window opens for the authorization code grant, the token
endpoint is called directly for client credentials.

Exits with code 2 when the profile has no cached token and no
--refresh-token is given.

Examples:
  popauth refresh                              # Refresh the default profile
  popauth refresh --profile github             # Refresh a specific profile
  popauth refresh --refresh-token <token>      # Use an explicit refresh token`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

func init() {
	addFlowFlags(refreshCmd, &refreshOpts)
	refreshCmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token to use instead of the cached one")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	profile, name, err := loadProfile(ctx)
	if err != nil {
		return err
	}

	token, scopes := refreshToken, profile.Scopes
	if token == "" {
		stored, err := config.NewTokenStore(resolvedConfigPath()).Load(name)
		if errors.Is(err, config.ErrTokenNotFound) {
			return &cli.AuthRequiredError{Profile: name}
		}
		if err != nil {
			return err
		}
		token = stored.RefreshToken
		if len(stored.Scopes) > 0 {
			scopes = stored.Scopes
		}
	}

	authn, err := newAuthenticator(profile, name, refreshOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var flowErr error
	cfg := profile.AuthConfiguration(func(err error, _ oauth.Configuration) {
		flowErr = err
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	var result *oauth.RefreshResult
	err = cli.RunWithSpinner(cmd.ErrOrStderr(), quiet || refreshOpts.noBrowser, "Refreshing token...", func() error {
		result = authn.Refresh(ctx, cfg, oauth.RefreshConfiguration{RefreshToken: token})
		if result == nil {
			if flowErr == nil {
				flowErr = errors.New("refresh did not complete")
			}
			return cli.NewAuthFailedError(name, profile.TokenEndpoint, flowErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if result.RefreshToken == "" {
		// Servers may omit the refresh token when it is unchanged.
		result.RefreshToken = token
	}
	if err := saveToken(name, result.TokenResult, scopes, refreshOpts); err != nil {
		return err
	}

	view := cli.NewTokenView(name, oauth.GrantTypeRefreshToken, result.TokenResult, refreshOpts.showSecrets)
	view.Scopes = scopes
	view.Reauthorized = result.Reauthorized
	if err := newPrinter(cmd).Print(view); err != nil {
		return fmt.Errorf("failed to print token: %w", err)
	}
	return nil
}
