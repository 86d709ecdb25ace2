package cmd

import (
	"errors"
	"fmt"

	"popauth/internal/cli"
	"popauth/internal/loopback"
	"popauth/pkg/oauth"

	"github.com/spf13/cobra"
)

var authorizeOpts flowOptions

// authorizeCmd represents the authorize command
var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Obtain a new access token for a profile",
	Long: `Obtain a new access token using the grant configured for the profile.

For the authorization code grant a browser window opens at the
authorization endpoint. After you approve the request the browser is
redirected to a local callback server and the code is exchanged for a
token. PKCE is used unless the profile disables it.

For the client credentials grant the token endpoint is called directly.

The token is cached so that 'popauth refresh' can renew it later.

Examples:
  popauth authorize                        # Authorize the default profile
  popauth authorize --profile github       # Authorize a specific profile
  popauth authorize --no-browser           # Print the URL instead of opening it
  popauth authorize -o json --show-secrets # Print the full token as JSON`,
	Args: cobra.NoArgs,
	RunE: runAuthorize,
}

func init() {
	addFlowFlags(authorizeCmd, &authorizeOpts)
}

// addFlowFlags registers the flags of commands that may run a grant.
func addFlowFlags(cmd *cobra.Command, opts *flowOptions) {
	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	cmd.Flags().BoolVar(&opts.noStore, "no-store", false, "Do not cache the token")
	cmd.Flags().BoolVar(&opts.showSecrets, "show-secrets", false, "Print token values unmasked")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", loopback.DefaultAbandonTimeout, "How long to wait for the browser callback")
}

func runAuthorize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	profile, name, err := loadProfile(ctx)
	if err != nil {
		return err
	}

	authn, err := newAuthenticator(profile, name, authorizeOpts, cmd.ErrOrStderr())
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

	var result *oauth.AuthorizeResult
	err = cli.RunWithSpinner(cmd.ErrOrStderr(), quiet || authorizeOpts.noBrowser, "Waiting for authorization...", func() error {
		switch c := cfg.(type) {
		case *oauth.AuthorizationCodeConfig:
			result = authn.AuthorizeWithAuthorizationCode(ctx, c)
		case *oauth.ClientCredentialsConfig:
			result = authn.AuthorizeWithClientCredentials(ctx, c)
		}
		if result == nil {
			if flowErr == nil {
				flowErr = errors.New("authorization did not complete")
			}
			return cli.NewAuthFailedError(name, profile.TokenEndpoint, flowErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := saveToken(name, result.TokenResult, result.Scopes, authorizeOpts); err != nil {
		return err
	}

	view := cli.NewTokenView(name, cfg.GrantType(), result.TokenResult, authorizeOpts.showSecrets)
	view.Scopes = result.Scopes
	view.AuthorizationCode = result.AuthorizationCode
	if !authorizeOpts.showSecrets {
		view.AuthorizationCode = cli.Mask(view.AuthorizationCode)
	}
	if err := newPrinter(cmd).Print(view); err != nil {
		return fmt.Errorf("failed to print token: %w", err)
	}
	return nil
}
