package cmd

import (
	"errors"
	"fmt"

	"popauth/internal/cli"
	"popauth/internal/config"

	"github.com/spf13/cobra"
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover [issuer]",
	Short: "Show the metadata of an authorization server",
	Long: `Fetch and show the OAuth 2.0 authorization server metadata (RFC 8414)
of an issuer, falling back to OpenID Connect discovery.

Without an argument the issuer of the selected profile is used.

Examples:
  popauth discover https://accounts.google.com
  popauth discover --profile github -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	var issuer string
	if len(args) == 1 {
		issuer = args[0]
	} else {
		cfg, err := config.LoadConfig(resolvedConfigPath())
		if err != nil {
			return err
		}
		profile, name, err := cfg.Profile(profileName)
		if err != nil {
			return err
		}
		if profile.Issuer == "" {
			return fmt.Errorf("profile %s has no issuer; pass one as an argument", name)
		}
		issuer = profile.Issuer
	}

	if issuer == "" {
		return errors.New("issuer cannot be empty")
	}

	metadata, err := newDiscoverer().Discover(cmd.Context(), issuer)
	if err != nil {
		return cli.AsConnectionError(err, issuer)
	}
	return newPrinter(cmd).Print(cli.MetadataView{Metadata: metadata})
}
