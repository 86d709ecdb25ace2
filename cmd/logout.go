package cmd

import (
	"fmt"

	"popauth/internal/config"

	"github.com/spf13/cobra"
)

var logoutAll bool

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove cached tokens",
	Long: `Remove the cached token of a profile, or of all profiles with --all.

The tokens are only deleted locally; nothing is revoked at the server.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "Remove the cached tokens of all profiles")
}

func runLogout(cmd *cobra.Command, args []string) error {
	store := config.NewTokenStore(resolvedConfigPath())

	var names []string
	if logoutAll {
		var err error
		if names, err = store.List(); err != nil {
			return err
		}
	} else {
		cfg, err := config.LoadConfig(resolvedConfigPath())
		if err != nil {
			return err
		}
		_, name, err := cfg.Profile(profileName)
		if err != nil {
			return err
		}
		names = []string{name}
	}

	for _, name := range names {
		if err := store.Delete(name); err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed cached token for profile %s\n", name)
		}
	}
	return nil
}
