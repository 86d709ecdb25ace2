package cmd

import (
	"errors"
	"time"

	"popauth/internal/cli"
	"popauth/internal/config"

	"github.com/spf13/cobra"
)

// profilesCmd represents the profiles command
var profilesCmd = &cobra.Command{
	Use:     "profiles",
	Aliases: []string{"list"},
	Short:   "List configured profiles and their cached tokens",
	Args:    cobra.NoArgs,
	RunE:    runProfiles,
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(resolvedConfigPath())
	if err != nil {
		return err
	}

	store := config.NewTokenStore(resolvedConfigPath())
	tokens := make(map[string]*config.StoredToken, len(cfg.Profiles))
	for _, name := range cfg.ProfileNames() {
		token, err := store.Load(name)
		if errors.Is(err, config.ErrTokenNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		tokens[name] = token
	}

	return newPrinter(cmd).Print(cli.NewProfileList(cfg, tokens, time.Now()))
}
