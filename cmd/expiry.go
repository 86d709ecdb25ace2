package cmd

import (
	"fmt"
	"strconv"
	"time"

	"popauth/internal/cli"
	"popauth/pkg/oauth"

	"github.com/spf13/cobra"
)

// expiryCmd represents the expiry command
var expiryCmd = &cobra.Command{
	Use:   "expiry <expires-in>",
	Short: "Compute the expiration date for an expires_in value",
	Long: `Compute the access token expiration date popauth records for a token
response carrying the given expires_in, in seconds.

The lifetime is shortened to 90% of its value and capped at 24 hours.
A value of zero or less is treated as 3600.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expiresIn, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid expires-in %q: %w", args[0], err)
		}

		date := oauth.GetAccessTokenExpirationDate(expiresIn)
		return newPrinter(cmd).Print(&cli.ExpiryView{
			ExpiresIn:      expiresIn,
			ExpirationDate: date,
			ExpiresAt:      time.UnixMilli(date).UTC(),
		})
	},
}
