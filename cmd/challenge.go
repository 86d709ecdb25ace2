package cmd

import (
	"popauth/internal/cli"
	"popauth/pkg/oauth"

	"github.com/spf13/cobra"
)

// challengeCmd represents the challenge command
var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Generate a PKCE code verifier and challenge",
	Long: `Generate a random PKCE code verifier and its S256 code challenge.

The verifier is 50 alphanumeric characters. The challenge is the
unpadded base64url encoding of its SHA-256 digest.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		challenge, err := oauth.CreateChallenge()
		if err != nil {
			return err
		}
		return newPrinter(cmd).Print(&cli.ChallengeView{
			Verifier:  challenge.Verifier,
			Challenge: challenge.Challenge,
			Method:    oauth.CodeChallengeMethod,
		})
	},
}
