package cmd

import (
	"errors"
	"os"

	"popauth/internal/cli"
	"popauth/internal/config"
	"popauth/internal/formatting"
	"popauth/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates a cached token is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

// Global flags shared by all subcommands.
var (
	configPath   string
	profileName  string
	logLevel     string
	logFormat    string
	outputFormat string
	quiet        bool
	noColor      bool
)

// rootCmd represents the base command for the popauth application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "popauth",
	Short: "Obtain OAuth 2.0 tokens from the command line",
	Long: `popauth obtains and refreshes OAuth 2.0 access tokens.

It runs the authorization code grant (with PKCE) in a browser window and
receives the result on a loopback redirect, or runs the client credentials
grant directly against the token endpoint. Tokens are cached per profile
so they can be refreshed later.

Profiles are read from config.yaml in the configuration directory.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage:      true,
	PersistentPreRunE: setupGlobals,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "popauth version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// setupGlobals initializes logging and validates the global flags before
// any subcommand runs.
func setupGlobals(cmd *cobra.Command, args []string) error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(logFormat)
	if err != nil {
		return err
	}
	logging.Init(level, format, cmd.ErrOrStderr())

	if err := formatting.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}
	return nil
}

// newPrinter returns a printer for the --output format writing to the
// command's stdout.
func newPrinter(cmd *cobra.Command) *formatting.Printer {
	return formatting.NewPrinter(cmd.OutOrStdout(), formatting.Options{
		Format: formatting.OutputFormat(outputFormat),
		Color:  !noColor,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration directory (default $HOME/.config/popauth)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "Profile to use (default: defaultProfile from config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", string(formatting.FormatTable), "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(authorizeCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(challengeCmd)
	rootCmd.AddCommand(expiryCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(profilesCmd)
}

// resolvedConfigPath returns --config or the default directory.
func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.GetDefaultConfigPathOrPanic()
}
