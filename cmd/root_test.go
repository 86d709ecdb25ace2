package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"popauth/internal/cli"

	"github.com/spf13/cobra"
)

func TestSetVersion(t *testing.T) {
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if GetVersion() != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "popauth" {
		t.Errorf("Expected Use to be 'popauth', got %s", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}

	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}

	if rootCmd.PersistentPreRunE == nil {
		t.Error("Expected PersistentPreRunE to be set")
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}

	// Set the same version template as in Execute()
	testCmd.SetVersionTemplate(`{{printf "popauth version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)

	testCmd.SetArgs([]string{"--version"})
	err := testCmd.Execute()
	if err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}

	output := buf.String()
	expected := "popauth version 1.0.0\n"
	if output != expected {
		t.Errorf("Expected version output %q, got %q", expected, output)
	}
}

func TestSubcommands(t *testing.T) {
	commands := rootCmd.Commands()

	expectedCommands := []string{"version", "authorize", "refresh", "logout", "challenge", "expiry", "discover", "profiles"}
	foundCommands := make(map[string]bool)

	for _, cmd := range commands {
		foundCommands[cmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("Expected subcommand %s to be registered", expected)
		}
	}
}

func TestPersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "profile", "log-level", "log-format", "output", "quiet", "no-color"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("Expected persistent flag --%s", name)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "auth required",
			err:      &cli.AuthRequiredError{Profile: "p"},
			expected: ExitCodeAuthRequired,
		},
		{
			name:     "wrapped auth required",
			err:      fmt.Errorf("refresh: %w", &cli.AuthRequiredError{Profile: "p"}),
			expected: ExitCodeAuthRequired,
		},
		{
			name:     "auth failed",
			err:      &cli.AuthFailedError{Profile: "p", Reason: errors.New("denied")},
			expected: ExitCodeAuthFailed,
		},
		{
			name:     "other error",
			err:      errors.New("boom"),
			expected: ExitCodeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExitCode(tt.err); got != tt.expected {
				t.Errorf("Expected exit code %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestGlobalFlagValidation(t *testing.T) {
	t.Run("invalid output format", func(t *testing.T) {
		_, err := executeCommand(t, "challenge", "-o", "xml")
		if err == nil || !strings.Contains(err.Error(), "invalid output format") {
			t.Errorf("Expected invalid output format error, got %v", err)
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := executeCommand(t, "challenge", "--log-level", "loud")
		if err == nil || !strings.Contains(err.Error(), "invalid log level") {
			t.Errorf("Expected invalid log level error, got %v", err)
		}
	})
}
