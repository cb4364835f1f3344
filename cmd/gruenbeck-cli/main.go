// Gruenbeck-cli inspects and controls Grünbeck water softeners through
// the myGrünbeck cloud.
//
// The tool signs in with a myGrünbeck account, picks one of the
// account's softliQ softeners and talks to the same cloud API the
// mobile app uses:
//
//   - Device listing and detail views
//   - Reading and changing appliance parameters
//   - Triggering a manual regeneration
//   - Live telemetry streaming over the cloud's relay websocket
//
// Prerequisites:
//
//   - A myGrünbeck account with at least one registered softliQ device
//   - The account password, prompted or via GRUENBECK_PASSWORD
//
// The account email and device nicknames are kept in a local config
// file; the password and cloud tokens are never stored.
//
// See 'gruenbeck-cli --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/gruenbeck-cloud/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gruenbeck-cli",
	Short: "Grünbeck cloud water softener utility",
	Long: `Inspect and control Grünbeck softliQ water softeners via the myGrünbeck cloud.

The tool signs in with your myGrünbeck account and offers:
  - Device listing and detail views
  - Reading and changing appliance parameters
  - Triggering a manual regeneration
  - A live telemetry view fed by the cloud's push stream

The password is read from the GRUENBECK_PASSWORD environment variable
or prompted interactively. It is never written to disk.`,
	Version: version.Version,
	Example: `  # List the softeners on the account
  gruenbeck-cli devices

  # Show one device, including consumption history
  gruenbeck-cli show --device BS11022077 --usage

  # Switch the softener to Eco mode
  gruenbeck-cli set --mode eco

  # Follow live telemetry
  gruenbeck-cli watch`,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gruenbeck-cli %s (commit: %s)\n", version.Version, version.Commit)
	},
}
