package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the infraops application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "infraops",
	Short: "Service registry and workflow orchestrator for infrastructure backends",
	Long: `infraops tracks a set of backend services, keeps their health current,
proxies tool invocations to them, and runs predefined workflows across them.

Run 'infraops serve' to start the server, then use 'infraops list',
'infraops tool' and 'infraops workflow' to inspect and drive it.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// the application reports itself.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. It is called from the
// main package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "infraops version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
