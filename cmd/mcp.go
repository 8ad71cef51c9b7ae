package cmd

import (
	"fmt"

	"infraops/internal/app"

	"github.com/spf13/cobra"
)

var (
	mcpDebug      bool
	mcpConfigPath string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `Runs the infraops MCP server over stdin/stdout for direct integration
with AI assistants. The full tool set (service inspection, tool
invocation, workflow execution) is exposed; log output goes to stderr
so it never corrupts the protocol stream.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	application, err := app.NewApplication(&app.Config{
		ConfigPath: mcpConfigPath,
		Debug:      mcpDebug,
	}, GetVersion())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.MCP.ServeStdio()
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpDebug, "debug", false, "Enable debug logging")
	mcpCmd.Flags().StringVar(&mcpConfigPath, "config-path", "", "Configuration directory (default: ~/.config/infraops)")
	rootCmd.AddCommand(mcpCmd)
}
