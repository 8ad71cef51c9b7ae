package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"infraops/internal/app"

	"github.com/spf13/cobra"
)

var (
	serveDebug      bool
	serveSilent     bool
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the infraops server",
	Long: `Starts the infraops server: registers the configured services, begins
health tracking, and serves the MCP endpoint at /mcp and the websocket
event stream at /events.

Configuration is read from the configuration directory (default:
~/.config/infraops), which may contain config.yaml, services.yaml and
workflows.yaml. Edits to services.yaml and workflows.yaml are picked up
without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := app.NewApplication(&app.Config{
		ConfigPath: serveConfigPath,
		Debug:      serveDebug,
		Silent:     serveSilent,
	}, GetVersion())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return application.Run(ctx)
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveSilent, "silent", false, "Suppress all log output")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Configuration directory (default: ~/.config/infraops)")
	rootCmd.AddCommand(serveCmd)
}
