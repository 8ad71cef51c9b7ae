package cmd

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	listDebug      bool
	listConfigPath string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List services or workflows",
}

var listServicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Probe every configured service and list its status",
	Args:  cobra.NoArgs,
	RunE:  runListServices,
}

var listWorkflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List the registered workflow definitions",
	Args:  cobra.NoArgs,
	RunE:  runListWorkflows,
}

func runListServices(cmd *cobra.Command, args []string) error {
	application, err := newLocalApplication(listConfigPath, listDebug)
	if err != nil {
		return err
	}

	s := newSpinner("Probing services...")
	records := application.Registry.ListAll(cmd.Context())
	s.Stop()

	if len(records) == 0 {
		cmd.Println(text.FgYellow.Sprint("No services configured."))
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"ID", "NAME", "KIND", "STATUS", "LAST CHECK", "ERROR"})
	for _, record := range records {
		lastCheck := "never"
		if record.LastHealthCheckAt != nil {
			lastCheck = record.LastHealthCheckAt.Format(time.RFC3339)
		}
		t.AppendRow(table.Row{
			record.Descriptor.ID,
			record.Descriptor.DisplayName,
			string(record.Descriptor.Kind),
			colorStatus(record.Status),
			lastCheck,
			record.LastError,
		})
	}
	t.Render()
	return nil
}

func runListWorkflows(cmd *cobra.Command, args []string) error {
	application, err := newLocalApplication(listConfigPath, listDebug)
	if err != nil {
		return err
	}

	summaries := application.Engine.List()
	if len(summaries) == 0 {
		cmd.Println(text.FgYellow.Sprint("No workflows registered."))
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"ID", "NAME", "STEPS", "DESCRIPTION"})
	for _, summary := range summaries {
		t.AppendRow(table.Row{summary.ID, summary.Name, summary.StepCount, summary.Description})
	}
	t.Render()
	return nil
}

func init() {
	listCmd.PersistentFlags().BoolVar(&listDebug, "debug", false, "Enable debug logging")
	listCmd.PersistentFlags().StringVar(&listConfigPath, "config-path", "", "Configuration directory (default: ~/.config/infraops)")
	listCmd.AddCommand(listServicesCmd)
	listCmd.AddCommand(listWorkflowsCmd)
	rootCmd.AddCommand(listCmd)
}
