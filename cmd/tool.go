package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	toolDebug      bool
	toolConfigPath string
	toolArgs       []string
)

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Inspect and invoke service tools",
}

var toolListCmd = &cobra.Command{
	Use:   "list <serviceId>",
	Short: "List the tools a service advertises",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolList,
}

var toolInvokeCmd = &cobra.Command{
	Use:   "invoke <serviceId> <tool>",
	Short: "Invoke a tool on a service and print its result",
	Long: `Invokes a named tool on a registered service. Arguments are passed with
repeated --arg key=value flags; values that parse as JSON keep their type.

Example:
  infraops tool invoke backup run_backup_job --arg targetPath=/backups/manual`,
	Args: cobra.ExactArgs(2),
	RunE: runToolInvoke,
}

func runToolList(cmd *cobra.Command, args []string) error {
	application, err := newLocalApplication(toolConfigPath, toolDebug)
	if err != nil {
		return err
	}

	s := newSpinner("Listing tools...")
	tools, err := application.Registry.ListTools(cmd.Context(), args[0])
	s.Stop()
	if err != nil {
		return err
	}

	if len(tools) == 0 {
		cmd.Println(text.FgYellow.Sprintf("Service %s advertises no tools.", args[0]))
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"TOOL", "DESCRIPTION"})
	for _, tool := range tools {
		t.AppendRow(table.Row{tool.Name, tool.Description})
	}
	t.Render()
	return nil
}

func runToolInvoke(cmd *cobra.Command, args []string) error {
	application, err := newLocalApplication(toolConfigPath, toolDebug)
	if err != nil {
		return err
	}
	arguments, err := parseKeyValues(toolArgs)
	if err != nil {
		return err
	}

	s := newSpinner("Invoking " + args[1] + " on " + args[0] + "...")
	result, err := application.Registry.Invoke(cmd.Context(), args[0], args[1], arguments)
	s.Stop()
	if err != nil {
		return err
	}
	return printJSON(result)
}

func init() {
	toolCmd.PersistentFlags().BoolVar(&toolDebug, "debug", false, "Enable debug logging")
	toolCmd.PersistentFlags().StringVar(&toolConfigPath, "config-path", "", "Configuration directory (default: ~/.config/infraops)")
	toolInvokeCmd.Flags().StringArrayVar(&toolArgs, "arg", nil, "Tool argument as key=value (repeatable)")
	toolCmd.AddCommand(toolListCmd)
	toolCmd.AddCommand(toolInvokeCmd)
	rootCmd.AddCommand(toolCmd)
}
