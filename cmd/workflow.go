package cmd

import (
	"fmt"

	"infraops/internal/api"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	workflowDebug      bool
	workflowConfigPath string
	workflowParams     []string
	workflowJSON       bool
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Run workflows",
}

var workflowRunCmd = &cobra.Command{
	Use:   "run <workflowId>",
	Short: "Run a workflow to completion and print its execution record",
	Long: `Runs a workflow against the configured services. Parameters are passed
with repeated --param key=value flags; definition defaults fill in the
rest.

Example:
  infraops workflow run config_backup --param targetPath=/backups/manual`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflowRun,
}

func runWorkflowRun(cmd *cobra.Command, args []string) error {
	application, err := newLocalApplication(workflowConfigPath, workflowDebug)
	if err != nil {
		return err
	}
	params, err := parseKeyValues(workflowParams)
	if err != nil {
		return err
	}

	s := newSpinner("Running workflow " + args[0] + "...")
	execution, err := application.Engine.Execute(cmd.Context(), args[0], params)
	s.Stop()
	if err != nil {
		return err
	}

	if workflowJSON {
		return printJSON(execution)
	}

	t := newTable()
	t.AppendHeader(table.Row{"STEP", "NAME", "STATUS", "ERROR"})
	for _, step := range execution.Steps {
		status := text.FgGreen.Sprint(string(step.Status))
		if step.Status == api.StepFailed {
			status = text.FgRed.Sprint(string(step.Status))
		}
		t.AppendRow(table.Row{step.StepID, step.Name, status, step.Error})
	}
	t.Render()

	switch {
	case execution.Status == api.ExecutionFailed:
		cmd.Println(text.FgRed.Sprintf("Execution %s failed: %s", execution.ExecutionID, execution.Result.Error))
		return fmt.Errorf("workflow %s failed", execution.WorkflowID)
	case execution.Result != nil && execution.Result.Message != "":
		cmd.Println(text.FgGreen.Sprintf("Execution %s completed: %s", execution.ExecutionID, execution.Result.Message))
	default:
		cmd.Println(text.FgGreen.Sprintf("Execution %s completed", execution.ExecutionID))
	}
	return nil
}

func init() {
	workflowCmd.PersistentFlags().BoolVar(&workflowDebug, "debug", false, "Enable debug logging")
	workflowCmd.PersistentFlags().StringVar(&workflowConfigPath, "config-path", "", "Configuration directory (default: ~/.config/infraops)")
	workflowRunCmd.Flags().StringArrayVar(&workflowParams, "param", nil, "Workflow parameter as key=value (repeatable)")
	workflowRunCmd.Flags().BoolVar(&workflowJSON, "json", false, "Print the full execution record as JSON")
	workflowCmd.AddCommand(workflowRunCmd)
	rootCmd.AddCommand(workflowCmd)
}
