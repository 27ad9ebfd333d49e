package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newExecutionCmd groups execution tracking commands: status, cancel.
func newExecutionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Execution commands",
	}
	cmd.AddCommand(newExecutionStatusCmd(app), newExecutionCancelCmd(app))
	return cmd
}

func newExecutionStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <execution-id>",
		Short: "Show execution status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			execution, err := client.Executions.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headingStyle.Render("Execution Status"))
			fmt.Fprintf(out, "ID:        %s\n", execution.ID)
			fmt.Fprintf(out, "Workflow:  %s\n", execution.WorkflowID)
			fmt.Fprintf(out, "Status:    %s\n", formatStatus(execution.Status))
			fmt.Fprintf(out, "Created:   %s\n", formatTime(execution.CreatedAt))
			if execution.StartedAt != nil {
				fmt.Fprintf(out, "Started:   %s\n", formatTime(*execution.StartedAt))
			}
			if execution.CompletedAt != nil {
				fmt.Fprintf(out, "Completed: %s\n", formatTime(*execution.CompletedAt))
			}

			if len(execution.Inputs) > 0 {
				fmt.Fprintf(out, "\n%s\n", dimStyle.Render("Inputs:"))
				fmt.Fprintln(out, formatOutputs(execution.Inputs, "  "))
			}
			if len(execution.Outputs) > 0 {
				fmt.Fprintf(out, "\n%s\n", dimStyle.Render("Outputs:"))
				fmt.Fprintln(out, formatOutputs(execution.Outputs, "  "))
			}
			if execution.Error != "" {
				fmt.Fprintf(out, "\n%s %s\n", errorStyle.Render("Error:"), execution.Error)
			}
			return nil
		},
	}
}

func newExecutionCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <execution-id>",
		Short: "Cancel a running execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cancelling execution %s...\n", args[0])
			execution, err := client.Executions.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", formatStatus(execution.Status))
			return nil
		},
	}
}
