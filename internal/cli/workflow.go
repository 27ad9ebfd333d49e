package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nbaghiro/flowmaestro/internal/api"
)

// newWorkflowCmd groups workflow operations: list, get, run.
func newWorkflowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Workflow commands",
	}
	cmd.AddCommand(newWorkflowListCmd(app), newWorkflowGetCmd(app), newWorkflowRunCmd(app))
	return cmd
}

func newWorkflowListCmd(app *App) *cobra.Command {
	var page, perPage int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			workflows, pagination, err := client.Workflows.List(cmd.Context(), api.ListOptions{
				Page:    page,
				PerPage: perPage,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headingStyle.Render("Workflows"))
			if len(workflows) == 0 {
				fmt.Fprintln(out, "No workflows found.")
				return nil
			}

			for _, wf := range workflows {
				fmt.Fprintf(out, "\n%s %s\n", boldStyle.Render(wf.Name), dimStyle.Render("("+wf.ID+")"))
				if wf.Description != "" {
					fmt.Fprintf(out, "  %s\n", wf.Description)
				}
				fmt.Fprintf(out, "  Version: %d | Updated: %s\n", wf.Version, formatTime(wf.UpdatedAt))
			}
			if pagination != nil {
				fmt.Fprintf(out, "\nTotal: %s workflows (page %d/%d)\n",
					countPrinter.Sprintf("%d", pagination.TotalCount), pagination.Page, pagination.TotalPages)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 50, "results per page")
	return cmd
}

func newWorkflowGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <workflow-id>",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			wf, err := client.Workflows.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headingStyle.Render("Workflow Details"))
			fmt.Fprintf(out, "Name:        %s\n", boldStyle.Render(wf.Name))
			fmt.Fprintf(out, "ID:          %s\n", wf.ID)
			fmt.Fprintf(out, "Version:     %d\n", wf.Version)
			if wf.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", wf.Description)
			}
			fmt.Fprintf(out, "Created:     %s\n", formatTime(wf.CreatedAt))
			fmt.Fprintf(out, "Updated:     %s\n", formatTime(wf.UpdatedAt))

			if len(wf.Inputs) > 0 {
				fmt.Fprintf(out, "\n%s\n", headingStyle.Render("Inputs"))
				for key, input := range wf.Inputs {
					marker := ""
					if input.Required {
						marker = errorStyle.Render("*")
					}
					fmt.Fprintf(out, "  %s%s: %s\n", key, marker, input.Type)
					if input.Description != "" {
						fmt.Fprintf(out, "    %s\n", dimStyle.Render(input.Description))
					}
				}
				fmt.Fprintf(out, "\n  %s = required\n", errorStyle.Render("*"))
			}
			return nil
		},
	}
}

func newWorkflowRunCmd(app *App) *cobra.Command {
	var inputs []string

	cmd := &cobra.Command{
		Use:   "run <workflow-id>",
		Short: "Execute a workflow and stream its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			return runWorkflow(cmd, client, args[0], inputs)
		},
	}

	cmd.Flags().StringArrayVar(&inputs, "input", nil,
		"workflow input key=value; JSON values are parsed (repeatable)")
	return cmd
}

// runWorkflow starts an execution, follows its event stream, and prints
// the final result.
func runWorkflow(cmd *cobra.Command, client *api.Client, workflowID string, rawInputs []string) error {
	inputs, err := parseInputs(rawInputs)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	ref, err := client.Workflows.Execute(ctx, workflowID, inputs)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Execution ID: %s\n\n", ref.ExecutionID)
	fmt.Fprintln(out, headingStyle.Render("Progress"))

	events, err := client.Executions.Stream(ctx, ref.ExecutionID)
	if err != nil {
		return err
	}
	for event := range events {
		printEvent(out, event)
	}

	execution, err := client.Executions.Get(ctx, ref.ExecutionID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s\n", headingStyle.Render("Result"))
	fmt.Fprintf(out, "  Status: %s\n", formatStatus(execution.Status))
	if len(execution.Outputs) > 0 {
		fmt.Fprintln(out, "  Outputs:")
		fmt.Fprintln(out, formatOutputs(execution.Outputs, "    "))
	}
	if execution.Error != "" {
		fmt.Fprintf(out, "  %s %s\n", errorStyle.Render("Error:"), execution.Error)
	}
	if execution.Status == api.StatusFailed {
		return fmt.Errorf("execution %s failed", execution.ID)
	}
	return nil
}

// printEvent renders one stream event as a timestamped progress line.
func printEvent(out io.Writer, event api.Event) {
	stamp := dimStyle.Render(nowStamp())
	switch event.Type {
	case api.EventConnected:
		fmt.Fprintf(out, "  %s connected to event stream\n", stamp)
	case api.EventExecutionStarted:
		fmt.Fprintf(out, "  %s %s\n", stamp, successStyle.Render("started"))
	case api.EventExecutionProgress:
		fmt.Fprintf(out, "  %s progress: %d%%\n", stamp, event.Progress)
	case api.EventNodeStarted:
		fmt.Fprintf(out, "  %s running: %s (%s)\n", stamp, event.NodeID, event.NodeType)
	case api.EventNodeCompleted:
		fmt.Fprintf(out, "  %s %s: %s\n", stamp, successStyle.Render("done"), event.NodeID)
	case api.EventNodeFailed:
		fmt.Fprintf(out, "  %s %s: %s - %s\n", stamp, errorStyle.Render("failed"), event.NodeID, event.Error)
	case api.EventExecutionCompleted:
		fmt.Fprintf(out, "  %s %s\n", stamp, successStyle.Render("completed!"))
	case api.EventExecutionFailed:
		fmt.Fprintf(out, "  %s %s %s\n", stamp, errorStyle.Render("failed!"), event.Error)
	case api.EventExecutionCancelled:
		fmt.Fprintf(out, "  %s %s\n", stamp, dimStyle.Render("cancelled"))
	default:
		fmt.Fprintf(out, "  %s %s\n", stamp, event.Type)
	}
}

// parseInputs converts key=value flags to workflow inputs. Values that
// parse as JSON keep their structure; everything else stays a string.
func parseInputs(raw []string) (map[string]any, error) {
	inputs := make(map[string]any, len(raw))
	for _, pair := range raw {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid input %q, expected key=value", pair)
		}

		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			inputs[key] = parsed
		} else {
			inputs[key] = value
		}
	}
	return inputs, nil
}
