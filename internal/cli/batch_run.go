package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nbaghiro/flowmaestro/internal/api"
	"github.com/nbaghiro/flowmaestro/internal/engine/batch"
	"github.com/nbaghiro/flowmaestro/internal/tui"
)

// batchFlags holds the batch run command's flag values. Zero values defer
// to the batch section of the config file.
type batchFlags struct {
	inputPath   string
	concurrency int
	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
	jitter      bool
	itemTimeout time.Duration
	plain       bool
}

// newBatchCmd groups batch processing commands.
func newBatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Batch processing commands",
	}
	cmd.AddCommand(newBatchRunCmd(app))
	return cmd
}

func newBatchRunCmd(app *App) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "run <workflow-id>",
		Short: "Execute a workflow once per item in an input file",
		Long: `Reads a JSON array of input objects and executes the workflow for each,
keeping a bounded number of executions in flight. Rate-limited items are
retried with exponential backoff; other failures are reported per item
without aborting the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			return runBatch(cmd, app, client, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.inputPath, "input", "", "path to JSON array of workflow inputs (required)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "max concurrent executions (default from config)")
	cmd.Flags().IntVar(&flags.maxRetries, "max-retries", -1, "max retries per rate-limited item (default from config)")
	cmd.Flags().DurationVar(&flags.baseDelay, "base-delay", 0, "backoff delay before the first retry (default from config)")
	cmd.Flags().DurationVar(&flags.maxDelay, "max-delay", 0, "backoff delay cap, 0 = uncapped")
	cmd.Flags().BoolVar(&flags.jitter, "jitter", false, "randomize backoff delays")
	cmd.Flags().DurationVar(&flags.itemTimeout, "item-timeout", time.Minute, "completion wait timeout per item")
	cmd.Flags().BoolVar(&flags.plain, "plain", false, "disable the progress UI, print plain progress lines")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// runBatch loads the input items and drives the orchestrator, rendering
// progress either through the TUI or as plain lines.
func runBatch(cmd *cobra.Command, app *App, client *api.Client, workflowID string, flags batchFlags) error {
	payloads, err := loadPayloads(flags.inputPath)
	if err != nil {
		return err
	}

	opts := batchOptions(app, flags)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processing %s items with concurrency %d\n\n",
		countPrinter.Sprintf("%d", len(payloads)), opts.Concurrency)

	work := executeWorkflowUnit(client, workflowID, app, flags.itemTimeout)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	start := time.Now()
	var items []batch.WorkItem
	var runErr error

	if flags.plain || !tui.IsTTY() {
		opts.OnProgress = plainProgress(out)
		items, runErr = batch.Run(ctx, payloads, work, opts)
		fmt.Fprintln(out)
	} else {
		items, runErr = runBatchWithTUI(ctx, cancel, payloads, work, opts)
	}
	if items == nil {
		return runErr
	}

	summary := batch.Summarize(items, time.Since(start))
	printSummary(out, summary)

	switch {
	case runErr != nil && summary.Pending > 0:
		return fmt.Errorf("batch cancelled with %d items unprocessed", summary.Pending)
	case summary.Failed > 0:
		return fmt.Errorf("%d of %d items failed", summary.Failed, summary.Total)
	}
	return runErr
}

// runBatchWithTUI runs the orchestrator in the background and blocks on
// the progress view until the run drains.
func runBatchWithTUI(
	ctx context.Context,
	cancel context.CancelFunc,
	payloads []batch.Payload,
	work batch.UnitOfWork,
	opts batch.Options,
) ([]batch.WorkItem, error) {
	updates := make(chan batch.Snapshot, len(payloads))
	opts.OnProgress = func(s batch.Snapshot) {
		// Never block the orchestrator on a slow or stopped display.
		select {
		case updates <- s:
		default:
		}
	}

	type runResult struct {
		items []batch.WorkItem
		err   error
	}
	done := make(chan runResult, 1)
	go func() {
		items, err := batch.Run(ctx, payloads, work, opts)
		close(updates)
		done <- runResult{items, err}
	}()

	title := fmt.Sprintf("Batch: %d items", len(payloads))
	program := tea.NewProgram(tui.NewBatchModel(title, updates, cancel))
	if _, err := program.Run(); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("progress display failed: %w", err)
	}

	result := <-done
	return result.items, result.err
}

// batchOptions merges config defaults with explicit flag overrides.
func batchOptions(app *App, flags batchFlags) batch.Options {
	cfg := app.Config.Batch
	opts := batch.Options{
		Concurrency: cfg.Concurrency,
		MaxRetries:  cfg.MaxRetries,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		Jitter:      cfg.Jitter,
	}
	if flags.concurrency > 0 {
		opts.Concurrency = flags.concurrency
	}
	if flags.maxRetries >= 0 {
		opts.MaxRetries = flags.maxRetries
	}
	if flags.baseDelay > 0 {
		opts.BaseDelay = flags.baseDelay
	}
	if flags.maxDelay > 0 {
		opts.MaxDelay = flags.maxDelay
	}
	if flags.jitter {
		opts.Jitter = true
	}
	return opts
}

// executeWorkflowUnit builds the unit of work: start an execution for the
// payload and wait for it to finish. A failed execution is a terminal item
// failure; rate limiting surfaces as a transient APIError and is retried
// by the orchestrator.
func executeWorkflowUnit(client *api.Client, workflowID string, app *App, itemTimeout time.Duration) batch.UnitOfWork {
	pollInterval := app.Config.Client.PollInterval

	return func(ctx context.Context, payload batch.Payload) (map[string]any, error) {
		ref, err := client.Workflows.Execute(ctx, workflowID, payload)
		if err != nil {
			return nil, err
		}

		execution, err := client.Executions.WaitForCompletion(ctx, ref.ExecutionID, pollInterval, itemTimeout)
		if err != nil {
			return nil, err
		}

		switch execution.Status {
		case api.StatusCompleted:
			return execution.Outputs, nil
		case api.StatusCancelled:
			return nil, fmt.Errorf("execution %s was cancelled", execution.ID)
		default:
			if execution.Error != "" {
				return nil, fmt.Errorf("execution %s failed: %s", execution.ID, execution.Error)
			}
			return nil, fmt.Errorf("execution %s failed", execution.ID)
		}
	}
}

// plainProgress writes a single self-overwriting progress line, matching
// non-interactive environments like CI logs.
func plainProgress(out io.Writer) func(batch.Snapshot) {
	return func(s batch.Snapshot) {
		fmt.Fprintf(out, "\rProgress: %d/%d | Running: %d | Pending: %d | Elapsed: %.1fs   ",
			s.Terminal(), s.Total, s.Running, s.Pending, s.Elapsed.Seconds())
	}
}

// printSummary renders the final batch report.
func printSummary(out io.Writer, summary batch.Summary) {
	fmt.Fprintf(out, "\n%s\n\n", headingStyle.Render("Batch Summary"))
	fmt.Fprintf(out, "Total items:  %s\n", countPrinter.Sprintf("%d", summary.Total))
	fmt.Fprintf(out, "Completed:    %s\n", successStyle.Render(countPrinter.Sprintf("%d", summary.Completed)))
	fmt.Fprintf(out, "Failed:       %s\n", errorStyle.Render(countPrinter.Sprintf("%d", summary.Failed)))
	if summary.Pending > 0 {
		fmt.Fprintf(out, "Pending:      %s\n", warnStyle.Render(countPrinter.Sprintf("%d", summary.Pending)))
	}
	fmt.Fprintf(out, "Success rate: %.1f%%\n", summary.SuccessRate)
	fmt.Fprintf(out, "Duration:     %.1fs\n", summary.Duration.Seconds())

	if len(summary.FailedItems) > 0 {
		fmt.Fprintf(out, "\n%s\n", errorStyle.Render("Failed items:"))
		for _, item := range summary.FailedItems {
			fmt.Fprintf(out, "  - Item %d: %s\n", item.Index, item.Err)
		}
	}
}

// loadPayloads reads a JSON array of objects from path.
func loadPayloads(path string) ([]batch.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}

	var payloads []batch.Payload
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("parse input file %s: expected a JSON array of objects: %w", path, err)
	}
	if len(payloads) == 0 {
		return nil, fmt.Errorf("input file %s contains no items", path)
	}
	return payloads, nil
}
