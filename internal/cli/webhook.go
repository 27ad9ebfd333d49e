package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nbaghiro/flowmaestro/internal/logging"
	"github.com/nbaghiro/flowmaestro/internal/webhook"
)

const shutdownGracePeriod = 5 * time.Second

// newWebhookCmd groups webhook commands.
func newWebhookCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Webhook commands",
	}
	cmd.AddCommand(newWebhookListenCmd(app))
	return cmd
}

func newWebhookListenCmd(app *App) *cobra.Command {
	var port int
	var secret string
	var strict bool

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Receive and print webhook events",
		Long: `Starts a local HTTP server that receives webhook deliveries and prints
them as they arrive. With a signing secret, delivery signatures are
verified; --strict rejects deliveries that fail verification.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config.Webhook
			if port > 0 {
				cfg.Port = port
			}
			if secret != "" {
				cfg.Secret = secret
			}
			if strict {
				cfg.Strict = true
			}
			return runWebhookListen(cmd, cfg.Port, cfg.Secret, cfg.Strict)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default from config)")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret for delivery verification")
	cmd.Flags().BoolVar(&strict, "strict", false, "reject deliveries with missing or invalid signatures")
	return cmd
}

func runWebhookListen(cmd *cobra.Command, port int, secret string, strict bool) error {
	out := cmd.OutOrStdout()
	logger := logging.FromContext(cmd.Context())

	registry := webhook.NewRegistry()
	registerPrinters(registry, out)

	server := webhook.NewServer(webhook.Config{
		Addr:   fmt.Sprintf(":%d", port),
		Secret: secret,
		Strict: strict,
	}, registry, *logger)

	fmt.Fprintf(out, "Listening for webhooks on %s\n", boldStyle.Render(fmt.Sprintf("http://localhost:%d/webhook", port)))
	if secret == "" {
		fmt.Fprintln(out, warnStyle.Render("No signing secret configured; deliveries will not be verified."))
	} else if strict {
		fmt.Fprintln(out, dimStyle.Render("Strict mode: unsigned deliveries are rejected."))
	}
	fmt.Fprintln(out, dimStyle.Render("Press Ctrl+C to stop."))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server: %w", err)
		}
		return nil
	case <-cmd.Context().Done():
	}

	fmt.Fprintln(out, "\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), shutdownGracePeriod)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// registerPrinters installs handlers that print each delivery type.
func registerPrinters(registry *webhook.Registry, out io.Writer) {
	printExecution := func(ctx context.Context, delivery webhook.Delivery) error {
		var data webhook.ExecutionEventData
		if err := json.Unmarshal(delivery.Data, &data); err != nil {
			return fmt.Errorf("decode %s data: %w", delivery.Event, err)
		}
		line := fmt.Sprintf("%s %s execution %s workflow=%s",
			dimStyle.Render(nowStamp()), formatStatus(eventStatus(delivery.Event)), data.ExecutionID, data.WorkflowID)
		if data.Error != "" {
			line += " " + errorStyle.Render(data.Error)
		}
		fmt.Fprintln(out, line)
		return nil
	}
	registry.On(webhook.EventExecutionStarted, printExecution)
	registry.On(webhook.EventExecutionCompleted, printExecution)
	registry.On(webhook.EventExecutionFailed, printExecution)

	printMessage := func(ctx context.Context, delivery webhook.Delivery) error {
		var data webhook.MessageEventData
		if err := json.Unmarshal(delivery.Data, &data); err != nil {
			return fmt.Errorf("decode %s data: %w", delivery.Event, err)
		}
		fmt.Fprintf(out, "%s message thread=%s message=%s\n",
			dimStyle.Render(nowStamp()), data.ThreadID, data.MessageID)
		return nil
	}
	registry.On(webhook.EventMessageCreated, printMessage)
	registry.On(webhook.EventMessageCompleted, printMessage)

	registry.On(webhook.EventTest, func(ctx context.Context, delivery webhook.Delivery) error {
		fmt.Fprintf(out, "%s %s\n", dimStyle.Render(nowStamp()), successStyle.Render("test delivery received"))
		return nil
	})

	registry.OnUnknown(func(ctx context.Context, delivery webhook.Delivery) error {
		fmt.Fprintf(out, "%s unknown event %s\n", dimStyle.Render(nowStamp()), delivery.Event)
		return nil
	})
}

// eventStatus maps an execution event name to its status word.
func eventStatus(event string) string {
	switch event {
	case webhook.EventExecutionStarted:
		return "running"
	case webhook.EventExecutionCompleted:
		return "completed"
	case webhook.EventExecutionFailed:
		return "failed"
	}
	return event
}
