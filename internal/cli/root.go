// Package cli wires the flowmaestro command tree: workflow execution,
// execution tracking, batch processing, semantic search, agent chat, and
// the webhook receiver.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nbaghiro/flowmaestro/internal/api"
	"github.com/nbaghiro/flowmaestro/internal/config"
	"github.com/nbaghiro/flowmaestro/internal/logging"
)

// App holds the state shared by all commands: effective configuration and
// the root logger. It is populated by the root command's PersistentPreRunE
// and injected into subcommands for testability.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	// newClient builds the API client; tests replace it with a stub
	// pointed at a local server.
	newClient func() (*api.Client, error)
}

// Client returns a configured API client, validating credentials first.
func (a *App) Client() (*api.Client, error) {
	if a.newClient != nil {
		return a.newClient()
	}
	if err := a.Config.Validate(); err != nil {
		return nil, err
	}
	return api.New(api.Config{
		APIKey:    a.Config.APIKey,
		BaseURL:   a.Config.BaseURL,
		Timeout:   a.Config.Client.Timeout,
		RateLimit: a.Config.Client.RateLimit,
		Burst:     a.Config.Client.Burst,
		Logger:    a.Logger,
	})
}

// NewRootCmd creates the root cobra command for the flowmaestro CLI.
func NewRootCmd(ver string) *cobra.Command {
	app := &App{}
	return newRootCmdWithApp(ver, app, nil)
}

// newRootCmdWithApp builds the command tree around app. loadConfig
// overrides config loading for tests; nil uses config.Load.
func newRootCmdWithApp(ver string, app *App, loadConfig func(path string) (*config.Config, error)) *cobra.Command {
	if loadConfig == nil {
		loadConfig = config.Load
	}

	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:           "flowmaestro",
		Short:         "FlowMaestro workflow automation CLI",
		Long:          "flowmaestro executes workflows, tracks executions, batch-processes items, searches knowledge bases, chats with agents, and receives webhooks.",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if debug {
				cfg.Logging.Level = "debug"
				cfg.Logging.Format = "console"
			}

			app.Config = cfg
			app.Logger = logging.ComponentLogger(logging.New(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cmd.ErrOrStderr(),
			}), "cli")

			cmd.SetContext(logging.WithContext(cmd.Context(), app.Logger))
			app.Logger.Debug().Str("command", cmd.Name()).Msg("command started")
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.flowmaestro/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newWorkflowCmd(app),
		newExecutionCmd(app),
		newBatchCmd(app),
		newSearchCmd(app),
		newChatCmd(app),
		newWebhookCmd(app),
		newPingCmd(app),
	)
	return cmd
}

const rootCmdExample = `  # List workflows
  flowmaestro workflow list

  # Execute a workflow and stream its progress
  flowmaestro workflow run wf_abc123 --input name=John --input email=john@example.com

  # Check an execution
  flowmaestro execution status exec_xyz789

  # Batch-process items through a workflow
  flowmaestro batch run wf_abc123 --input items.json --concurrency 5

  # Search a knowledge base interactively
  flowmaestro search --kb kb_docs

  # Chat with an agent
  flowmaestro chat agent_support

  # Receive webhooks locally
  flowmaestro webhook listen --port 3456 --secret $WEBHOOK_SECRET`

// newPingCmd reports API health and client/server version compatibility.
func newPingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check API connectivity and version compatibility",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			health, err := client.Ping(cmd.Context())
			if health != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Status:      %s\n", formatStatus(health.Status))
				fmt.Fprintf(cmd.OutOrStdout(), "API version: %s\n", health.APIVersion)
				fmt.Fprintf(cmd.OutOrStdout(), "Client:      %s\n", api.Version)
			}
			return err
		},
	}
}
