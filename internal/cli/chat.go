package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nbaghiro/flowmaestro/internal/api"
)

// newChatCmd starts an interactive conversation with an agent.
func newChatCmd(app *App) *cobra.Command {
	var keepThread bool

	cmd := &cobra.Command{
		Use:   "chat <agent-id>",
		Short: "Chat with an agent",
		Long: `Opens a conversation thread with an agent and exchanges messages
interactively. The thread is deleted on exit unless --keep-thread is set.

Commands inside the session:
  /history   reprint the full conversation
  /exit      end the session`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			return runChat(cmd, client, args[0], keepThread)
		},
	}

	cmd.Flags().BoolVar(&keepThread, "keep-thread", false, "keep the conversation thread after exiting")
	return cmd
}

func runChat(cmd *cobra.Command, client *api.Client, agentID string, keepThread bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	agent, err := client.Agents.Get(ctx, agentID)
	if err != nil {
		return fmt.Errorf("fetch agent: %w", err)
	}

	thread, err := client.Agents.CreateThread(ctx, agentID, map[string]string{"source": "cli"})
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	if !keepThread {
		defer func() {
			// Best effort; the context may already be cancelled.
			if err := client.Threads.Delete(context.WithoutCancel(ctx), thread.ID); err != nil {
				fmt.Fprintln(out, dimStyle.Render("could not delete thread: "+err.Error()))
			}
		}()
	}

	fmt.Fprintf(out, "%s %s\n", headingStyle.Render("Chatting with"), boldStyle.Render(agent.Name))
	if agent.Description != "" {
		fmt.Fprintln(out, dimStyle.Render(agent.Description))
	}
	fmt.Fprintln(out, dimStyle.Render("Type /exit to quit, /history to reprint the conversation."))
	fmt.Fprintln(out)

	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, boldStyle.Render("you> "))
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/history":
			if err := printHistory(ctx, client, out, thread.ID); err != nil {
				fmt.Fprintln(out, errorStyle.Render(err.Error()))
			}
			continue
		}

		if err := exchangeMessage(ctx, client, out, thread.ID, line); err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
		}
	}
}

// exchangeMessage sends content and prints any agent replies that arrived
// after it.
func exchangeMessage(ctx context.Context, client *api.Client, out io.Writer, threadID, content string) error {
	ack, err := client.Threads.SendMessage(ctx, threadID, content)
	if err != nil {
		return err
	}

	messages, err := client.Threads.ListMessages(ctx, threadID)
	if err != nil {
		return err
	}

	// Replies follow the acknowledged user message in thread order.
	replying := false
	for _, msg := range messages {
		if msg.ID == ack.MessageID {
			replying = true
			continue
		}
		if replying && msg.Role == "assistant" {
			fmt.Fprintf(out, "%s %s\n", infoStyle.Render("agent>"), msg.Content)
		}
	}
	return nil
}

func printHistory(ctx context.Context, client *api.Client, out io.Writer, threadID string) error {
	messages, err := client.Threads.ListMessages(ctx, threadID)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Fprintln(out, dimStyle.Render("No messages yet."))
		return nil
	}

	fmt.Fprintln(out, headingStyle.Render("History"))
	for _, msg := range messages {
		label := boldStyle.Render("you>")
		if msg.Role == "assistant" {
			label = infoStyle.Render("agent>")
		}
		fmt.Fprintf(out, "%s %s %s\n", dimStyle.Render(formatTime(msg.CreatedAt)), label, msg.Content)
	}
	return nil
}
