package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nbaghiro/flowmaestro/internal/api"
)

const defaultTopK = 5

// newSearchCmd provides semantic search over knowledge bases.
func newSearchCmd(app *App) *cobra.Command {
	var kbID string
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search knowledge bases",
		Long: `Runs a semantic search against a knowledge base. With a query argument a
single search is performed; without one an interactive prompt loop starts.
When no knowledge base is given, available bases are listed for selection.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			return runSearch(cmd, client, kbID, topK, args)
		},
	}

	cmd.Flags().StringVar(&kbID, "kb", "", "knowledge base ID (prompted when omitted)")
	cmd.Flags().IntVar(&topK, "top-k", defaultTopK, "number of results per query")
	return cmd
}

func runSearch(cmd *cobra.Command, client *api.Client, kbID string, topK int, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	if kbID == "" {
		selected, err := selectKnowledgeBase(ctx, client, out, in)
		if err != nil {
			return err
		}
		kbID = selected
	}

	if len(args) == 1 {
		return searchOnce(ctx, client, out, kbID, args[0], topK)
	}

	fmt.Fprintln(out, dimStyle.Render("Enter a query, or 'exit' to quit."))
	for {
		fmt.Fprint(out, boldStyle.Render("search> "))
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
		query := strings.TrimSpace(in.Text())
		switch query {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := searchOnce(ctx, client, out, kbID, query, topK); err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
		}
	}
}

// selectKnowledgeBase lists available bases and prompts for a numeric choice.
// A single available base is selected without prompting.
func selectKnowledgeBase(ctx context.Context, client *api.Client, out io.Writer, in *bufio.Scanner) (string, error) {
	bases, err := client.KnowledgeBases.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list knowledge bases: %w", err)
	}
	if len(bases) == 0 {
		return "", fmt.Errorf("no knowledge bases available")
	}
	if len(bases) == 1 {
		fmt.Fprintf(out, "Using knowledge base %s (%s)\n", boldStyle.Render(bases[0].Name), bases[0].ID)
		return bases[0].ID, nil
	}

	fmt.Fprintln(out, headingStyle.Render("Knowledge Bases"))
	for i, kb := range bases {
		fmt.Fprintf(out, "  %d. %s %s\n", i+1, boldStyle.Render(kb.Name),
			dimStyle.Render(countPrinter.Sprintf("(%d documents)", kb.DocumentCount)))
	}

	for {
		fmt.Fprintf(out, "Select a knowledge base [1-%d]: ", len(bases))
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("no selection made")
		}
		choice, err := strconv.Atoi(strings.TrimSpace(in.Text()))
		if err != nil || choice < 1 || choice > len(bases) {
			fmt.Fprintln(out, warnStyle.Render("invalid selection"))
			continue
		}
		return bases[choice-1].ID, nil
	}
}

// searchOnce runs a single query and renders the ranked results.
func searchOnce(ctx context.Context, client *api.Client, out io.Writer, kbID, query string, topK int) error {
	results, err := client.KnowledgeBases.Query(ctx, kbID, query, topK)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(out, dimStyle.Render("No results."))
		return nil
	}

	for i, result := range results {
		fmt.Fprintf(out, "\n%d. %s %.3f\n", i+1, scoreBar(result.Score, 20), result.Score)
		fmt.Fprintf(out, "   %s\n", truncate(result.Content, 200))
		if source := result.Metadata["source"]; source != "" {
			fmt.Fprintf(out, "   %s\n", dimStyle.Render("source: "+source))
		}
	}
	fmt.Fprintln(out)
	return nil
}
