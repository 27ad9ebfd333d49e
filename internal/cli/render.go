package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nbaghiro/flowmaestro/internal/api"
)

// Shared output styles. Faint/red/green/yellow mirror how execution states
// are surfaced everywhere in the CLI.
var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// countPrinter renders grouped integers ("1,234") in summaries.
var countPrinter = message.NewPrinter(language.English)

// formatStatus colors an execution or health status by severity.
func formatStatus(status string) string {
	switch status {
	case api.StatusCompleted, "ok", "ready":
		return successStyle.Render(status)
	case api.StatusFailed:
		return errorStyle.Render(status)
	case api.StatusRunning:
		return infoStyle.Render(status)
	case api.StatusPending:
		return warnStyle.Render(status)
	case api.StatusCancelled:
		return dimStyle.Render(status)
	}
	return status
}

// nowStamp returns the wall-clock time used to prefix stream event lines.
func nowStamp() string {
	return time.Now().Format("15:04:05")
}

// formatTime renders a timestamp for table output.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// scoreBar renders a similarity score in [0,1] as a fixed-width gauge.
func scoreBar(score float64, width int) string {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	filled := int(score * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// truncate shortens s to limit runes, appending an ellipsis when cut.
func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// formatOutputs renders execution outputs one per line, indented.
func formatOutputs(outputs map[string]any, indent string) string {
	if len(outputs) == 0 {
		return indent + dimStyle.Render("(no outputs)")
	}
	var b strings.Builder
	for key, value := range outputs {
		fmt.Fprintf(&b, "%s%s: %v\n", indent, key, value)
	}
	return strings.TrimRight(b.String(), "\n")
}
