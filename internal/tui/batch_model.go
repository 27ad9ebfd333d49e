package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nbaghiro/flowmaestro/internal/engine/batch"
)

const progressBarWidth = 40

var (
	batchTitleStyle   = lipgloss.NewStyle().Bold(true)
	batchCountsStyle  = lipgloss.NewStyle().Faint(true)
	batchFailedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	batchSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// snapshotMsg carries one progress update into the model.
type snapshotMsg batch.Snapshot

// runDoneMsg signals that the snapshot channel closed, meaning the batch
// run returned.
type runDoneMsg struct{}

// BatchModel renders live batch progress: a bar plus running counters.
// Ctrl+C requests cancellation through the supplied function and keeps the
// view open until the orchestrator drains in-flight work.
type BatchModel struct {
	title     string
	bar       progress.Model
	snapshot  batch.Snapshot
	updates   <-chan batch.Snapshot
	cancel    func()
	cancelled bool
	done      bool
}

// NewBatchModel creates a progress view fed by updates. cancel is invoked
// when the user interrupts the run.
func NewBatchModel(title string, updates <-chan batch.Snapshot, cancel func()) BatchModel {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressBarWidth))
	return BatchModel{
		title:   title,
		bar:     bar,
		updates: updates,
		cancel:  cancel,
	}
}

// Init starts listening for snapshots.
func (m BatchModel) Init() tea.Cmd {
	return m.waitForSnapshot()
}

// waitForSnapshot blocks on the updates channel and converts the next
// value (or channel close) into a message.
func (m BatchModel) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snapshot, ok := <-m.updates
		if !ok {
			return runDoneMsg{}
		}
		return snapshotMsg(snapshot)
	}
}

// Update handles progress updates and user interrupts.
func (m BatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snapshot = batch.Snapshot(msg)
		cmd := m.bar.SetPercent(m.snapshot.PercentComplete() / 100)
		return m, tea.Batch(cmd, m.waitForSnapshot())

	case runDoneMsg:
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.cancelled && m.cancel != nil {
				m.cancel()
			}
			m.cancelled = true
		}
		return m, nil

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// View renders the title, progress bar, and counters.
func (m BatchModel) View() string {
	s := m.snapshot

	header := batchTitleStyle.Render(m.title)
	if m.cancelled {
		header += batchFailedStyle.Render("  (cancelling, draining in-flight items)")
	}

	counts := batchCountsStyle.Render(fmt.Sprintf(
		"%d/%d done  |  %s  %s  running %d  pending %d  |  %.1fs",
		s.Terminal(), s.Total,
		batchSuccessStyle.Render(fmt.Sprintf("completed %d", s.Completed)),
		batchFailedStyle.Render(fmt.Sprintf("failed %d", s.Failed)),
		s.Running, s.Pending,
		s.Elapsed.Seconds(),
	))

	return fmt.Sprintf("%s\n\n%s\n%s\n", header, m.bar.View(), counts)
}

// Done reports whether the run finished (as opposed to the program being
// torn down early).
func (m BatchModel) Done() bool {
	return m.done
}
