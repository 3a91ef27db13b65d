// Package tui provides the terminal user interface for cpdbkit.
// It is only engaged when stdout is a terminal; plain output paths
// exist for every operation so piping and CI stay clean.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgressMsg reports bytes written so far. Total is -1 when the server
// did not send a Content-Length.
type ProgressMsg struct {
	Written int64
	Total   int64
}

// DoneMsg signals that the download finished.
type DoneMsg struct {
	Err error
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true)
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

// DownloadModel renders a progress bar for one database download.
type DownloadModel struct {
	version string

	bar     progress.Model
	spin    spinner.Model
	written int64
	total   int64
	done    bool
	err     error
}

// NewDownloadModel creates the model for downloading the given release.
func NewDownloadModel(version string) DownloadModel {
	bar := progress.New(progress.WithDefaultGradient())
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	return DownloadModel{
		version: version,
		bar:     bar,
		spin:    spin,
		total:   -1,
	}
}

// Init starts the spinner tick.
func (m DownloadModel) Init() tea.Cmd {
	return m.spin.Tick
}

// Update handles progress and completion messages.
func (m DownloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.written = msg.Written
		m.total = msg.Total
		if m.total > 0 {
			cmd := m.bar.SetPercent(float64(m.written) / float64(m.total))
			return m, cmd
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.done = true
			m.err = fmt.Errorf("download cancelled")
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		width := msg.Width - 8
		if width > 60 {
			width = 60
		}
		if width > 0 {
			m.bar.Width = width
		}
		return m, nil

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the download state.
func (m DownloadModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Downloading " + m.version))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render("✗ " + m.err.Error()))
	case m.done:
		b.WriteString(dimStyle.Render(fmt.Sprintf("✓ %s downloaded", humanBytes(m.written))))
	case m.total > 0:
		b.WriteString("  " + m.bar.View())
		b.WriteString("\n  " + dimStyle.Render(fmt.Sprintf("%s / %s", humanBytes(m.written), humanBytes(m.total))))
	default:
		// No Content-Length from the server, show a spinner instead
		b.WriteString("  " + m.spin.View() + dimStyle.Render(fmt.Sprintf(" %s", humanBytes(m.written))))
	}
	b.WriteString("\n")

	return b.String()
}

// Err returns the failure that ended the download, if any.
func (m DownloadModel) Err() error {
	return m.err
}

// humanBytes formats a byte count for display.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
