package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestDownloadModelProgress(t *testing.T) {
	m := NewDownloadModel("v5.0.0")

	updated, _ := m.Update(ProgressMsg{Written: 512, Total: 1024})
	m = updated.(DownloadModel)

	view := m.View()
	if !strings.Contains(view, "v5.0.0") {
		t.Errorf("view missing version: %q", view)
	}
	if !strings.Contains(view, "512 B / 1.0 KiB") {
		t.Errorf("view missing byte counts: %q", view)
	}
}

func TestDownloadModelUnknownTotal(t *testing.T) {
	m := NewDownloadModel("v5.0.0")

	updated, _ := m.Update(ProgressMsg{Written: 2048, Total: -1})
	m = updated.(DownloadModel)

	if !strings.Contains(m.View(), "2.0 KiB") {
		t.Errorf("view = %q", m.View())
	}
}

func TestDownloadModelDone(t *testing.T) {
	m := NewDownloadModel("v5.0.0")

	updated, cmd := m.Update(DoneMsg{})
	m = updated.(DownloadModel)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if m.Err() != nil {
		t.Errorf("unexpected error: %v", m.Err())
	}

	updated, _ = m.Update(DoneMsg{Err: errors.New("network down")})
	m = updated.(DownloadModel)
	if m.Err() == nil {
		t.Error("expected error to be recorded")
	}
	if !strings.Contains(m.View(), "network down") {
		t.Errorf("view missing error: %q", m.View())
	}
}

func TestDownloadModelCtrlC(t *testing.T) {
	m := NewDownloadModel("v5.0.0")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(DownloadModel)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if m.Err() == nil {
		t.Error("ctrl-c should record cancellation")
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.n); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
