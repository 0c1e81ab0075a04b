package screens

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangadex-dl/pkg/services"
)

func TestDownloadScreenProgress(t *testing.T) {
	screen := NewDownloadScreen(nil)

	screen.Update(ProgressMsg(services.DownloadProgress{
		TitleName:    "Test Manga",
		ChapterID:    "ch-1",
		ChapterTitle: "One",
		ChapterIndex: 1,
		ChapterCount: 2,
		Status:       "resolving",
	}))

	view := screen.View()
	if !strings.Contains(view, "Downloading") {
		t.Error("Expected spinner line while running")
	}
	if !strings.Contains(view, "1 of 2 chapters: One") {
		t.Error("Expected chapter counter in view")
	}
	if !strings.Contains(view, "q: cancel") {
		t.Error("Expected help line while running")
	}
}

func TestDownloadScreenJobDone(t *testing.T) {
	screen := NewDownloadScreen(nil)

	_, cmd := screen.Update(JobDoneMsg{})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if !screen.Finished() || screen.Err() != nil {
		t.Error("Expected finished without error")
	}
}

func TestDownloadScreenJobError(t *testing.T) {
	screen := NewDownloadScreen(nil)

	screen.Update(JobDoneMsg{Err: errors.New("failed to get manga")})

	if screen.Err() == nil {
		t.Fatal("Expected error to be kept")
	}
	if !strings.Contains(screen.View(), "Error: failed to get manga") {
		t.Error("Expected error in view")
	}
}

func TestDownloadScreenQuitCancelsJob(t *testing.T) {
	cancelled := false
	screen := NewDownloadScreen(func() { cancelled = true })

	_, cmd := screen.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled {
		t.Error("Expected quit to cancel the job")
	}
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if !strings.Contains(screen.View(), "Cancelled") {
		t.Error("Expected cancelled notice")
	}
}
