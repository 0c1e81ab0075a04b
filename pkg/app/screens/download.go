package screens

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangadex-dl/pkg/app/components"
	"github.com/kerbaras/mangadex-dl/pkg/app/styles"
	"github.com/kerbaras/mangadex-dl/pkg/services"
)

// ProgressMsg carries one downloader event into the program.
type ProgressMsg services.DownloadProgress

// JobDoneMsg is sent once the download job returns.
type JobDoneMsg struct {
	Err error
}

// DownloadScreen shows a running download until the job ends or the user
// quits, which cancels the job.
type DownloadScreen struct {
	tracker *components.ProgressTracker
	spinner spinner.Model
	cancel  context.CancelFunc

	finished bool
	quit     bool
	err      error
}

func NewDownloadScreen(cancel context.CancelFunc) *DownloadScreen {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SpinnerStyle

	return &DownloadScreen{
		tracker: components.NewProgressTracker(80),
		spinner: s,
		cancel:  cancel,
	}
}

func (s *DownloadScreen) Init() tea.Cmd {
	return s.spinner.Tick
}

func (s *DownloadScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.tracker.SetWidth(msg.Width)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			s.quit = true
			if s.cancel != nil {
				s.cancel()
			}
			return s, tea.Quit
		}

	case ProgressMsg:
		s.tracker.Update(services.DownloadProgress(msg))

	case JobDoneMsg:
		s.finished = true
		s.err = msg.Err
		return s, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}

	return s, nil
}

func (s *DownloadScreen) View() string {
	view := s.tracker.View()

	switch {
	case s.err != nil:
		view += "\n" + styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n"
	case s.quit && !s.finished:
		view += "\n" + styles.StatusRetrying.Render("Cancelled") + "\n"
	case !s.finished:
		view = fmt.Sprintf("%s Downloading\n\n%s", s.spinner.View(), view)
		view += styles.HelpStyle.Render("q: cancel") + "\n"
	}
	return view
}

// Err is the job's error, if it finished with one.
func (s *DownloadScreen) Err() error {
	return s.err
}

func (s *DownloadScreen) Finished() bool {
	return s.finished
}
