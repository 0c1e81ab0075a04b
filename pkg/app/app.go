package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangadex-dl/pkg/app/screens"
	"github.com/kerbaras/mangadex-dl/pkg/services"
)

// Job runs a download, reporting every event through onProgress.
type Job func(ctx context.Context, onProgress func(services.DownloadProgress)) error

type App struct {
	job  Job
	opts []tea.ProgramOption
}

func NewApp(job Job, opts ...tea.ProgramOption) *App {
	return &App{job: job, opts: opts}
}

// Run starts the job and renders its progress until it returns. Quitting the
// program cancels the job; Run waits for it to stop either way.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	screen := screens.NewDownloadScreen(cancel)
	p := tea.NewProgram(screen, a.opts...)

	jobErr := make(chan error, 1)
	go func() {
		err := a.job(ctx, func(ev services.DownloadProgress) {
			p.Send(screens.ProgressMsg(ev))
		})
		jobErr <- err
		p.Send(screens.JobDoneMsg{Err: err})
	}()

	_, runErr := p.Run()
	cancel()
	err := <-jobErr

	if runErr != nil {
		return runErr
	}
	return err
}
