package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/kerbaras/mangadex-dl/pkg/app/styles"
	"github.com/kerbaras/mangadex-dl/pkg/services"
)

// maxFinished bounds how many finished chapters stay on screen.
const maxFinished = 5

type ChapterLine struct {
	ID     string
	Title  string
	Status string
	Err    error
}

// ProgressTracker folds the downloader's progress events into what the
// download screen shows: the chapter counter, a page bar and the most
// recently finished chapters.
type ProgressTracker struct {
	TitleName string

	chapterID    string
	chapterTitle string
	chapterIndex int
	chapterCount int
	page         int
	pages        int
	status       string

	finished []ChapterLine
	done     bool

	bar   progress.Model
	width int
}

func NewProgressTracker(width int) *ProgressTracker {
	return &ProgressTracker{
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth(width))),
		width: width,
	}
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
	p.bar.Width = barWidth(width)
}

func barWidth(width int) int {
	if width <= 8 {
		return 4
	}
	return width - 4
}

func (p *ProgressTracker) Update(ev services.DownloadProgress) {
	if ev.TitleName != "" {
		p.TitleName = ev.TitleName
	}

	switch ev.Status {
	case "resolving":
		p.chapterID = ev.ChapterID
		p.chapterTitle = ev.ChapterTitle
		p.chapterIndex = ev.ChapterIndex
		p.chapterCount = ev.ChapterCount
		p.page, p.pages = 0, 0
	case "downloading", "skipped", "retrying":
		p.page, p.pages = ev.CurrentPage, ev.TotalPages
	case "complete":
		p.page, p.pages = ev.TotalPages, ev.TotalPages
		p.finish(ChapterLine{ID: ev.ChapterID, Title: ev.ChapterTitle, Status: ev.Status})
	case "error":
		p.finish(ChapterLine{ID: ev.ChapterID, Title: ev.ChapterTitle, Status: ev.Status, Err: ev.Error})
	case "done":
		p.chapterCount = ev.ChapterCount
		p.done = true
	}
	p.status = ev.Status
}

func (p *ProgressTracker) finish(line ChapterLine) {
	p.finished = append(p.finished, line)
	if len(p.finished) > maxFinished {
		p.finished = p.finished[len(p.finished)-maxFinished:]
	}
}

func (p *ProgressTracker) Done() bool {
	return p.done
}

func (p *ProgressTracker) Finished() []ChapterLine {
	return p.finished
}

// Counter is the "i of N" line of the chapter in flight.
func (p *ProgressTracker) Counter() string {
	if p.chapterCount == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d chapters", p.chapterIndex, p.chapterCount)
}

// Percent is the page progress of the chapter in flight.
func (p *ProgressTracker) Percent() float64 {
	if p.pages == 0 {
		return 0
	}
	return float64(p.page) / float64(p.pages)
}

func (p *ProgressTracker) View() string {
	var b strings.Builder

	if p.TitleName != "" {
		b.WriteString(styles.TitleStyle.Render(p.TitleName))
		b.WriteString("\n")
	}

	if p.done {
		b.WriteString(styles.StatusCompleted.Render(fmt.Sprintf("Finished %d chapters", p.chapterCount)))
		b.WriteString("\n")
	} else if counter := p.Counter(); counter != "" {
		name := p.chapterTitle
		if name == "" {
			name = p.chapterID
		}
		b.WriteString(styles.TextStyle.Render(fmt.Sprintf("%s: %s", counter, name)))
		b.WriteString("\n")

		if p.pages > 0 {
			b.WriteString(p.bar.ViewAs(p.Percent()))
			b.WriteString("\n")
		}
		status := p.status
		if p.pages > 0 {
			status = fmt.Sprintf("%s (%d/%d pages)", p.status, p.page, p.pages)
		}
		b.WriteString(styles.StatusStyle(p.status).Render(status))
		b.WriteString("\n")
	}

	if len(p.finished) > 0 {
		b.WriteString("\n")
	}
	for _, line := range p.finished {
		text := fmt.Sprintf("%s %s", line.Status, line.ID)
		if line.Title != "" {
			text = fmt.Sprintf("%s %s (%s)", line.Status, line.Title, line.ID)
		}
		if line.Err != nil {
			text = fmt.Sprintf("%s: %s", text, line.Err)
		}
		b.WriteString(styles.StatusStyle(line.Status).Render(text))
		b.WriteString("\n")
	}

	return b.String()
}
