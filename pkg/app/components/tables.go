package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/kerbaras/mangadex-dl/pkg/app/styles"
	"github.com/kerbaras/mangadex-dl/pkg/data"
)

// Truncate shortens s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// ResultsTable renders search results with the ids to pass to --id.
func ResultsTable(results []data.Title) string {
	headerStyle := lipgloss.NewStyle().Foreground(styles.Secondary).Bold(true).Align(lipgloss.Center)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := ltable.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("#", "Name", "ID")

	for i, title := range results {
		t.Row(fmt.Sprintf("%d", i+1), Truncate(title.Name, 58), title.ID)
	}
	return t.String()
}

// RunsTable renders ledger runs, most recent first.
func RunsTable(runs []*data.RunSummary) table.Model {
	columns := []table.Column{
		{Title: "Started", Width: 19},
		{Title: "Run", Width: 8},
		{Title: "Title", Width: 36},
		{Title: "Pages", Width: 6},
		{Title: "OK", Width: 6},
		{Title: "Skipped", Width: 8},
		{Title: "Failed", Width: 7},
		{Title: "Bytes", Width: 10},
	}

	rows := make([]table.Row, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, table.Row{
			run.StartedAt.Format("2006-01-02 15:04:05"),
			Truncate(run.RunID, 8),
			Truncate(run.TitleID, 36),
			fmt.Sprintf("%d", run.Attempts),
			fmt.Sprintf("%d", run.Succeeded),
			fmt.Sprintf("%d", run.Skipped),
			fmt.Sprintf("%d", run.Failed),
			fmt.Sprintf("%d", run.Bytes),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1),
	)

	s := table.DefaultStyles()
	s.Header = styles.HeaderStyle
	s.Selected = s.Cell
	t.SetStyles(s)
	return t
}
