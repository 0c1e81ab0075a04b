package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Color palette
	Primary    = lipgloss.Color("#FF6B9D")
	Secondary  = lipgloss.Color("#C792EA")
	Success    = lipgloss.Color("#C3E88D")
	Warning    = lipgloss.Color("#FFCB6B")
	Error      = lipgloss.Color("#F07178")
	Info       = lipgloss.Color("#82AAFF")
	Muted      = lipgloss.Color("#546E7A")
	Foreground = lipgloss.Color("#EEFFFF")

	RoundedBorder = lipgloss.RoundedBorder()
)

// Base styles
var (
	// Title style for headings
	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Italic(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(Foreground)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	// Card style for search results
	CardStyle = lipgloss.NewStyle().
			Border(RoundedBorder).
			BorderForeground(Secondary).
			Padding(0, 1)

	// Status styles
	StatusDownloading = lipgloss.NewStyle().
				Foreground(Info).
				Bold(true)

	StatusRetrying = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	StatusCompleted = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	StatusError = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)

	// Table header and selected row
	HeaderStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(Muted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true).
			MarginTop(1)
)

// StatusStyle picks the style for a download progress status.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "resolving", "downloading":
		return StatusDownloading
	case "retrying", "skipped":
		return StatusRetrying
	case "complete", "done":
		return StatusCompleted
	case "error":
		return StatusError
	default:
		return MutedStyle
	}
}
