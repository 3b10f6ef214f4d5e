package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/theme"
)

// barHeight is the height of the header and of the footer.
const barHeight = 1

// Layout splits the terminal into a header line, the area of the active
// board view and a footer line.
type Layout struct {
	Width  int
	Height int
}

// NewLayout returns the layout for a terminal of the given size.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// BoardSize returns the space left for the active view.
func (l Layout) BoardSize() (width, height int) {
	height = l.Height - 2*barHeight
	if height < 0 {
		height = 0
	}
	return l.Width, height
}

// Header shows the board title on the left and the session and sync
// state on the right.
func (l Layout) Header(title, state string) string {
	return l.bar(theme.HeaderStyle, title, state)
}

// Footer shows the key hints. When alert is set the text is an error or
// a pending confirmation and takes the error style instead.
func (l Layout) Footer(text string, alert bool) string {
	style := theme.StatusBarStyle
	if alert {
		style = theme.ErrorBarStyle
	}
	return l.bar(style, text, "")
}

// bar renders left and right in style and fills the gap between them with
// the style's background, so the bar spans the terminal.
func (l Layout) bar(style lipgloss.Style, left, right string) string {
	parts := []string{style.Render(left)}
	if right != "" {
		parts = append(parts, "", style.Render(right))
	}

	used := 0
	for _, p := range parts {
		used += lipgloss.Width(p)
	}
	gap := l.Width - used
	if gap < 0 {
		gap = 0
	}
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	if right == "" {
		return lipgloss.JoinHorizontal(lipgloss.Top, parts[0], filler)
	}
	parts[1] = filler
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// Compose stacks the header, the board view and the footer.
func (l Layout) Compose(header, body, footer string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
