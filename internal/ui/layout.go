package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempinbox/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the top bar: title on the left, then the mailbox
// address, then the countdown pinned to the right edge.
func (l Layout) RenderHeader(title, address, countdown string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	left := titleRendered
	if address != "" {
		left = lipgloss.JoinHorizontal(
			lipgloss.Top,
			titleRendered,
			theme.HeaderStyle.Bold(false).Render(address),
		)
	}

	right := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(countdown)

	return l.fill(theme.HeaderStyle, left, right)
}

// RenderStatusBar renders the bottom status bar. A non-empty notice
// replaces the keyboard hints.
func (l Layout) RenderStatusBar(hints string, notice string, noticeKind string) string {
	rendered := theme.StatusBarStyle.Render(hints)
	if notice != "" {
		rendered = theme.NoticeStyle(noticeKind).Render(notice)
	}
	return l.fill(theme.StatusBarStyle, rendered, "")
}

// fill pads the gap between left and right with the style's background.
func (l Layout) fill(style lipgloss.Style, left, right string) string {
	gap := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
