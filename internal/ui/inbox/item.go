package inbox

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempinbox/internal/theme"
	"github.com/nhle/tempinbox/internal/view"
)

// MessageItem wraps a projected inbox row so it can be used in a
// bubbles/list.
type MessageItem struct {
	Row view.ListItem
}

// FilterValue returns the string used for fuzzy filtering.
func (i MessageItem) FilterValue() string { return i.Row.Subject + " " + i.Row.From }

// Title returns the subject line.
func (i MessageItem) Title() string { return i.Row.Subject }

// Description returns the sender and age.
func (i MessageItem) Description() string {
	return i.Row.From + " | " + i.Row.Received
}

// ItemDelegate implements list.ItemDelegate for inbox rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single inbox row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	mi, ok := item.(MessageItem)
	if !ok {
		return
	}
	row := mi.Row

	from := lipgloss.NewStyle().
		Width(28).
		MaxWidth(28).
		Foreground(theme.ColorBlue).
		Render(truncate(row.From, 27))

	clip := ""
	if row.Attachments > 0 {
		clip = lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Render(fmt.Sprintf(" +%d", row.Attachments))
	}

	age := theme.DimmedStyle.Render(row.Received)

	line := fmt.Sprintf("%s %s%s  %s", from, row.Subject, clip, age)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
