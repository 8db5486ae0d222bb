package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempinbox/internal/keys"
	"github.com/nhle/tempinbox/internal/theme"
)

// Commands lists the palette commands shown under the key table.
var Commands = []string{
	"new [ttl]        create a mailbox, e.g. new 6h",
	"refresh          check for mail now",
	"reset            discard the current mailbox",
	"history          show recent mailboxes",
	"notifications    list unread notifications",
	"read             mark notifications as read",
	"token <value>    store the backend API token (clear removes it)",
	"imap <password>  store the archive password (clear removes it)",
	"quit             exit",
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	info   []string
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	sections := []string{
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		titleStyle.Render("Commands"),
		theme.HelpStyle.Render(strings.Join(Commands, "\n")),
	}

	if len(m.info) > 0 {
		sections = append(sections,
			"",
			titleStyle.Render("Session"),
			theme.DimmedStyle.Render(strings.Join(m.info, "\n")),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetInfo replaces the runtime details shown below the key table.
func (m *Model) SetInfo(lines []string) {
	m.info = lines
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
