package inbox

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempinbox/internal/keys"
	"github.com/nhle/tempinbox/internal/theme"
	"github.com/nhle/tempinbox/internal/view"
)

// SelectedMsg is sent when a user opens a message.
type SelectedMsg struct {
	EmailID string
}

// Model is the inbox list view. It renders whatever view.ViewModel it was
// last given and never owns session state.
type Model struct {
	list    list.Model
	spinner spinner.Model
	keys    *keys.KeyMap
	vm      view.ViewModel
	width   int
	height  int
}

// New creates a new inbox model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-3)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		list:    l,
		spinner: sp,
		keys:    k,
		width:   width,
		height:  height,
	}
}

// Init starts the loading spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetViewModel replaces the projected state, keeping the cursor on the same
// message when it is still listed.
func (m *Model) SetViewModel(vm view.ViewModel) tea.Cmd {
	selected := m.SelectedID()
	m.vm = vm

	items := make([]list.Item, len(vm.Items))
	cursor := 0
	for i, row := range vm.Items {
		items[i] = MessageItem{Row: row}
		if row.ID == selected {
			cursor = i
		}
	}
	cmd := m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(cursor)
	}
	return cmd
}

// SelectedID returns the id of the highlighted message, or empty.
func (m Model) SelectedID() string {
	item, ok := m.list.SelectedItem().(MessageItem)
	if !ok {
		return ""
	}
	return item.Row.ID
}

// Update handles messages for the inbox view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.vm.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Select) {
			id := m.SelectedID()
			if id == "" {
				return m, nil
			}
			return m, func() tea.Msg { return SelectedMsg{EmailID: id} }
		}
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the inbox view.
func (m Model) View() string {
	switch {
	case m.vm.Loading:
		return m.centered(m.spinner.View() + " Creating your mailbox...")
	case m.vm.ShowCreate:
		return m.renderWelcome()
	case !m.vm.ShowInbox:
		return m.centered(m.vm.Notice)
	}

	banner := m.renderBanner()
	if m.vm.Empty {
		body := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height-lipgloss.Height(banner)).
			Align(lipgloss.Center, lipgloss.Center).
			Render(lipgloss.JoinVertical(lipgloss.Center,
				lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(m.vm.EmptyText),
				theme.DimmedStyle.Render(m.vm.EmptyHint),
			))
		return lipgloss.JoinVertical(lipgloss.Left, banner, body)
	}

	return lipgloss.JoinVertical(lipgloss.Left, banner, m.list.View())
}

func (m Model) renderBanner() string {
	addr := theme.AddressStyle.Render(m.vm.Address)
	count := theme.DimmedStyle.Render("  " + m.vm.CountLabel + " messages")
	return lipgloss.NewStyle().
		Padding(0, 1).
		MarginBottom(1).
		Render(addr + count)
}

// renderWelcome shows the pre-creation screen.
func (m Model) renderWelcome() string {
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render("No active mailbox"),
		"",
		theme.HelpStyle.Render("Press n to create a disposable address."),
	}
	if m.vm.Notice != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(theme.ColorOrange).Render(m.vm.Notice))
	}
	return m.centered(lipgloss.JoinVertical(lipgloss.Center, lines...))
}

func (m Model) centered(s string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(s)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-3)
}
