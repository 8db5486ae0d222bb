package message

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempinbox/internal/keys"
	"github.com/nhle/tempinbox/internal/theme"
	"github.com/nhle/tempinbox/internal/view"
)

// BackMsg signals the parent to navigate back to the inbox.
type BackMsg struct{}

// Action names carried by ActionMsg.
const (
	ActionSave     = "save"
	ActionDownload = "download"
	ActionArchive  = "archive"
	ActionCopyCode = "copy-code"
)

// ActionMsg asks the parent to act on the open message.
type ActionMsg struct {
	Action  string
	EmailID string
}

// Model is the message detail view component.
type Model struct {
	detail   *view.DetailView
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
	err      error
}

// New creates a new message view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the message view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the message view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Save):
			return m, m.action(ActionSave)

		case key.Matches(msg, m.keys.Download):
			if m.detail != nil && len(m.detail.Attachments) > 0 {
				return m, m.action(ActionDownload)
			}
			return m, nil

		case key.Matches(msg, m.keys.Archive):
			return m, m.action(ActionArchive)

		case key.Matches(msg, m.keys.CopyCode):
			if m.detail != nil && len(m.detail.Codes) > 0 {
				return m, m.action(ActionCopyCode)
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(name string) tea.Cmd {
	if m.detail == nil {
		return nil
	}
	id := m.detail.ID
	return func() tea.Msg {
		return ActionMsg{Action: name, EmailID: id}
	}
}

// View renders the message view.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return placeholder.Render("Loading message...")
	case m.err != nil:
		return placeholder.Foreground(theme.ColorRed).Render("Could not load message: " + m.err.Error())
	case m.detail == nil:
		return placeholder.Render("No message selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.detail == nil {
		return ""
	}

	d := m.detail
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(d.Subject))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	sections = append(sections, fmt.Sprintf(
		"%s      %s",
		metaStyle.Render("From:"),
		valStyle.Render(d.From),
	))
	sections = append(sections, fmt.Sprintf(
		"%s  %s",
		metaStyle.Render("Received:"),
		valStyle.Render(d.Received),
	))
	if d.IsHTML {
		sections = append(sections, metaStyle.Render("Rendered from HTML"))
	}

	if len(d.Codes) > 0 {
		codes := make([]string, len(d.Codes))
		for i, c := range d.Codes {
			codes[i] = theme.CodeStyle.Render(c)
		}
		sections = append(sections, "")
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Center,
			append([]string{metaStyle.Render("Code: ")}, codes...)...))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "")
	sections = append(sections, separator)
	sections = append(sections, "")

	body := d.Body
	if body == "" && d.LargeBodyURL != "" {
		body = "This message is too large to show inline.\n" + d.LargeBodyURL
	}
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No content")
	}
	sections = append(sections, lipgloss.NewStyle().Width(max(m.width-2, 20)).Render(body))

	if len(d.Attachments) > 0 {
		sections = append(sections, "")
		sections = append(sections, separator)
		sections = append(sections, "")
		sections = append(sections, titleStyle.Render(
			fmt.Sprintf("Attachments (%d)", len(d.Attachments)),
		))
		for _, a := range d.Attachments {
			sections = append(sections, fmt.Sprintf("  %s  %s",
				valStyle.Render(a.Filename),
				metaStyle.Render(a.Size),
			))
		}
	}

	if len(d.Links) > 0 {
		sections = append(sections, "")
		sections = append(sections, titleStyle.Render("Links"))
		for _, l := range d.Links {
			sections = append(sections, "  "+lipgloss.NewStyle().Foreground(theme.ColorBlue).Render(l))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDetail updates the message being displayed and re-renders the content.
func (m *Model) SetDetail(d *view.DetailView) {
	same := m.detail != nil && d != nil && m.detail.ID == d.ID
	m.detail = d
	m.loading = false
	m.err = nil
	m.viewport.SetContent(m.renderContent())
	if !same {
		m.viewport.GotoTop()
	}
}

// SetLoading clears the current message and shows a loading state.
func (m *Model) SetLoading() {
	m.detail = nil
	m.err = nil
	m.loading = true
}

// SetError shows a load failure in place of the message.
func (m *Model) SetError(err error) {
	m.loading = false
	m.err = err
}

// Detail returns the message on screen, or nil.
func (m Model) Detail() *view.DetailView {
	return m.detail
}

// SetSize updates the message view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.detail != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
