package create

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempinbox/internal/model"
	"github.com/nhle/tempinbox/internal/theme"
)

// SubmitMsg is dispatched when the user confirms a lifetime.
type SubmitMsg struct {
	TTL time.Duration
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// customOption is the select value that reveals the free-form input.
const customOption = -1

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	ttlSec int
	custom string
}

// Model is the Bubble Tea model for the mailbox lifetime form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	inbox  model.InboxConfig
	width  int
	height int
}

// New creates a new lifetime form model.
func New(cfg model.InboxConfig, width, height int) Model {
	return Model{
		fb:     &formBindings{ttlSec: cfg.DefaultTTLSec},
		inbox:  cfg,
		width:  width,
		height: height,
	}
}

// Start initializes the form with the configured default selected.
func (m *Model) Start() tea.Cmd {
	m.fb.ttlSec = m.inbox.DefaultTTLSec
	m.fb.custom = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.form = nil
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("New Mailbox") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	opts := make([]huh.Option[int], 0, len(m.inbox.TTLOptions)+1)
	for _, sec := range m.inbox.TTLOptions {
		opts = append(opts, huh.NewOption(LifetimeLabel(time.Duration(sec)*time.Second), sec))
	}
	opts = append(opts, huh.NewOption("Custom...", customOption))

	fb := m.fb
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Lifetime").
				Description("The address and its mail are deleted when this runs out.").
				Options(opts...).
				Value(&m.fb.ttlSec),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Custom lifetime").
				Placeholder("e.g. 45m or 12h").
				Value(&m.fb.custom).
				Validate(m.validateCustom),
		).WithHideFunc(func() bool { return fb.ttlSec != customOption }),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	ttl := time.Duration(m.fb.ttlSec) * time.Second
	if m.fb.ttlSec == customOption {
		d, err := time.ParseDuration(strings.TrimSpace(m.fb.custom))
		if err != nil {
			d = m.inbox.DefaultTTL()
		}
		ttl = d
	}
	ttl = m.inbox.ClampTTL(ttl)
	return func() tea.Msg { return SubmitMsg{TTL: ttl} }
}

func (m Model) validateCustom(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("use a duration like 30m or 2h")
	}
	lo := time.Duration(m.inbox.MinTTLSec) * time.Second
	hi := time.Duration(m.inbox.MaxTTLSec) * time.Second
	if d < lo || d > hi {
		return fmt.Errorf("lifetime must be between %s and %s", LifetimeLabel(lo), LifetimeLabel(hi))
	}
	return nil
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

// LifetimeLabel renders d the way the lifetime picker lists it.
func LifetimeLabel(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	case d >= time.Hour && d%time.Hour == 0:
		hrs := int(d / time.Hour)
		if hrs == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hrs)
	default:
		mins := int(d / time.Minute)
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
}
