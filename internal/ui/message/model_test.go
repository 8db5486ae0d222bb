package message

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempinbox/internal/keys"
	"github.com/nhle/tempinbox/internal/view"
)

func press(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sample() *view.DetailView {
	return &view.DetailView{
		ID:       "e1",
		Subject:  "Your code",
		From:     "noreply@service.test",
		Received: "2024-01-02 03:04:05",
		Body:     "Use 482913 to sign in",
		Codes:    []string{"482913"},
		Attachments: []view.AttachmentItem{
			{ID: "a1", Filename: "invoice.pdf", Size: "1.2 KB"},
		},
	}
}

func TestView_RendersDetail(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	m.SetDetail(sample())

	out := m.View()
	assert.Contains(t, out, "Your code")
	assert.Contains(t, out, "482913")
	assert.Contains(t, out, "invoice.pdf")
}

func TestUpdate_Actions(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	m.SetDetail(sample())

	cases := map[string]string{
		"s": ActionSave,
		"d": ActionDownload,
		"A": ActionArchive,
		"c": ActionCopyCode,
	}
	for k, action := range cases {
		_, cmd := m.Update(press(k))
		require.NotNil(t, cmd, k)
		assert.Equal(t, ActionMsg{Action: action, EmailID: "e1"}, cmd(), k)
	}
}

func TestUpdate_DownloadWithoutAttachments(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	d := sample()
	d.Attachments = nil
	d.Codes = nil
	m.SetDetail(d)

	_, cmd := m.Update(press("d"))
	assert.Nil(t, cmd)
	_, cmd = m.Update(press("c"))
	assert.Nil(t, cmd)
}

func TestUpdate_Back(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}

func TestView_LoadingAndError(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	m.SetLoading()
	assert.Contains(t, m.View(), "Loading message")

	m.SetError(errors.New("email not found (404)"))
	assert.Contains(t, m.View(), "email not found")
}
