package inbox

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempinbox/internal/keys"
	"github.com/nhle/tempinbox/internal/view"
)

func rows(ids ...string) view.ViewModel {
	vm := view.ViewModel{ShowInbox: true, Address: "abc@mail.test"}
	for _, id := range ids {
		vm.Items = append(vm.Items, view.ListItem{ID: id, Subject: "subject " + id, From: "a@b.test"})
	}
	return vm
}

func TestSetViewModel_KeepsSelection(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetViewModel(rows("e1", "e2", "e3"))
	m.list.Select(1)
	require.Equal(t, "e2", m.SelectedID())

	// A new message arrives at the top; the cursor follows e2.
	m.SetViewModel(rows("e0", "e1", "e2", "e3"))
	assert.Equal(t, "e2", m.SelectedID())
}

func TestUpdate_EnterOpensSelected(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetViewModel(rows("e1"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SelectedMsg{EmailID: "e1"}, cmd())
}

func TestUpdate_EnterOnEmptyInbox(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetViewModel(view.ViewModel{ShowInbox: true, Empty: true, EmptyText: view.EmptyTitle})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), view.EmptyTitle)
}

func TestView_Welcome(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetViewModel(view.ViewModel{ShowCreate: true, Notice: "Your inbox old@mail.test has expired"})
	assert.Contains(t, m.View(), "has expired")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
