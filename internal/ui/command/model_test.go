package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cmd, ok := Parse("  New   6h ")
	require.True(t, ok)
	assert.Equal(t, "new", cmd.Name)
	assert.Equal(t, []string{"6h"}, cmd.Args)

	cmd, ok = Parse("token Abc.DEF")
	require.True(t, ok)
	assert.Equal(t, []string{"Abc.DEF"}, cmd.Args)

	_, ok = Parse("   ")
	assert.False(t, ok)
}

func TestUpdate_EnterEmitsCommand(t *testing.T) {
	m := New(80, 24)
	for _, r := range "refresh" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg{Name: "refresh", Args: []string{}}, cmd())
	assert.Empty(t, m.input.Value())
}

func TestUpdate_EscCancels(t *testing.T) {
	m := New(80, 24)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{}, cmd())
}
