package contacts

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newContacts() Model {
	m := New(keys.DefaultKeyMap(), 120, 30)
	m.SetData([]model.Contact{
		{ID: "c1", Name: "Alice Smith", Email: "alice@example.com"},
		{ID: "c2", Name: "Bob Jones"},
		{ID: "c3", Name: "alfred Pennyworth"},
	}, []model.Task{
		{ID: "t1", Assignees: []string{"Alice Smith"}},
	})
	return m
}

func TestContacts_GroupsAndNavigation(t *testing.T) {
	m := newContacts()

	groups := m.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "A", groups[0].Letter)
	assert.Len(t, groups[0].Contacts, 2)
	assert.Equal(t, "B", groups[1].Letter)

	sel, ok := m.Selected()
	require.True(t, ok)
	first := sel.ID

	m, _ = m.Update(runes("j"))
	m, _ = m.Update(runes("j"))
	m, _ = m.Update(runes("j"))
	sel, _ = m.Selected()
	assert.Equal(t, "c2", sel.ID, "Bob is last and the cursor stops there")

	m, _ = m.Update(runes("k"))
	m, _ = m.Update(runes("k"))
	sel, _ = m.Selected()
	assert.Equal(t, first, sel.ID)
}

func TestContacts_Filter(t *testing.T) {
	m := newContacts()

	m, _ = m.Update(runes("/"))
	require.True(t, m.Filtering())
	for _, r := range "bob" {
		m, _ = m.Update(runes(string(r)))
	}

	groups := m.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "B", groups[0].Letter)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.Filtering())
	assert.Len(t, m.Groups(), 2)
}

func TestContacts_EmitsMessages(t *testing.T) {
	m := newContacts()
	sel, _ := m.Selected()

	_, cmd := m.Update(runes("n"))
	assert.Equal(t, NewContactMsg{}, cmd())

	_, cmd = m.Update(runes("e"))
	assert.Equal(t, EditContactMsg{ContactID: sel.ID}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, EditContactMsg{ContactID: sel.ID}, cmd())

	_, cmd = m.Update(runes("d"))
	assert.Equal(t, DeleteContactMsg{ContactID: sel.ID}, cmd())
}

func TestContacts_ViewShowsAssignments(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 30)
	m.SetData([]model.Contact{{ID: "c1", Name: "Alice Smith", Email: "alice@example.com"}},
		[]model.Task{{ID: "t1", Assignees: []string{"Alice Smith"}}, {ID: "t2"}})

	view := m.View()
	assert.Contains(t, view, "alice@example.com")
	assert.Contains(t, view, "Tasks: 1")
}
