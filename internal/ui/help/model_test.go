package help

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/taskboard/internal/keys"
)

func TestHelp_ListsColumnsAndCommands(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 50)

	view := m.View()
	assert.Contains(t, view, "Board keys")
	assert.Contains(t, view, "Await feedback")
	assert.Contains(t, view, "new contact")
	assert.NotContains(t, view, "Signed in as")

	m.SetAbout("Guest", "http://localhost:8321/guest")
	assert.Contains(t, m.View(), "Signed in as Guest")
}
