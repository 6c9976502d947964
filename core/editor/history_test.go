package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func titled(title string) State { return State{Settings: Settings{Title: title}} }

func TestHistory(t *testing.T) {
	h := NewHistory(3)
	assert.False(t, h.CanUndo())

	_, ok := h.Undo(titled("x"))
	assert.False(t, ok)

	h.Record(titled("a"))
	h.Record(titled("b"))

	prev, ok := h.Undo(titled("c"))
	assert.True(t, ok)
	assert.Equal(t, "b", prev.Settings.Title)

	next, ok := h.Redo(prev)
	assert.True(t, ok)
	assert.Equal(t, "c", next.Settings.Title)

	h.Clear()
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}

func TestHistory_limit(t *testing.T) {
	h := NewHistory(2)
	h.Record(titled("a"))
	h.Record(titled("b"))
	h.Record(titled("c"))

	var got []string
	cur := titled("d")
	for h.CanUndo() {
		cur, _ = h.Undo(cur)
		got = append(got, cur.Settings.Title)
	}
	assert.Equal(t, []string{"c", "b"}, got)
}
