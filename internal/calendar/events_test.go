package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tzcal/internal/model"
)

func ids(events []model.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

func TestEventCollectionRemoveByID(t *testing.T) {
	c := NewEventCollection()
	c.Replace([]model.Event{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}})

	assert.True(t, c.Remove("b"))
	assert.False(t, c.Remove("b"))
	assert.Equal(t, []string{"a", "c", "d"}, ids(c.All()))

	pos, ok := c.Position("d")
	assert.True(t, ok)
	assert.Equal(t, 2, pos)

	assert.True(t, c.Remove("a"))
	pos, _ = c.Position("d")
	assert.Equal(t, 1, pos)
	ev, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "c", ev.ID)
}

func TestEventCollectionAppendReplacesSameID(t *testing.T) {
	c := NewEventCollection()
	c.Append(model.Event{ID: "a", Title: "old"})
	c.Append(model.Event{ID: "b"})
	c.Append(model.Event{ID: "a", Title: "new"})

	assert.Equal(t, 2, c.Len())
	ev, _ := c.Get("a")
	assert.Equal(t, "new", ev.Title)
	assert.Equal(t, []string{"a", "b"}, ids(c.All()))
}
