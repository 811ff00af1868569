package calendar

import (
	"slices"

	"tzcal/internal/model"
)

// EventCollection is the ordered in-memory event list. It keeps an
// identifier -> position index so events are removed by id, never by a
// caller-held position.
type EventCollection struct {
	items []model.Event
	index map[string]int
}

func NewEventCollection() *EventCollection {
	return &EventCollection{index: map[string]int{}}
}

// Replace swaps the whole collection, e.g. after a fetch. Later duplicates
// of an id replace earlier ones in place.
func (c *EventCollection) Replace(events []model.Event) {
	c.items = make([]model.Event, 0, len(events))
	c.index = make(map[string]int, len(events))
	for _, ev := range events {
		c.Append(ev)
	}
}

// Append adds ev at the end, or replaces the event with the same id.
func (c *EventCollection) Append(ev model.Event) {
	if i, ok := c.index[ev.ID]; ok {
		c.items[i] = ev
		return
	}
	c.index[ev.ID] = len(c.items)
	c.items = append(c.items, ev)
}

// Remove deletes the event with id and reports whether it existed.
func (c *EventCollection) Remove(id string) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.items = slices.Delete(c.items, i, i+1)
	delete(c.index, id)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].ID] = j
	}
	return true
}

func (c *EventCollection) Get(id string) (model.Event, bool) {
	i, ok := c.index[id]
	if !ok {
		return model.Event{}, false
	}
	return c.items[i], true
}

// Position returns the current position of id.
func (c *EventCollection) Position(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

func (c *EventCollection) Len() int { return len(c.items) }

// All returns a copy of the events in order.
func (c *EventCollection) All() []model.Event { return slices.Clone(c.items) }
