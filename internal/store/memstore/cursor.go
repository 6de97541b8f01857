package memstore

import (
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// cursor walks a snapshot of the item table. idx == len(items) is the
// past-the-end position a search lands on when every item orders before
// the searched key.
type cursor struct {
	items []Item
	idx   int
}

// Valid implements interfaces.Cursor.
func (c *cursor) Valid() bool {
	return c.idx >= 0 && c.idx < len(c.items)
}

// Key implements interfaces.Cursor.
func (c *cursor) Key() (types.Key, error) {
	if !c.Valid() {
		return types.Key{}, fmt.Errorf("cursor has no current item: %w", interfaces.ErrExhausted)
	}
	return c.items[c.idx].Key, nil
}

// Item implements interfaces.Cursor.
func (c *cursor) Item() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("cursor has no current item: %w", interfaces.ErrExhausted)
	}
	data := c.items[c.idx].Data
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Previous implements interfaces.Cursor.
func (c *cursor) Previous() error {
	if c.idx <= 0 {
		return interfaces.ErrExhausted
	}
	c.idx--
	return nil
}

// PreviousMatching implements interfaces.Cursor. Keys are totally
// ordered, so walking backward visits any matching items in strictly
// decreasing offset order.
func (c *cursor) PreviousMatching(objectID types.ObjectID, itemType types.ItemType) error {
	for i := c.idx - 1; i >= 0; i-- {
		if c.items[i].Key.Matches(objectID, itemType) {
			c.idx = i
			return nil
		}
	}
	return interfaces.ErrExhausted
}
