package memstore

import (
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Transaction buffers mutations against a private copy of the item table
// and swaps the copy in on Commit. Reads through the transaction see the
// buffered mutations.
type Transaction struct {
	store     *Store
	items     []Item
	reserve   int
	mutations int
	dirty     map[types.Key]struct{}
	done      bool
}

// Search implements interfaces.TreeStore over the transaction's view.
func (t *Transaction) Search(key types.Key) (interfaces.Cursor, bool, error) {
	if t.done {
		return nil, false, fmt.Errorf("transaction already finished: %w", interfaces.ErrStoreClosed)
	}
	return searchItems(t.items, key)
}

// ReadItem implements interfaces.TreeStore over the transaction's view.
func (t *Transaction) ReadItem(key types.Key) ([]byte, error) {
	if t.done {
		return nil, fmt.Errorf("transaction already finished: %w", interfaces.ErrStoreClosed)
	}
	return readItem(t.items, key)
}

// InsertItem implements interfaces.Transaction.
func (t *Transaction) InsertItem(key types.Key, data []byte) error {
	if t.done {
		return fmt.Errorf("transaction already finished: %w", interfaces.ErrStoreClosed)
	}
	idx := searchIndex(t.items, key)
	if idx < len(t.items) && t.items[idx].Key.Compare(key) == 0 {
		return fmt.Errorf("inserting item %s: key already exists", key)
	}
	t.items = setItem(t.items, key, data)
	t.mutations++
	return nil
}

// WriteItem implements interfaces.Transaction.
func (t *Transaction) WriteItem(key types.Key, data []byte) error {
	if t.done {
		return fmt.Errorf("transaction already finished: %w", interfaces.ErrStoreClosed)
	}
	idx := searchIndex(t.items, key)
	if idx >= len(t.items) || t.items[idx].Key.Compare(key) != 0 {
		return fmt.Errorf("writing item %s: %w", key, interfaces.ErrNotFound)
	}
	t.items = setItem(t.items, key, data)
	t.mutations++
	return nil
}

// DeleteItem implements interfaces.Transaction.
func (t *Transaction) DeleteItem(key types.Key) error {
	if t.done {
		return fmt.Errorf("transaction already finished: %w", interfaces.ErrStoreClosed)
	}
	items, deleted := deleteItem(t.items, key)
	if !deleted {
		return fmt.Errorf("deleting item %s: %w", key, interfaces.ErrNotFound)
	}
	t.items = items
	t.mutations++
	return nil
}

// MarkDirty implements interfaces.Transaction.
func (t *Transaction) MarkDirty(key types.Key) error {
	if t.done {
		return fmt.Errorf("transaction already finished: %w", interfaces.ErrStoreClosed)
	}
	if _, err := readItem(t.items, key); err != nil {
		return err
	}
	t.dirty[key] = struct{}{}
	return nil
}

// Commit implements interfaces.Transaction.
func (t *Transaction) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished: %w", interfaces.ErrStoreClosed)
	}
	if err := t.store.commit(t.items); err != nil {
		return err
	}
	t.done = true
	return nil
}

// Release implements interfaces.Transaction.
func (t *Transaction) Release() {
	t.done = true
	t.items = nil
}

// Reserved implements interfaces.Transaction.
func (t *Transaction) Reserved() int {
	return t.reserve
}

// Mutations returns the number of structural modifications buffered so
// far, for comparison against the reservation.
func (t *Transaction) Mutations() int {
	return t.mutations
}
