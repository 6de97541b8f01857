package interfaces

import (
	"errors"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// ErrNotFound is returned when a requested key has no item in the store.
var ErrNotFound = errors.New("item not found")

// ErrExhausted is returned by cursor movement when no further item exists
// in the direction of travel.
var ErrExhausted = errors.New("cursor exhausted")

// ErrStoreClosed is returned when an operation is attempted on a store
// that has been closed.
var ErrStoreClosed = errors.New("store is closed")

// TreeStore provides ordered, read-only access to the items of a metadata
// tree. Items are totally ordered by their composite key.
type TreeStore interface {
	// Search returns a cursor positioned at the first item whose key
	// orders at or after the given key. exact reports whether the key
	// was matched exactly. When every item orders before the key, the
	// cursor is positioned past the end and is not valid.
	Search(key types.Key) (cursor Cursor, exact bool, err error)

	// ReadItem returns the payload stored under the exact key, or
	// ErrNotFound.
	ReadItem(key types.Key) ([]byte, error)
}

// Cursor is a movable position within a TreeStore. Cursors are snapshots
// of the store at Search time and are not safe for concurrent use.
type Cursor interface {
	// Valid reports whether the cursor currently points at an item.
	Valid() bool

	// Key returns the key of the item at the cursor.
	Key() (types.Key, error)

	// Item returns the payload of the item at the cursor.
	Item() ([]byte, error)

	// Previous steps to the nearest preceding item, regardless of its
	// key. Returns ErrExhausted when the cursor was already at the
	// first item.
	Previous() error

	// PreviousMatching steps backward to the nearest preceding item
	// whose key still belongs to the given objectid and item type.
	// Returns ErrExhausted when no such item precedes the cursor.
	PreviousMatching(objectID types.ObjectID, itemType types.ItemType) error
}
