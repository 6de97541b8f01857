package interfaces

import (
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Transaction is an atomic unit of structural tree mutations. All writes
// are buffered until Commit; a transaction released without committing
// leaves the store untouched. Reads performed through the transaction see
// its own buffered writes.
type Transaction interface {
	TreeStore

	// InsertItem adds a new item under the key. Fails if an item with
	// that exact key already exists.
	InsertItem(key types.Key, data []byte) error

	// WriteItem replaces the payload of an existing item. Fails with
	// ErrNotFound if no item exists under the key.
	WriteItem(key types.Key, data []byte) error

	// DeleteItem removes the item under the key. Fails with ErrNotFound
	// if no item exists under the key.
	DeleteItem(key types.Key) error

	// MarkDirty records that the buffer holding the item under the key
	// has been modified in place and must be written back on commit.
	MarkDirty(key types.Key) error

	// Commit makes every buffered mutation durable as one unit. After
	// Commit the transaction must not be used again.
	Commit() error

	// Release discards the transaction. Releasing after a successful
	// Commit is a no-op, so it is safe to defer.
	Release()

	// Reserved returns the modification capacity the transaction was
	// opened with.
	Reserved() int
}

// TransactionManager opens transactions against a mutable tree store.
type TransactionManager interface {
	// Begin opens a transaction reserving capacity for the given number
	// of planned structural modifications. The reservation is an
	// accounting contract with the store, not a hard mutation limit.
	Begin(reserve int) (Transaction, error)
}
