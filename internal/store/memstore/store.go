// Package memstore provides a sorted in-memory tree store with
// all-or-nothing transactions. It backs the filestore image backend and
// the recovery engine's tests.
package memstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Item is one key/payload pair of the store.
type Item struct {
	Key  types.Key
	Data []byte
}

// CommitHook runs inside Commit with the transaction's full item table,
// before the table is swapped in. A hook error aborts the commit and
// leaves the store unchanged.
type CommitHook func(items []Item) error

// Store is an ordered in-memory tree store. The item table is treated as
// immutable: every mutation installs a fresh table, so cursors keep the
// snapshot they were created against.
type Store struct {
	mu    sync.RWMutex
	items []Item
	hook  CommitHook
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// NewStoreFromItems returns a store seeded with the given items, which
// must be sorted by key without duplicates.
func NewStoreFromItems(items []Item) (*Store, error) {
	for i := 1; i < len(items); i++ {
		if items[i].Key.Compare(items[i-1].Key) <= 0 {
			return nil, fmt.Errorf("items out of order at index %d: %s after %s", i, items[i].Key, items[i-1].Key)
		}
	}
	return &Store{items: items}, nil
}

// SetCommitHook installs a hook invoked on every transaction commit.
func (s *Store) SetCommitHook(hook CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// SetItem inserts or replaces an item outside of any transaction. Only
// fixture construction should use it; live mutations go through Begin.
func (s *Store) SetItem(key types.Key, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = setItem(s.items, key, data)
}

// Len returns the number of items in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns a copy of the current item table.
func (s *Store) Snapshot() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Search implements interfaces.TreeStore.
func (s *Store) Search(key types.Key) (interfaces.Cursor, bool, error) {
	s.mu.RLock()
	items := s.items
	s.mu.RUnlock()
	return searchItems(items, key)
}

// ReadItem implements interfaces.TreeStore.
func (s *Store) ReadItem(key types.Key) ([]byte, error) {
	s.mu.RLock()
	items := s.items
	s.mu.RUnlock()
	return readItem(items, key)
}

// Begin implements interfaces.TransactionManager.
func (s *Store) Begin(reserve int) (interfaces.Transaction, error) {
	if reserve <= 0 {
		return nil, fmt.Errorf("invalid reservation %d: transactions must reserve at least one modification", reserve)
	}
	s.mu.RLock()
	items := cloneItems(s.items)
	s.mu.RUnlock()
	return &Transaction{
		store:   s,
		items:   items,
		reserve: reserve,
		dirty:   make(map[types.Key]struct{}),
	}, nil
}

// commit installs the transaction's item table, running the commit hook
// first. Called with the transaction's final table.
func (s *Store) commit(items []Item) error {
	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		if err := hook(items); err != nil {
			return fmt.Errorf("commit hook failed: %w", err)
		}
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// searchIndex returns the index of the first item whose key orders at or
// after key.
func searchIndex(items []Item, key types.Key) int {
	return sort.Search(len(items), func(i int) bool {
		return !items[i].Key.Less(key)
	})
}

func searchItems(items []Item, key types.Key) (interfaces.Cursor, bool, error) {
	idx := searchIndex(items, key)
	exact := idx < len(items) && items[idx].Key.Compare(key) == 0
	return &cursor{items: items, idx: idx}, exact, nil
}

func readItem(items []Item, key types.Key) ([]byte, error) {
	idx := searchIndex(items, key)
	if idx >= len(items) || items[idx].Key.Compare(key) != 0 {
		return nil, fmt.Errorf("reading item %s: %w", key, interfaces.ErrNotFound)
	}
	out := make([]byte, len(items[idx].Data))
	copy(out, items[idx].Data)
	return out, nil
}

func setItem(items []Item, key types.Key, data []byte) []Item {
	idx := searchIndex(items, key)
	if idx < len(items) && items[idx].Key.Compare(key) == 0 {
		out := cloneItems(items)
		out[idx] = Item{Key: key, Data: data}
		return out
	}
	out := make([]Item, 0, len(items)+1)
	out = append(out, items[:idx]...)
	out = append(out, Item{Key: key, Data: data})
	out = append(out, items[idx:]...)
	return out
}

func deleteItem(items []Item, key types.Key) ([]Item, bool) {
	idx := searchIndex(items, key)
	if idx >= len(items) || items[idx].Key.Compare(key) != 0 {
		return items, false
	}
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:idx]...)
	out = append(out, items[idx+1:]...)
	return out, true
}
