package recovery

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/roots"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Oracle decides whether a deleted subvolume is still structurally
// intact, meaning lazy deletion has not freed any of its tree blocks yet.
// Read-only; it never mutates the store.
type Oracle struct {
	store interfaces.TreeStore
}

// NewOracle returns an oracle reading from the given store.
func NewOracle(store interfaces.TreeStore) *Oracle {
	return &Oracle{store: store}
}

// IsIntact reports whether the subvolume can be safely re-attached. Any
// lookup failure counts as not intact: a subvolume whose root item cannot
// be read must never be recovered.
func (o *Oracle) IsIntact(subvolID types.ObjectID) bool {
	item, _, err := readRootItem(o.store, subvolID)
	if err != nil {
		return false
	}
	// The subvolume is intact if lazy deletion has not started, which is
	// recorded as a zero objectid in drop_progress.
	return item.DropProgress().ObjectID == 0
}

// readRootItem finds the most recent root item of a subvolume, searching
// with the offset wildcard so the generation stored in the key does not
// matter. Returns the parsed item and its exact key.
func readRootItem(view interfaces.TreeStore, subvolID types.ObjectID) (*roots.RootItemReader, types.Key, error) {
	cursor, exact, err := view.Search(types.RootItemSearchKey(subvolID))
	if err != nil {
		return nil, types.Key{}, fmt.Errorf("failed to search root item for subvolume %d: %w", subvolID, err)
	}
	if !exact {
		if err := cursor.PreviousMatching(subvolID, types.ItemTypeRootItem); err != nil {
			return nil, types.Key{}, fmt.Errorf("no root item for subvolume %d: %w", subvolID, interfaces.ErrNotFound)
		}
	}

	key, err := cursor.Key()
	if err != nil {
		return nil, types.Key{}, err
	}
	data, err := cursor.Item()
	if err != nil {
		return nil, types.Key{}, fmt.Errorf("failed to read root item %s: %w", key, err)
	}
	item, err := roots.NewRootItemReader(data, binary.LittleEndian)
	if err != nil {
		return nil, types.Key{}, fmt.Errorf("failed to parse root item %s: %w", key, err)
	}
	return item, key, nil
}
