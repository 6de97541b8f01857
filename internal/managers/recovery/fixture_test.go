package recovery

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-btrfs/internal/managers/fstree"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/roots"
	"github.com/deploymenttheory/go-btrfs/internal/store/memstore"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

const topDirInode = types.ObjectID(256)

// newTestFS seeds the minimal filesystem the recovery path reads: the
// top-level subvolume's root item and its root directory inode.
func newTestFS(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.NewStore()

	store.SetItem(types.Key{
		ObjectID: types.FSTreeObjectID,
		Type:     types.ItemTypeRootItem,
	}, roots.BuildRootItem(roots.RootItemParams{
		Generation: 1,
		RootDirID:  topDirInode,
		Refs:       1,
		UUID:       uuid.New(),
	}))

	store.SetItem(types.Key{
		ObjectID: topDirInode,
		Type:     types.ItemTypeInode,
	}, inodes.BuildInodeItem(inodes.InodeItemParams{
		Generation: 1,
		Transid:    1,
		Nlink:      2,
		Mode:       0040755,
		Time:       time.Unix(1700000000, 0),
	}))

	return store
}

// addDeletedSubvol records a logically deleted subvolume: a dead root item
// plus its orphan marker. A non-intact subvolume carries drop progress, as
// if lazy deletion already walked part of its tree.
func addDeletedSubvol(store *memstore.Store, id types.ObjectID, intact bool) {
	params := roots.RootItemParams{
		Generation: 1,
		RootDirID:  topDirInode,
		Flags:      types.RootSubvolDead,
		UUID:       uuid.New(),
	}
	if !intact {
		params.DropProgress = types.Key{ObjectID: 260, Type: types.ItemTypeInode}
		params.DropLevel = 1
	}
	store.SetItem(types.Key{ObjectID: id, Type: types.ItemTypeRootItem}, roots.BuildRootItem(params))
	store.SetItem(types.OrphanMarkerKey(id), []byte{})
}

func rootItemKey(id types.ObjectID) types.Key {
	return types.Key{ObjectID: id, Type: types.ItemTypeRootItem}
}

func newScanner(store *memstore.Store) *Scanner {
	mgr := fstree.NewManager(1)
	return NewScanner(store, NewOracle(store), NewRecoverer(store, mgr))
}

func hasOrphanMarker(t *testing.T, store *memstore.Store, id types.ObjectID) bool {
	t.Helper()
	_, err := store.ReadItem(types.OrphanMarkerKey(id))
	return err == nil
}

func subvolIsDead(t *testing.T, store *memstore.Store, id types.ObjectID) bool {
	t.Helper()
	item, _, err := readRootItem(store, id)
	require.NoError(t, err)
	return item.IsDead()
}

// lookupEntry resolves a directory entry by name against the committed
// store state.
func lookupEntry(t *testing.T, store *memstore.Store, dir types.ObjectID, name string) (types.Key, bool) {
	t.Helper()
	location, exists, err := fstree.NewManager(1).LookupDirItem(store, dir, name)
	require.NoError(t, err)
	return location, exists
}
