package recovery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/managers/fstree"
	"github.com/deploymenttheory/go-btrfs/internal/store/memstore"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// spyTxManager records every reservation passed to Begin.
type spyTxManager struct {
	store    *memstore.Store
	reserves []int
}

func (s *spyTxManager) Begin(reserve int) (interfaces.Transaction, error) {
	s.reserves = append(s.reserves, reserve)
	return s.store.Begin(reserve)
}

func TestRecoverReservesPlannedCapacity(t *testing.T) {
	store := newTestFS(t)
	addDeletedSubvol(store, 300, true)
	spy := &spyTxManager{store: store}

	recoverer := NewRecoverer(spy, fstree.NewManager(1))
	require.NoError(t, recoverer.Recover(300))

	assert.Equal(t, []int{RecoveryReservationUnits}, spy.reserves)
}

func TestRecoverLinksSubvolumeAndClearsState(t *testing.T) {
	store := newTestFS(t)
	addDeletedSubvol(store, 300, true)

	recoverer := NewRecoverer(store, fstree.NewManager(1))
	require.NoError(t, recoverer.Recover(300))

	lostFound, exists := lookupEntry(t, store, topDirInode, types.LostFoundDirName)
	require.True(t, exists)

	location, linked := lookupEntry(t, store, lostFound.ObjectID, "sub300")
	require.True(t, linked)
	assert.Equal(t, types.Key{ObjectID: 300, Type: types.ItemTypeRootItem, Offset: types.MaxOffset}, location)

	assert.False(t, subvolIsDead(t, store, 300))
	assert.False(t, hasOrphanMarker(t, store, 300))
}

func TestRecoverReusesExistingLostFound(t *testing.T) {
	store := newTestFS(t)
	addDeletedSubvol(store, 300, true)
	addDeletedSubvol(store, 301, true)

	recoverer := NewRecoverer(store, fstree.NewManager(1))
	require.NoError(t, recoverer.Recover(301))
	firstLostFound, exists := lookupEntry(t, store, topDirInode, types.LostFoundDirName)
	require.True(t, exists)

	require.NoError(t, recoverer.Recover(300))
	secondLostFound, exists := lookupEntry(t, store, topDirInode, types.LostFoundDirName)
	require.True(t, exists)

	assert.Equal(t, firstLostFound, secondLostFound, "the second recovery must reuse the directory")

	_, linked := lookupEntry(t, store, firstLostFound.ObjectID, "sub300")
	assert.True(t, linked)
	_, linked = lookupEntry(t, store, firstLostFound.ObjectID, "sub301")
	assert.True(t, linked)
}

func TestRecoverIsAtomicOnCommitFailure(t *testing.T) {
	store := newTestFS(t)
	addDeletedSubvol(store, 300, true)
	before := store.Snapshot()

	hookErr := errors.New("backing write failed")
	store.SetCommitHook(func([]memstore.Item) error { return hookErr })

	recoverer := NewRecoverer(store, fstree.NewManager(1))
	err := recoverer.Recover(300)
	require.ErrorIs(t, err, hookErr)

	assert.Equal(t, before, store.Snapshot(), "a failed recovery must leave no partial state behind")
}

func TestRecoverFailsWhenNameIsTaken(t *testing.T) {
	store := newTestFS(t)
	addDeletedSubvol(store, 300, true)

	mgr := fstree.NewManager(1)
	recoverer := NewRecoverer(store, mgr)
	require.NoError(t, recoverer.Recover(300))

	// Re-create the marker as if a second deletion raced the recovery.
	store.SetItem(types.OrphanMarkerKey(300), []byte{})
	before := store.Snapshot()

	err := recoverer.Recover(300)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Equal(t, before, store.Snapshot())
}
