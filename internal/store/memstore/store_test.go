package memstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

func orphanKey(id uint64) types.Key {
	return types.OrphanMarkerKey(types.ObjectID(id))
}

func seededStore(t *testing.T, ids ...uint64) *Store {
	t.Helper()
	store := NewStore()
	for _, id := range ids {
		store.SetItem(orphanKey(id), []byte(fmt.Sprintf("marker-%d", id)))
	}
	return store
}

func TestNewStoreFromItemsRejectsUnsortedInput(t *testing.T) {
	_, err := NewStoreFromItems([]Item{
		{Key: orphanKey(9)},
		{Key: orphanKey(5)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of order")

	_, err = NewStoreFromItems([]Item{
		{Key: orphanKey(5)},
		{Key: orphanKey(5)},
	})
	assert.Error(t, err, "duplicate keys must be rejected")
}

func TestSearchExactAndNearest(t *testing.T) {
	store := seededStore(t, 2, 5, 9)

	cursor, exact, err := store.Search(orphanKey(5))
	require.NoError(t, err)
	assert.True(t, exact)
	key, err := cursor.Key()
	require.NoError(t, err)
	assert.Equal(t, orphanKey(5), key)

	cursor, exact, err = store.Search(orphanKey(6))
	require.NoError(t, err)
	assert.False(t, exact)
	key, err = cursor.Key()
	require.NoError(t, err)
	assert.Equal(t, orphanKey(9), key, "search must land on the first key at or after")

	cursor, exact, err = store.Search(orphanKey(10))
	require.NoError(t, err)
	assert.False(t, exact)
	assert.False(t, cursor.Valid(), "search past the last item must leave the cursor invalid")
}

func TestReadItemCopiesData(t *testing.T) {
	store := seededStore(t, 5)

	data, err := store.ReadItem(orphanKey(5))
	require.NoError(t, err)
	data[0] = 'X'

	again, err := store.ReadItem(orphanKey(5))
	require.NoError(t, err)
	assert.Equal(t, []byte("marker-5"), again, "callers must not be able to mutate stored items")
}

func TestReadItemNotFound(t *testing.T) {
	store := seededStore(t, 5)

	_, err := store.ReadItem(orphanKey(6))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestCursorPreviousWalksBackward(t *testing.T) {
	store := seededStore(t, 2, 5, 9)

	cursor, _, err := store.Search(types.Key{ObjectID: types.OrphanObjectID, Type: types.ItemTypeOrphan, Offset: types.MaxOffset})
	require.NoError(t, err)

	var visited []uint64
	for {
		if err := cursor.Previous(); err != nil {
			assert.ErrorIs(t, err, interfaces.ErrExhausted)
			break
		}
		key, err := cursor.Key()
		require.NoError(t, err)
		visited = append(visited, key.Offset)
	}
	assert.Equal(t, []uint64{9, 5, 2}, visited)
}

func TestCursorPreviousMatchingSkipsForeignKeys(t *testing.T) {
	store := seededStore(t, 3, 7)
	// An unrelated item between the markers and the search point.
	store.SetItem(types.Key{ObjectID: types.OrphanObjectID, Type: types.ItemTypeRootRef, Offset: 1}, nil)

	cursor, _, err := store.Search(types.Key{ObjectID: types.OrphanObjectID, Type: types.ItemTypeRootRef, Offset: 5})
	require.NoError(t, err)

	require.NoError(t, cursor.PreviousMatching(types.OrphanObjectID, types.ItemTypeOrphan))
	key, err := cursor.Key()
	require.NoError(t, err)
	assert.Equal(t, orphanKey(7), key)

	require.NoError(t, cursor.PreviousMatching(types.OrphanObjectID, types.ItemTypeOrphan))
	key, err = cursor.Key()
	require.NoError(t, err)
	assert.Equal(t, orphanKey(3), key)

	assert.ErrorIs(t, cursor.PreviousMatching(types.OrphanObjectID, types.ItemTypeOrphan), interfaces.ErrExhausted)
}

func TestTransactionCommitIsAtomic(t *testing.T) {
	store := seededStore(t, 5)

	tx, err := store.Begin(4)
	require.NoError(t, err)

	require.NoError(t, tx.InsertItem(orphanKey(6), []byte("new")))
	require.NoError(t, tx.DeleteItem(orphanKey(5)))

	// Uncommitted mutations must be invisible outside the transaction.
	_, err = store.ReadItem(orphanKey(6))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	_, err = store.ReadItem(orphanKey(5))
	assert.NoError(t, err)

	// But visible through it.
	_, err = tx.ReadItem(orphanKey(6))
	assert.NoError(t, err)
	_, err = tx.ReadItem(orphanKey(5))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	require.NoError(t, tx.Commit())

	_, err = store.ReadItem(orphanKey(6))
	assert.NoError(t, err)
	_, err = store.ReadItem(orphanKey(5))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestTransactionReleaseDiscardsEverything(t *testing.T) {
	store := seededStore(t, 5)
	before := store.Snapshot()

	tx, err := store.Begin(2)
	require.NoError(t, err)
	require.NoError(t, tx.InsertItem(orphanKey(6), nil))
	require.NoError(t, tx.WriteItem(orphanKey(5), []byte("changed")))
	tx.Release()

	assert.Equal(t, before, store.Snapshot())

	err = tx.Commit()
	assert.ErrorIs(t, err, interfaces.ErrStoreClosed, "a released transaction must not commit")
}

func TestTransactionMutationErrors(t *testing.T) {
	store := seededStore(t, 5)

	tx, err := store.Begin(2)
	require.NoError(t, err)
	defer tx.Release()

	assert.Error(t, tx.InsertItem(orphanKey(5), nil), "inserting an existing key must fail")
	assert.ErrorIs(t, tx.WriteItem(orphanKey(6), nil), interfaces.ErrNotFound)
	assert.ErrorIs(t, tx.DeleteItem(orphanKey(6)), interfaces.ErrNotFound)
	assert.ErrorIs(t, tx.MarkDirty(orphanKey(6)), interfaces.ErrNotFound)
}

func TestBeginRejectsNonPositiveReservation(t *testing.T) {
	store := NewStore()
	_, err := store.Begin(0)
	assert.Error(t, err)
}

func TestTransactionTracksReservationAndMutations(t *testing.T) {
	store := seededStore(t, 5)

	tx, err := store.Begin(8)
	require.NoError(t, err)
	defer tx.Release()

	memTx := tx.(*Transaction)
	assert.Equal(t, 8, memTx.Reserved())
	assert.Equal(t, 0, memTx.Mutations())

	require.NoError(t, tx.InsertItem(orphanKey(6), nil))
	require.NoError(t, tx.DeleteItem(orphanKey(5)))
	assert.Equal(t, 2, memTx.Mutations())
}

func TestCommitHookFailureAbortsCommit(t *testing.T) {
	store := seededStore(t, 5)
	before := store.Snapshot()
	hookErr := errors.New("disk full")
	store.SetCommitHook(func([]Item) error { return hookErr })

	tx, err := store.Begin(1)
	require.NoError(t, err)
	require.NoError(t, tx.InsertItem(orphanKey(6), nil))

	err = tx.Commit()
	require.ErrorIs(t, err, hookErr)
	assert.Equal(t, before, store.Snapshot(), "a failed commit must leave the store unchanged")
}

func TestCursorSnapshotSurvivesCommit(t *testing.T) {
	store := seededStore(t, 2, 5, 9)

	cursor, _, err := store.Search(types.Key{ObjectID: types.OrphanObjectID, Type: types.ItemTypeOrphan, Offset: types.MaxOffset})
	require.NoError(t, err)

	tx, err := store.Begin(1)
	require.NoError(t, err)
	require.NoError(t, tx.DeleteItem(orphanKey(5)))
	require.NoError(t, tx.Commit())

	var visited []uint64
	for cursor.PreviousMatching(types.OrphanObjectID, types.ItemTypeOrphan) == nil {
		key, err := cursor.Key()
		require.NoError(t, err)
		visited = append(visited, key.Offset)
	}
	assert.Equal(t, []uint64{9, 5, 2}, visited, "cursors keep the snapshot they were created against")
}
