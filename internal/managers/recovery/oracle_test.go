package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOracleIntactSubvolume(t *testing.T) {
	store := newTestFS(t)
	addDeletedSubvol(store, 300, true)

	oracle := NewOracle(store)
	assert.True(t, oracle.IsIntact(300))
}

func TestOracleRejectsPartiallyDroppedSubvolume(t *testing.T) {
	store := newTestFS(t)
	addDeletedSubvol(store, 300, false)

	oracle := NewOracle(store)
	assert.False(t, oracle.IsIntact(300))
}

func TestOracleFailsClosedWithoutRootItem(t *testing.T) {
	store := newTestFS(t)

	oracle := NewOracle(store)
	assert.False(t, oracle.IsIntact(300), "a subvolume whose root item cannot be read must never count as intact")
}

func TestOracleFailsClosedOnCorruptRootItem(t *testing.T) {
	store := newTestFS(t)
	addDeletedSubvol(store, 300, true)
	store.SetItem(rootItemKey(300), []byte("truncated"))

	oracle := NewOracle(store)
	assert.False(t, oracle.IsIntact(300))
}
