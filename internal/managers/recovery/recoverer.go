package recovery

import (
	"fmt"
	"strconv"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/managers/fstree"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// RecoveryReservationUnits is the modification capacity one subvolume
// recovery reserves from the transaction manager, one pair per planned
// structural change. Adding a record to the recovery sequence means
// adding its term here.
const RecoveryReservationUnits = 2 + // parent directory entry pair
	2 + // lost+found directory inode metadata
	2 + // directory entry pair naming the recovered subvolume
	2 // subvolume forward and back reference records

// Recoverer re-attaches one intact deleted subvolume under lost+found.
// Every recovery runs inside a single transaction: either all of its
// structural changes become durable together, or none do.
type Recoverer struct {
	txmgr  interfaces.TransactionManager
	fstree *fstree.Manager
}

// NewRecoverer returns a recoverer mutating through the given transaction
// manager and filesystem tree manager.
func NewRecoverer(txmgr interfaces.TransactionManager, fstreeMgr *fstree.Manager) *Recoverer {
	return &Recoverer{
		txmgr:  txmgr,
		fstree: fstreeMgr,
	}
}

// Recover links the subvolume under lost+found as "sub<id>", clears its
// dead flag, and consumes its orphan marker, committing all of it as one
// unit. On any failure the transaction is released and the store is left
// exactly as it was.
func (r *Recoverer) Recover(subvolID types.ObjectID) error {
	tx, err := r.txmgr.Begin(RecoveryReservationUnits)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Release()

	lostFound, err := r.ensureLostFound(tx)
	if err != nil {
		return err
	}

	name := types.RecoveredNamePrefix + strconv.FormatUint(uint64(subvolID), 10)
	if len(name) > types.MaxNameLen {
		// Cannot happen for a decimal 64-bit id, but a name must never
		// be truncated to fit.
		return fmt.Errorf("link name %q exceeds the %d byte name limit", name, types.MaxNameLen)
	}

	if err := r.fstree.LinkSubvolume(tx, lostFound, name, subvolID); err != nil {
		return fmt.Errorf("failed to link subvolume %d under lost+found: %w", subvolID, err)
	}

	if err := r.clearDeadFlag(tx, subvolID); err != nil {
		return err
	}

	if err := r.fstree.DeleteOrphanMarker(tx, subvolID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recovery of subvolume %d: %w", subvolID, err)
	}
	return nil
}

// ensureLostFound returns the inode of the lost+found directory under the
// top-level subvolume, creating it if it does not exist yet.
func (r *Recoverer) ensureLostFound(tx interfaces.Transaction) (types.ObjectID, error) {
	topDir, err := r.topLevelDir(tx)
	if err != nil {
		return 0, err
	}

	location, exists, err := r.fstree.LookupDirItem(tx, topDir, types.LostFoundDirName)
	if err != nil {
		return 0, err
	}
	if exists {
		if location.Type != types.ItemTypeInode {
			return 0, fmt.Errorf("%s exists but is not a directory inode (location %s)", types.LostFoundDirName, location)
		}
		return location.ObjectID, nil
	}

	inodeID, err := r.fstree.MakeDirectory(tx, topDir, types.LostFoundDirName, types.LostFoundDirMode)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", types.LostFoundDirName, err)
	}
	return inodeID, nil
}

// topLevelDir resolves the root directory inode of the top-level
// subvolume from its root item.
func (r *Recoverer) topLevelDir(tx interfaces.Transaction) (types.ObjectID, error) {
	item, _, err := readRootItem(tx, types.FSTreeObjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to read top-level subvolume root item: %w", err)
	}
	return item.RootDirID(), nil
}

// clearDeadFlag clears the dead bit of the subvolume's root item with an
// in-buffer read-modify-write, leaving every other byte untouched.
func (r *Recoverer) clearDeadFlag(tx interfaces.Transaction, subvolID types.ObjectID) error {
	item, key, err := readRootItem(tx, subvolID)
	if err != nil {
		return fmt.Errorf("failed to read root item of subvolume %d: %w", subvolID, err)
	}
	item.ClearFlag(types.RootSubvolDead)
	if err := tx.WriteItem(key, item.Data()); err != nil {
		return fmt.Errorf("failed to write root item of subvolume %d: %w", subvolID, err)
	}
	return tx.MarkDirty(key)
}
