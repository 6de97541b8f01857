// Package fstree implements the directory-entry and subvolume-link
// primitives the recovery engine mutates the metadata tree with. Every
// mutation goes through a transaction; nothing here commits.
package fstree

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/dirents"
	"github.com/deploymenttheory/go-btrfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// firstDirIndex is the lowest dir index sequence number btrfs hands out;
// 0 and 1 are reserved for the implied self and parent entries.
const firstDirIndex = 2

// Manager creates and removes filesystem tree records. The transid stamps
// every record it creates.
type Manager struct {
	transid uint64
	now     func() time.Time
}

// NewManager returns a manager stamping new records with the given
// transaction id.
func NewManager(transid uint64) *Manager {
	return &Manager{
		transid: transid,
		now:     time.Now,
	}
}

// LookupDirItem looks for a directory entry by name. It returns the
// location key of the entry's target when the entry exists.
func (m *Manager) LookupDirItem(view interfaces.TreeStore, dir types.ObjectID, name string) (types.Key, bool, error) {
	key := types.Key{
		ObjectID: dir,
		Type:     types.ItemTypeDirItem,
		Offset:   uint64(dirents.NameHash(name)),
	}

	data, err := view.ReadItem(key)
	if err != nil {
		if isNotFound(err) {
			return types.Key{}, false, nil
		}
		return types.Key{}, false, fmt.Errorf("failed to look up dir item %q in %d: %w", name, dir, err)
	}

	item, err := dirents.NewDirItemReader(data, binary.LittleEndian)
	if err != nil {
		return types.Key{}, false, fmt.Errorf("failed to parse dir item %q in %d: %w", name, dir, err)
	}
	if item.Name() != name {
		// Same CRC, different name. The slot is taken, the entry does
		// not exist.
		return types.Key{}, false, nil
	}
	return item.Location(), true, nil
}

// NextObjectID returns the next free objectid below the reserved upper
// range, based on the highest objectid currently allocated.
func (m *Manager) NextObjectID(view interfaces.TreeStore) (types.ObjectID, error) {
	boundary := types.Key{ObjectID: types.LastFreeObjectID}
	cursor, _, err := view.Search(boundary)
	if err != nil {
		return 0, fmt.Errorf("failed to search for free objectid: %w", err)
	}
	if err := cursor.Previous(); err != nil {
		if isExhausted(err) {
			return types.FirstFreeObjectID, nil
		}
		return 0, fmt.Errorf("failed to step to last allocated objectid: %w", err)
	}
	key, err := cursor.Key()
	if err != nil {
		return 0, fmt.Errorf("failed to read last allocated key: %w", err)
	}
	if key.ObjectID < types.FirstFreeObjectID {
		return types.FirstFreeObjectID, nil
	}
	return key.ObjectID + 1, nil
}

// MakeDirectory creates a new directory inode and links it into the
// parent directory under the given name. Fails if the name is taken.
func (m *Manager) MakeDirectory(tx interfaces.Transaction, parentDir types.ObjectID, name string, mode uint32) (types.ObjectID, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}

	if _, exists, err := m.LookupDirItem(tx, parentDir, name); err != nil {
		return 0, err
	} else if exists {
		return 0, fmt.Errorf("directory entry %q already exists in %d", name, parentDir)
	}

	inodeID, err := m.NextObjectID(tx)
	if err != nil {
		return 0, err
	}

	const modeDir = 0040000
	inodeItem := inodes.BuildInodeItem(inodes.InodeItemParams{
		Generation: m.transid,
		Transid:    m.transid,
		Nlink:      2,
		Mode:       modeDir | (mode & 07777),
		Time:       m.now(),
	})
	inodeKey := types.Key{ObjectID: inodeID, Type: types.ItemTypeInode}
	if err := tx.InsertItem(inodeKey, inodeItem); err != nil {
		return 0, fmt.Errorf("failed to insert inode item for %q: %w", name, err)
	}

	location := types.Key{ObjectID: inodeID, Type: types.ItemTypeInode}
	if err := m.insertEntryPair(tx, parentDir, name, location, types.FileTypeDir); err != nil {
		return 0, err
	}

	if err := m.growDirectory(tx, parentDir, len(name), 1); err != nil {
		return 0, err
	}

	return inodeID, nil
}

// LinkSubvolume links the subvolume as a child of the parent directory
// under the given name: the parent's entry pair plus the subvolume's
// forward and back reference records. Fails if the name is taken.
func (m *Manager) LinkSubvolume(tx interfaces.Transaction, parentDir types.ObjectID, name string, subvolID types.ObjectID) error {
	if err := validateName(name); err != nil {
		return err
	}

	if _, exists, err := m.LookupDirItem(tx, parentDir, name); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("directory entry %q already exists in %d", name, parentDir)
	}

	location := types.Key{
		ObjectID: subvolID,
		Type:     types.ItemTypeRootItem,
		Offset:   types.MaxOffset,
	}
	if err := m.insertEntryPair(tx, parentDir, name, location, types.FileTypeDir); err != nil {
		return err
	}

	sequence, err := m.lastDirIndex(tx, parentDir)
	if err != nil {
		return err
	}
	ref, err := dirents.BuildRootRef(dirents.RootRefParams{
		DirID:    parentDir,
		Sequence: sequence,
		Name:     name,
	})
	if err != nil {
		return fmt.Errorf("failed to build root ref for %q: %w", name, err)
	}

	forwardKey := types.Key{
		ObjectID: types.FSTreeObjectID,
		Type:     types.ItemTypeRootRef,
		Offset:   uint64(subvolID),
	}
	if err := tx.InsertItem(forwardKey, ref); err != nil {
		return fmt.Errorf("failed to insert root ref for subvolume %d: %w", subvolID, err)
	}

	backKey := types.Key{
		ObjectID: subvolID,
		Type:     types.ItemTypeRootBackRef,
		Offset:   uint64(types.FSTreeObjectID),
	}
	if err := tx.InsertItem(backKey, ref); err != nil {
		return fmt.Errorf("failed to insert root backref for subvolume %d: %w", subvolID, err)
	}

	return m.growDirectory(tx, parentDir, len(name), 0)
}

// DeleteOrphanMarker removes the deletion marker recorded for the
// subvolume.
func (m *Manager) DeleteOrphanMarker(tx interfaces.Transaction, subvolID types.ObjectID) error {
	if err := tx.DeleteItem(types.OrphanMarkerKey(subvolID)); err != nil {
		return fmt.Errorf("failed to delete orphan marker for subvolume %d: %w", subvolID, err)
	}
	return nil
}

// insertEntryPair inserts the dir item and dir index halves of one
// directory entry.
func (m *Manager) insertEntryPair(tx interfaces.Transaction, dir types.ObjectID, name string, location types.Key, entryType uint8) error {
	entry, err := dirents.BuildDirItem(dirents.DirItemParams{
		Location:  location,
		Transid:   m.transid,
		EntryType: entryType,
		Name:      name,
	})
	if err != nil {
		return fmt.Errorf("failed to build dir item %q: %w", name, err)
	}

	itemKey := types.Key{
		ObjectID: dir,
		Type:     types.ItemTypeDirItem,
		Offset:   uint64(dirents.NameHash(name)),
	}
	if err := tx.InsertItem(itemKey, entry); err != nil {
		return fmt.Errorf("failed to insert dir item %q in %d: %w", name, dir, err)
	}

	sequence, err := m.lastDirIndex(tx, dir)
	if err != nil {
		return err
	}
	indexKey := types.Key{
		ObjectID: dir,
		Type:     types.ItemTypeDirIndex,
		Offset:   sequence + 1,
	}
	if err := tx.InsertItem(indexKey, entry); err != nil {
		return fmt.Errorf("failed to insert dir index %q in %d: %w", name, dir, err)
	}
	return nil
}

// lastDirIndex returns the highest dir index sequence currently used in
// the directory, or firstDirIndex-1 when the directory has no entries.
func (m *Manager) lastDirIndex(view interfaces.TreeStore, dir types.ObjectID) (uint64, error) {
	search := types.Key{
		ObjectID: dir,
		Type:     types.ItemTypeDirIndex,
		Offset:   types.MaxOffset,
	}
	cursor, _, err := view.Search(search)
	if err != nil {
		return 0, fmt.Errorf("failed to search dir indexes of %d: %w", dir, err)
	}
	if err := cursor.PreviousMatching(dir, types.ItemTypeDirIndex); err != nil {
		if isExhausted(err) {
			return firstDirIndex - 1, nil
		}
		return 0, fmt.Errorf("failed to step to last dir index of %d: %w", dir, err)
	}
	key, err := cursor.Key()
	if err != nil {
		return 0, err
	}
	return key.Offset, nil
}

// growDirectory accounts a new entry against the directory inode: the
// name length is counted once per entry pair half, and nlinkDelta covers
// a new subdirectory's parent link.
func (m *Manager) growDirectory(tx interfaces.Transaction, dir types.ObjectID, nameLen int, nlinkDelta uint32) error {
	inodeKey := types.Key{ObjectID: dir, Type: types.ItemTypeInode}
	data, err := tx.ReadItem(inodeKey)
	if err != nil {
		return fmt.Errorf("failed to read directory inode %d: %w", dir, err)
	}
	inode, err := inodes.NewInodeItemReader(data, binary.LittleEndian)
	if err != nil {
		return fmt.Errorf("failed to parse directory inode %d: %w", dir, err)
	}
	inode.SetSize(inode.Size() + uint64(nameLen)*2)
	inode.SetNlink(inode.Nlink() + nlinkDelta)
	if err := tx.WriteItem(inodeKey, inode.Data()); err != nil {
		return fmt.Errorf("failed to write directory inode %d: %w", dir, err)
	}
	return tx.MarkDirty(inodeKey)
}

func validateName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("directory entry name is empty")
	}
	if len(name) > types.MaxNameLen {
		return fmt.Errorf("directory entry name is %d bytes, limit is %d", len(name), types.MaxNameLen)
	}
	return nil
}
