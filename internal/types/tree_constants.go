package types

// B-Tree Constants
// Reference: btrfs_tree.h (on-disk format header)

// ObjectID identifies the owner of a tree item. Well-known tree roots and
// special objects use reserved values below FirstFreeObjectID.
type ObjectID uint64

// ItemType discriminates the payload stored under a key. Together with the
// object id it defines the total order of items within a tree.
type ItemType uint8

const (
	// RootTreeObjectID holds pointers to all of the tree roots.
	RootTreeObjectID ObjectID = 1

	// FSTreeObjectID is the top-level subvolume tree, storing files and
	// directories.
	FSTreeObjectID ObjectID = 5

	// RootTreeDirObjectID is the directory objectid inside the root tree.
	RootTreeDirObjectID ObjectID = 6

	// OrphanObjectID groups deletion markers for unlinked or dropped
	// objects. Stored on disk as -5.
	OrphanObjectID ObjectID = 0xFFFFFFFFFFFFFFFB

	// FirstFreeObjectID is the first objectid available for regular files
	// and directories.
	FirstFreeObjectID ObjectID = 256

	// LastFreeObjectID is the last objectid available for regular files
	// and directories. Stored on disk as -256.
	LastFreeObjectID ObjectID = 0xFFFFFFFFFFFFFF00
)

const (
	// ItemTypeInode marks an inode item, holding stat-like metadata for
	// every file and directory.
	ItemTypeInode ItemType = 1

	// ItemTypeInodeRef marks a back reference from an inode to the
	// directory entry naming it.
	ItemTypeInodeRef ItemType = 12

	// ItemTypeOrphan marks a deletion marker keyed
	// (OrphanObjectID, ItemTypeOrphan, id-of-deleted-object).
	ItemTypeOrphan ItemType = 48

	// ItemTypeDirItem marks a name -> location entry in a directory,
	// keyed by the CRC of the name.
	ItemTypeDirItem ItemType = 84

	// ItemTypeDirIndex marks a sequence-numbered directory entry used
	// for readdir ordering.
	ItemTypeDirIndex ItemType = 96

	// ItemTypeRootItem marks a per-tree root record, including the
	// drop_progress key used to track lazy subvolume deletion.
	ItemTypeRootItem ItemType = 132

	// ItemTypeRootBackRef marks the child->parent half of a subvolume
	// link, keyed (subvol id, ItemTypeRootBackRef, parent tree id).
	ItemTypeRootBackRef ItemType = 144

	// ItemTypeRootRef marks the parent->child half of a subvolume link,
	// keyed (parent tree id, ItemTypeRootRef, subvol id).
	ItemTypeRootRef ItemType = 156
)

const (
	// RootSubvolDead flags a root item whose subvolume has been marked
	// for deletion but not yet cleaned up.
	RootSubvolDead uint64 = 1 << 48

	// MaxNameLen is the longest directory entry name the filesystem
	// accepts, in bytes.
	MaxNameLen = 255

	// LostFoundDirName is the well-known directory under the top-level
	// subvolume where recovered subvolumes are re-attached.
	LostFoundDirName = "lost+found"

	// LostFoundDirMode is the permission mode lost+found is created with.
	LostFoundDirMode uint32 = 0700

	// RecoveredNamePrefix prefixes the synthesized link name of a
	// recovered subvolume, followed by its decimal id.
	RecoveredNamePrefix = "sub"
)

// Directory entry types stored in dir items.
// Reference: btrfs_tree.h BTRFS_FT_* values.
const (
	FileTypeUnknown uint8 = 0
	FileTypeRegFile uint8 = 1
	FileTypeDir     uint8 = 2
)
