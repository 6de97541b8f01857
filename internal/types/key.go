package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// KeySize is the on-disk size of a key in bytes: u64 objectid, u8 type,
// u64 offset, packed little-endian.
const KeySize = 17

// Key is the composite (objectid, type, offset) triple ordering every item
// in a tree. The on-disk and in-memory forms carry the same fields; only
// byte order differs.
type Key struct {
	ObjectID ObjectID
	Type     ItemType
	Offset   uint64
}

// MaxOffset is the largest possible key offset, used as the "most recent"
// wildcard when searching for the newest item of a given objectid and type.
const MaxOffset = math.MaxUint64

// Compare returns -1, 0, or 1 as k orders before, equal to, or after other.
// The order is lexicographic over (ObjectID, Type, Offset).
func (k Key) Compare(other Key) int {
	switch {
	case k.ObjectID < other.ObjectID:
		return -1
	case k.ObjectID > other.ObjectID:
		return 1
	case k.Type < other.Type:
		return -1
	case k.Type > other.Type:
		return 1
	case k.Offset < other.Offset:
		return -1
	case k.Offset > other.Offset:
		return 1
	}
	return 0
}

// Less reports whether k orders strictly before other.
func (k Key) Less(other Key) bool {
	return k.Compare(other) < 0
}

// Matches reports whether the key belongs to the given objectid and item
// type, ignoring the offset.
func (k Key) Matches(objectID ObjectID, itemType ItemType) bool {
	return k.ObjectID == objectID && k.Type == itemType
}

// String renders the key in the (objectid type offset) form used by btrfs
// debugging tools. Reserved objectids print as their signed aliases.
func (k Key) String() string {
	objectID := int64(k.ObjectID)
	if objectID < 0 {
		return fmt.Sprintf("(%d %d %d)", objectID, k.Type, k.Offset)
	}
	return fmt.Sprintf("(%d %d %d)", k.ObjectID, k.Type, k.Offset)
}

// OrphanMarkerKey returns the key of the deletion marker recorded for the
// given subvolume.
func OrphanMarkerKey(subvolID ObjectID) Key {
	return Key{
		ObjectID: OrphanObjectID,
		Type:     ItemTypeOrphan,
		Offset:   uint64(subvolID),
	}
}

// RootItemSearchKey returns the wildcard key that finds the most recent
// root item of a subvolume regardless of generation.
func RootItemSearchKey(subvolID ObjectID) Key {
	return Key{
		ObjectID: subvolID,
		Type:     ItemTypeRootItem,
		Offset:   MaxOffset,
	}
}

// MarshalKey writes the key into buf at the given offset in its packed
// on-disk form. buf must have at least KeySize bytes remaining.
func MarshalKey(buf []byte, offset int, k Key) {
	binary.LittleEndian.PutUint64(buf[offset:], uint64(k.ObjectID))
	buf[offset+8] = byte(k.Type)
	binary.LittleEndian.PutUint64(buf[offset+9:], k.Offset)
}

// UnmarshalKey reads a packed on-disk key from buf at the given offset.
func UnmarshalKey(buf []byte, offset int) Key {
	return Key{
		ObjectID: ObjectID(binary.LittleEndian.Uint64(buf[offset:])),
		Type:     ItemType(buf[offset+8]),
		Offset:   binary.LittleEndian.Uint64(buf[offset+9:]),
	}
}
