package roots

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// RootItemSize is the on-disk size of a v2 root item in bytes.
// Reference: btrfs_tree.h struct btrfs_root_item.
const RootItemSize = 439

// Field offsets within the packed root item. The embedded inode item
// occupies the first 160 bytes.
const (
	generationOff   = 160
	rootDirIDOff    = 168
	bytenrOff       = 176
	byteLimitOff    = 184
	bytesUsedOff    = 192
	lastSnapshotOff = 200
	flagsOff        = 208
	refsOff         = 216
	dropProgressOff = 220
	dropLevelOff    = 237
	levelOff        = 238
	generationV2Off = 239
	uuidOff         = 247
	parentUUIDOff   = 263
	receivedUUIDOff = 279
	ctransidOff     = 295
)

// RootItemReader reads and mutates the fields of a root item inside its
// fixed-size on-disk buffer. Mutations happen in place so that a
// read-modify-write of a single field never rewrites unrelated bytes.
type RootItemReader struct {
	data   []byte
	endian binary.ByteOrder
}

// NewRootItemReader wraps a raw root item buffer. The buffer is retained,
// not copied, so in-place mutations are visible to the caller.
func NewRootItemReader(data []byte, endian binary.ByteOrder) (*RootItemReader, error) {
	if len(data) < RootItemSize {
		return nil, fmt.Errorf("data too small for root item: %d bytes, need %d", len(data), RootItemSize)
	}
	return &RootItemReader{
		data:   data,
		endian: endian,
	}, nil
}

// Data returns the underlying buffer.
func (r *RootItemReader) Data() []byte {
	return r.data
}

// Generation returns the transaction id that last changed the tree.
func (r *RootItemReader) Generation() uint64 {
	return r.endian.Uint64(r.data[generationOff:])
}

// RootDirID returns the objectid of the tree's root directory inode.
func (r *RootItemReader) RootDirID() types.ObjectID {
	return types.ObjectID(r.endian.Uint64(r.data[rootDirIDOff:]))
}

// BytesUsed returns the number of bytes the tree occupies on disk.
func (r *RootItemReader) BytesUsed() uint64 {
	return r.endian.Uint64(r.data[bytesUsedOff:])
}

// LastSnapshot returns the transaction id of the most recent snapshot.
func (r *RootItemReader) LastSnapshot() uint64 {
	return r.endian.Uint64(r.data[lastSnapshotOff:])
}

// Flags returns the root item flag bitset.
func (r *RootItemReader) Flags() uint64 {
	return r.endian.Uint64(r.data[flagsOff:])
}

// SetFlags replaces the root item flag bitset in place.
func (r *RootItemReader) SetFlags(flags uint64) {
	r.endian.PutUint64(r.data[flagsOff:], flags)
}

// ClearFlag clears the given flag bits in place.
func (r *RootItemReader) ClearFlag(flag uint64) {
	r.SetFlags(r.Flags() &^ flag)
}

// IsDead reports whether the subvolume has been marked for deletion.
func (r *RootItemReader) IsDead() bool {
	return r.Flags()&types.RootSubvolDead != 0
}

// Refs returns the reference count on the tree root.
func (r *RootItemReader) Refs() uint32 {
	return r.endian.Uint32(r.data[refsOff:])
}

// DropProgress returns the key recording how far lazy deletion of the
// tree has advanced. A zero objectid means deletion has not touched any
// tree block yet.
func (r *RootItemReader) DropProgress() types.Key {
	return types.UnmarshalKey(r.data, dropProgressOff)
}

// SetDropProgress records lazy-deletion progress in place.
func (r *RootItemReader) SetDropProgress(key types.Key) {
	types.MarshalKey(r.data, dropProgressOff, key)
}

// DropLevel returns the tree level lazy deletion has reached.
func (r *RootItemReader) DropLevel() uint8 {
	return r.data[dropLevelOff]
}

// Level returns the height of the tree.
func (r *RootItemReader) Level() uint8 {
	return r.data[levelOff]
}

// GenerationV2 returns the v2 generation, kept in sync with Generation on
// filesystems that carry the extended root item.
func (r *RootItemReader) GenerationV2() uint64 {
	return r.endian.Uint64(r.data[generationV2Off:])
}

// UUID returns the subvolume's own UUID.
func (r *RootItemReader) UUID() uuid.UUID {
	return r.readUUID(uuidOff)
}

// ParentUUID returns the UUID of the subvolume this one was snapshotted
// from, or the zero UUID.
func (r *RootItemReader) ParentUUID() uuid.UUID {
	return r.readUUID(parentUUIDOff)
}

// ReceivedUUID returns the UUID recorded by a receive operation, or the
// zero UUID.
func (r *RootItemReader) ReceivedUUID() uuid.UUID {
	return r.readUUID(receivedUUIDOff)
}

func (r *RootItemReader) readUUID(offset int) uuid.UUID {
	var id uuid.UUID
	copy(id[:], r.data[offset:offset+16])
	return id
}
