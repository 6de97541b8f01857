package roots

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// RootItemParams carries the fields a freshly built root item is
// initialized with. Zero-valued fields stay zero in the buffer.
type RootItemParams struct {
	Generation   uint64
	RootDirID    types.ObjectID
	BytesUsed    uint64
	Flags        uint64
	Refs         uint32
	DropProgress types.Key
	DropLevel    uint8
	Level        uint8
	UUID         uuid.UUID
	ParentUUID   uuid.UUID
}

// BuildRootItem packs the parameters into a new on-disk root item buffer.
// Used by fixture tooling and tests; live filesystems already carry their
// root items.
func BuildRootItem(params RootItemParams) []byte {
	data := make([]byte, RootItemSize)
	endian := binary.LittleEndian

	endian.PutUint64(data[generationOff:], params.Generation)
	endian.PutUint64(data[rootDirIDOff:], uint64(params.RootDirID))
	endian.PutUint64(data[bytesUsedOff:], params.BytesUsed)
	endian.PutUint64(data[flagsOff:], params.Flags)
	endian.PutUint32(data[refsOff:], params.Refs)
	types.MarshalKey(data, dropProgressOff, params.DropProgress)
	data[dropLevelOff] = params.DropLevel
	data[levelOff] = params.Level
	endian.PutUint64(data[generationV2Off:], params.Generation)
	copy(data[uuidOff:], params.UUID[:])
	copy(data[parentUUIDOff:], params.ParentUUID[:])

	return data
}
