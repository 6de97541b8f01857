package dirents

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// RootRefHeaderSize is the fixed on-disk prefix of a root ref or root
// backref record, followed immediately by the link name.
// Reference: btrfs_tree.h struct btrfs_root_ref.
const RootRefHeaderSize = 18

const (
	dirIDOff      = 0
	sequenceOff   = 8
	refNameLenOff = 16
)

// RootRefReader reads a root ref record, the half of a subvolume link
// stored in the root tree. The same layout serves both the forward ref
// and the back ref.
type RootRefReader struct {
	data   []byte
	endian binary.ByteOrder
}

// NewRootRefReader wraps a raw root ref buffer and validates the declared
// name length.
func NewRootRefReader(data []byte, endian binary.ByteOrder) (*RootRefReader, error) {
	if len(data) < RootRefHeaderSize {
		return nil, fmt.Errorf("data too small for root ref: %d bytes, need %d", len(data), RootRefHeaderSize)
	}
	nameLen := int(endian.Uint16(data[refNameLenOff:]))
	if RootRefHeaderSize+nameLen > len(data) {
		return nil, fmt.Errorf("root ref name extends beyond buffer: name_len=%d, buffer=%d", nameLen, len(data))
	}
	return &RootRefReader{
		data:   data,
		endian: endian,
	}, nil
}

// DirID returns the objectid of the directory inode holding the entry
// that names the subvolume.
func (r *RootRefReader) DirID() types.ObjectID {
	return types.ObjectID(r.endian.Uint64(r.data[dirIDOff:]))
}

// Sequence returns the dir index number of that entry.
func (r *RootRefReader) Sequence() uint64 {
	return r.endian.Uint64(r.data[sequenceOff:])
}

// Name returns the link name of the subvolume.
func (r *RootRefReader) Name() string {
	nameLen := int(r.endian.Uint16(r.data[refNameLenOff:]))
	return string(r.data[RootRefHeaderSize : RootRefHeaderSize+nameLen])
}

// RootRefParams carries the fields of a new subvolume link record.
type RootRefParams struct {
	DirID    types.ObjectID
	Sequence uint64
	Name     string
}

// BuildRootRef packs a subvolume link record into its on-disk form.
func BuildRootRef(params RootRefParams) ([]byte, error) {
	if len(params.Name) == 0 || len(params.Name) > types.MaxNameLen {
		return nil, fmt.Errorf("invalid link name length %d", len(params.Name))
	}

	data := make([]byte, RootRefHeaderSize+len(params.Name))
	endian := binary.LittleEndian

	endian.PutUint64(data[dirIDOff:], uint64(params.DirID))
	endian.PutUint64(data[sequenceOff:], params.Sequence)
	endian.PutUint16(data[refNameLenOff:], uint16(len(params.Name)))
	copy(data[RootRefHeaderSize:], params.Name)

	return data, nil
}
