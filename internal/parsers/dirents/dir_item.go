package dirents

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// DirItemHeaderSize is the fixed on-disk prefix of a dir item, followed
// immediately by the entry name.
// Reference: btrfs_tree.h struct btrfs_dir_item.
const DirItemHeaderSize = 30

const (
	locationOff  = 0
	transidOff   = 17
	dataLenOff   = 25
	nameLenOff   = 27
	entryTypeOff = 29
)

// DirItemReader reads a single dir item (or dir index) entry: the fixed
// header plus the name that follows it.
type DirItemReader struct {
	data   []byte
	endian binary.ByteOrder
}

// NewDirItemReader wraps a raw dir item buffer and validates that the
// name it declares fits inside the buffer.
func NewDirItemReader(data []byte, endian binary.ByteOrder) (*DirItemReader, error) {
	if len(data) < DirItemHeaderSize {
		return nil, fmt.Errorf("data too small for dir item: %d bytes, need %d", len(data), DirItemHeaderSize)
	}
	nameLen := int(endian.Uint16(data[nameLenOff:]))
	if DirItemHeaderSize+nameLen > len(data) {
		return nil, fmt.Errorf("dir item name extends beyond buffer: name_len=%d, buffer=%d", nameLen, len(data))
	}
	return &DirItemReader{
		data:   data,
		endian: endian,
	}, nil
}

// Location returns the key of the object the entry points at. For
// subvolume entries the objectid is the subvolume tree id.
func (r *DirItemReader) Location() types.Key {
	return types.UnmarshalKey(r.data, locationOff)
}

// Transid returns the transaction id the entry was created in.
func (r *DirItemReader) Transid() uint64 {
	return r.endian.Uint64(r.data[transidOff:])
}

// EntryType returns the directory entry type (FileTypeDir and friends).
func (r *DirItemReader) EntryType() uint8 {
	return r.data[entryTypeOff]
}

// Name returns the entry name.
func (r *DirItemReader) Name() string {
	nameLen := int(r.endian.Uint16(r.data[nameLenOff:]))
	return string(r.data[DirItemHeaderSize : DirItemHeaderSize+nameLen])
}

// DirItemParams carries the fields of a new directory entry.
type DirItemParams struct {
	Location  types.Key
	Transid   uint64
	EntryType uint8
	Name      string
}

// BuildDirItem packs a directory entry into its on-disk form.
func BuildDirItem(params DirItemParams) ([]byte, error) {
	if len(params.Name) == 0 || len(params.Name) > types.MaxNameLen {
		return nil, fmt.Errorf("invalid entry name length %d", len(params.Name))
	}

	data := make([]byte, DirItemHeaderSize+len(params.Name))
	endian := binary.LittleEndian

	types.MarshalKey(data, locationOff, params.Location)
	endian.PutUint64(data[transidOff:], params.Transid)
	endian.PutUint16(data[dataLenOff:], 0)
	endian.PutUint16(data[nameLenOff:], uint16(len(params.Name)))
	data[entryTypeOff] = params.EntryType
	copy(data[DirItemHeaderSize:], params.Name)

	return data, nil
}
