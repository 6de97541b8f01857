package inodes

import (
	"encoding/binary"
	"fmt"
	"time"
)

// InodeItemSize is the on-disk size of an inode item in bytes.
// Reference: btrfs_tree.h struct btrfs_inode_item.
const InodeItemSize = 160

const (
	generationOff = 0
	transidOff    = 8
	sizeOff       = 16
	nbytesOff     = 24
	blockGroupOff = 32
	nlinkOff      = 40
	uidOff        = 44
	gidOff        = 48
	modeOff       = 52
	rdevOff       = 56
	flagsOff      = 64
	sequenceOff   = 72
	atimeOff      = 112
	ctimeOff      = 124
	mtimeOff      = 136
	otimeOff      = 148
)

// InodeItemReader reads and mutates the fields of an inode item inside
// its fixed-size on-disk buffer. The buffer is retained, not copied.
type InodeItemReader struct {
	data   []byte
	endian binary.ByteOrder
}

// NewInodeItemReader wraps a raw inode item buffer.
func NewInodeItemReader(data []byte, endian binary.ByteOrder) (*InodeItemReader, error) {
	if len(data) < InodeItemSize {
		return nil, fmt.Errorf("data too small for inode item: %d bytes, need %d", len(data), InodeItemSize)
	}
	return &InodeItemReader{
		data:   data,
		endian: endian,
	}, nil
}

// Data returns the underlying buffer.
func (r *InodeItemReader) Data() []byte {
	return r.data
}

// Generation returns the transaction id the inode was created in.
func (r *InodeItemReader) Generation() uint64 {
	return r.endian.Uint64(r.data[generationOff:])
}

// Size returns the inode size in bytes. For directories this is the sum
// of the entry name lengths, counted once per entry pair half.
func (r *InodeItemReader) Size() uint64 {
	return r.endian.Uint64(r.data[sizeOff:])
}

// SetSize replaces the inode size in place.
func (r *InodeItemReader) SetSize(size uint64) {
	r.endian.PutUint64(r.data[sizeOff:], size)
}

// Nlink returns the inode link count.
func (r *InodeItemReader) Nlink() uint32 {
	return r.endian.Uint32(r.data[nlinkOff:])
}

// SetNlink replaces the inode link count in place.
func (r *InodeItemReader) SetNlink(nlink uint32) {
	r.endian.PutUint32(r.data[nlinkOff:], nlink)
}

// Mode returns the inode type and permission bits.
func (r *InodeItemReader) Mode() uint32 {
	return r.endian.Uint32(r.data[modeOff:])
}

// Flags returns the inode flag bitset.
func (r *InodeItemReader) Flags() uint64 {
	return r.endian.Uint64(r.data[flagsOff:])
}

// IsDir reports whether the inode is a directory.
func (r *InodeItemReader) IsDir() bool {
	const modeDir = 0040000
	return r.Mode()&0170000 == modeDir
}

// InodeItemParams carries the fields a freshly built inode item is
// initialized with.
type InodeItemParams struct {
	Generation uint64
	Transid    uint64
	Size       uint64
	Nlink      uint32
	UID        uint32
	GID        uint32
	Mode       uint32
	Flags      uint64
	Time       time.Time
}

// BuildInodeItem packs the parameters into a new on-disk inode item
// buffer, stamping all four timestamps with the same time.
func BuildInodeItem(params InodeItemParams) []byte {
	data := make([]byte, InodeItemSize)
	endian := binary.LittleEndian

	endian.PutUint64(data[generationOff:], params.Generation)
	endian.PutUint64(data[transidOff:], params.Transid)
	endian.PutUint64(data[sizeOff:], params.Size)
	endian.PutUint32(data[nlinkOff:], params.Nlink)
	endian.PutUint32(data[uidOff:], params.UID)
	endian.PutUint32(data[gidOff:], params.GID)
	endian.PutUint32(data[modeOff:], params.Mode)
	endian.PutUint64(data[flagsOff:], params.Flags)

	for _, off := range []int{atimeOff, ctimeOff, mtimeOff, otimeOff} {
		endian.PutUint64(data[off:], uint64(params.Time.Unix()))
		endian.PutUint32(data[off+8:], uint32(params.Time.Nanosecond()))
	}

	return data
}
