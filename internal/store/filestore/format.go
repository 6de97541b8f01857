package filestore

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/deploymenttheory/go-btrfs/internal/store/memstore"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Metadata image layout: a fixed header followed by the item records in
// key order. The header CRC covers every byte after the header, so a
// torn write is always detected at open time.
//
//	magic      [8]byte  "BTRFSDMP"
//	version    uint32
//	generation uint64
//	item count uint32
//	payload crc32 (IEEE) uint32
//
// Each record is a packed key, a payload length, and the payload.
const (
	imageMagic    = "BTRFSDMP"
	imageVersion  = 1
	headerSize    = 28
	recordPrefix  = types.KeySize + 4
	maxItemLength = 1 << 20
)

const (
	magicOff      = 0
	versionOff    = 8
	generationOff = 12
	countOff      = 20
	crcOff        = 24
)

// marshalImage serializes the generation and item table into image bytes.
func marshalImage(generation uint64, items []memstore.Item) ([]byte, error) {
	size := headerSize
	for _, item := range items {
		if len(item.Data) > maxItemLength {
			return nil, fmt.Errorf("item %s payload is %d bytes, limit is %d", item.Key, len(item.Data), maxItemLength)
		}
		size += recordPrefix + len(item.Data)
	}

	buf := make([]byte, size)
	copy(buf[magicOff:], imageMagic)
	binary.LittleEndian.PutUint32(buf[versionOff:], imageVersion)
	binary.LittleEndian.PutUint64(buf[generationOff:], generation)
	binary.LittleEndian.PutUint32(buf[countOff:], uint32(len(items)))

	off := headerSize
	for _, item := range items {
		types.MarshalKey(buf, off, item.Key)
		binary.LittleEndian.PutUint32(buf[off+types.KeySize:], uint32(len(item.Data)))
		copy(buf[off+recordPrefix:], item.Data)
		off += recordPrefix + len(item.Data)
	}

	binary.LittleEndian.PutUint32(buf[crcOff:], crc32.ChecksumIEEE(buf[headerSize:]))
	return buf, nil
}

// unmarshalImage validates image bytes and returns the generation and
// item table.
func unmarshalImage(buf []byte) (uint64, []memstore.Item, error) {
	if len(buf) < headerSize {
		return 0, nil, fmt.Errorf("image too small for header: %d bytes, need %d", len(buf), headerSize)
	}
	if string(buf[magicOff:magicOff+8]) != imageMagic {
		return 0, nil, fmt.Errorf("bad image magic %q", buf[magicOff:magicOff+8])
	}
	if version := binary.LittleEndian.Uint32(buf[versionOff:]); version != imageVersion {
		return 0, nil, fmt.Errorf("unsupported image version %d", version)
	}

	storedCRC := binary.LittleEndian.Uint32(buf[crcOff:])
	if actual := crc32.ChecksumIEEE(buf[headerSize:]); actual != storedCRC {
		return 0, nil, fmt.Errorf("payload CRC mismatch: calculated 0x%08X, stored 0x%08X", actual, storedCRC)
	}

	generation := binary.LittleEndian.Uint64(buf[generationOff:])
	count := int(binary.LittleEndian.Uint32(buf[countOff:]))

	items := make([]memstore.Item, 0, count)
	off := headerSize
	for i := 0; i < count; i++ {
		if off+recordPrefix > len(buf) {
			return 0, nil, fmt.Errorf("truncated record %d at offset %d", i, off)
		}
		key := types.UnmarshalKey(buf, off)
		length := int(binary.LittleEndian.Uint32(buf[off+types.KeySize:]))
		if length > maxItemLength {
			return 0, nil, fmt.Errorf("record %d payload is %d bytes, limit is %d", i, length, maxItemLength)
		}
		if off+recordPrefix+length > len(buf) {
			return 0, nil, fmt.Errorf("record %d payload extends beyond image", i)
		}
		data := make([]byte, length)
		copy(data, buf[off+recordPrefix:])
		items = append(items, memstore.Item{Key: key, Data: data})
		off += recordPrefix + length
	}
	if off != len(buf) {
		return 0, nil, fmt.Errorf("%d trailing bytes after last record", len(buf)-off)
	}

	return generation, items, nil
}
