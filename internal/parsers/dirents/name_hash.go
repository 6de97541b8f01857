package dirents

import (
	"hash/crc32"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// NameHash returns the CRC32C hash of a directory entry name, seeded the
// way btrfs seeds it (~1, no final inversion). The hash keys the dir item
// of the entry, so names colliding here share one dir item key and are
// disambiguated by comparing names.
func NameHash(name string) uint32 {
	// crc32.Update inverts the running CRC on entry and exit; undo both
	// to get the kernel's raw crc32c(~1, name) value.
	return ^crc32.Update(^uint32(0xFFFFFFFE), castagnoli, []byte(name))
}
