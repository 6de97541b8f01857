package inodes

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInodeItemRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 123)
	data := BuildInodeItem(InodeItemParams{
		Generation: 5,
		Transid:    6,
		Size:       20,
		Nlink:      2,
		Mode:       0040700,
		Time:       now,
	})
	require.Len(t, data, InodeItemSize)

	inode, err := NewInodeItemReader(data, binary.LittleEndian)
	require.NoError(t, err)

	assert.Equal(t, uint64(5), inode.Generation())
	assert.Equal(t, uint64(20), inode.Size())
	assert.Equal(t, uint32(2), inode.Nlink())
	assert.Equal(t, uint32(0040700), inode.Mode())
	assert.True(t, inode.IsDir())
}

func TestInodeItemInPlaceMutation(t *testing.T) {
	data := BuildInodeItem(InodeItemParams{Nlink: 2, Mode: 0040755, Time: time.Now()})
	inode, err := NewInodeItemReader(data, binary.LittleEndian)
	require.NoError(t, err)

	inode.SetSize(inode.Size() + 24)
	inode.SetNlink(inode.Nlink() + 1)

	reread, err := NewInodeItemReader(data, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, uint64(24), reread.Size())
	assert.Equal(t, uint32(3), reread.Nlink())
}

func TestNewInodeItemReaderRejectsShortBuffer(t *testing.T) {
	_, err := NewInodeItemReader(make([]byte, InodeItemSize-1), binary.LittleEndian)
	assert.Error(t, err)
}
