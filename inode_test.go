package ext2_test

import (
	"testing"

	ext2 "github.com/RoManTic127/filesystem-of-linux"
	"github.com/stretchr/testify/require"
)

func mustMount(t *testing.T, opts ext2.FormatOptions) *ext2.FileSystem {
	t.Helper()
	stream := newImage(t, opts)
	fsys, err := ext2.Mount(stream, "test.img")
	require.NoError(t, err)
	require.NoError(t, fsys.Login("root", "root"))
	return fsys
}

func TestCreateAndDeleteInodeRoundTrip(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	before, err := fsys.Status()
	require.NoError(t, err)

	inode, err := fsys.CreateInode(ext2.ModeRegular|0644, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint16(1), inode.LinksCount)
	require.True(t, inode.IsRegular())

	require.NoError(t, fsys.DeleteInode(inode.Number))

	after, err := fsys.Status()
	require.NoError(t, err)
	require.Equal(t, before.FreeInodes, after.FreeInodes)
}

func TestWriteThenReadDataRoundTrip(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	inode, err := fsys.CreateInode(ext2.ModeRegular|0644, 0, 0)
	require.NoError(t, err)

	payload := []byte("hello, simulated filesystem")
	n, err := fsys.WriteInodeData(&inode, payload, 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, uint64(len(payload)), inode.Size)

	buf := make([]byte, len(payload))
	n, err = fsys.ReadInodeData(&inode, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)
}

func TestWriteSpanningIndirectBlock(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	inode, err := fsys.CreateInode(ext2.ModeRegular|0644, 0, 0)
	require.NoError(t, err)

	// 14 blocks' worth of data: 12 direct plus 2 through the single
	// indirect pointer.
	total := 14 * ext2.DefaultBlockSize
	payload := make([]byte, total)
	for i := range payload {
		payload[i] = byte(i % 256)
	}

	n, err := fsys.WriteInodeData(&inode, payload, 0)
	require.NoError(t, err)
	require.Equal(t, total, n)
	require.NotEqual(t, uint32(0), inode.Block[ext2.IndirectPointerIndex])

	buf := make([]byte, total)
	n, err = fsys.ReadInodeData(&inode, buf, 0)
	require.NoError(t, err)
	require.Equal(t, total, n)
	require.Equal(t, payload, buf)
}

func TestTruncateShrinksAndFreesBlocks(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	inode, err := fsys.CreateInode(ext2.ModeRegular|0644, 0, 0)
	require.NoError(t, err)

	payload := make([]byte, 4*ext2.DefaultBlockSize)
	_, err = fsys.WriteInodeData(&inode, payload, 0)
	require.NoError(t, err)

	statusBefore, err := fsys.Status()
	require.NoError(t, err)

	require.NoError(t, fsys.TruncateInode(&inode, ext2.DefaultBlockSize))
	require.Equal(t, uint64(ext2.DefaultBlockSize), inode.Size)

	statusAfter, err := fsys.Status()
	require.NoError(t, err)
	require.Greater(t, statusAfter.FreeBlocks, statusBefore.FreeBlocks)
}

func TestTruncateRejectsGrowth(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	inode, err := fsys.CreateInode(ext2.ModeRegular|0644, 0, 0)
	require.NoError(t, err)

	err = fsys.TruncateInode(&inode, 4096)
	require.Error(t, err)
}

func TestFirstCreatedInodeSkipsReservedRange(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	inode, err := fsys.CreateInode(ext2.ModeRegular|0644, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(ext2.FirstUsableInode), inode.Number)
}

func TestFreeThenReallocateReturnsLowestInode(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	a, err := fsys.CreateInode(ext2.ModeRegular|0644, 0, 0)
	require.NoError(t, err)
	b, err := fsys.CreateInode(ext2.ModeRegular|0644, 0, 0)
	require.NoError(t, err)
	require.Less(t, a.Number, b.Number)

	require.NoError(t, fsys.DeleteInode(a.Number))

	c, err := fsys.CreateInode(ext2.ModeRegular|0644, 0, 0)
	require.NoError(t, err)
	require.Equal(t, a.Number, c.Number)
}
