package ext2_test

import (
	"io"
	"testing"

	ext2 "github.com/RoManTic127/filesystem-of-linux"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func newImage(t *testing.T, opts ext2.FormatOptions) io.ReadWriteSeeker {
	t.Helper()
	o := opts
	if o.BlockSize == 0 {
		o.BlockSize = ext2.DefaultBlockSize
	}
	if o.TotalBlocks == 0 {
		o.TotalBlocks = ext2.DefaultMaxBlocks
	}
	buf := make([]byte, uint64(o.TotalBlocks)*uint64(o.BlockSize))
	stream := bytesextra.NewReadWriteSeeker(buf)
	require.NoError(t, ext2.Format(stream, opts))
	return stream
}

func TestFormatThenMountSucceeds(t *testing.T) {
	stream := newImage(t, ext2.FormatOptions{})

	fsys, err := ext2.Mount(stream, "test.img")
	require.NoError(t, err)

	status, err := fsys.Status()
	require.NoError(t, err)
	require.Equal(t, uint32(ext2.DefaultMaxBlocks), status.TotalBlocks)
	require.Equal(t, uint32(ext2.DefaultMaxInodes), status.TotalInodes)
	require.Less(t, status.FreeBlocks, status.TotalBlocks)
	require.Less(t, status.FreeInodes, status.TotalInodes)
}

func TestFormatCreatesRootDirectoryWithDotEntries(t *testing.T) {
	stream := newImage(t, ext2.FormatOptions{})

	fsys, err := ext2.Mount(stream, "test.img")
	require.NoError(t, err)

	root, err := fsys.ReadInode(ext2.RootInodeNumber)
	require.NoError(t, err)
	require.True(t, root.IsDir())

	entries, err := fsys.ListDirectory(&root)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	require.ElementsMatch(t, []string{".", ".."}, names)

	for _, e := range entries {
		require.Equal(t, uint32(ext2.RootInodeNumber), e.Inode)
	}
}

func TestFormatRejectsGeometryWithNoRoomForData(t *testing.T) {
	buf := make([]byte, 1024*8)
	stream := bytesextra.NewReadWriteSeeker(buf)
	err := ext2.Format(stream, ext2.FormatOptions{TotalBlocks: 8, TotalInodes: ext2.DefaultMaxInodes})
	require.Error(t, err)
}
