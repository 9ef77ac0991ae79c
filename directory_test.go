package ext2_test

import (
	"testing"

	ext2 "github.com/RoManTic127/filesystem-of-linux"
	"github.com/stretchr/testify/require"
)

func TestCreateFileThenLookupFromParent(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	_, err := fsys.CreateFile("/greeting.txt", 0644)
	require.NoError(t, err)

	root, err := fsys.PathToInode("/")
	require.NoError(t, err)

	entry, err := fsys.Lookup(&root, "greeting.txt")
	require.NoError(t, err)
	require.Equal(t, ext2.DirentTypeFile, entry.FileType)
}

func TestMkdirCdCreateDeleteCdRmdirPreservesFreeCounts(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	before, err := fsys.Status()
	require.NoError(t, err)

	root, err := fsys.PathToInode("/")
	require.NoError(t, err)

	_, err = fsys.CreateDirectory(&root, "work", 0, 0, 0755)
	require.NoError(t, err)

	require.NoError(t, fsys.ChangeDirectory("/work"))

	_, err = fsys.CreateFile("scratch.txt", 0644)
	require.NoError(t, err)
	require.NoError(t, fsys.DeleteFile("scratch.txt"))

	require.NoError(t, fsys.ChangeDirectory("/"))

	root, err = fsys.PathToInode("/")
	require.NoError(t, err)
	require.NoError(t, fsys.DeleteDirectory(&root, "work"))

	after, err := fsys.Status()
	require.NoError(t, err)
	require.Equal(t, before.FreeBlocks, after.FreeBlocks)
	require.Equal(t, before.FreeInodes, after.FreeInodes)
}

func TestDeleteNonEmptyDirectoryFails(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	root, err := fsys.PathToInode("/")
	require.NoError(t, err)
	_, err = fsys.CreateDirectory(&root, "stuff", 0, 0, 0755)
	require.NoError(t, err)

	_, err = fsys.CreateFile("/stuff/keep.txt", 0644)
	require.NoError(t, err)

	root, err = fsys.PathToInode("/")
	require.NoError(t, err)
	err = fsys.DeleteDirectory(&root, "stuff")
	require.Error(t, err)
}

func TestDeleteDirectoryRefusesRootAndCwd(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	root, err := fsys.PathToInode("/")
	require.NoError(t, err)

	err = fsys.DeleteDirectory(&root, ".")
	require.Error(t, err)

	_, err = fsys.CreateDirectory(&root, "here", 0, 0, 0755)
	require.NoError(t, err)
	require.NoError(t, fsys.ChangeDirectory("/here"))

	root, err = fsys.PathToInode("/")
	require.NoError(t, err)
	err = fsys.DeleteDirectory(&root, "here")
	require.Error(t, err)
}

func TestRemoveDirectoryEntryRejectsDotNames(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	root, err := fsys.PathToInode("/")
	require.NoError(t, err)

	require.Error(t, fsys.RemoveDirectoryEntry(&root, "."))
	require.Error(t, fsys.RemoveDirectoryEntry(&root, ".."))
}

func TestDuplicateNameRejected(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	_, err := fsys.CreateFile("/dup.txt", 0644)
	require.NoError(t, err)

	_, err = fsys.CreateFile("/dup.txt", 0644)
	require.Error(t, err)
}

func TestUnmountRemountPreservesDirectoryListing(t *testing.T) {
	stream := newImage(t, ext2.FormatOptions{})

	fsys, err := ext2.Mount(stream, "test.img")
	require.NoError(t, err)
	require.NoError(t, fsys.Login("root", "root"))

	_, err = fsys.CreateFile("/a.txt", 0644)
	require.NoError(t, err)
	_, err = fsys.CreateFile("/b.txt", 0644)
	require.NoError(t, err)

	require.NoError(t, fsys.Unmount())

	fsys2, err := ext2.Mount(stream, "test.img")
	require.NoError(t, err)

	root, err := fsys2.PathToInode("/")
	require.NoError(t, err)
	entries, err := fsys2.ListDirectory(&root)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name] = true
	}
	require.True(t, names["a.txt"])
	require.True(t, names["b.txt"])
}
