package ext2_test

import (
	"testing"

	ext2 "github.com/RoManTic127/filesystem-of-linux"
	"github.com/stretchr/testify/require"
)

func TestChmodThenOtherUserDeniedWrite(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	inode, err := fsys.CreateFile("/private.txt", 0644)
	require.NoError(t, err)
	require.NoError(t, fsys.ChangePermission(&inode, 0600))

	require.NoError(t, fsys.Logout())
	require.NoError(t, fsys.Login("alice", "alice123"))

	_, err = fsys.OpenFile("/private.txt", ext2.AccessWrite)
	require.Error(t, err)

	var driverErr *ext2.DriverError
	require.ErrorAs(t, err, &driverErr)
	require.Equal(t, ext2.ErrnoPermissionDenied, driverErr.Errno)
}

func TestOwnerCanStillReadAfterChmod(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	inode, err := fsys.CreateFile("/mine.txt", 0644)
	require.NoError(t, err)
	require.NoError(t, fsys.ChangePermission(&inode, 0600))

	handle, err := fsys.OpenFile("/mine.txt", ext2.AccessRead)
	require.NoError(t, err)
	require.NoError(t, fsys.CloseFile(handle))
}

func TestRootHasNoPermissionBypass(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	_, err := fsys.CreateFile("/alice-owned.txt", 0600)
	require.NoError(t, err)
	inode, err := fsys.PathToInode("/alice-owned.txt")
	require.NoError(t, err)
	require.NoError(t, fsys.ChangeOwner(&inode, 1, 1))

	// root is still logged in here; it must not bypass the owner-only bits.
	_, err = fsys.OpenFile("/alice-owned.txt", ext2.AccessWrite)
	require.Error(t, err)
}

func TestMkdirRequiresParentWritePermission(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	root, err := fsys.PathToInode("/")
	require.NoError(t, err)
	require.NoError(t, fsys.ChangePermission(&root, 0555))

	require.NoError(t, fsys.Logout())
	require.NoError(t, fsys.Login("alice", "alice123"))

	root, err = fsys.PathToInode("/")
	require.NoError(t, err)
	_, err = fsys.CreateDirectory(&root, "nope", 1, 1, 0755)
	require.Error(t, err)

	var driverErr *ext2.DriverError
	require.ErrorAs(t, err, &driverErr)
	require.Equal(t, ext2.ErrnoPermissionDenied, driverErr.Errno)
}

func TestChownChangesOwnership(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})

	inode, err := fsys.CreateFile("/file.txt", 0644)
	require.NoError(t, err)
	require.NoError(t, fsys.ChangeOwner(&inode, 7, 9))

	reloaded, err := fsys.PathToInode("/file.txt")
	require.NoError(t, err)
	require.Equal(t, uint16(7), reloaded.UID)
	require.Equal(t, uint16(9), reloaded.GID)
}
