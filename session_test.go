package ext2_test

import (
	"testing"

	ext2 "github.com/RoManTic127/filesystem-of-linux"
	"github.com/stretchr/testify/require"
)

func TestLoginRejectsBadCredentials(t *testing.T) {
	stream := newImage(t, ext2.FormatOptions{})
	fsys, err := ext2.Mount(stream, "test.img")
	require.NoError(t, err)

	err = fsys.Login("root", "wrong-password")
	require.ErrorIs(t, err, ext2.ErrBadCredentials)
}

func TestOperationsRequireLogin(t *testing.T) {
	stream := newImage(t, ext2.FormatOptions{})
	fsys, err := ext2.Mount(stream, "test.img")
	require.NoError(t, err)

	_, err = fsys.CreateFile("/no-session.txt", 0644)
	require.ErrorIs(t, err, ext2.ErrNotLoggedIn)
}

func TestLogoutThenLoginAgainWorks(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})
	require.NoError(t, fsys.Logout())
	require.ErrorIs(t, fsys.Logout(), ext2.ErrNotLoggedIn)
	require.NoError(t, fsys.Login("bob", "bob123"))
}

func TestUsersListsSeedAccounts(t *testing.T) {
	fsys := mustMount(t, ext2.FormatOptions{})
	users := fsys.Users()
	require.Contains(t, users, "root")
	require.Contains(t, users, "alice")
}

func TestFillToNoSpaceThenFreeThenReallocateLowest(t *testing.T) {
	opts := ext2.FormatOptions{TotalBlocks: 18, TotalInodes: 32}
	fsys := mustMount(t, opts)

	inode, err := fsys.CreateInode(ext2.ModeRegular|0644, 0, 0)
	require.NoError(t, err)

	payload := make([]byte, ext2.DefaultBlockSize)

	var lastErr error
	blocksWritten := 0
	for i := 0; i < ext2.DirectPointers+4; i++ {
		_, lastErr = fsys.WriteInodeData(&inode, payload, int64(i)*int64(ext2.DefaultBlockSize))
		if lastErr != nil {
			break
		}
		blocksWritten++
	}
	require.Error(t, lastErr, "image is small enough that allocation should eventually fail")
	require.Greater(t, blocksWritten, 0)

	statusFull, err := fsys.Status()
	require.NoError(t, err)
	require.Equal(t, uint32(0), statusFull.FreeBlocks)

	firstBlock := inode.Block[0]
	require.NoError(t, fsys.TruncateInode(&inode, 0))

	freedStatus, err := fsys.Status()
	require.NoError(t, err)
	require.Greater(t, freedStatus.FreeBlocks, uint32(0))

	next, err := fsys.CreateInode(ext2.ModeRegular|0644, 0, 0)
	require.NoError(t, err)
	_, err = fsys.WriteInodeData(&next, payload[:1], 0)
	require.NoError(t, err)
	require.Equal(t, firstBlock, next.Block[0])
}
