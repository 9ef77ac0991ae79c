package ext2

import (
	"fmt"
	"io"
	"time"

	"github.com/RoManTic127/filesystem-of-linux/internal/bitmap"
	"github.com/RoManTic127/filesystem-of-linux/internal/blockdev"
)

// openFileSlot is one entry in the session's open-file table.
type openFileSlot struct {
	inUse    bool
	handleID uint64
	inode    uint32
	offset   int64
	access   AccessMode
}

// identity is the currently logged-in user, or the zero value when logged
// out.
type identity struct {
	loggedIn bool
	uid      uint16
	gid      uint16
	username string
}

// FileSystem is a single mount session: the open image, the in-memory
// superblock mirror, both bitmap allocators, the open-file table, the
// current working directory, and the logged-in identity. Mount produces
// one, Unmount tears it down; nothing here is safe to share across mount
// sessions.
type FileSystem struct {
	device *blockdev.Device
	sb     Superblock

	blockAlloc *bitmap.Allocator
	inodeAlloc *bitmap.Allocator

	openFiles  [MaxOpenFiles]openFileSlot
	nextHandle uint64

	cwd   uint32
	who   identity
	users *UserRegistry

	imagePath string
	mounted   bool
}

// Status is a point-in-time snapshot of the mount session, the data behind
// the `status` command.
type Status struct {
	ImagePath     string
	TotalBlocks   uint32
	FreeBlocks    uint32
	TotalInodes   uint32
	FreeInodes    uint32
	CurrentUser   string
	OpenFileCount int
}

// FormatOptions configures a fresh image. Zero values fall back to the
// reference geometry (B=1024, M_B=1024, M_I=128).
type FormatOptions struct {
	TotalBlocks uint32
	TotalInodes uint32
	BlockSize   uint32
}

func (o FormatOptions) withDefaults() FormatOptions {
	if o.BlockSize == 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.TotalBlocks == 0 {
		o.TotalBlocks = DefaultMaxBlocks
	}
	if o.TotalInodes == 0 {
		o.TotalInodes = DefaultMaxInodes
	}
	return o
}

// Mount opens an already-formatted image and validates its superblock.
// imagePath is stored only for Status() / presentation purposes; stream is
// the actual I/O handle.
func Mount(stream io.ReadWriteSeeker, imagePath string) (*FileSystem, error) {
	blockSize := uint32(DefaultBlockSize)

	sbBuf := make([]byte, blockSize)
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return nil, NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}
	if _, err := io.ReadFull(stream, sbBuf); err != nil {
		return nil, NewDriverErrorWithMessage(ErrnoIO, "reading superblock: "+err.Error())
	}

	sb, err := DecodeSuperblock(sbBuf)
	if err != nil {
		return nil, err
	}

	totalBlocks, err := blockdev.DetermineBlockCount(stream, blockSize)
	if err != nil {
		return nil, NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}
	if totalBlocks < sb.BlocksCount {
		return nil, NewDriverErrorWithMessage(
			ErrnoInvalidFormat,
			fmt.Sprintf("image is %d blocks, superblock claims %d", totalBlocks, sb.BlocksCount),
		)
	}

	device := blockdev.New(stream, sb.BlocksCount, blockSize)

	blockBitmapBuf := make([]byte, blockSize)
	if err := device.ReadBlock(BlockBitmapNumber, blockBitmapBuf); err != nil {
		return nil, NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}
	inodeBitmapBuf := make([]byte, blockSize)
	if err := device.ReadBlock(InodeBitmapNumber, inodeBitmapBuf); err != nil {
		return nil, NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}

	fsys := &FileSystem{
		device:     device,
		sb:         sb,
		blockAlloc: bitmap.FromBytes(blockBitmapBuf, sb.BlocksCount, sb.FirstDataBlock),
		inodeAlloc: bitmap.FromBytes(inodeBitmapBuf, sb.InodesCount, FirstUsableInode-1),
		cwd:        RootInodeNumber,
		users:      NewUserRegistry(),
		imagePath:  imagePath,
		mounted:    true,
	}

	sb.MountCount++
	sb.MountTime = serializeTimestamp(time.Now())
	fsys.sb = sb
	if err := fsys.writeSuperblock(); err != nil {
		return nil, err
	}

	return fsys, nil
}

// Unmount flushes the superblock and closes every open file handle. The
// underlying stream itself is the caller's responsibility to close.
func (fsys *FileSystem) Unmount() error {
	if !fsys.mounted {
		return NewDriverError(ErrnoNotMounted)
	}
	for i := range fsys.openFiles {
		fsys.openFiles[i] = openFileSlot{}
	}
	fsys.mounted = false
	return fsys.writeSuperblock()
}

func (fsys *FileSystem) requireMounted() error {
	if !fsys.mounted {
		return NewDriverError(ErrnoNotMounted)
	}
	return nil
}

func (fsys *FileSystem) writeSuperblock() error {
	buf := fsys.sb.Encode(fsys.device.BlockSize)
	return fsys.device.WriteBlock(SuperblockNumber, buf)
}

func (fsys *FileSystem) writeBlockBitmap() error {
	buf := make([]byte, fsys.device.BlockSize)
	copy(buf, fsys.blockAlloc.Bytes())
	return fsys.device.WriteBlock(BlockBitmapNumber, buf)
}

func (fsys *FileSystem) writeInodeBitmap() error {
	buf := make([]byte, fsys.device.BlockSize)
	copy(buf, fsys.inodeAlloc.Bytes())
	return fsys.device.WriteBlock(InodeBitmapNumber, buf)
}

// Status reports a snapshot of the current mount session.
func (fsys *FileSystem) Status() (Status, error) {
	if err := fsys.requireMounted(); err != nil {
		return Status{}, err
	}

	openCount := 0
	for _, slot := range fsys.openFiles {
		if slot.inUse {
			openCount++
		}
	}

	username := "logged out"
	if fsys.who.loggedIn {
		username = fsys.who.username
	}

	return Status{
		ImagePath:     fsys.imagePath,
		TotalBlocks:   fsys.sb.BlocksCount,
		FreeBlocks:    fsys.blockAlloc.FreeCount(),
		TotalInodes:   fsys.sb.InodesCount,
		FreeInodes:    fsys.inodeAlloc.FreeCount(),
		CurrentUser:   username,
		OpenFileCount: openCount,
	}, nil
}
