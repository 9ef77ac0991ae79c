package ext2

import (
	"io"
	"time"

	"github.com/RoManTic127/filesystem-of-linux/internal/bitmap"
	"github.com/RoManTic127/filesystem-of-linux/internal/blockdev"
)

// Format lays out a fresh image on stream: it zero-fills the whole device,
// writes both bitmaps with the metadata region (superblock, bitmaps, inode
// table) marked permanently reserved, writes an empty inode table, and
// creates the root directory inode with "." and ".." entries pointing at
// itself. The original formatter only zero-filled the image and wrote the
// superblock, leaving both bitmaps all-zero and no root inode -- every
// block and inode looked free, and the image was unusable until something
// else repaired it. This is the fix.
func Format(stream io.ReadWriteSeeker, opts FormatOptions) error {
	opts = opts.withDefaults()

	floor := firstDataBlock(opts.TotalInodes, opts.BlockSize)
	if err := validateGeometry(opts, floor); err != nil {
		return err
	}

	if err := zeroFillImage(stream, opts.TotalBlocks, opts.BlockSize); err != nil {
		return err
	}

	device := blockdev.New(stream, opts.TotalBlocks, opts.BlockSize)

	blockAlloc := bitmap.New(opts.TotalBlocks, floor)
	// Inodes 1 through FirstUsableInode-1 are reserved (1 for bad blocks, 2
	// for root, 3-10 unused placeholders), so the allocator's floor covers
	// all of them and CreateInode never hands one out.
	inodeAlloc := bitmap.New(opts.TotalInodes, FirstUsableInode-1)

	if !inodeAlloc.Test(RootInodeNumber - 1) {
		return NewDriverErrorWithMessage(ErrnoInvalidFormat, "root inode number is not reachable with this geometry")
	}

	rootDataBlock, ok := blockAlloc.Allocate()
	if !ok {
		return NewDriverError(ErrnoNoSpace)
	}

	now := time.Now()
	sb := NewSuperblock(opts.TotalBlocks, opts.TotalInodes, opts.BlockSize, now)

	fsys := &FileSystem{
		device:     device,
		sb:         sb,
		blockAlloc: blockAlloc,
		inodeAlloc: inodeAlloc,
		cwd:        RootInodeNumber,
		users:      NewUserRegistry(),
		mounted:    true,
	}

	root := Inode{
		Number:     RootInodeNumber,
		Mode:       ModeDirectory | 0755,
		UID:        0,
		GID:        0,
		Size:       uint64(opts.BlockSize),
		ATime:      now,
		CTime:      now,
		MTime:      now,
		LinksCount: 2,
		Blocks:     1,
	}
	root.Block[0] = rootDataBlock

	if err := fsys.WriteInode(&root); err != nil {
		return err
	}

	buf := make([]byte, opts.BlockSize)
	dot := dirent{Inode: RootInodeNumber, RecLen: minRecLen(1), NameLen: 1, FileType: DirentTypeDir, Name: "."}
	copy(buf[0:dot.RecLen], encodeDirent(dot))

	dotdotOffset := dot.RecLen
	dotdot := dirent{Inode: RootInodeNumber, RecLen: uint16(opts.BlockSize) - dotdotOffset, NameLen: 2, FileType: DirentTypeDir, Name: ".."}
	copy(buf[dotdotOffset:dotdotOffset+dotdot.RecLen], encodeDirent(dotdot))

	if err := device.WriteBlock(BlockBitmapNumber, padToBlock(blockAlloc.Bytes(), opts.BlockSize)); err != nil {
		return NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}
	if err := device.WriteBlock(InodeBitmapNumber, padToBlock(inodeAlloc.Bytes(), opts.BlockSize)); err != nil {
		return NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}
	if err := device.WriteBlock(blockdev.BlockID(rootDataBlock), buf); err != nil {
		return NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}

	sb.FreeBlocksCount = blockAlloc.FreeCount()
	sb.FreeInodesCount = inodeAlloc.FreeCount()
	encoded := sb.Encode(opts.BlockSize)
	if err := device.WriteBlock(SuperblockNumber, encoded); err != nil {
		return NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}

	return nil
}

// validateGeometry rejects a combination of block/inode counts that can't
// produce a sane image: at least the metadata region plus one data block
// for the root directory, and enough inodes for the reserved ones plus the
// root itself.
func validateGeometry(opts FormatOptions, floor uint32) error {
	if opts.TotalInodes <= FirstUsableInode {
		return NewDriverErrorWithMessage(ErrnoInvalidFormat, "inode count must exceed the reserved inode range")
	}
	if opts.TotalBlocks <= floor {
		return NewDriverErrorWithMessage(ErrnoInvalidFormat, "block count leaves no room for data blocks past the metadata region")
	}
	return nil
}

func padToBlock(data []byte, blockSize uint32) []byte {
	if uint32(len(data)) >= blockSize {
		return data[:blockSize]
	}
	buf := make([]byte, blockSize)
	copy(buf, data)
	return buf
}

func zeroFillImage(stream io.ReadWriteSeeker, totalBlocks, blockSize uint32) error {
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}
	zeros := make([]byte, blockSize)
	for i := uint32(0); i < totalBlocks; i++ {
		if _, err := stream.Write(zeros); err != nil {
			return NewDriverErrorWithMessage(ErrnoIO, err.Error())
		}
	}
	return nil
}
