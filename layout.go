package ext2

// Fixed constants from the on-disk layout. Block 0 is the superblock, block
// 1 the free-block bitmap, block 2 the free-inode bitmap, and the inode
// table follows immediately after.
const (
	// DefaultBlockSize is the size of one block, in bytes.
	DefaultBlockSize = 1024

	// DefaultMaxBlocks is the reference image size, in blocks.
	DefaultMaxBlocks = 1024

	// DefaultMaxInodes is the reference inode count.
	DefaultMaxInodes = 128

	// InodeSize is the on-disk size of a single inode record, in bytes.
	InodeSize = 128

	// SuperblockNumber is the block holding the superblock.
	SuperblockNumber = 0
	// BlockBitmapNumber is the block holding the free-block bitmap.
	BlockBitmapNumber = 1
	// InodeBitmapNumber is the block holding the free-inode bitmap.
	InodeBitmapNumber = 2
	// InodeTableStart is the first block of the inode table.
	InodeTableStart = 3

	// RootInodeNumber is the inode number of the filesystem root. It is
	// fixed regardless of how many inodes the image has.
	RootInodeNumber = 2

	// FirstReservedInode is the lowest inode number reserved by the
	// filesystem; 1 through FirstUsableInode-1 are reserved.
	FirstReservedInode = 1
	// FirstUsableInode is the first inode number available for user files.
	FirstUsableInode = 11

	// DirectPointers is the number of direct block pointers in an inode.
	DirectPointers = 12
	// IndirectPointerIndex is the index of the single-indirect pointer
	// within RawInode.Block.
	IndirectPointerIndex = 12
	// TotalBlockPointers is the total number of entries in RawInode.Block
	// (12 direct + 1 single-indirect + 2 reserved, unused, double/triple
	// indirect slots).
	TotalBlockPointers = 15

	// MaxNameLength is the longest name a directory entry can hold.
	MaxNameLength = 255

	// MaxOpenFiles is the number of open-file slots in the session's file
	// table.
	MaxOpenFiles = 32

	// ExtMagic is the on-disk magic number identifying a mountable image.
	ExtMagic = 0xEF53
)

// pointersPerIndirectBlock returns how many 32-bit block numbers fit in one
// indirect block for the given block size.
func pointersPerIndirectBlock(blockSize uint32) uint32 {
	return blockSize / 4
}

// inodeTableBlocks returns how many blocks the inode table occupies for
// maxInodes inodes of InodeSize bytes apiece.
func inodeTableBlocks(maxInodes uint32, blockSize uint32) uint32 {
	total := maxInodes * InodeSize
	return (total + blockSize - 1) / blockSize
}

// firstDataBlock returns the first block index past the fixed metadata
// region (superblock, both bitmaps, inode table).
func firstDataBlock(maxInodes uint32, blockSize uint32) uint32 {
	return InodeTableStart + inodeTableBlocks(maxInodes, blockSize)
}

// blocksForSize returns ceil(size/blockSize), the number of data blocks
// needed to hold size bytes.
func blocksForSize(size uint64, blockSize uint32) uint32 {
	if size == 0 {
		return 0
	}
	return uint32((size + uint64(blockSize) - 1) / uint64(blockSize))
}

// align4 rounds n up to the next multiple of 4, used for directory entry
// record lengths.
func align4(n uint32) uint32 {
	return (n + 3) &^ 3
}
