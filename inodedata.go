package ext2

import (
	"fmt"
	"time"

	"github.com/RoManTic127/filesystem-of-linux/internal/blockdev"
)

// allocateBlock grabs the lowest free data block, persists the bitmap and
// free count, and zero-fills the block before returning it.
func (fsys *FileSystem) allocateBlock() (uint32, error) {
	n, ok := fsys.blockAlloc.Allocate()
	if !ok {
		return 0, NewDriverError(ErrnoNoSpace)
	}

	if err := fsys.device.ZeroBlock(blockdev.BlockID(n)); err != nil {
		return 0, rollback(NewDriverErrorWithMessage(ErrnoIO, err.Error()), func() error { return fsys.blockAlloc.Free(n) })
	}
	if err := fsys.writeBlockBitmap(); err != nil {
		return 0, rollback(err, func() error { return fsys.blockAlloc.Free(n) })
	}
	fsys.sb.FreeBlocksCount = fsys.blockAlloc.FreeCount()
	if err := fsys.writeSuperblock(); err != nil {
		return 0, rollback(err,
			func() error { return fsys.blockAlloc.Free(n) },
			func() error { return fsys.writeBlockBitmap() },
		)
	}
	return n, nil
}

// freeBlock releases a data block and keeps the bitmap/superblock in sync.
// Block 0 (the zero sentinel meaning "unallocated") is skipped here without
// touching the allocator, since callers pass it routinely when walking
// sparse pointer arrays.
func (fsys *FileSystem) freeBlock(n uint32) error {
	if n == 0 {
		return nil
	}
	if err := fsys.blockAlloc.Free(n); err != nil {
		return err
	}
	fsys.sb.FreeBlocksCount = fsys.blockAlloc.FreeCount()
	if err := fsys.writeBlockBitmap(); err != nil {
		return err
	}
	return fsys.writeSuperblock()
}

func (fsys *FileSystem) readIndirectBlock(blockNo uint32) ([]uint32, error) {
	buf := make([]byte, fsys.device.BlockSize)
	if err := fsys.device.ReadBlock(blockdev.BlockID(blockNo), buf); err != nil {
		return nil, NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}

	count := pointersPerIndirectBlock(fsys.device.BlockSize)
	entries := make([]uint32, count)
	for i := uint32(0); i < count; i++ {
		entries[i] = leUint32(buf[i*4 : i*4+4])
	}
	return entries, nil
}

func (fsys *FileSystem) writeIndirectBlock(blockNo uint32, entries []uint32) error {
	buf := make([]byte, fsys.device.BlockSize)
	for i, v := range entries {
		putLeUint32(buf[i*4:i*4+4], v)
	}
	if err := fsys.device.WriteBlock(blockdev.BlockID(blockNo), buf); err != nil {
		return NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}
	return nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// GetInodeBlock maps a logical block index within a file to a physical
// block number, honoring direct and single-indirect pointers only. A
// result of 0 means the logical block is an unallocated hole.
func (fsys *FileSystem) GetInodeBlock(inode *Inode, logicalIndex uint32) (uint32, error) {
	if logicalIndex < DirectPointers {
		return inode.Block[logicalIndex], nil
	}

	perIndirect := pointersPerIndirectBlock(fsys.device.BlockSize)
	if logicalIndex < DirectPointers+perIndirect {
		indirect := inode.Block[IndirectPointerIndex]
		if indirect == 0 {
			return 0, nil
		}
		entries, err := fsys.readIndirectBlock(indirect)
		if err != nil {
			return 0, err
		}
		return entries[logicalIndex-DirectPointers], nil
	}

	return 0, NewDriverErrorWithMessage(
		ErrnoOutOfRange,
		fmt.Sprintf("logical block %d exceeds single-indirect addressing", logicalIndex),
	)
}

// SetInodeBlock records blockNo as the physical block backing logical
// block logicalIndex, allocating the indirect block lazily on first use.
// It persists the inode (and the indirect block, if touched) itself.
func (fsys *FileSystem) SetInodeBlock(inode *Inode, logicalIndex uint32, blockNo uint32) error {
	if logicalIndex < DirectPointers {
		inode.Block[logicalIndex] = blockNo
		return fsys.WriteInode(inode)
	}

	perIndirect := pointersPerIndirectBlock(fsys.device.BlockSize)
	if logicalIndex >= DirectPointers+perIndirect {
		return NewDriverErrorWithMessage(
			ErrnoOutOfRange,
			fmt.Sprintf("logical block %d exceeds single-indirect addressing", logicalIndex),
		)
	}

	if inode.Block[IndirectPointerIndex] == 0 {
		newIndirect, err := fsys.allocateBlock()
		if err != nil {
			return err
		}
		inode.Block[IndirectPointerIndex] = newIndirect
	}

	entries, err := fsys.readIndirectBlock(inode.Block[IndirectPointerIndex])
	if err != nil {
		return err
	}
	entries[logicalIndex-DirectPointers] = blockNo
	if err := fsys.writeIndirectBlock(inode.Block[IndirectPointerIndex], entries); err != nil {
		return err
	}
	return fsys.WriteInode(inode)
}

// ReadInodeData copies up to len(buf) bytes starting at offset into buf,
// clipped to the inode's size. A hole in the middle of the file stops the
// read early; the return value is the number of bytes actually gathered.
func (fsys *FileSystem) ReadInodeData(inode *Inode, buf []byte, offset int64) (int, error) {
	if offset < 0 || uint64(offset) >= inode.Size {
		return 0, nil
	}

	blockSize := int64(fsys.device.BlockSize)
	remaining := len(buf)
	if uint64(offset)+uint64(remaining) > inode.Size {
		remaining = int(inode.Size - uint64(offset))
	}

	read := 0
	current := offset
	for remaining > 0 {
		logicalIndex := uint32(current / blockSize)
		blockOffset := uint32(current % blockSize)

		physical, err := fsys.GetInodeBlock(inode, logicalIndex)
		if err != nil || physical == 0 {
			break
		}

		blockBuf := make([]byte, blockSize)
		if err := fsys.device.ReadBlock(blockdev.BlockID(physical), blockBuf); err != nil {
			break
		}

		chunk := int(blockSize) - int(blockOffset)
		if chunk > remaining {
			chunk = remaining
		}
		copy(buf[read:read+chunk], blockBuf[blockOffset:int(blockOffset)+chunk])

		read += chunk
		remaining -= chunk
		current += int64(chunk)
	}

	inode.ATime = time.Now()
	_ = fsys.WriteInode(inode)
	return read, nil
}

// WriteInodeData writes data starting at offset, allocating new blocks
// (and the indirect block, lazily) as needed. It stops and returns its
// progress so far if allocation fails partway through. The inode's size
// grows to cover the write but never shrinks.
func (fsys *FileSystem) WriteInodeData(inode *Inode, data []byte, offset int64) (int, error) {
	blockSize := int64(fsys.device.BlockSize)
	remaining := len(data)
	written := 0
	current := offset
	var loopErr error

	for remaining > 0 {
		logicalIndex := uint32(current / blockSize)
		blockOffset := uint32(current % blockSize)

		physical, err := fsys.GetInodeBlock(inode, logicalIndex)
		if err != nil {
			loopErr = err
			break
		}
		if physical == 0 {
			physical, err = fsys.allocateBlock()
			if err != nil {
				loopErr = err
				break
			}
			if err := fsys.SetInodeBlock(inode, logicalIndex, physical); err != nil {
				loopErr = rollback(err, func() error { return fsys.freeBlock(physical) })
				break
			}
		}

		blockBuf := make([]byte, blockSize)
		if err := fsys.device.ReadBlock(blockdev.BlockID(physical), blockBuf); err != nil {
			loopErr = NewDriverErrorWithMessage(ErrnoIO, err.Error())
			break
		}

		chunk := int(blockSize) - int(blockOffset)
		if chunk > remaining {
			chunk = remaining
		}
		copy(blockBuf[blockOffset:int(blockOffset)+chunk], data[written:written+chunk])

		if err := fsys.device.WriteBlock(blockdev.BlockID(physical), blockBuf); err != nil {
			loopErr = NewDriverErrorWithMessage(ErrnoIO, err.Error())
			break
		}

		written += chunk
		remaining -= chunk
		current += int64(chunk)
	}

	if uint64(current) > inode.Size {
		inode.Size = uint64(current)
		inode.Blocks = blocksForSize(inode.Size, fsys.device.BlockSize)
	}
	now := time.Now()
	inode.MTime = now
	inode.CTime = now
	if err := fsys.WriteInode(inode); err != nil {
		return written, err
	}
	return written, loopErr
}

// TruncateInode shrinks a file to length bytes, freeing every block whose
// logical index is now past the new end. Growing a file this way is not
// supported -- see the design notes -- and returns BadPath.
func (fsys *FileSystem) TruncateInode(inode *Inode, length uint64) error {
	if length > inode.Size {
		return NewDriverErrorWithMessage(
			ErrnoBadPath,
			"truncate cannot grow a file, only shrink it",
		)
	}
	if length == inode.Size {
		return nil
	}

	blockSize := fsys.device.BlockSize
	newBlocks := blocksForSize(length, blockSize)
	oldBlocks := blocksForSize(inode.Size, blockSize)

	for i := newBlocks; i < oldBlocks; i++ {
		physical, err := fsys.GetInodeBlock(inode, i)
		if err == nil && physical != 0 {
			_ = fsys.freeBlock(physical)
			_ = fsys.SetInodeBlock(inode, i, 0)
		}
	}

	inode.Size = length
	inode.Blocks = newBlocks
	now := time.Now()
	inode.MTime = now
	inode.CTime = now
	return fsys.WriteInode(inode)
}

// CheckPermission reports whether the current session's identity has the
// requested permission bits (0x4 read, 0x2 write, 0x1 execute, or a
// combination) on inode. There is no superuser bypass: uid 0 must still
// match the owner/group nibble or fall through to "other", exactly as the
// spec calls for.
func (fsys *FileSystem) CheckPermission(inode *Inode, required uint16) bool {
	var selected uint16
	switch {
	case fsys.who.loggedIn && fsys.who.uid == inode.UID:
		selected = (inode.Mode >> 6) & 0x7
	case fsys.who.loggedIn && fsys.who.gid == inode.GID:
		selected = (inode.Mode >> 3) & 0x7
	default:
		selected = inode.Mode & 0x7
	}
	return selected&required == required
}

// ChangePermission overlays the low 12 bits of mode onto inode, preserving
// its file-type nibble.
func (fsys *FileSystem) ChangePermission(inode *Inode, mode uint16) error {
	inode.Mode = (inode.Mode & ModeTypeMask) | (mode & ModePermMask)
	inode.CTime = time.Now()
	return fsys.WriteInode(inode)
}

// ChangeOwner replaces inode's uid/gid.
func (fsys *FileSystem) ChangeOwner(inode *Inode, uid, gid uint16) error {
	inode.UID = uid
	inode.GID = gid
	inode.CTime = time.Now()
	return fsys.WriteInode(inode)
}

// IncrementLinkCount bumps inode's link count.
func (fsys *FileSystem) IncrementLinkCount(inode *Inode) error {
	inode.LinksCount++
	inode.CTime = time.Now()
	return fsys.WriteInode(inode)
}

// DecrementLinkCount drops inode's link count, saturating at 0.
func (fsys *FileSystem) DecrementLinkCount(inode *Inode) error {
	if inode.LinksCount > 0 {
		inode.LinksCount--
	}
	inode.CTime = time.Now()
	return fsys.WriteInode(inode)
}
