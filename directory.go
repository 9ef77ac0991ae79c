package ext2

import (
	"time"

	"github.com/RoManTic127/filesystem-of-linux/internal/blockdev"
)

// DirectoryEntryInfo is what ListDirectory and Lookup hand back: just
// enough to resolve a name to an inode and tell files from directories
// without a second round trip through ReadInode.
type DirectoryEntryInfo struct {
	Name     string
	Inode    uint32
	FileType uint8
}

// directoryBlockCount returns how many logical blocks dirInode currently
// spans.
func directoryBlockCount(dirInode *Inode, blockSize uint32) uint32 {
	return blocksForSize(dirInode.Size, blockSize)
}

// readDirectoryBlock loads logical block index of dirInode.
func (fsys *FileSystem) readDirectoryBlock(dirInode *Inode, logicalIndex uint32) ([]byte, uint32, error) {
	physical, err := fsys.GetInodeBlock(dirInode, logicalIndex)
	if err != nil {
		return nil, 0, err
	}
	if physical == 0 {
		return nil, 0, NewDriverErrorWithMessage(ErrnoIO, "directory has an unallocated block")
	}
	buf := make([]byte, fsys.device.BlockSize)
	if err := fsys.device.ReadBlock(blockdev.BlockID(physical), buf); err != nil {
		return nil, 0, NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}
	return buf, physical, nil
}

func (fsys *FileSystem) writeDirectoryBlock(physical uint32, buf []byte) error {
	if err := fsys.device.WriteBlock(blockdev.BlockID(physical), buf); err != nil {
		return NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}
	return nil
}

// Lookup searches dirInode for name and returns its entry, or ErrnoNotFound.
func (fsys *FileSystem) Lookup(dirInode *Inode, name string) (DirectoryEntryInfo, error) {
	if !dirInode.IsDir() {
		return DirectoryEntryInfo{}, NewDriverError(ErrnoNotDirectory)
	}

	blocks := directoryBlockCount(dirInode, fsys.device.BlockSize)
	for i := uint32(0); i < blocks; i++ {
		buf, _, err := fsys.readDirectoryBlock(dirInode, i)
		if err != nil {
			return DirectoryEntryInfo{}, err
		}
		cursor := newDirEntryCursor(buf)
		for {
			entry, _, ok, err := cursor.next()
			if err != nil {
				return DirectoryEntryInfo{}, NewDriverErrorWithMessage(ErrnoIO, err.Error())
			}
			if !ok {
				break
			}
			if entry.isTombstone() {
				continue
			}
			if entry.Name == name {
				return DirectoryEntryInfo{Name: entry.Name, Inode: entry.Inode, FileType: entry.FileType}, nil
			}
		}
	}
	return DirectoryEntryInfo{}, NewDriverError(ErrnoNotFound)
}

// ListDirectory returns every live entry in dirInode, in on-disk order.
func (fsys *FileSystem) ListDirectory(dirInode *Inode) ([]DirectoryEntryInfo, error) {
	if !dirInode.IsDir() {
		return nil, NewDriverError(ErrnoNotDirectory)
	}

	var out []DirectoryEntryInfo
	blocks := directoryBlockCount(dirInode, fsys.device.BlockSize)
	for i := uint32(0); i < blocks; i++ {
		buf, _, err := fsys.readDirectoryBlock(dirInode, i)
		if err != nil {
			return nil, err
		}
		cursor := newDirEntryCursor(buf)
		for {
			entry, _, ok, err := cursor.next()
			if err != nil {
				return nil, NewDriverErrorWithMessage(ErrnoIO, err.Error())
			}
			if !ok {
				break
			}
			if entry.isTombstone() {
				continue
			}
			out = append(out, DirectoryEntryInfo{Name: entry.Name, Inode: entry.Inode, FileType: entry.FileType})
		}
	}
	return out, nil
}

// AddDirectoryEntry inserts a (name -> inode) mapping into dirInode. It
// first tries to reuse a tombstone or split a live entry with slack, and
// only allocates a fresh block when no existing block has room -- the same
// order of preference the original allocator used for blocks and inodes.
func (fsys *FileSystem) AddDirectoryEntry(dirInode *Inode, name string, inode uint32, fileType uint8) error {
	if len(name) == 0 || len(name) > MaxNameLength {
		return NewDriverErrorWithMessage(ErrnoBadPath, "directory entry name length out of range")
	}
	if _, err := fsys.Lookup(dirInode, name); err == nil {
		return NewDriverError(ErrnoExists)
	}

	needed := minRecLen(len(name))
	blockSize := fsys.device.BlockSize
	blocks := directoryBlockCount(dirInode, blockSize)

	for i := uint32(0); i < blocks; i++ {
		buf, physical, err := fsys.readDirectoryBlock(dirInode, i)
		if err != nil {
			return err
		}

		cursor := newDirEntryCursor(buf)
		for {
			entry, offset, ok, err := cursor.next()
			if err != nil {
				return NewDriverErrorWithMessage(ErrnoIO, err.Error())
			}
			if !ok {
				break
			}

			if entry.isTombstone() && entry.RecLen >= needed {
				fresh := dirent{Inode: inode, RecLen: entry.RecLen, NameLen: uint8(len(name)), FileType: fileType, Name: name}
				copy(buf[offset:offset+uint32(fresh.RecLen)], encodeDirent(fresh))
				return fsys.writeDirectoryBlock(physical, buf)
			}

			if !entry.isTombstone() {
				liveLen := minRecLen(int(entry.NameLen))
				slack := entry.RecLen - liveLen
				if slack >= needed {
					entry.RecLen = liveLen
					copy(buf[offset:offset+uint32(liveLen)], encodeDirent(entry))

					fresh := dirent{Inode: inode, RecLen: slack, NameLen: uint8(len(name)), FileType: fileType, Name: name}
					freshOffset := offset + uint32(liveLen)
					copy(buf[freshOffset:freshOffset+uint32(slack)], encodeDirent(fresh))
					return fsys.writeDirectoryBlock(physical, buf)
				}
			}
		}
	}

	physical, err := fsys.allocateBlock()
	if err != nil {
		return err
	}
	if err := fsys.SetInodeBlock(dirInode, blocks, physical); err != nil {
		return rollback(err, func() error { return fsys.freeBlock(physical) })
	}

	buf := make([]byte, blockSize)
	fresh := dirent{Inode: inode, RecLen: uint16(blockSize), NameLen: uint8(len(name)), FileType: fileType, Name: name}
	copy(buf, encodeDirent(fresh))
	if err := fsys.writeDirectoryBlock(physical, buf); err != nil {
		return err
	}

	dirInode.Size = uint64(blocks+1) * uint64(blockSize)
	dirInode.Blocks = blocks + 1
	dirInode.MTime = time.Now()
	dirInode.CTime = dirInode.MTime
	return fsys.WriteInode(dirInode)
}

// RemoveDirectoryEntry deletes name from dirInode. The slot is either
// coalesced into the preceding entry's rec_len, or turned into a tombstone
// if it's the first entry in its block (there is no preceding entry to grow).
func (fsys *FileSystem) RemoveDirectoryEntry(dirInode *Inode, name string) error {
	if name == "." || name == ".." {
		return NewDriverErrorWithMessage(ErrnoBadPath, `"." and ".." are reserved`)
	}

	blockSize := fsys.device.BlockSize
	blocks := directoryBlockCount(dirInode, blockSize)

	for i := uint32(0); i < blocks; i++ {
		buf, physical, err := fsys.readDirectoryBlock(dirInode, i)
		if err != nil {
			return err
		}

		cursor := newDirEntryCursor(buf)
		var prevOffset uint32
		havePrev := false
		for {
			entry, offset, ok, err := cursor.next()
			if err != nil {
				return NewDriverErrorWithMessage(ErrnoIO, err.Error())
			}
			if !ok {
				break
			}
			if entry.isTombstone() || entry.Name != name {
				prevOffset = offset
				havePrev = true
				continue
			}

			if havePrev {
				prev, err := decodeDirentAt(buf, prevOffset)
				if err != nil {
					return NewDriverErrorWithMessage(ErrnoIO, err.Error())
				}
				prev.RecLen += entry.RecLen
				copy(buf[prevOffset:prevOffset+uint32(prev.RecLen)], encodeDirent(prev))
			} else {
				tomb := dirent{Inode: 0, RecLen: entry.RecLen, NameLen: 0, FileType: DirentTypeUnknown}
				copy(buf[offset:offset+uint32(tomb.RecLen)], encodeDirent(tomb))
			}
			return fsys.writeDirectoryBlock(physical, buf)
		}
	}
	return NewDriverError(ErrnoNotFound)
}

// CreateDirectory allocates a new directory inode under parent, wires up
// its "." and ".." entries, and links it into the parent's entry list.
// parent's link count grows by one for the child's "..".
func (fsys *FileSystem) CreateDirectory(parent *Inode, name string, uid, gid uint16, perm uint16) (Inode, error) {
	if !parent.IsDir() {
		return Inode{}, NewDriverError(ErrnoNotDirectory)
	}
	if name == "." || name == ".." {
		return Inode{}, NewDriverErrorWithMessage(ErrnoBadPath, `"." and ".." are reserved`)
	}
	if !fsys.CheckPermission(parent, 0x2) {
		return Inode{}, NewDriverError(ErrnoPermissionDenied)
	}

	child, err := fsys.CreateInode(ModeDirectory|(perm&ModePermMask), uid, gid)
	if err != nil {
		return Inode{}, err
	}

	physical, err := fsys.allocateBlock()
	if err != nil {
		return Inode{}, rollback(err, func() error { return fsys.DeleteInode(child.Number) })
	}
	if err := fsys.SetInodeBlock(&child, 0, physical); err != nil {
		return Inode{}, rollback(err,
			func() error { return fsys.freeBlock(physical) },
			func() error { return fsys.DeleteInode(child.Number) },
		)
	}
	child.Size = uint64(fsys.device.BlockSize)
	child.Blocks = 1
	child.LinksCount = 2 // "." plus the entry about to be added in parent
	if err := fsys.WriteInode(&child); err != nil {
		return Inode{}, rollback(err,
			func() error { return fsys.freeBlock(physical) },
			func() error { return fsys.DeleteInode(child.Number) },
		)
	}

	buf := make([]byte, fsys.device.BlockSize)
	dot := dirent{Inode: child.Number, RecLen: minRecLen(1), NameLen: 1, FileType: DirentTypeDir, Name: "."}
	copy(buf[0:dot.RecLen], encodeDirent(dot))

	dotdotOffset := dot.RecLen
	dotdot := dirent{Inode: parent.Number, RecLen: uint16(fsys.device.BlockSize) - dotdotOffset, NameLen: 2, FileType: DirentTypeDir, Name: ".."}
	copy(buf[dotdotOffset:dotdotOffset+dotdot.RecLen], encodeDirent(dotdot))

	if err := fsys.writeDirectoryBlock(physical, buf); err != nil {
		return Inode{}, rollback(err,
			func() error { return fsys.freeBlock(physical) },
			func() error { return fsys.DeleteInode(child.Number) },
		)
	}

	if err := fsys.AddDirectoryEntry(parent, name, child.Number, DirentTypeDir); err != nil {
		return Inode{}, rollback(err,
			func() error { return fsys.freeBlock(physical) },
			func() error { return fsys.DeleteInode(child.Number) },
		)
	}
	if err := fsys.IncrementLinkCount(parent); err != nil {
		return Inode{}, err
	}

	return child, nil
}

// DeleteDirectory removes an empty subdirectory named name from parent.
// A directory counts as empty when it holds nothing but "." and "..".
func (fsys *FileSystem) DeleteDirectory(parent *Inode, name string) error {
	entry, err := fsys.Lookup(parent, name)
	if err != nil {
		return err
	}

	child, err := fsys.ReadInode(entry.Inode)
	if err != nil {
		return err
	}
	if !child.IsDir() {
		return NewDriverError(ErrnoNotDirectory)
	}
	if child.Number == RootInodeNumber || child.Number == fsys.cwd {
		return NewDriverErrorWithMessage(ErrnoBadPath, "cannot remove the root directory or the current working directory")
	}

	entries, err := fsys.ListDirectory(&child)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name != "." && e.Name != ".." {
			return NewDriverError(ErrnoNotEmpty)
		}
	}

	if err := fsys.RemoveDirectoryEntry(parent, name); err != nil {
		return err
	}
	if err := fsys.DecrementLinkCount(parent); err != nil {
		return err
	}
	return fsys.DeleteInode(child.Number)
}
