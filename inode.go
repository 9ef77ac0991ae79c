package ext2

import (
	"fmt"
	"time"

	"github.com/RoManTic127/filesystem-of-linux/internal/blockdev"
)

// Inode is the in-memory view of an inode record: metadata plus block
// pointers, together with the inode's own number, which the raw on-disk
// struct does not store.
type Inode struct {
	Number     uint32
	Mode       uint16
	UID        uint16
	GID        uint16
	Size       uint64
	ATime      time.Time
	CTime      time.Time
	MTime      time.Time
	DTime      time.Time
	LinksCount uint16
	Blocks     uint32
	Flags      uint32
	Block      [TotalBlockPointers]uint32
}

func (inode *Inode) IsDir() bool     { return IsDirMode(inode.Mode) }
func (inode *Inode) IsRegular() bool { return IsRegularMode(inode.Mode) }
func (inode *Inode) IsLive() bool    { return inode.LinksCount >= 1 }

func inodeToRaw(in *Inode) RawInode {
	return RawInode{
		Mode:       in.Mode,
		UID:        in.UID,
		GID:        in.GID,
		Size:       uint32(in.Size),
		ATime:      serializeTimestamp(in.ATime),
		CTime:      serializeTimestamp(in.CTime),
		MTime:      serializeTimestamp(in.MTime),
		DTime:      serializeTimestamp(in.DTime),
		LinksCount: in.LinksCount,
		Blocks:     in.Blocks,
		Flags:      in.Flags,
		Block:      in.Block,
	}
}

func rawToInode(n uint32, raw RawInode) Inode {
	return Inode{
		Number:     n,
		Mode:       raw.Mode,
		UID:        raw.UID,
		GID:        raw.GID,
		Size:       uint64(raw.Size),
		ATime:      deserializeTimestamp(raw.ATime),
		CTime:      deserializeTimestamp(raw.CTime),
		MTime:      deserializeTimestamp(raw.MTime),
		DTime:      deserializeTimestamp(raw.DTime),
		LinksCount: raw.LinksCount,
		Blocks:     raw.Blocks,
		Flags:      raw.Flags,
		Block:      raw.Block,
	}
}

// inodeLocation returns the block holding inode n and the byte offset of
// its record within that block.
func (fsys *FileSystem) inodeLocation(n uint32) (blockdev.BlockID, uint32, error) {
	if n == 0 || n > fsys.sb.InodesCount {
		return 0, 0, NewDriverErrorWithMessage(
			ErrnoOutOfRange,
			fmt.Sprintf("inode %d out of range [1, %d]", n, fsys.sb.InodesCount),
		)
	}

	byteOffset := uint64(n-1) * InodeSize
	blockSize := uint64(fsys.device.BlockSize)
	block := blockdev.BlockID(InodeTableStart + byteOffset/blockSize)
	offsetInBlock := uint32(byteOffset % blockSize)
	return block, offsetInBlock, nil
}

// ReadInode loads inode n (1-indexed) from the inode table.
func (fsys *FileSystem) ReadInode(n uint32) (Inode, error) {
	block, offset, err := fsys.inodeLocation(n)
	if err != nil {
		return Inode{}, err
	}

	buf := make([]byte, fsys.device.BlockSize)
	if err := fsys.device.ReadBlock(block, buf); err != nil {
		return Inode{}, NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}

	raw := decodeRawInode(buf[offset : offset+InodeSize])
	return rawToInode(n, raw), nil
}

// WriteInode persists inode n (1-indexed) back to the inode table.
func (fsys *FileSystem) WriteInode(in *Inode) error {
	block, offset, err := fsys.inodeLocation(in.Number)
	if err != nil {
		return err
	}

	buf := make([]byte, fsys.device.BlockSize)
	if err := fsys.device.ReadBlock(block, buf); err != nil {
		return NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}

	raw := inodeToRaw(in)
	copy(buf[offset:offset+InodeSize], raw.encode())

	if err := fsys.device.WriteBlock(block, buf); err != nil {
		return NewDriverErrorWithMessage(ErrnoIO, err.Error())
	}
	return nil
}

// CreateInode allocates a fresh inode with the given mode/uid/gid, an empty
// data extent, and a link count of 1.
func (fsys *FileSystem) CreateInode(mode uint16, uid, gid uint16) (Inode, error) {
	n, ok := fsys.inodeAlloc.Allocate()
	if !ok {
		return Inode{}, NewDriverError(ErrnoNoInode)
	}
	number := n + 1 // bit i <-> inode i+1

	if err := fsys.writeInodeBitmap(); err != nil {
		return Inode{}, rollback(err, func() error { return fsys.inodeAlloc.Free(n) })
	}
	fsys.sb.FreeInodesCount = fsys.inodeAlloc.FreeCount()
	if err := fsys.writeSuperblock(); err != nil {
		return Inode{}, rollback(err,
			func() error { return fsys.inodeAlloc.Free(n) },
			func() error { return fsys.writeInodeBitmap() },
		)
	}

	now := time.Now()
	inode := Inode{
		Number:     number,
		Mode:       mode,
		UID:        uint16(uid),
		GID:        uint16(gid),
		Size:       0,
		ATime:      now,
		CTime:      now,
		MTime:      now,
		LinksCount: 1,
		Blocks:     0,
	}

	if err := fsys.WriteInode(&inode); err != nil {
		return Inode{}, rollback(err,
			func() error { return fsys.inodeAlloc.Free(n) },
			func() error { return fsys.writeInodeBitmap() },
		)
	}
	return inode, nil
}

// DeleteInode frees every data block owned by inode n (direct and
// single-indirect), zeros the record, and releases the inode itself.
func (fsys *FileSystem) DeleteInode(n uint32) error {
	inode, err := fsys.ReadInode(n)
	if err != nil {
		return err
	}

	for i := 0; i < DirectPointers; i++ {
		if inode.Block[i] != 0 {
			_ = fsys.freeBlock(inode.Block[i])
		}
	}

	if indirect := inode.Block[IndirectPointerIndex]; indirect != 0 {
		entries, err := fsys.readIndirectBlock(indirect)
		if err == nil {
			for _, b := range entries {
				if b != 0 {
					_ = fsys.freeBlock(b)
				}
			}
		}
		_ = fsys.freeBlock(indirect)
	}

	zeroed := Inode{Number: n}
	if err := fsys.WriteInode(&zeroed); err != nil {
		return err
	}

	if err := fsys.inodeAlloc.Free(n - 1); err != nil {
		return err
	}
	fsys.sb.FreeInodesCount = fsys.inodeAlloc.FreeCount()
	if err := fsys.writeInodeBitmap(); err != nil {
		return err
	}
	return fsys.writeSuperblock()
}
