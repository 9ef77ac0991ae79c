package ext2

import (
	"bytes"
	"encoding/binary"
)

// RawInode is the 128-byte on-disk inode record: mode, ownership, size,
// timestamps, link count, block count, flags, and 15 block pointers (12
// direct, 1 single-indirect, 2 reserved and unused here). Fields follow the
// classical ext2 order, but there is no osd1 word after flags, so the block
// pointers start at byte 36 rather than ext2's byte 40.
type RawInode struct {
	Mode        uint16
	UID         uint16
	GID         uint16
	Size        uint32
	ATime       uint32
	CTime       uint32
	MTime       uint32
	DTime       uint32
	LinksCount  uint16
	Blocks      uint32
	Flags       uint32
	Block       [TotalBlockPointers]uint32
	_reserved   [2]uint32 // encoded fields end at byte 104; the rest of the InodeSize (128) record is zero
}

// encode serializes the record little-endian, in the field order described
// on RawInode, into a zero-filled InodeSize buffer.
func (ri *RawInode) encode() []byte {
	buf := make([]byte, InodeSize)
	w := bytes.NewBuffer(buf[:0])
	_ = binary.Write(w, binary.LittleEndian, ri.Mode)
	_ = binary.Write(w, binary.LittleEndian, ri.UID)
	_ = binary.Write(w, binary.LittleEndian, ri.Size)
	_ = binary.Write(w, binary.LittleEndian, ri.ATime)
	_ = binary.Write(w, binary.LittleEndian, ri.CTime)
	_ = binary.Write(w, binary.LittleEndian, ri.MTime)
	_ = binary.Write(w, binary.LittleEndian, ri.DTime)
	_ = binary.Write(w, binary.LittleEndian, ri.GID)
	_ = binary.Write(w, binary.LittleEndian, ri.LinksCount)
	_ = binary.Write(w, binary.LittleEndian, ri.Blocks)
	_ = binary.Write(w, binary.LittleEndian, ri.Flags)
	_ = binary.Write(w, binary.LittleEndian, ri.Block)
	_ = binary.Write(w, binary.LittleEndian, ri._reserved)
	return buf
}

func decodeRawInode(data []byte) RawInode {
	var ri RawInode
	r := bytes.NewReader(data)
	_ = binary.Read(r, binary.LittleEndian, &ri.Mode)
	_ = binary.Read(r, binary.LittleEndian, &ri.UID)
	_ = binary.Read(r, binary.LittleEndian, &ri.Size)
	_ = binary.Read(r, binary.LittleEndian, &ri.ATime)
	_ = binary.Read(r, binary.LittleEndian, &ri.CTime)
	_ = binary.Read(r, binary.LittleEndian, &ri.MTime)
	_ = binary.Read(r, binary.LittleEndian, &ri.DTime)
	_ = binary.Read(r, binary.LittleEndian, &ri.GID)
	_ = binary.Read(r, binary.LittleEndian, &ri.LinksCount)
	_ = binary.Read(r, binary.LittleEndian, &ri.Blocks)
	_ = binary.Read(r, binary.LittleEndian, &ri.Flags)
	_ = binary.Read(r, binary.LittleEndian, &ri.Block)
	_ = binary.Read(r, binary.LittleEndian, &ri._reserved)
	return ri
}

// isLive reports whether this record describes an allocated, referenced
// inode -- the spec's definition of "live": its bitmap bit is set (checked
// by the caller) and its link count is at least 1.
func (ri *RawInode) isLive() bool {
	return ri.LinksCount >= 1
}
