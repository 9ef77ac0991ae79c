package ext2

import (
	"fmt"
)

// directEntryHeaderSize is the fixed portion of a directory entry record:
// inode(4) + rec_len(2) + name_len(1) + file_type(1), before the variable
// length name that follows it.
const directEntryHeaderSize = 8

// dirent is the in-memory view of one variable-length directory entry.
// rec_len is the distance to the next entry, not the length of this one's
// name -- a deleted entry is kept alive as a larger tombstone by folding
// its rec_len into a neighbor instead of compacting the block.
type dirent struct {
	Inode    uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
	Name     string
}

// isTombstone reports whether this slot is a deleted (or never-used) entry:
// inode 0 means "skip me", regardless of what its rec_len or name say.
func (d *dirent) isTombstone() bool {
	return d.Inode == 0
}

// minRecLen is the smallest rec_len that can hold this entry's name,
// 4-byte aligned.
func minRecLen(nameLen int) uint16 {
	return uint16(align4(uint32(directEntryHeaderSize + nameLen)))
}

func encodeDirent(d dirent) []byte {
	buf := make([]byte, d.RecLen)
	putLeUint32(buf[0:4], d.Inode)
	buf[4] = byte(d.RecLen)
	buf[5] = byte(d.RecLen >> 8)
	buf[6] = d.NameLen
	buf[7] = d.FileType
	copy(buf[directEntryHeaderSize:directEntryHeaderSize+int(d.NameLen)], d.Name)
	return buf
}

func decodeDirentAt(block []byte, offset uint32) (dirent, error) {
	if int(offset)+directEntryHeaderSize > len(block) {
		return dirent{}, fmt.Errorf("directory entry at offset %d runs past block end", offset)
	}

	inode := leUint32(block[offset : offset+4])
	recLen := uint16(block[offset+4]) | uint16(block[offset+5])<<8
	nameLen := block[offset+6]
	fileType := block[offset+7]

	if recLen < directEntryHeaderSize || int(offset)+int(recLen) > len(block) {
		return dirent{}, fmt.Errorf("directory entry at offset %d has invalid rec_len %d", offset, recLen)
	}
	nameStart := offset + directEntryHeaderSize
	nameEnd := nameStart + uint32(nameLen)
	if nameEnd > uint32(len(block)) || nameEnd > offset+uint32(recLen) {
		return dirent{}, fmt.Errorf("directory entry at offset %d has invalid name_len %d", offset, nameLen)
	}

	name := string(block[nameStart:nameEnd])
	return dirent{Inode: inode, RecLen: recLen, NameLen: nameLen, FileType: fileType, Name: name}, nil
}

// dirEntryCursor walks the variable-length entries of a single directory
// block in order, the way the original C walked dirent pointers by
// advancing a byte offset by rec_len each step.
type dirEntryCursor struct {
	block  []byte
	offset uint32
}

func newDirEntryCursor(block []byte) *dirEntryCursor {
	return &dirEntryCursor{block: block}
}

// next returns the entry at the cursor and its byte offset, then advances.
// ok is false once the cursor has consumed the whole block.
func (c *dirEntryCursor) next() (entry dirent, offset uint32, ok bool, err error) {
	if c.offset >= uint32(len(c.block)) {
		return dirent{}, 0, false, nil
	}
	entry, err = decodeDirentAt(c.block, c.offset)
	if err != nil {
		return dirent{}, 0, false, err
	}
	offset = c.offset
	c.offset += uint32(entry.RecLen)
	return entry, offset, true, nil
}

func fileTypeForMode(mode uint16) uint8 {
	if IsDirMode(mode) {
		return DirentTypeDir
	}
	if IsRegularMode(mode) {
		return DirentTypeFile
	}
	return DirentTypeUnknown
}
