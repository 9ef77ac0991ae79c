package ext2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Superblock mirrors the on-disk header at block 0. Field names follow the
// classical ext2 s_* naming so the on-disk layout stays recognizable; Go
// names drop the prefix since the package namespace already disambiguates.
// The field set is a subset of ext2's (there is no s_r_blocks_count,
// s_blocks_per_group or s_frags_per_group), so byte offsets differ from a
// real ext2 superblock: Magic is encoded at byte 44, not 56.
type Superblock struct {
	InodesCount      uint32
	BlocksCount      uint32
	FreeBlocksCount  uint32
	FreeInodesCount  uint32
	FirstDataBlock   uint32
	LogBlockSize     uint32
	LogFragSize      uint32
	InodesPerGroup   uint32
	MountTime        uint32
	WriteTime        uint32
	MountCount       uint16
	MaxMountCount    uint16
	Magic            uint16
	State            uint16
	Errors           uint16
	MinorRevLevel    uint16
	LastCheck        uint32
	CheckInterval    uint32
	CreatorOS        uint32
	RevLevel         uint32
	DefResUID        uint16
	DefResGID        uint16
	FirstInode       uint32
	InodeSize        uint16
	BlockGroupNr     uint16
	FeatureCompat    uint32
	FeatureIncompat  uint32
	FeatureRoCompat  uint32
}

// superblockWireSize is the encoded length of Superblock on disk; the
// remainder of the block it occupies is zero padding. Mounting must read a
// full block-sized buffer and decode only this many bytes from the front of
// it -- reading fewer bytes than a whole block conflates the struct size
// with the block size and is the exact bug flagged in the design notes.
const superblockWireSize = 92

// NewSuperblock builds the superblock written by Format for an image with
// the given geometry.
func NewSuperblock(totalBlocks, totalInodes uint32, blockSize uint32, now time.Time) Superblock {
	nowTS := uint32(now.Unix())
	return Superblock{
		InodesCount:     totalInodes,
		BlocksCount:     totalBlocks,
		FreeBlocksCount: 0, // filled in by Format once the allocator is built
		FreeInodesCount: 0,
		FirstDataBlock:  firstDataBlock(totalInodes, blockSize),
		LogBlockSize:    0,
		LogFragSize:     0,
		InodesPerGroup:  totalInodes,
		MountTime:       nowTS,
		WriteTime:       nowTS,
		MountCount:      0,
		MaxMountCount:   20,
		Magic:           ExtMagic,
		State:           1,
		Errors:          1,
		MinorRevLevel:   0,
		LastCheck:       nowTS,
		CheckInterval:   1800,
		CreatorOS:       0,
		RevLevel:        0,
		DefResUID:       0,
		DefResGID:       0,
		FirstInode:      FirstUsableInode,
		InodeSize:       InodeSize,
		BlockGroupNr:    0,
		FeatureCompat:   0,
		FeatureIncompat: 0,
		FeatureRoCompat: 0,
	}
}

// Encode serializes the superblock into a zero-padded buffer exactly
// blockSize bytes long.
func (sb *Superblock) Encode(blockSize uint32) []byte {
	buf := make([]byte, blockSize)
	w := bytes.NewBuffer(buf[:0])

	fields := []any{
		sb.InodesCount, sb.BlocksCount, sb.FreeBlocksCount, sb.FreeInodesCount,
		sb.FirstDataBlock, sb.LogBlockSize, sb.LogFragSize, sb.InodesPerGroup,
		sb.MountTime, sb.WriteTime, sb.MountCount, sb.MaxMountCount,
		sb.Magic, sb.State, sb.Errors, sb.MinorRevLevel,
		sb.LastCheck, sb.CheckInterval, sb.CreatorOS, sb.RevLevel,
		sb.DefResUID, sb.DefResGID, sb.FirstInode, sb.InodeSize,
		sb.BlockGroupNr, sb.FeatureCompat, sb.FeatureIncompat, sb.FeatureRoCompat,
	}
	for _, f := range fields {
		// binary.Write never fails against a bytes.Buffer for fixed-size
		// numeric fields.
		_ = binary.Write(w, binary.LittleEndian, f)
	}
	return buf
}

// DecodeSuperblock reads a superblock from a whole block-sized buffer, as
// read back by the block device. It validates the magic number.
func DecodeSuperblock(block []byte) (Superblock, error) {
	if len(block) < superblockWireSize {
		return Superblock{}, fmt.Errorf(
			"superblock buffer too small: need at least %d bytes, got %d",
			superblockWireSize, len(block),
		)
	}

	r := bytes.NewReader(block[:superblockWireSize])
	var sb Superblock
	targets := []any{
		&sb.InodesCount, &sb.BlocksCount, &sb.FreeBlocksCount, &sb.FreeInodesCount,
		&sb.FirstDataBlock, &sb.LogBlockSize, &sb.LogFragSize, &sb.InodesPerGroup,
		&sb.MountTime, &sb.WriteTime, &sb.MountCount, &sb.MaxMountCount,
		&sb.Magic, &sb.State, &sb.Errors, &sb.MinorRevLevel,
		&sb.LastCheck, &sb.CheckInterval, &sb.CreatorOS, &sb.RevLevel,
		&sb.DefResUID, &sb.DefResGID, &sb.FirstInode, &sb.InodeSize,
		&sb.BlockGroupNr, &sb.FeatureCompat, &sb.FeatureIncompat, &sb.FeatureRoCompat,
	}
	for _, t := range targets {
		if err := binary.Read(r, binary.LittleEndian, t); err != nil {
			return Superblock{}, fmt.Errorf("decoding superblock: %w", err)
		}
	}

	if sb.Magic != ExtMagic {
		return Superblock{}, NewDriverErrorWithMessage(
			ErrnoInvalidFormat,
			fmt.Sprintf("bad magic number 0x%04X, expected 0x%04X", sb.Magic, ExtMagic),
		)
	}
	return sb, nil
}

func serializeTimestamp(t time.Time) uint32 {
	return uint32(t.Unix())
}

func deserializeTimestamp(ts uint32) time.Time {
	return time.Unix(int64(ts), 0)
}
