// Package blockdev wraps a host stream so it can only be read from or
// written to in whole multiples of a fixed block size, the way a real block
// device would be addressed.
package blockdev

import (
	"fmt"
	"io"
)

// BlockID is the zero-based index of a fixed-size block on the device.
type BlockID uint32

// Device is a positioned-I/O abstraction over a single host file (or any
// io.ReadWriteSeeker standing in for one, such as an in-memory buffer in
// tests). The exported fields are informational; callers must not mutate
// them directly.
type Device struct {
	// BlockSize is the size of a single block, in bytes.
	BlockSize uint32
	// TotalBlocks is the total number of addressable blocks on the device.
	TotalBlocks uint32

	stream io.ReadWriteSeeker
}

// New wraps an already-open stream as a block device with totalBlocks
// blocks of blockSize bytes each. It does not validate that the stream is
// actually that large; callers that need that guarantee should check it
// themselves (see DetermineBlockCount).
func New(stream io.ReadWriteSeeker, totalBlocks uint32, blockSize uint32) *Device {
	return &Device{
		BlockSize:   blockSize,
		TotalBlocks: totalBlocks,
		stream:      stream,
	}
}

// DetermineBlockCount returns the number of whole blocks of size blockSize
// that fit in stream, rounding down.
func DetermineBlockCount(stream io.Seeker, blockSize uint32) (uint32, error) {
	size, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	return uint32(size / int64(blockSize)), nil
}

// Resize grows the backing stream by writing null bytes if newTotal is
// larger than the current block count. A smaller newTotal only lowers
// TotalBlocks; the backing stream is not truncated, since the host stream
// may not expose a way to truncate itself.
func (d *Device) Resize(newTotal uint32) error {
	if newTotal <= d.TotalBlocks {
		d.TotalBlocks = newTotal
		return nil
	}

	if _, err := d.stream.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	missing := make([]byte, uint64(newTotal-d.TotalBlocks)*uint64(d.BlockSize))
	if _, err := d.stream.Write(missing); err != nil {
		return err
	}
	d.TotalBlocks = newTotal
	return nil
}

func (d *Device) offsetOf(id BlockID) (int64, error) {
	if uint32(id) >= d.TotalBlocks {
		return 0, fmt.Errorf("block %d out of range [0, %d)", id, d.TotalBlocks)
	}
	return int64(id) * int64(d.BlockSize), nil
}

// ReadBlock fills buf with the contents of block id. buf must be exactly
// BlockSize bytes long.
func (d *Device) ReadBlock(id BlockID, buf []byte) error {
	if uint32(len(buf)) != d.BlockSize {
		return fmt.Errorf("buffer must be %d bytes, got %d", d.BlockSize, len(buf))
	}

	offset, err := d.offsetOf(id)
	if err != nil {
		return err
	}
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	n, err := io.ReadFull(d.stream, buf)
	if err != nil {
		return err
	}
	if uint32(n) != d.BlockSize {
		return fmt.Errorf("short read: wanted %d bytes, got %d", d.BlockSize, n)
	}
	return nil
}

// WriteBlock writes data to block id. data must be exactly BlockSize bytes
// long.
func (d *Device) WriteBlock(id BlockID, data []byte) error {
	if uint32(len(data)) != d.BlockSize {
		return fmt.Errorf("data must be %d bytes, got %d", d.BlockSize, len(data))
	}

	offset, err := d.offsetOf(id)
	if err != nil {
		return err
	}
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	n, err := d.stream.Write(data)
	if err != nil {
		return err
	}
	if uint32(n) != d.BlockSize {
		return fmt.Errorf("short write: wanted %d bytes, wrote %d", d.BlockSize, n)
	}
	return nil
}

// ZeroBlock overwrites block id with null bytes.
func (d *Device) ZeroBlock(id BlockID) error {
	return d.WriteBlock(id, make([]byte, d.BlockSize))
}
