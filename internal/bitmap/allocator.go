// Package bitmap implements the fixed-size bit-indexed allocators used for
// the free block and free inode maps: find the lowest clear bit, set it,
// and keep a running free count in sync.
package bitmap

import (
	"fmt"

	"github.com/boljen/go-bitmap"
)

// Allocator tracks which units (blocks or inodes) in a fixed-size range are
// in use. Allocation always returns the lowest-numbered free unit, which
// makes allocation order deterministic and testable.
type Allocator struct {
	bits       bitmap.Bitmap
	total      uint32
	floor      uint32
	freeCount  uint32
}

// New creates an allocator over total units, where units in [0, floor) are
// permanently reserved (e.g. metadata blocks) and start out marked in-use.
func New(total, floor uint32) *Allocator {
	a := &Allocator{
		bits:  bitmap.New(int(total)),
		total: total,
		floor: floor,
	}
	for i := uint32(0); i < floor; i++ {
		a.bits.Set(int(i), true)
	}
	a.freeCount = total - floor
	return a
}

// FromBytes rebuilds an allocator from a previously serialized bitmap, as
// read back from disk on mount. floor is re-derived from the caller since
// the raw bytes alone don't distinguish "reserved" from "merely allocated".
func FromBytes(data []byte, total, floor uint32) *Allocator {
	a := &Allocator{
		bits:  bitmap.Bitmap(data),
		total: total,
		floor: floor,
	}
	free := uint32(0)
	for i := floor; i < total; i++ {
		if !a.bits.Get(int(i)) {
			free++
		}
	}
	a.freeCount = free
	return a
}

// Bytes returns the raw bitmap storage, suitable for persisting verbatim.
func (a *Allocator) Bytes() []byte {
	return a.bits.Data(false)
}

// FreeCount returns the number of unset bits in [floor, total).
func (a *Allocator) FreeCount() uint32 {
	return a.freeCount
}

// Test reports whether unit n is marked in-use.
func (a *Allocator) Test(n uint32) bool {
	return a.bits.Get(int(n))
}

// Allocate finds the lowest clear bit at or above floor, sets it, and
// returns its index. It returns ok=false if every unit is in use.
func (a *Allocator) Allocate() (n uint32, ok bool) {
	for i := a.floor; i < a.total; i++ {
		if !a.bits.Get(int(i)) {
			a.bits.Set(int(i), true)
			a.freeCount--
			return i, true
		}
	}
	return 0, false
}

// Free clears unit n. Freeing an already-clear unit is a no-op that does not
// change the free count, matching the double-free policy in the spec.
func (a *Allocator) Free(n uint32) error {
	if n >= a.total {
		return fmt.Errorf("unit %d out of range [0, %d)", n, a.total)
	}
	if !a.bits.Get(int(n)) {
		return nil
	}
	a.bits.Set(int(n), false)
	a.freeCount++
	return nil
}

// Set forcibly marks unit n as in-use (used=true) or free (used=false),
// adjusting the free count the same way Allocate/Free would. Format does not
// use it; the metadata reservation comes from New's floor.
func (a *Allocator) Set(n uint32, used bool) {
	wasUsed := a.bits.Get(int(n))
	if wasUsed == used {
		return
	}
	a.bits.Set(int(n), used)
	if used {
		a.freeCount--
	} else {
		a.freeCount++
	}
}
