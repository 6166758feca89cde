package heap

import (
	"fmt"

	"github.com/YangchenYe323/kheap/internal/format"
)

// Addr is a virtual address within a heap region's address space.
type Addr uint64

// NullAddr is the zero address. It doubles as the allocation-failure
// sentinel and as the nil link in node records, so no heap region may start
// at address zero.
const NullAddr Addr = 0

// Add returns a+n, with ok=false when the sum wraps the address space.
func (a Addr) Add(n uint64) (Addr, bool) {
	sum := a + Addr(n)
	if sum < a {
		return NullAddr, false
	}
	return sum, true
}

// AlignUp returns a aligned up to the next multiple of align, with ok=false
// when the computation would wrap. align must be a nonzero power of two.
func (a Addr) AlignUp(align uint64) (Addr, bool) {
	v, ok := format.AlignUpChecked(uint64(a), align)
	return Addr(v), ok
}

// String formats the address in hex, the way it appears in traces.
func (a Addr) String() string {
	return fmt.Sprintf("%#x", uint64(a))
}

// Layout describes a requested memory block: a size in bytes and a required
// alignment. Alignment is always a power of two; an address q satisfies the
// layout when q mod Align == 0 and q..q+Size fits the heap region.
type Layout struct {
	Size  uint64
	Align uint64
}

// NewLayout builds a Layout, validating that align is a nonzero power of
// two.
func NewLayout(size, align uint64) (Layout, error) {
	if !format.IsPowerOfTwo(align) {
		return Layout{}, fmt.Errorf("heap: layout alignment %d is not a power of two", align)
	}
	return Layout{Size: size, Align: align}, nil
}

// MustLayout is NewLayout for layouts known valid at compile time; it panics
// on a bad alignment.
func MustLayout(size, align uint64) Layout {
	l, err := NewLayout(size, align)
	if err != nil {
		panic(err)
	}
	return l
}

// String formats the layout the way allocation failures report it.
func (l Layout) String() string {
	return fmt.Sprintf("size=%d align=%d", l.Size, l.Align)
}
