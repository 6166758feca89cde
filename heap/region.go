package heap

import (
	"fmt"

	"github.com/YangchenYe323/kheap/internal/format"
	"github.com/YangchenYe323/kheap/internal/mmregion"
)

// Region is a heap region: a [base, base+size) virtual address range mapped
// onto an owned byte buffer. The region is created fully backed and unused,
// then lent to exactly one allocator for the rest of the process lifetime.
//
// Addresses handed out by allocators are resolved back to memory through
// Slice. The zero page is never part of a region, so NullAddr is always an
// invalid address.
type Region struct {
	base    Addr
	data    []byte
	release func() error
}

// MapRegion reserves an anonymous mapping of at least size bytes (rounded
// up to whole pages) and exposes it as a region based at DefaultBase.
func MapRegion(size uint64) (*Region, error) {
	return MapRegionAt(DefaultBase, size)
}

// MapDefault maps a region of DefaultHeapSize at DefaultBase.
func MapDefault() (*Region, error) {
	return MapRegion(DefaultHeapSize)
}

// MapRegionAt reserves an anonymous mapping of at least size bytes (rounded
// up to whole pages) and exposes it as a region based at base. base must be
// a non-zero page-aligned address.
func MapRegionAt(base Addr, size uint64) (*Region, error) {
	size = format.AlignPage(size)
	if err := checkRange(base, size); err != nil {
		return nil, err
	}
	if size > uint64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("heap: region size %d exceeds mappable memory", size)
	}
	data, release, err := mmregion.Map(int(size))
	if err != nil {
		return nil, err
	}
	return &Region{base: base, data: data, release: release}, nil
}

// NewFixedRegion exposes a plain byte buffer as a region based at base.
// It backs tests and platforms where no mapping provider is wanted. base
// must be a non-zero page-aligned address and size must be non-zero.
func NewFixedRegion(base Addr, size uint64) (*Region, error) {
	if err := checkRange(base, size); err != nil {
		return nil, err
	}
	return &Region{
		base:    base,
		data:    make([]byte, size),
		release: func() error { return nil },
	}, nil
}

func checkRange(base Addr, size uint64) error {
	if base == NullAddr {
		return fmt.Errorf("heap: region base must be non-zero")
	}
	if !format.IsAligned(uint64(base), format.PageSize) {
		return fmt.Errorf("heap: region base %s is not page-aligned", base)
	}
	if size == 0 {
		return fmt.Errorf("heap: region size must be non-zero")
	}
	if _, ok := base.Add(size); !ok {
		return fmt.Errorf("heap: region %s+%d wraps the address space", base, size)
	}
	return nil
}

// Base returns the first address of the region.
func (r *Region) Base() Addr { return r.base }

// Size returns the region size in bytes.
func (r *Region) Size() uint64 { return uint64(len(r.data)) }

// End returns the first address past the region.
func (r *Region) End() Addr { return r.base + Addr(len(r.data)) }

// Bytes returns the backing buffer. Offset i corresponds to address Base()+i.
func (r *Region) Bytes() []byte { return r.data }

// Contains reports whether [addr, addr+size) lies entirely inside the region.
func (r *Region) Contains(addr Addr, size uint64) bool {
	if addr < r.base {
		return false
	}
	end, ok := addr.Add(size)
	if !ok {
		return false
	}
	return end <= r.End()
}

// Slice resolves [addr, addr+size) to the backing bytes.
func (r *Region) Slice(addr Addr, size uint64) ([]byte, error) {
	if !r.Contains(addr, size) {
		return nil, fmt.Errorf("heap: range %s+%d outside region [%s, %s)",
			addr, size, r.base, r.End())
	}
	off := uint64(addr - r.base)
	return r.data[off : off+size], nil
}

// Release returns the backing memory to the platform. The region and every
// address allocated from it are invalid afterwards. Releasing twice is a
// no-op.
func (r *Region) Release() error {
	if r.release == nil {
		return nil
	}
	rel := r.release
	r.release = nil
	r.data = nil
	return rel()
}
