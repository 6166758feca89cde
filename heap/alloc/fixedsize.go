package alloc

import (
	"github.com/YangchenYe323/kheap/heap"
	"github.com/YangchenYe323/kheap/internal/format"
)

// FixedSize is a size-classed block allocator. Requests are rounded up to a
// power-of-two class and served from a per-class pool of equal-sized blocks;
// pools grow lazily by carving new blocks out of a free-list fallback, and
// requests larger than every class bypass the classes entirely.
//
// Key characteristics:
//   - O(1) allocation on a pool hit: pop the class head
//   - O(1) deallocation for class-sized blocks: push onto the class head
//   - Pools only grow: a freed block stays in its class pool forever and is
//     never returned to the fallback, trading memory retention for the
//     guarantee that a class that was populated once stays fast
//   - Class size equals class alignment, so one comparison covers both the
//     size and the alignment constraint of a request
//
// The per-block bookkeeping is a single 8-byte link written into the free
// block itself; every class can host it because the smallest class is
// validated against the record size.
type FixedSize struct {
	region *heap.Region
	table  *classTable

	// heads[i] is the first pooled free block of class i, NullAddr when the
	// pool is empty. depths mirrors the pool lengths for diagnostics.
	heads  []heap.Addr
	depths []uint64

	// fallback serves pool growth and oversized requests.
	fallback *FreeList

	stats Stats
}

// NewFixedSize creates an empty fixed-size allocator with the default class
// ladder. Init must bind a region before the first allocation.
func NewFixedSize() *FixedSize {
	fs, err := NewFixedSizeWith(ConfigDefault)
	if err != nil {
		panic(err) // ConfigDefault is known valid
	}
	return fs
}

// NewFixedSizeWith creates an empty fixed-size allocator with a custom class
// ladder.
func NewFixedSizeWith(config ClassConfig) (*FixedSize, error) {
	table, err := newClassTable(config)
	if err != nil {
		return nil, err
	}
	return &FixedSize{
		table:  table,
		heads:  make([]heap.Addr, table.NumClasses()),
		depths: make([]uint64, table.NumClasses()),
	}, nil
}

// Init binds the heap region. The whole region initially belongs to the
// fallback; class pools fill as blocks are allocated and freed. Called
// exactly once.
func (fs *FixedSize) Init(r *heap.Region) {
	if fs.region != nil {
		panicInvariant("Init", "fixed-size allocator initialized twice")
	}
	if r == nil {
		panicInvariant("Init", "nil heap region")
	}
	fs.region = r
	fs.fallback = NewFreeList()
	fs.fallback.Init(r)
}

// Allocate serves the request from its class pool, growing the pool from the
// fallback when empty. Requests above the largest class go to the fallback
// with their original layout.
func (fs *FixedSize) Allocate(layout heap.Layout) (heap.Addr, error) {
	if fs.region == nil {
		return heap.NullAddr, ErrUninitialized
	}
	fs.stats.AllocCalls++

	idx, ok := fs.table.index(requiredFor(layout))
	if !ok {
		addr, err := fs.fallback.Allocate(layout)
		if err != nil {
			fs.stats.AllocFails++
			return heap.NullAddr, err
		}
		fs.stats.FallbackAllocs++
		fs.stats.BytesAllocated += layout.Size
		return addr, nil
	}

	if head := fs.heads[idx]; head != heap.NullAddr {
		fs.heads[idx] = fs.readClassLink(head)
		fs.depths[idx]--
		fs.stats.ClassHits++
		fs.stats.BytesAllocated += fs.table.Size(idx)
		return head, nil
	}

	// Pool empty: carve a fresh block of exactly the class geometry. Class
	// sizes are powers of two, so size doubling as alignment is a valid
	// layout.
	blockSize := fs.table.Size(idx)
	addr, err := fs.fallback.Allocate(heap.Layout{Size: blockSize, Align: blockSize})
	if err != nil {
		fs.stats.AllocFails++
		traceLogf("fixedsize: class %d grow failed: %v", blockSize, err)
		return heap.NullAddr, err
	}
	fs.stats.ClassGrows++
	fs.stats.BytesAllocated += blockSize
	return addr, nil
}

// Deallocate pushes a class-sized block onto its pool. Blocks above the
// largest class return to the fallback with their original layout; pooled
// blocks never do.
func (fs *FixedSize) Deallocate(addr heap.Addr, layout heap.Layout) {
	if fs.region == nil {
		panicInvariant("Deallocate", "fixed-size allocator not initialized")
	}
	fs.stats.FreeCalls++

	idx, ok := fs.table.index(requiredFor(layout))
	if !ok {
		fs.stats.FallbackFrees++
		fs.stats.BytesFreed += layout.Size
		fs.fallback.Deallocate(addr, layout)
		return
	}

	fs.writeClassLink(addr, fs.heads[idx])
	fs.heads[idx] = addr
	fs.depths[idx]++
	fs.stats.BytesFreed += fs.table.Size(idx)
}

// readClassLink decodes the next-block link stored in a pooled free block.
func (fs *FixedSize) readClassLink(addr heap.Addr) heap.Addr {
	b, err := fs.region.Slice(addr, format.ClassNodeSize)
	if err != nil {
		panicInvariant("readClassLink", "pooled block %s outside heap: %v", addr, err)
	}
	return heap.Addr(format.ReadU64(b, 0))
}

// writeClassLink records the next-block link inside a freed block. The block
// must be able to carry the record; a misaligned or out-of-bounds address
// did not come from Allocate.
func (fs *FixedSize) writeClassLink(addr, next heap.Addr) {
	if !format.IsAligned(uint64(addr), format.ClassNodeAlign) {
		panicInvariant("Deallocate", "block %s not aligned for a free-block record", addr)
	}
	b, err := fs.region.Slice(addr, format.ClassNodeSize)
	if err != nil {
		panicInvariant("Deallocate", "block %s outside heap: %v", addr, err)
	}
	format.PutU64(b, 0, uint64(next))
}

// Classes returns the class sizes in ascending order.
func (fs *FixedSize) Classes() []uint64 {
	sizes := make([]uint64, fs.table.NumClasses())
	copy(sizes, fs.table.sizes)
	return sizes
}

// ClassFor returns the class size a layout would be served from, or ok=false
// when the layout goes to the fallback.
func (fs *FixedSize) ClassFor(layout heap.Layout) (uint64, bool) {
	idx, ok := fs.table.index(requiredFor(layout))
	if !ok {
		return 0, false
	}
	return fs.table.Size(idx), true
}

// PoolDepths returns the number of blocks pooled per class, index-aligned
// with Classes. Diagnostic.
func (fs *FixedSize) PoolDepths() []uint64 {
	depths := make([]uint64, len(fs.depths))
	copy(depths, fs.depths)
	return depths
}

// Fallback exposes the free-list backing pool growth and oversized requests.
// Diagnostic; mutating it corrupts the allocator.
func (fs *FixedSize) Fallback() *FreeList {
	return fs.fallback
}

// Stats returns a snapshot of the allocator's counters. The fallback keeps
// its own; read them through Fallback.
func (fs *FixedSize) Stats() Stats { return fs.stats }

// Compile-time interface checks
var (
	_ Allocator      = (*FixedSize)(nil)
	_ StatsAllocator = (*FixedSize)(nil)
)
