package alloc

import "github.com/YangchenYe323/kheap/heap"

// Allocator is the capability set shared by every heap allocation strategy.
//
// Implementations:
//   - Bump: monotonic cursor with bulk reclaim
//   - FreeList: first-fit free-region list with in-place splitting
//   - FixedSize: size-classed block pools with a free-list fallback
//   - Null: fails every allocation (placeholder before a region exists)
//
// One interface for all strategies keeps the choice a runtime decision and
// lets a single build exercise every implementation uniformly.
type Allocator interface {
	// Init binds the heap region to the allocator. It must be called exactly
	// once, after the region is fully backed and before any allocation; a
	// second call panics with *InvariantError.
	Init(r *heap.Region)

	// Allocate returns the start address of a block satisfying layout, or
	// NullAddr with ErrHeapExhausted / ErrAddressOverflow when the request
	// cannot be satisfied. Exhaustion and overflow are ordinary failures the
	// caller may recover from.
	Allocate(layout heap.Layout) (heap.Addr, error)

	// Deallocate returns a previously allocated block. The layout must be
	// exactly the one passed to Allocate for this address; anything else is
	// caller misuse and panics with *InvariantError once detected.
	Deallocate(addr heap.Addr, layout heap.Layout)
}

// StatsAllocator is implemented by strategies that track operation counters.
type StatsAllocator interface {
	Allocator

	// Stats returns a snapshot of the allocator's counters.
	Stats() Stats
}
