// Package alloc provides the allocation strategies for kernel heap regions.
//
// # Overview
//
// This package implements dynamic memory management over a heap.Region: a
// contiguous virtual address range backed by an owned buffer. Three
// strategies with different speed/fragmentation trade-offs share one
// interface, so the choice of strategy is a runtime configuration rather
// than a build decision.
//
// # Allocator Interface
//
// The core abstraction is the Allocator interface:
//
//   - Init(region): Bind the heap region, exactly once
//   - Allocate(layout): Get a block satisfying a size and alignment
//   - Deallocate(addr, layout): Return a block allocated with that layout
//
// # Implementations
//
// Bump: monotonic cursor allocator
//
//   - O(1) allocation, O(1) deallocation
//   - No per-block state; freed blocks only become reusable when every
//     outstanding allocation is freed and the cursor resets
//
// FreeList: first-fit free-region list
//
//   - O(n) allocation over the free regions, O(1) deallocation
//   - Free regions carry their bookkeeping inside the heap as 16-byte
//     node records; regions split on allocation
//   - Adjacent free regions are never merged, so long mixed workloads
//     fragment the heap progressively
//
// FixedSize: size-classed block pools (the default strategy)
//
//   - O(1) allocation and deallocation for class-sized blocks
//   - Power-of-two classes 8..2048 by default; class size doubles as the
//     block alignment
//   - Pools grow lazily out of a FreeList fallback and never shrink;
//     oversized requests bypass the classes to the fallback
//
// Null: fails every allocation, for the window before a heap exists.
//
// # Usage Example
//
//	region, err := heap.MapDefault()
//	if err != nil {
//		return err
//	}
//	a := alloc.NewLocked[alloc.Allocator](alloc.New(alloc.StrategyFixedSize))
//	a.Init(region)
//
//	addr, err := a.Allocate(heap.MustLayout(64, 8))
//	if err != nil {
//		return err
//	}
//	// addr resolves to memory via region.Slice(addr, 64)
//	a.Deallocate(addr, heap.MustLayout(64, 8))
//
// A process that wants a single ambient heap can use InitDefault and the
// package-level Allocate/Deallocate instead of threading a value around.
//
// # Layout Contract
//
// Deallocate must receive the same layout its block was allocated with.
// The allocators keep no per-block size table; the layout is the caller's
// half of the bookkeeping, and a wrong layout corrupts the heap. Detected
// misuse panics with *InvariantError; recoverable conditions (exhaustion,
// address overflow) are returned as errors instead.
//
// # Thread Safety
//
// Allocator implementations are single-owner. Wrap them in Locked for
// concurrent use; the wrapper's spin lock is not reentrant, so code running
// inside an allocation (handlers, hooks) must not allocate through the same
// wrapper.
//
// # Related Packages
//
//   - github.com/YangchenYe323/kheap/heap: Regions, addresses, layouts
//   - github.com/YangchenYe323/kheap/internal/format: Record encodings
package alloc
