package alloc

import "github.com/YangchenYe323/kheap/heap"

// Bump is a monotonic cursor allocator. It hands out addresses linearly from
// a cursor that only ever moves forward, and reclaims memory in bulk: when
// the count of outstanding allocations drops to zero the cursor snaps back
// to the start of the heap and the whole region is free again in one step.
//
// Key characteristics:
//   - O(1) allocation: align the cursor, bounds-check, advance
//   - O(1) deallocation: decrement a counter; no per-block tracking
//   - Zero metadata inside the heap: the state is four words
//   - Individually freed blocks are NOT reusable until every other
//     outstanding allocation is freed too
//
// This makes Bump ideal for allocation patterns with a shared deallocation
// point (scratch buffers built up and then dropped together) and wrong for
// long-lived mixed workloads, which leak the heap away until the reset.
type Bump struct {
	region *heap.Region

	heapStart heap.Addr
	heapEnd   heap.Addr // exclusive

	// next is the bump cursor: the lowest address not yet handed out.
	// Invariant: heapStart <= next <= heapEnd.
	next heap.Addr

	// outstanding counts live allocations; the cursor resets when it
	// reaches zero.
	outstanding uint64

	stats Stats
}

// NewBump creates an empty bump allocator. Init must bind a region before
// the first allocation.
func NewBump() *Bump {
	return &Bump{}
}

// Init binds the heap region. Called exactly once.
func (b *Bump) Init(r *heap.Region) {
	if b.region != nil {
		panicInvariant("Init", "bump allocator initialized twice")
	}
	if r == nil {
		panicInvariant("Init", "nil heap region")
	}
	b.region = r
	b.heapStart = r.Base()
	b.heapEnd = r.End()
	b.next = r.Base()
}

// Allocate returns the next cursor position aligned for the layout.
func (b *Bump) Allocate(layout heap.Layout) (heap.Addr, error) {
	if b.region == nil {
		return heap.NullAddr, ErrUninitialized
	}
	b.stats.AllocCalls++

	start, ok := b.next.AlignUp(layout.Align)
	if !ok {
		b.stats.AllocFails++
		return heap.NullAddr, ErrAddressOverflow
	}
	end, ok := start.Add(layout.Size)
	if !ok {
		b.stats.AllocFails++
		return heap.NullAddr, ErrAddressOverflow
	}
	if end > b.heapEnd {
		b.stats.AllocFails++
		traceLogf("bump: exhausted: need %s at %s, heap ends at %s",
			layout, start, b.heapEnd)
		return heap.NullAddr, ErrHeapExhausted
	}

	b.next = end
	b.outstanding++
	b.stats.BytesAllocated += layout.Size
	return start, nil
}

// Deallocate drops one outstanding allocation. The address and layout are
// not inspected: individual blocks cannot be reused, only counted. When the
// last outstanding allocation is freed the cursor resets to the heap start.
func (b *Bump) Deallocate(_ heap.Addr, layout heap.Layout) {
	if b.region == nil {
		panicInvariant("Deallocate", "bump allocator not initialized")
	}
	if b.outstanding == 0 {
		panicInvariant("Deallocate", "no outstanding allocations (double free?)")
	}
	b.stats.FreeCalls++
	b.stats.BytesFreed += layout.Size

	b.outstanding--
	if b.outstanding == 0 {
		b.next = b.heapStart
		b.stats.CursorResets++
	}
}

// Outstanding returns the number of live allocations.
func (b *Bump) Outstanding() uint64 { return b.outstanding }

// Cursor returns the current bump position.
func (b *Bump) Cursor() heap.Addr { return b.next }

// Remaining returns the bytes left between the cursor and the heap end.
func (b *Bump) Remaining() uint64 { return uint64(b.heapEnd - b.next) }

// Stats returns a snapshot of the allocator's counters.
func (b *Bump) Stats() Stats { return b.stats }

// Compile-time interface checks
var (
	_ Allocator      = (*Bump)(nil)
	_ StatsAllocator = (*Bump)(nil)
)
