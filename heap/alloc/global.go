package alloc

import (
	"sync/atomic"

	"github.com/YangchenYe323/kheap/heap"
)

// The default heap: one process-wide locked allocator behind package-level
// Allocate and Deallocate. Everything it does is expressible with explicit
// allocator values; the globals exist for callers that want kernel-style
// "the heap" semantics without threading an allocator through every call.

var (
	defaultHeap atomic.Pointer[Locked[Allocator]]

	// failHandler holds a func(heap.Layout, error); see SetFailHandler.
	failHandler atomic.Value
)

// InitDefault makes a locked allocator of the given strategy the default
// heap, bound to r. Called exactly once in a process; a second call panics,
// because replacing the heap under live allocations cannot be made safe.
func InitDefault(r *heap.Region, s Strategy) {
	locked := NewLocked[Allocator](New(s))
	locked.Init(r)
	if !defaultHeap.CompareAndSwap(nil, locked) {
		panicInvariant("InitDefault", "default heap initialized twice")
	}
}

// DefaultInitialized reports whether InitDefault has run.
func DefaultInitialized() bool {
	return defaultHeap.Load() != nil
}

// Default returns the default heap, or nil before InitDefault.
func Default() *Locked[Allocator] {
	return defaultHeap.Load()
}

// Allocate allocates from the default heap.
func Allocate(layout heap.Layout) (heap.Addr, error) {
	d := defaultHeap.Load()
	if d == nil {
		return heap.NullAddr, ErrUninitialized
	}
	return d.Allocate(layout)
}

// Deallocate returns a block to the default heap. Freeing into a heap that
// was never initialized is misuse, not a recoverable condition.
func Deallocate(addr heap.Addr, layout heap.Layout) {
	d := defaultHeap.Load()
	if d == nil {
		panicInvariant("Deallocate", "default heap not initialized")
	}
	d.Deallocate(addr, layout)
}

// MustAllocate allocates from the default heap and routes failure through
// the failure handler. It never returns NullAddr.
func MustAllocate(layout heap.Layout) heap.Addr {
	addr, err := Allocate(layout)
	if err != nil {
		failAllocation(layout, err)
	}
	return addr
}

// SetFailHandler installs the handler MustAllocate invokes on failure,
// replacing the default one, which panics with the layout and cause. The
// handler runs outside the heap lock but must not allocate through the
// default heap; if it returns, MustAllocate panics anyway.
func SetFailHandler(h func(layout heap.Layout, err error)) {
	if h == nil {
		panicInvariant("SetFailHandler", "nil failure handler")
	}
	failHandler.Store(h)
}

func failAllocation(layout heap.Layout, err error) {
	if h, ok := failHandler.Load().(func(heap.Layout, error)); ok && h != nil {
		h(layout, err)
	}
	panic("alloc: allocation error: " + layout.String() + ": " + err.Error())
}

// DefaultStats snapshots the default heap's counters. ok is false before
// InitDefault or when the strategy keeps no counters.
func DefaultStats() (Stats, bool) {
	d := defaultHeap.Load()
	if d == nil {
		return Stats{}, false
	}
	var (
		s  Stats
		ok bool
	)
	d.Do(func(inner Allocator) {
		var sa StatsAllocator
		if sa, ok = inner.(StatsAllocator); ok {
			s = sa.Stats()
		}
	})
	return s, ok
}
