package alloc

import "github.com/YangchenYe323/kheap/heap"

// Null is the allocator that fails every request. It stands in wherever an
// Allocator is required before a real heap exists, making accidental early
// allocation a visible failure instead of silent corruption.
type Null struct {
	initialized bool
}

// NewNull creates a null allocator.
func NewNull() *Null {
	return &Null{}
}

// Init accepts the region and ignores it. Called exactly once, like every
// other allocator.
func (n *Null) Init(r *heap.Region) {
	if n.initialized {
		panicInvariant("Init", "null allocator initialized twice")
	}
	if r == nil {
		panicInvariant("Init", "nil heap region")
	}
	n.initialized = true
}

// Allocate fails unconditionally.
func (n *Null) Allocate(layout heap.Layout) (heap.Addr, error) {
	if !n.initialized {
		return heap.NullAddr, ErrUninitialized
	}
	return heap.NullAddr, ErrHeapExhausted
}

// Deallocate panics: Allocate never succeeds, so no block can legitimately
// come back.
func (n *Null) Deallocate(addr heap.Addr, layout heap.Layout) {
	panicInvariant("Deallocate", "null allocator cannot own block %s", addr)
}

var _ Allocator = (*Null)(nil)
