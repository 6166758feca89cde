package alloc

import (
	"github.com/YangchenYe323/kheap/heap"
	"github.com/YangchenYe323/kheap/internal/format"
)

// freeNode is the decoded form of the 16-byte record written at the start of
// every free region. The heap's own free memory stores the bookkeeping, so
// the allocator state outside the heap is a single head address.
type freeNode struct {
	addr heap.Addr // where the record lives (== region start)
	size uint64    // region size in bytes, node included
	next heap.Addr // following free region, NullAddr at list end
}

// end returns the first address past the free region.
func (n freeNode) end() heap.Addr { return n.addr + heap.Addr(n.size) }

// FreeList is a first-fit allocator over a linked list of free regions. The
// list lives inside the heap: each free region begins with a freeNode record,
// and freed blocks are pushed onto the front of the list.
//
// Key characteristics:
//   - First fit: the walk stops at the first region the request fits in
//   - In-place splitting: a larger region is split and the tail re-listed,
//     unless the leftover is too small to carry a node record
//   - LIFO free order: Deallocate pushes at the head, so a freed block is
//     the first candidate for the next allocation
//   - No coalescing: adjacent free regions are never merged, so a heap can
//     fragment into regions that individually satisfy nothing (see the
//     package doc for the consequences)
//
// Every region tracked by the list is at least 16 bytes and 8-byte aligned;
// padForNode rounds requests up so freed blocks always satisfy both.
type FreeList struct {
	region *heap.Region

	// head is the address of the first free region, NullAddr when the list
	// is empty. The anchor lives here rather than in the heap so an empty
	// list needs no heap bytes.
	head heap.Addr

	stats Stats
}

// NewFreeList creates an empty free-list allocator. Init must bind a region
// before the first allocation.
func NewFreeList() *FreeList {
	return &FreeList{}
}

// Init binds the heap region and lists the whole of it as one free region.
// Called exactly once.
func (f *FreeList) Init(r *heap.Region) {
	if f.region != nil {
		panicInvariant("Init", "free-list allocator initialized twice")
	}
	if r == nil {
		panicInvariant("Init", "nil heap region")
	}
	f.region = r
	f.head = heap.NullAddr
	f.addFreeRegion(r.Base(), r.Size())
}

// Allocate walks the free list front to back and carves the request out of
// the first region it fits in.
func (f *FreeList) Allocate(layout heap.Layout) (heap.Addr, error) {
	if f.region == nil {
		return heap.NullAddr, ErrUninitialized
	}
	f.stats.AllocCalls++

	size, align, err := padForNode(layout)
	if err != nil {
		f.stats.AllocFails++
		return heap.NullAddr, err
	}

	node, allocStart, ok := f.findRegion(size, align)
	if !ok {
		f.stats.AllocFails++
		traceLogf("freelist: exhausted: need size=%d align=%d", size, align)
		return heap.NullAddr, ErrHeapExhausted
	}

	// findRegion already proved allocStart+size fits the region, so this
	// cannot wrap.
	allocEnd := allocStart + heap.Addr(size)

	// The tail of the region beyond the allocation goes back on the list.
	// Any head gap before allocStart is dropped and stays unlisted; region
	// starts are node-aligned, so a gap only appears for alignments above
	// the node's.
	if excess := uint64(node.end() - allocEnd); excess > 0 {
		f.addFreeRegion(allocEnd, excess)
		f.stats.Splits++
	}

	f.stats.BytesAllocated += size
	return allocStart, nil
}

// Deallocate pushes the block onto the front of the free list. The layout
// must be the one passed to Allocate; it is re-padded the same way so the
// listed region covers the same bytes the allocation did.
func (f *FreeList) Deallocate(addr heap.Addr, layout heap.Layout) {
	if f.region == nil {
		panicInvariant("Deallocate", "free-list allocator not initialized")
	}
	size, _, err := padForNode(layout)
	if err != nil {
		// Allocate would have rejected this layout, so it cannot describe a
		// live block.
		panicInvariant("Deallocate", "layout %s was never allocatable: %v", layout, err)
	}
	f.stats.FreeCalls++
	f.stats.BytesFreed += size
	f.addFreeRegion(addr, size)
}

// addFreeRegion writes a node record at addr and pushes the region onto the
// front of the list. The region must be able to carry the record: aligned
// for it and at least as large. Anything else means the address or layout
// did not come from Allocate, and the list would be corrupted the moment the
// record is written.
func (f *FreeList) addFreeRegion(addr heap.Addr, size uint64) {
	if !format.IsAligned(uint64(addr), format.ListNodeAlign) {
		panicInvariant("addFreeRegion", "region %s not aligned for a node record", addr)
	}
	if size < format.ListNodeSize {
		panicInvariant("addFreeRegion", "region %s size %d below node record size", addr, size)
	}
	if !f.region.Contains(addr, size) {
		panicInvariant("addFreeRegion", "region %s+%d outside heap bounds", addr, size)
	}
	f.writeNode(addr, size, f.head)
	f.head = addr
	debugLogf("freelist: listed %s+%d, head now %s", addr, size, f.head)
}

// findRegion walks the list for the first region that can host an allocation
// of the padded size and alignment. On success the region is unlinked and
// returned along with the aligned start address inside it.
func (f *FreeList) findRegion(size, align uint64) (freeNode, heap.Addr, bool) {
	prev := heap.NullAddr
	cur := f.head
	for cur != heap.NullAddr {
		node := f.readNode(cur)
		allocStart, ok := f.allocFromRegion(node, size, align)
		if ok {
			if prev == heap.NullAddr {
				f.head = node.next
			} else {
				f.setNext(prev, node.next)
			}
			return node, allocStart, true
		}
		prev = cur
		cur = node.next
	}
	return freeNode{}, heap.NullAddr, false
}

// allocFromRegion decides whether the region can host the request, and where
// the allocation would start. A region is rejected when the aligned request
// does not fit, or when fitting it would leave a tail too small to carry a
// node record: such a sliver could never be re-listed, so the whole region
// is passed over instead.
func (f *FreeList) allocFromRegion(node freeNode, size, align uint64) (heap.Addr, bool) {
	allocStart, ok := node.addr.AlignUp(align)
	if !ok {
		return heap.NullAddr, false
	}
	allocEnd, ok := allocStart.Add(size)
	if !ok {
		return heap.NullAddr, false
	}
	if allocEnd > node.end() {
		return heap.NullAddr, false
	}
	if excess := uint64(node.end() - allocEnd); excess > 0 && excess < format.ListNodeSize {
		f.stats.SliverRejects++
		return heap.NullAddr, false
	}
	return allocStart, true
}

// readNode decodes the record at addr.
func (f *FreeList) readNode(addr heap.Addr) freeNode {
	b, err := f.region.Slice(addr, format.ListNodeSize)
	if err != nil {
		panicInvariant("readNode", "node %s outside heap: %v", addr, err)
	}
	return freeNode{
		addr: addr,
		size: format.ReadU64(b, format.NodeSizeOffset),
		next: heap.Addr(format.ReadU64(b, format.NodeNextOffset)),
	}
}

// writeNode encodes a record at addr.
func (f *FreeList) writeNode(addr heap.Addr, size uint64, next heap.Addr) {
	b, err := f.region.Slice(addr, format.ListNodeSize)
	if err != nil {
		panicInvariant("writeNode", "node %s outside heap: %v", addr, err)
	}
	format.PutU64(b, format.NodeSizeOffset, size)
	format.PutU64(b, format.NodeNextOffset, uint64(next))
}

// setNext rewrites only the next link of the record at addr.
func (f *FreeList) setNext(addr, next heap.Addr) {
	b, err := f.region.Slice(addr, format.ListNodeSize)
	if err != nil {
		panicInvariant("setNext", "node %s outside heap: %v", addr, err)
	}
	format.PutU64(b, format.NodeNextOffset, uint64(next))
}

// padForNode adjusts a layout so the allocated block can later carry a node
// record: alignment is raised to the record's, the size is rounded up to a
// multiple of that alignment (so blocks tile without sub-aligned remainders)
// and to no less than the record size. Every block handed out with the
// padded size is a valid future free region.
func padForNode(layout heap.Layout) (size, align uint64, err error) {
	align = max(layout.Align, format.ListNodeAlign)
	size, ok := format.AlignUpChecked(layout.Size, align)
	if !ok {
		return 0, 0, ErrAddressOverflow
	}
	size = max(size, format.ListNodeSize)
	return size, align, nil
}

// FreeSpan describes one region on the free list, for diagnostics.
type FreeSpan struct {
	Addr heap.Addr
	Size uint64
}

// FreeSpans returns the free list in walk order (most recently freed first).
// Diagnostic; the result is a snapshot and stale after the next operation.
func (f *FreeList) FreeSpans() []FreeSpan {
	var spans []FreeSpan
	for cur := f.head; cur != heap.NullAddr; {
		node := f.readNode(cur)
		spans = append(spans, FreeSpan{Addr: node.addr, Size: node.size})
		cur = node.next
	}
	return spans
}

// FreeBytes returns the total bytes currently on the free list.
func (f *FreeList) FreeBytes() uint64 {
	var total uint64
	for _, s := range f.FreeSpans() {
		total += s.Size
	}
	return total
}

// Stats returns a snapshot of the allocator's counters.
func (f *FreeList) Stats() Stats { return f.stats }

// Compile-time interface checks
var (
	_ Allocator      = (*FreeList)(nil)
	_ StatsAllocator = (*FreeList)(nil)
)
