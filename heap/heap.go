// Package heap defines the address space the allocator strategies operate
// on: virtual addresses, allocation layouts, and the heap region that maps a
// contiguous address range onto backing memory.
//
// A Region is the hand-off point between the (external) page-mapping step
// and the allocators in heap/alloc: it represents a [start, start+size)
// virtual range that is already fully backed and unused. Allocators perform
// pure address arithmetic on the range and store their bookkeeping records
// inside the region's own memory.
package heap

const (
	// DefaultBase is the virtual address where a mapped heap region starts
	// unless the caller chooses one. The value is inherited from the kernel
	// this subsystem was built for.
	DefaultBase Addr = 0x4444_4444_0000

	// DefaultHeapSize is the heap size used by MapDefault: 100 KiB.
	DefaultHeapSize uint64 = 100 * 1024
)
