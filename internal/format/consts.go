// Package format houses the low-level layout of the bookkeeping records the
// allocators write into the heap itself. The goal is to keep the byte-level
// encoding focused, allocation-free, and independent from the public API so
// the allocator packages can reason purely in addresses and sizes.
package format

const (
	// ListNodeSize is the storage size in bytes of a free-list node record.
	// Layout (little-endian):
	//   +0x00  u64  size of the free region, including the node itself
	//   +0x08  u64  address of the next free region, or 0 for end of list
	ListNodeSize = 16

	// ListNodeAlign is the natural alignment of a free-list node. Both node
	// fields are u64, so nodes must start on an 8-byte boundary.
	ListNodeAlign = 8

	// NodeSizeOffset is the byte offset of the size field within a node.
	NodeSizeOffset = 0

	// NodeNextOffset is the byte offset of the next-link field within a node.
	NodeNextOffset = 8

	// ClassNodeSize is the storage size in bytes of a size-class free-block
	// record. A class block needs only a next link; the block size is implied
	// by the class the block belongs to.
	// Layout (little-endian):
	//   +0x00  u64  address of the next free block, or 0 for end of list
	ClassNodeSize = 8

	// ClassNodeAlign is the natural alignment of a class free-block record.
	ClassNodeAlign = 8

	// PageSize is the granularity of the heap region provider. Regions are
	// handed to the allocators page-aligned and in whole pages.
	PageSize = 4096

	// PageAlignMask is the bitmask used for aligning to page boundaries.
	PageAlignMask = PageSize - 1
)
