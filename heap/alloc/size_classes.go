package alloc

import (
	"fmt"

	"github.com/YangchenYe323/kheap/heap"
	"github.com/YangchenYe323/kheap/internal/format"
)

// ClassConfig defines the size class ladder of the fixed-size allocator.
// Classes are consecutive powers of two from MinSize to MaxSize inclusive;
// each class size doubles as the block alignment, so a block of class c is
// aligned to c bytes and serves any layout with size <= c and align <= c.
type ClassConfig struct {
	// Name for this configuration (for benchmarking and traces)
	Name string

	// MinSize is the smallest class, a power of two no smaller than the
	// free-block record (8 bytes).
	MinSize uint64

	// MaxSize is the largest class, a power of two. Requests above it go to
	// the fallback allocator.
	MaxSize uint64
}

// Predefined configurations for testing.
var (
	// Default: 8..2048 doubling (9 classes). Covers the block sizes kernel
	// object allocation actually produces; larger requests are rare enough
	// to leave to the fallback.
	ConfigDefault = ClassConfig{
		Name:    "Default",
		MinSize: 8,
		MaxSize: 2048,
	}

	// Wide: 8..8192 doubling (11 classes). Fewer fallback trips at the cost
	// of retaining more memory in the large pools.
	ConfigWide = ClassConfig{
		Name:    "Wide",
		MinSize: 8,
		MaxSize: 8192,
	}

	// Narrow: 8..256 doubling (6 classes). Keeps pool retention low and
	// routes everything mid-sized to the fallback.
	ConfigNarrow = ClassConfig{
		Name:    "Narrow",
		MinSize: 8,
		MaxSize: 256,
	}
)

// classTable holds the computed class sizes in ascending order.
type classTable struct {
	config ClassConfig
	sizes  []uint64
}

// newClassTable computes the class ladder from config.
func newClassTable(config ClassConfig) (*classTable, error) {
	if !format.IsPowerOfTwo(config.MinSize) || !format.IsPowerOfTwo(config.MaxSize) {
		return nil, fmt.Errorf("alloc: class bounds %d..%d must be powers of two",
			config.MinSize, config.MaxSize)
	}
	if config.MinSize < format.ClassNodeSize {
		return nil, fmt.Errorf("alloc: smallest class %d cannot hold a free-block record",
			config.MinSize)
	}
	if config.MaxSize < config.MinSize {
		return nil, fmt.Errorf("alloc: class bounds %d..%d are inverted",
			config.MinSize, config.MaxSize)
	}

	table := &classTable{config: config}
	for size := config.MinSize; size <= config.MaxSize; size *= 2 {
		table.sizes = append(table.sizes, size)
	}
	return table, nil
}

// requiredFor collapses a layout to the single size the class ladder is
// keyed on. Because class size equals class alignment, a block of class
// c >= max(layout.Size, layout.Align) satisfies both constraints at once.
func requiredFor(layout heap.Layout) uint64 {
	return max(layout.Size, layout.Align)
}

// index returns the smallest class that covers required, or ok=false when
// the request exceeds the largest class and must go to the fallback.
func (t *classTable) index(required uint64) (int, bool) {
	// Binary search for the smallest class >= required
	lo, hi := 0, len(t.sizes)-1

	for lo <= hi {
		mid := (lo + hi) / 2
		if required <= t.sizes[mid] {
			if mid == 0 || required > t.sizes[mid-1] {
				return mid, true
			}
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}

	// Larger than every class
	return 0, false
}

// Size returns the block size of class i.
func (t *classTable) Size(i int) uint64 {
	return t.sizes[i]
}

// NumClasses returns the number of classes in the ladder.
func (t *classTable) NumClasses() int {
	return len(t.sizes)
}

// String returns the configuration name.
func (t *classTable) String() string {
	return t.config.Name
}
