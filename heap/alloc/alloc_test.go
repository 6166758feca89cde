package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/YangchenYe323/kheap/heap"
)

// testBase is where test heaps live. DefaultBase is 64KiB-aligned, so test
// allocations never see a head gap at the region start regardless of the
// requested alignment.
const testBase = heap.DefaultBase

// newTestRegion creates an in-memory heap region of exactly size bytes.
func newTestRegion(t *testing.T, size uint64) *heap.Region {
	t.Helper()
	r, err := heap.NewFixedRegion(testBase, size)
	require.NoError(t, err, "test region of %d bytes should map", size)
	return r
}

// newBumpForTest creates an initialized Bump over a fresh region.
func newBumpForTest(t *testing.T, size uint64) (*Bump, *heap.Region) {
	t.Helper()
	r := newTestRegion(t, size)
	b := NewBump()
	b.Init(r)
	return b, r
}

// newFreeListForTest creates an initialized FreeList over a fresh region.
func newFreeListForTest(t *testing.T, size uint64) (*FreeList, *heap.Region) {
	t.Helper()
	r := newTestRegion(t, size)
	f := NewFreeList()
	f.Init(r)
	return f, r
}

// newFixedSizeForTest creates an initialized FixedSize over a fresh region.
func newFixedSizeForTest(t *testing.T, size uint64) (*FixedSize, *heap.Region) {
	t.Helper()
	r := newTestRegion(t, size)
	fs := NewFixedSize()
	fs.Init(r)
	return fs, r
}

// liveBlock records one live allocation for overlap checking.
type liveBlock struct {
	addr   heap.Addr
	layout heap.Layout
}

// assertNoOverlap verifies that no two live blocks share an address and that
// every block lies inside the region and respects its alignment.
func assertNoOverlap(t *testing.T, r *heap.Region, blocks []liveBlock) {
	t.Helper()
	for i, b := range blocks {
		require.Zero(t, uint64(b.addr)%b.layout.Align,
			"block %d at %s violates alignment %d", i, b.addr, b.layout.Align)
		require.True(t, r.Contains(b.addr, b.layout.Size),
			"block %d at %s size %d escapes the region", i, b.addr, b.layout.Size)
		end := b.addr + heap.Addr(b.layout.Size)
		for j, o := range blocks {
			if i == j {
				continue
			}
			oEnd := o.addr + heap.Addr(o.layout.Size)
			if b.addr < oEnd && o.addr < end {
				t.Fatalf("blocks overlap: [%s, %s) and [%s, %s)", b.addr, end, o.addr, oEnd)
			}
		}
	}
}

// fillPattern writes a deterministic byte pattern into a live block so later
// allocator operations can be checked for not touching it.
func fillPattern(t *testing.T, r *heap.Region, addr heap.Addr, size uint64) {
	t.Helper()
	if size == 0 {
		return
	}
	b, err := r.Slice(addr, size)
	require.NoError(t, err)
	seed := byte(uint64(addr) >> 3)
	for i := range b {
		b[i] = seed + byte(i)
	}
}

// checkPattern verifies the pattern written by fillPattern is intact.
func checkPattern(t *testing.T, r *heap.Region, addr heap.Addr, size uint64) {
	t.Helper()
	if size == 0 {
		return
	}
	b, err := r.Slice(addr, size)
	require.NoError(t, err)
	seed := byte(uint64(addr) >> 3)
	for i := range b {
		if b[i] != seed+byte(i) {
			t.Fatalf("block %s byte %d clobbered: got %#x want %#x",
				addr, i, b[i], seed+byte(i))
		}
	}
}

// requireInvariantPanic runs f and requires that it panics with an
// *InvariantError.
func requireInvariantPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		rec := recover()
		require.NotNil(t, rec, "expected an invariant panic")
		_, ok := rec.(*InvariantError)
		require.True(t, ok, "panic payload should be *InvariantError, got %T: %v", rec, rec)
	}()
	f()
}
