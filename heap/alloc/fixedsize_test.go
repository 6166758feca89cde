package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YangchenYe323/kheap/heap"
)

// TestFixedSize_ClassSelection is a table-driven test of the layout-to-class
// mapping, including the case where alignment dominates raw size.
func TestFixedSize_ClassSelection(t *testing.T) {
	fs := NewFixedSize()

	testCases := []struct {
		name      string
		size      uint64
		align     uint64
		wantClass uint64
		wantOK    bool
	}{
		{name: "size 4 align 32 -> class 32", size: 4, align: 32, wantClass: 32, wantOK: true},
		{name: "size 4 align 1 -> class 8", size: 4, align: 1, wantClass: 8, wantOK: true},
		{name: "size 0 align 1 -> class 8", size: 0, align: 1, wantClass: 8, wantOK: true},
		{name: "size 8 align 8 -> class 8", size: 8, align: 8, wantClass: 8, wantOK: true},
		{name: "size 9 align 8 -> class 16", size: 9, align: 8, wantClass: 16, wantOK: true},
		{name: "size 64 align 8 -> class 64", size: 64, align: 8, wantClass: 64, wantOK: true},
		{name: "size 100 align 128 -> class 128", size: 100, align: 128, wantClass: 128, wantOK: true},
		{name: "size 2048 align 1 -> class 2048", size: 2048, align: 1, wantClass: 2048, wantOK: true},
		{name: "size 2049 align 1 -> fallback", size: 2049, align: 1, wantOK: false},
		{name: "size 8 align 4096 -> fallback", size: 8, align: 4096, wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			class, ok := fs.ClassFor(heap.MustLayout(tc.size, tc.align))
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantClass, class)
			}
		})
	}
}

// TestFixedSize_AlignmentDominatesSize tests that a tiny request with a
// large alignment is served from the alignment's class, with a correctly
// aligned block.
func TestFixedSize_AlignmentDominatesSize(t *testing.T) {
	fs, _ := newFixedSizeForTest(t, 4096)

	a, err := fs.Allocate(heap.MustLayout(4, 32))
	require.NoError(t, err)
	assert.Zero(t, uint64(a)%32, "block must carry the class alignment")
	assert.Equal(t, uint64(1), fs.Stats().ClassGrows, "first touch grows the class pool")
}

// TestFixedSize_PoolReuse tests that a freed class block serves the next
// allocation of that class without another fallback call.
func TestFixedSize_PoolReuse(t *testing.T) {
	fs, _ := newFixedSizeForTest(t, 4096)

	x, err := fs.Allocate(heap.MustLayout(64, 8))
	require.NoError(t, err)
	fallbackCalls := fs.Fallback().Stats().AllocCalls

	fs.Deallocate(x, heap.MustLayout(64, 8))

	// 60 bytes maps to the same 64-byte class.
	y, err := fs.Allocate(heap.MustLayout(60, 8))
	require.NoError(t, err)
	assert.Equal(t, x, y, "the pooled block is reused")
	assert.Equal(t, fallbackCalls, fs.Fallback().Stats().AllocCalls,
		"the pool hit must not call into the fallback")
	assert.Equal(t, uint64(1), fs.Stats().ClassHits)
}

// TestFixedSize_BlocksStayPooled tests that class blocks never return to
// the fallback: repeated cycles grow the pool once and reuse forever.
func TestFixedSize_BlocksStayPooled(t *testing.T) {
	fs, _ := newFixedSizeForTest(t, 4096)
	layout := heap.MustLayout(64, 8)

	freeBefore := fs.Fallback().FreeBytes()
	for range 5 {
		a, err := fs.Allocate(layout)
		require.NoError(t, err)
		fs.Deallocate(a, layout)
	}

	assert.Equal(t, uint64(1), fs.Stats().ClassGrows, "one grow serves all five cycles")
	assert.Equal(t, uint64(4), fs.Stats().ClassHits)
	assert.Equal(t, freeBefore-64, fs.Fallback().FreeBytes(),
		"the fallback permanently gave up one block")

	depths := fs.PoolDepths()
	classes := fs.Classes()
	for i, c := range classes {
		if c == 64 {
			assert.Equal(t, uint64(1), depths[i], "the block rests in its pool")
		} else {
			assert.Zero(t, depths[i])
		}
	}
}

// TestFixedSize_CrossClassIsolation tests that pools do not share blocks
// across classes.
func TestFixedSize_CrossClassIsolation(t *testing.T) {
	fs, _ := newFixedSizeForTest(t, 4096)

	a, err := fs.Allocate(heap.MustLayout(64, 8))
	require.NoError(t, err)
	fs.Deallocate(a, heap.MustLayout(64, 8))

	b, err := fs.Allocate(heap.MustLayout(128, 8))
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "a pooled 64-byte block cannot serve a 128-byte request")
	assert.Equal(t, uint64(2), fs.Stats().ClassGrows)
}

// TestFixedSize_OversizedToFallback tests routing of requests above the
// largest class.
func TestFixedSize_OversizedToFallback(t *testing.T) {
	fs, _ := newFixedSizeForTest(t, 4096)
	layout := heap.MustLayout(3000, 8)

	a, err := fs.Allocate(layout)
	require.NoError(t, err)
	assert.Equal(t, testBase, a)
	assert.Equal(t, uint64(1), fs.Stats().FallbackAllocs)
	assert.Zero(t, fs.Stats().ClassGrows)

	fs.Deallocate(a, layout)
	assert.Equal(t, uint64(1), fs.Stats().FallbackFrees)
	assert.Equal(t, uint64(4096), fs.Fallback().FreeBytes(),
		"an oversized block goes back to the fallback, not a pool")
}

// TestFixedSize_ExhaustionPropagates tests that a fallback failure on pool
// growth surfaces as the allocation error.
func TestFixedSize_ExhaustionPropagates(t *testing.T) {
	fs, _ := newFixedSizeForTest(t, 4096)
	layout := heap.MustLayout(2048, 1)

	a, err := fs.Allocate(layout)
	require.NoError(t, err)
	assert.Equal(t, testBase, a)

	b, err := fs.Allocate(layout)
	require.NoError(t, err, "the second half of the heap fits one more 2048 block")
	assert.Equal(t, testBase+2048, b)

	addr, err := fs.Allocate(layout)
	require.ErrorIs(t, err, ErrHeapExhausted)
	assert.Equal(t, heap.NullAddr, addr)
	assert.Equal(t, uint64(1), fs.Stats().AllocFails)
}

// TestFixedSize_Scenario4096 tests the strategy against a heap whose only
// large region has been consumed: the class growth itself fails.
func TestFixedSize_Scenario4096(t *testing.T) {
	fs, _ := newFixedSizeForTest(t, 4096)

	a, err := fs.Allocate(heap.MustLayout(4000, 8))
	require.NoError(t, err)
	assert.Equal(t, testBase, a, "4000 bytes route past the classes straight to the fallback")

	// 200 maps to the 256-byte class; growing that pool needs 256 bytes at
	// 256-byte alignment, which the 96-byte tail cannot provide.
	addr, err := fs.Allocate(heap.MustLayout(200, 8))
	require.ErrorIs(t, err, ErrHeapExhausted)
	assert.Equal(t, heap.NullAddr, addr)
	assert.Zero(t, fs.Stats().ClassGrows)
}

// TestFixedSize_DefaultClasses tests the default ladder.
func TestFixedSize_DefaultClasses(t *testing.T) {
	fs := NewFixedSize()
	assert.Equal(t, []uint64{8, 16, 32, 64, 128, 256, 512, 1024, 2048}, fs.Classes())
}

// TestFixedSize_CustomConfig tests that a custom ladder changes the
// class/fallback boundary.
func TestFixedSize_CustomConfig(t *testing.T) {
	fs, err := NewFixedSizeWith(ConfigNarrow)
	require.NoError(t, err)
	assert.Equal(t, []uint64{8, 16, 32, 64, 128, 256}, fs.Classes())

	_, ok := fs.ClassFor(heap.MustLayout(512, 1))
	assert.False(t, ok, "512 exceeds the narrow ladder and goes to the fallback")
}

// TestFixedSize_ConfigValidation tests rejection of malformed ladders.
func TestFixedSize_ConfigValidation(t *testing.T) {
	testCases := []struct {
		name   string
		config ClassConfig
	}{
		{name: "min not power of two", config: ClassConfig{Name: "bad", MinSize: 12, MaxSize: 2048}},
		{name: "max not power of two", config: ClassConfig{Name: "bad", MinSize: 8, MaxSize: 3000}},
		{name: "min below record size", config: ClassConfig{Name: "bad", MinSize: 4, MaxSize: 2048}},
		{name: "inverted bounds", config: ClassConfig{Name: "bad", MinSize: 64, MaxSize: 32}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFixedSizeWith(tc.config)
			require.Error(t, err)
		})
	}
}

// TestFixedSize_DeallocateMisalignedPanics tests that freeing an address
// that cannot carry a free-block record is caught.
func TestFixedSize_DeallocateMisalignedPanics(t *testing.T) {
	fs, _ := newFixedSizeForTest(t, 4096)
	a, err := fs.Allocate(heap.MustLayout(64, 8))
	require.NoError(t, err)

	requireInvariantPanic(t, func() {
		fs.Deallocate(a+4, heap.MustLayout(64, 8))
	})
}

// TestFixedSize_DoubleInitPanics tests the one-shot Init contract.
func TestFixedSize_DoubleInitPanics(t *testing.T) {
	fs, r := newFixedSizeForTest(t, 4096)
	requireInvariantPanic(t, func() {
		fs.Init(r)
	})
}

// TestFixedSize_UninitializedAllocate tests allocation before Init.
func TestFixedSize_UninitializedAllocate(t *testing.T) {
	fs := NewFixedSize()
	addr, err := fs.Allocate(heap.MustLayout(8, 8))
	require.ErrorIs(t, err, ErrUninitialized)
	assert.Equal(t, heap.NullAddr, addr)
}
