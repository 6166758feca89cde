package alloc

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YangchenYe323/kheap/heap"
)

// resetDefaultHeapForTest clears the process-global default heap between
// tests. Only tests may do this; InitDefault is one-shot everywhere else.
func resetDefaultHeapForTest(t *testing.T) {
	t.Helper()
	defaultHeap.Store(nil)
	failHandler = atomic.Value{}
}

// TestDefaultHeap_Lifecycle tests the uninitialized, initialized, and
// reinitialized states of the package-level heap.
func TestDefaultHeap_Lifecycle(t *testing.T) {
	resetDefaultHeapForTest(t)

	assert.False(t, DefaultInitialized())
	assert.Nil(t, Default())

	addr, err := Allocate(heap.MustLayout(8, 8))
	require.ErrorIs(t, err, ErrUninitialized, "allocation before init is recoverable")
	assert.Equal(t, heap.NullAddr, addr)

	requireInvariantPanic(t, func() {
		Deallocate(testBase, heap.MustLayout(8, 8))
	})

	r := newTestRegion(t, 4096)
	InitDefault(r, StrategyFreeList)
	require.True(t, DefaultInitialized())

	a, err := Allocate(heap.MustLayout(64, 8))
	require.NoError(t, err)
	assert.Equal(t, testBase, a)
	Deallocate(a, heap.MustLayout(64, 8))

	s, ok := DefaultStats()
	require.True(t, ok, "the free-list strategy keeps counters")
	assert.Equal(t, uint64(1), s.AllocCalls)
	assert.Equal(t, uint64(1), s.FreeCalls)

	r2 := newTestRegion(t, 4096)
	requireInvariantPanic(t, func() {
		InitDefault(r2, StrategyBump)
	})
}

// TestDefaultHeap_MustAllocate tests the failure-handler path.
func TestDefaultHeap_MustAllocate(t *testing.T) {
	resetDefaultHeapForTest(t)

	r := newTestRegion(t, 4096)
	InitDefault(r, StrategyBump)

	a := MustAllocate(heap.MustLayout(64, 8))
	assert.Equal(t, testBase, a)

	var (
		gotLayout heap.Layout
		gotErr    error
	)
	SetFailHandler(func(layout heap.Layout, err error) {
		gotLayout = layout
		gotErr = err
	})

	huge := heap.MustLayout(1<<20, 8)
	func() {
		defer func() {
			rec := recover()
			require.NotNil(t, rec, "MustAllocate panics even when the handler returns")
		}()
		MustAllocate(huge)
	}()

	assert.Equal(t, huge, gotLayout, "the handler sees the failing layout")
	assert.ErrorIs(t, gotErr, ErrHeapExhausted)
}

// TestDefaultHeap_NullStrategy tests that a stats-less strategy reports no
// counters.
func TestDefaultHeap_NullStrategy(t *testing.T) {
	resetDefaultHeapForTest(t)

	r := newTestRegion(t, 4096)
	InitDefault(r, StrategyNull)

	_, err := Allocate(heap.MustLayout(8, 8))
	require.ErrorIs(t, err, ErrHeapExhausted)

	_, ok := DefaultStats()
	assert.False(t, ok, "the null allocator keeps no counters")
}
