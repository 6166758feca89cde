package alloc

import (
	"testing"

	"github.com/YangchenYe323/kheap/heap"
)

func newBenchRegion(b *testing.B, size uint64) *heap.Region {
	b.Helper()
	r, err := heap.NewFixedRegion(testBase, size)
	if err != nil {
		b.Fatal(err)
	}
	return r
}

// BenchmarkBump_AllocFree measures the cursor fast path: every iteration
// allocates and frees one block, so the cursor resets each time.
func BenchmarkBump_AllocFree(b *testing.B) {
	al := NewBump()
	al.Init(newBenchRegion(b, 1<<20))
	layout := heap.MustLayout(64, 8)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		a, err := al.Allocate(layout)
		if err != nil {
			b.Fatal(err)
		}
		al.Deallocate(a, layout)
	}
}

// BenchmarkFreeList_AllocFree measures the head-hit path: a freed block is
// first on the list and exactly fits the next request.
func BenchmarkFreeList_AllocFree(b *testing.B) {
	al := NewFreeList()
	al.Init(newBenchRegion(b, 1<<20))
	layout := heap.MustLayout(64, 8)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		a, err := al.Allocate(layout)
		if err != nil {
			b.Fatal(err)
		}
		al.Deallocate(a, layout)
	}
}

// BenchmarkFreeList_Churn measures mixed traffic with a window of live
// blocks, so allocations regularly split and the list stays populated.
func BenchmarkFreeList_Churn(b *testing.B) {
	al := NewFreeList()
	al.Init(newBenchRegion(b, 1<<20))
	layout := heap.MustLayout(192, 8)

	const window = 64
	ring := make([]heap.Addr, 0, window)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		a, err := al.Allocate(layout)
		if err != nil {
			b.Fatal(err)
		}
		ring = append(ring, a)
		if len(ring) == window {
			al.Deallocate(ring[0], layout)
			ring = ring[1:]
		}
	}
}

// BenchmarkFixedSize_PoolHit measures the primed class pool: pure
// pop-and-push with no fallback involvement.
func BenchmarkFixedSize_PoolHit(b *testing.B) {
	al := NewFixedSize()
	al.Init(newBenchRegion(b, 1<<20))
	layout := heap.MustLayout(64, 8)

	// Prime the pool so the loop never grows.
	a, err := al.Allocate(layout)
	if err != nil {
		b.Fatal(err)
	}
	al.Deallocate(a, layout)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		a, err := al.Allocate(layout)
		if err != nil {
			b.Fatal(err)
		}
		al.Deallocate(a, layout)
	}
}

// BenchmarkFixedSize_Oversized measures the bypass path for requests above
// the largest class.
func BenchmarkFixedSize_Oversized(b *testing.B) {
	al := NewFixedSize()
	al.Init(newBenchRegion(b, 1<<20))
	layout := heap.MustLayout(3000, 8)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		a, err := al.Allocate(layout)
		if err != nil {
			b.Fatal(err)
		}
		al.Deallocate(a, layout)
	}
}

// BenchmarkLocked_Parallel measures lock contention with every worker doing
// allocate/free pairs against one shared heap.
func BenchmarkLocked_Parallel(b *testing.B) {
	l := NewLocked(NewFixedSize())
	l.Init(newBenchRegion(b, 1<<22))
	layout := heap.MustLayout(64, 8)

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			a, err := l.Allocate(layout)
			if err != nil {
				b.Fatal(err)
			}
			l.Deallocate(a, layout)
		}
	})
}
