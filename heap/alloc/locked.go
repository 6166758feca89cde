package alloc

import (
	"runtime"
	"sync/atomic"

	"github.com/YangchenYe323/kheap/heap"
)

// SpinLock is a busy-wait mutual exclusion lock. Acquisition spins instead
// of sleeping, which keeps the lock dependency-free and its hold times
// honest: every critical section under it must stay short.
//
// The lock is NOT reentrant. A goroutine that re-acquires a SpinLock it
// already holds deadlocks spinning on itself, so nothing that runs in the
// middle of an allocation (trace hooks, failure handlers) may allocate
// through the same locked allocator.
type SpinLock struct {
	state atomic.Uint32
}

// Lock acquires the lock, spinning until it is free.
func (l *SpinLock) Lock() {
	for {
		if l.state.CompareAndSwap(0, 1) {
			return
		}
		// Spin on plain loads until the lock looks free, then retry the
		// CAS. Gosched keeps a spinning goroutine from starving the holder
		// on a loaded scheduler.
		for l.state.Load() != 0 {
			runtime.Gosched()
		}
	}
}

// TryLock acquires the lock without spinning, reporting success.
func (l *SpinLock) TryLock() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Unlock releases the lock. Releasing a lock that is not held panics: it
// means two sites think they own the same critical section.
func (l *SpinLock) Unlock() {
	if l.state.Swap(0) == 0 {
		panicInvariant("Unlock", "spin lock not held")
	}
}

// Locked wraps an allocator with a SpinLock, turning a single-owner
// allocator into one safe for concurrent use. Every operation holds the
// lock for its full duration, and the unlock is deferred so a panicking
// inner allocator (an InvariantError escaping) does not leave the lock
// held.
//
// The type parameter keeps the wrapped allocator's concrete type visible:
// Do gives callers locked access to implementation-specific methods without
// type assertions.
type Locked[A Allocator] struct {
	mu    SpinLock
	inner A
}

// NewLocked wraps inner with a lock.
func NewLocked[A Allocator](inner A) *Locked[A] {
	return &Locked[A]{inner: inner}
}

// Init binds the heap region to the wrapped allocator. Called exactly once.
func (l *Locked[A]) Init(r *heap.Region) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.Init(r)
}

// Allocate locks and delegates.
func (l *Locked[A]) Allocate(layout heap.Layout) (heap.Addr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Allocate(layout)
}

// Deallocate locks and delegates.
func (l *Locked[A]) Deallocate(addr heap.Addr, layout heap.Layout) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.Deallocate(addr, layout)
}

// Do runs f with the lock held and the wrapped allocator exposed, for
// multi-step operations that must observe a quiescent allocator (stats
// snapshots, free-list walks). f must not call back into the wrapper: the
// lock is not reentrant.
func (l *Locked[A]) Do(f func(inner A)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f(l.inner)
}

var _ Allocator = (*Locked[Allocator])(nil)
