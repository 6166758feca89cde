package format

// Alignment utilities for heap address arithmetic. Every alignment handled
// here is a power of two; callers validate that before reaching this code.

// AlignUp returns v aligned up to the next multiple of align.
// align must be a nonzero power of two. The computation is unchecked; use
// AlignUpChecked when v may sit near the top of the address space.
//
// Example:
//
//	AlignUp(13, 8)  = 16
//	AlignUp(16, 8)  = 16
//	AlignUp(1, 4096) = 4096
func AlignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// AlignUpChecked returns v aligned up to the next multiple of align, with
// ok=false when the computation would wrap the 64-bit address space.
// align must be a nonzero power of two.
func AlignUpChecked(v, align uint64) (aligned uint64, ok bool) {
	sum := v + align - 1
	if sum < v {
		return 0, false
	}
	return sum &^ (align - 1), true
}

// AlignDown returns v aligned down to the previous multiple of align.
// align must be a nonzero power of two.
func AlignDown(v, align uint64) uint64 {
	return v &^ (align - 1)
}

// IsAligned reports whether v is a multiple of align.
// align must be a nonzero power of two.
func IsAligned(v, align uint64) bool {
	return v&(align-1) == 0
}

// IsPowerOfTwo reports whether v is a power of two. Zero is not.
func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// AlignPage returns n aligned up to the next whole page.
//
// Example:
//
//	AlignPage(1)    = 4096
//	AlignPage(4096) = 4096
//	AlignPage(4097) = 8192
func AlignPage(n uint64) uint64 {
	return (n + PageAlignMask) &^ uint64(PageAlignMask)
}
