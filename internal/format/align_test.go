package format

import (
	"math"
	"testing"
)

func TestAlignUp(t *testing.T) {
	cases := []struct {
		v, align, want uint64
	}{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{13, 1, 13},
		{1, 4096, 4096},
		{4096, 4096, 4096},
		{4097, 4096, 8192},
	}
	for _, c := range cases {
		if got := AlignUp(c.v, c.align); got != c.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", c.v, c.align, got, c.want)
		}
	}
}

func TestAlignUpChecked(t *testing.T) {
	if got, ok := AlignUpChecked(9, 8); !ok || got != 16 {
		t.Fatalf("AlignUpChecked(9, 8) = %d, %v", got, ok)
	}
	// Near the top of the address space the intermediate sum wraps.
	if _, ok := AlignUpChecked(math.MaxUint64-3, 8); ok {
		t.Fatalf("expected overflow for AlignUpChecked near MaxUint64")
	}
	// Aligned values at the very top still succeed.
	top := uint64(math.MaxUint64) &^ uint64(7)
	if got, ok := AlignUpChecked(top, 8); !ok || got != top {
		t.Fatalf("AlignUpChecked(%#x, 8) = %#x, %v", top, got, ok)
	}
}

func TestAlignDown(t *testing.T) {
	if got := AlignDown(4097, 4096); got != 4096 {
		t.Fatalf("AlignDown(4097, 4096) = %d", got)
	}
	if got := AlignDown(7, 8); got != 0 {
		t.Fatalf("AlignDown(7, 8) = %d", got)
	}
}

func TestIsAligned(t *testing.T) {
	if !IsAligned(0, 8) || !IsAligned(16, 8) || IsAligned(12, 8) {
		t.Fatalf("IsAligned gave wrong answers")
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, v := range []uint64{1, 2, 4, 8, 1024, 1 << 40} {
		if !IsPowerOfTwo(v) {
			t.Errorf("IsPowerOfTwo(%d) = false", v)
		}
	}
	for _, v := range []uint64{0, 3, 6, 12, 1<<40 + 1} {
		if IsPowerOfTwo(v) {
			t.Errorf("IsPowerOfTwo(%d) = true", v)
		}
	}
}

func TestAlignPage(t *testing.T) {
	if got := AlignPage(1); got != PageSize {
		t.Fatalf("AlignPage(1) = %d", got)
	}
	if got := AlignPage(PageSize); got != PageSize {
		t.Fatalf("AlignPage(PageSize) = %d", got)
	}
	if got := AlignPage(PageSize + 1); got != 2*PageSize {
		t.Fatalf("AlignPage(PageSize+1) = %d", got)
	}
}
