package alloc

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stats holds allocator operation counters. Strategies share one struct and
// leave the fields they have no use for at zero; counters are snapshots, so
// reading them through a Locked wrapper needs Do.
type Stats struct {
	AllocCalls uint64 // Total Allocate calls
	AllocFails uint64 // Allocate calls that returned an error
	FreeCalls  uint64 // Total Deallocate calls

	BytesAllocated uint64 // Total bytes handed out (after padding)
	BytesFreed     uint64 // Total bytes returned

	// Free-list counters
	Splits        uint64 // Regions split on allocation
	SliverRejects uint64 // Regions passed over for an unlistable tail

	// Fixed-size counters
	ClassHits      uint64 // Allocations served from a class pool
	ClassGrows     uint64 // Pool-miss allocations carved from the fallback
	FallbackAllocs uint64 // Oversized allocations routed past the classes
	FallbackFrees  uint64 // Oversized frees routed past the classes

	// Bump counters
	CursorResets uint64 // Bulk reclaims when outstanding hit zero
}

// statsPrinter groups digits so multi-megabyte counters stay readable.
var statsPrinter = message.NewPrinter(language.English)

// String formats the counters on one line, omitting strategy-specific
// fields that never moved.
func (s Stats) String() string {
	out := statsPrinter.Sprintf("allocs=%d fails=%d frees=%d bytes=%d/%d",
		s.AllocCalls, s.AllocFails, s.FreeCalls, s.BytesAllocated, s.BytesFreed)
	if s.Splits != 0 || s.SliverRejects != 0 {
		out += statsPrinter.Sprintf(" splits=%d slivers=%d", s.Splits, s.SliverRejects)
	}
	if s.ClassHits != 0 || s.ClassGrows != 0 || s.FallbackAllocs != 0 || s.FallbackFrees != 0 {
		out += statsPrinter.Sprintf(" hits=%d grows=%d fallback=%d/%d",
			s.ClassHits, s.ClassGrows, s.FallbackAllocs, s.FallbackFrees)
	}
	if s.CursorResets != 0 {
		out += statsPrinter.Sprintf(" resets=%d", s.CursorResets)
	}
	return out
}
