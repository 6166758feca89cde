package alloc

import "fmt"

// Strategy selects one of the allocator implementations at runtime.
type Strategy uint8

const (
	// StrategyFixedSize is the size-classed block allocator (the default).
	StrategyFixedSize Strategy = iota

	// StrategyFreeList is the first-fit free-region list allocator.
	StrategyFreeList

	// StrategyBump is the monotonic cursor allocator.
	StrategyBump

	// StrategyNull is the allocator that fails every request.
	StrategyNull
)

// String returns the name used on the command line and in traces.
func (s Strategy) String() string {
	switch s {
	case StrategyFixedSize:
		return "fixedsize"
	case StrategyFreeList:
		return "freelist"
	case StrategyBump:
		return "bump"
	case StrategyNull:
		return "null"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// ParseStrategy maps a strategy name to its value.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "fixedsize":
		return StrategyFixedSize, nil
	case "freelist":
		return StrategyFreeList, nil
	case "bump":
		return StrategyBump, nil
	case "null":
		return StrategyNull, nil
	default:
		return 0, fmt.Errorf("alloc: unknown strategy %q", name)
	}
}

// New constructs an uninitialized allocator for the strategy. The caller
// still owns Init.
func New(s Strategy) Allocator {
	switch s {
	case StrategyFixedSize:
		return NewFixedSize()
	case StrategyFreeList:
		return NewFreeList()
	case StrategyBump:
		return NewBump()
	case StrategyNull:
		return NewNull()
	default:
		panic(fmt.Sprintf("alloc: unknown strategy %d", uint8(s)))
	}
}

// Strategies lists every real strategy, in a fixed order callers can cycle.
// Null is excluded: it never satisfies an allocation.
func Strategies() []Strategy {
	return []Strategy{StrategyFixedSize, StrategyFreeList, StrategyBump}
}
