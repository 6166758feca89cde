package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/YangchenYe323/kheap/heap"
	"github.com/YangchenYe323/kheap/heap/alloc"
	"github.com/spf13/cobra"
)

var (
	benchStrategy string
	benchHeapSize uint64
	benchOps      uint64
	benchWindow   int
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().StringVar(&benchStrategy, "strategy", "all",
		"Strategy to benchmark (fixedsize, freelist, bump, all)")
	cmd.Flags().Uint64Var(&benchHeapSize, "heap-size", envDefaults.HeapSize,
		"Heap region size in bytes")
	cmd.Flags().Uint64Var(&benchOps, "ops", envDefaults.Ops,
		"Operations per pattern")
	cmd.Flags().IntVar(&benchWindow, "window", 64,
		"Live blocks held by the churn pattern")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time allocation workloads against each strategy",
		Long: `The bench command times fixed allocation workloads against the selected
strategies. The pairs pattern allocates and immediately frees mixed layouts;
the churn pattern holds a sliding window of live blocks, the shape that
separates pooled reuse from cursor-only allocation.

Example:
  heapctl bench
  heapctl bench --strategy freelist --ops 1000000
  heapctl bench --heap-size 4194304 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
	return cmd
}

// BenchResult is one timed pattern run against one strategy.
type BenchResult struct {
	Strategy string
	Pattern  string
	Ops      uint64
	Elapsed  time.Duration
	NsPerOp  int64
	Drains   uint64 // full-heap drains forced by exhaustion (bump churn)
	Stats    alloc.Stats
}

type benchPattern struct {
	name string
	run  func(a alloc.Allocator) (drains uint64, err error)
}

// pairLayouts cycles through block shapes small enough that every strategy
// can serve them back to back.
var pairLayouts = []heap.Layout{
	heap.MustLayout(16, 8),
	heap.MustLayout(64, 8),
	heap.MustLayout(192, 8),
	heap.MustLayout(512, 16),
}

func runBench() error {
	if benchOps == 0 {
		return fmt.Errorf("ops must be positive")
	}
	if benchWindow <= 0 {
		return fmt.Errorf("window must be positive")
	}

	strategies, err := benchStrategies()
	if err != nil {
		return err
	}

	patterns := []benchPattern{
		{name: "pairs", run: runPairsPattern},
		{name: "churn", run: runChurnPattern},
	}

	var results []BenchResult
	for _, s := range strategies {
		for _, p := range patterns {
			printVerbose("Running %s/%s...\n", s, p.name)
			res, err := runBenchOne(s, p)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", s, p.name, err)
			}
			results = append(results, res)
		}
	}

	if jsonOut {
		return printJSON(results)
	}

	printInfo("\nAllocator Benchmark\n")
	printInfo("%s\n\n", strings.Repeat("=", 50))
	printInfo("Heap: %s   Ops per pattern: %s\n\n",
		formatBytes(int64(benchHeapSize)), formatNumber(int64(benchOps)))
	printInfo("  %-10s %-8s %12s %10s %8s\n", "Strategy", "Pattern", "Time", "ns/op", "Drains")
	for _, r := range results {
		printInfo("  %-10s %-8s %12s %10s %8s\n",
			r.Strategy, r.Pattern,
			r.Elapsed.Round(time.Microsecond).String(),
			formatNumber(r.NsPerOp),
			formatNumber(int64(r.Drains)))
		printVerbose("    %s\n", r.Stats)
	}
	printInfo("\n")
	return nil
}

func benchStrategies() ([]alloc.Strategy, error) {
	if benchStrategy == "all" {
		return alloc.Strategies(), nil
	}
	s, err := alloc.ParseStrategy(benchStrategy)
	if err != nil {
		return nil, err
	}
	if s == alloc.StrategyNull {
		return nil, fmt.Errorf("the null strategy fails every allocation; nothing to time")
	}
	return []alloc.Strategy{s}, nil
}

func runBenchOne(s alloc.Strategy, p benchPattern) (BenchResult, error) {
	region, err := heap.MapRegion(benchHeapSize)
	if err != nil {
		return BenchResult{}, err
	}
	defer region.Release()

	a := alloc.New(s)
	a.Init(region)

	start := time.Now()
	drains, err := p.run(a)
	elapsed := time.Since(start)
	if err != nil {
		return BenchResult{}, err
	}

	res := BenchResult{
		Strategy: s.String(),
		Pattern:  p.name,
		Ops:      benchOps,
		Elapsed:  elapsed,
		NsPerOp:  elapsed.Nanoseconds() / int64(benchOps),
		Drains:   drains,
	}
	if sa, ok := a.(alloc.StatsAllocator); ok {
		res.Stats = sa.Stats()
	}
	return res, nil
}

// runPairsPattern allocates and immediately frees, cycling through the
// layout shapes. No strategy should ever exhaust here.
func runPairsPattern(a alloc.Allocator) (uint64, error) {
	for i := uint64(0); i < benchOps; i++ {
		layout := pairLayouts[i%uint64(len(pairLayouts))]
		addr, err := a.Allocate(layout)
		if err != nil {
			return 0, fmt.Errorf("op %d (%s): %w", i, layout, err)
		}
		a.Deallocate(addr, layout)
	}
	return 0, nil
}

// runChurnPattern keeps a FIFO window of live blocks. The bump strategy
// reclaims nothing until every block is freed, so on exhaustion the window
// is drained in full and the allocation retried.
func runChurnPattern(a alloc.Allocator) (uint64, error) {
	layout := heap.MustLayout(192, 8)
	ring := make([]heap.Addr, 0, benchWindow)
	next := 0
	drains := uint64(0)

	for i := uint64(0); i < benchOps; i++ {
		addr, err := a.Allocate(layout)
		if errors.Is(err, alloc.ErrHeapExhausted) {
			for _, old := range ring {
				a.Deallocate(old, layout)
			}
			ring = ring[:0]
			next = 0
			drains++
			addr, err = a.Allocate(layout)
		}
		if err != nil {
			return drains, fmt.Errorf("op %d (%s): %w", i, layout, err)
		}
		if len(ring) < benchWindow {
			ring = append(ring, addr)
		} else {
			a.Deallocate(ring[next], layout)
			ring[next] = addr
			next = (next + 1) % benchWindow
		}
	}
	for _, old := range ring {
		a.Deallocate(old, layout)
	}
	return drains, nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	// Add commas
	var result strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}
