package main

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/YangchenYe323/kheap/heap"
	"github.com/YangchenYe323/kheap/heap/alloc"
	"github.com/spf13/cobra"
)

var (
	soakStrategy   string
	soakHeapSize   uint64
	soakOps        uint64
	soakSeed       int64
	soakMaxSize    uint64
	soakMaxAlign   uint64
	soakCheckEvery uint64
)

func init() {
	cmd := newSoakCmd()
	cmd.Flags().StringVar(&soakStrategy, "strategy", envDefaults.Strategy,
		"Strategy to soak (fixedsize, freelist, bump)")
	cmd.Flags().Uint64Var(&soakHeapSize, "heap-size", envDefaults.HeapSize,
		"Heap region size in bytes")
	cmd.Flags().Uint64Var(&soakOps, "ops", envDefaults.Ops,
		"Random operations to run")
	cmd.Flags().Int64Var(&soakSeed, "seed", envDefaults.Seed,
		"Random seed; the same seed replays the same workload")
	cmd.Flags().Uint64Var(&soakMaxSize, "max-size", envDefaults.MaxSize,
		"Largest block size requested")
	cmd.Flags().Uint64Var(&soakMaxAlign, "max-align", envDefaults.MaxAlign,
		"Largest alignment requested (power of two)")
	cmd.Flags().Uint64Var(&soakCheckEvery, "check-every", 1000,
		"Operations between full overlap scans (0 disables)")
	rootCmd.AddCommand(cmd)
}

func newSoakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "soak",
		Short: "Run a randomized alloc/free workload with invariant checks",
		Long: `The soak command hammers one strategy with a seeded random mix of
allocations and frees while tracking every live block. Each block is filled
with a per-block byte pattern on allocation and verified on free, every
address is checked for alignment and heap bounds, and the live set is
periodically scanned for overlap. Any violation aborts the run with a
non-zero exit.

Example:
  heapctl soak
  heapctl soak --strategy freelist --ops 1000000 --seed 7
  heapctl soak --heap-size 65536 --max-size 2000 -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSoak()
		},
	}
	return cmd
}

// SoakReport summarizes a completed soak run.
type SoakReport struct {
	Strategy    string
	HeapSize    uint64
	Ops         uint64
	Seed        int64
	Allocs      uint64
	Frees       uint64
	Exhaustions uint64
	MaxLive     int
	Stats       alloc.Stats
}

type soakBlock struct {
	addr   heap.Addr
	layout heap.Layout
	fill   byte
}

func runSoak() error {
	if soakOps == 0 {
		return fmt.Errorf("ops must be positive")
	}
	if soakMaxSize == 0 || soakMaxSize > 1<<30 {
		return fmt.Errorf("max-size must be between 1 and %d", 1<<30)
	}
	if soakMaxAlign == 0 || soakMaxAlign&(soakMaxAlign-1) != 0 {
		return fmt.Errorf("max-align %d is not a power of two", soakMaxAlign)
	}
	s, err := alloc.ParseStrategy(soakStrategy)
	if err != nil {
		return err
	}
	if s == alloc.StrategyNull {
		return fmt.Errorf("the null strategy fails every allocation; nothing to soak")
	}

	region, err := heap.MapRegion(soakHeapSize)
	if err != nil {
		return err
	}
	defer region.Release()

	a := alloc.New(s)
	a.Init(region)

	var aligns []uint64
	for al := uint64(1); al <= soakMaxAlign; al *= 2 {
		aligns = append(aligns, al)
	}

	rng := rand.New(rand.NewSource(soakSeed))
	var live []soakBlock
	var allocs, frees, exhaustions uint64
	maxLive := 0

	freeAt := func(i int) error {
		b := live[i]
		if err := checkBlock(region, b); err != nil {
			return err
		}
		a.Deallocate(b.addr, b.layout)
		live[i] = live[len(live)-1]
		live = live[:len(live)-1]
		frees++
		return nil
	}

	printVerbose("Soaking %s: %s heap, %s ops, seed %d\n",
		s, formatBytes(int64(region.Size())), formatNumber(int64(soakOps)), soakSeed)

	for op := uint64(0); op < soakOps; op++ {
		if len(live) == 0 || rng.Intn(3) < 2 {
			size := 1 + uint64(rng.Int63n(int64(soakMaxSize)))
			align := aligns[rng.Intn(len(aligns))]
			layout := heap.MustLayout(size, align)

			addr, err := a.Allocate(layout)
			if errors.Is(err, alloc.ErrHeapExhausted) {
				// Full is a legal state. Make room if any block is live;
				// a fragmented heap can be full with none.
				exhaustions++
				if len(live) > 0 {
					if err := freeAt(rng.Intn(len(live))); err != nil {
						return fmt.Errorf("op %d: %w", op, err)
					}
				}
				continue
			}
			if err != nil {
				return fmt.Errorf("op %d: allocate %s: %w", op, layout, err)
			}
			if uint64(addr)%layout.Align != 0 {
				return fmt.Errorf("op %d: block %s violates alignment %d", op, addr, layout.Align)
			}
			if !region.Contains(addr, layout.Size) {
				return fmt.Errorf("op %d: block %s+%d lies outside the heap", op, addr, layout.Size)
			}
			b := soakBlock{addr: addr, layout: layout, fill: byte(rng.Uint32())}
			if err := fillBlock(region, b); err != nil {
				return fmt.Errorf("op %d: %w", op, err)
			}
			live = append(live, b)
			allocs++
			if len(live) > maxLive {
				maxLive = len(live)
			}
		} else {
			if err := freeAt(rng.Intn(len(live))); err != nil {
				return fmt.Errorf("op %d: %w", op, err)
			}
		}

		if soakCheckEvery > 0 && (op+1)%soakCheckEvery == 0 {
			if err := checkOverlaps(live); err != nil {
				return fmt.Errorf("op %d: %w", op, err)
			}
			printVerbose("  op %s: %d live, %d exhaustions\n",
				formatNumber(int64(op+1)), len(live), exhaustions)
		}
	}

	// Drain with verification so every surviving pattern is checked.
	for len(live) > 0 {
		if err := freeAt(len(live) - 1); err != nil {
			return fmt.Errorf("drain: %w", err)
		}
	}

	report := SoakReport{
		Strategy:    s.String(),
		HeapSize:    region.Size(),
		Ops:         soakOps,
		Seed:        soakSeed,
		Allocs:      allocs,
		Frees:       frees,
		Exhaustions: exhaustions,
		MaxLive:     maxLive,
	}
	if sa, ok := a.(alloc.StatsAllocator); ok {
		report.Stats = sa.Stats()
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("\nSoak: %s strategy, %s heap, seed %d\n",
		report.Strategy, formatBytes(int64(report.HeapSize)), report.Seed)
	printInfo("  Operations: %s\n", formatNumber(int64(report.Ops)))
	printInfo("  Allocations: %s\n", formatNumber(int64(report.Allocs)))
	printInfo("  Frees: %s\n", formatNumber(int64(report.Frees)))
	printInfo("  Exhaustions: %s\n", formatNumber(int64(report.Exhaustions)))
	printInfo("  Peak live blocks: %s\n", formatNumber(int64(report.MaxLive)))
	printInfo("  Counters: %s\n", report.Stats)
	printInfo("OK: all invariants held\n")
	return nil
}

func fillBlock(region *heap.Region, b soakBlock) error {
	data, err := region.Slice(b.addr, b.layout.Size)
	if err != nil {
		return err
	}
	for i := range data {
		data[i] = b.fill ^ byte(i)
	}
	return nil
}

func checkBlock(region *heap.Region, b soakBlock) error {
	data, err := region.Slice(b.addr, b.layout.Size)
	if err != nil {
		return err
	}
	for i := range data {
		if want := b.fill ^ byte(i); data[i] != want {
			return fmt.Errorf("block %s (%s): byte %d clobbered: got %#x want %#x",
				b.addr, b.layout, i, data[i], want)
		}
	}
	return nil
}

func checkOverlaps(live []soakBlock) error {
	if len(live) < 2 {
		return nil
	}
	sorted := make([]soakBlock, len(live))
	copy(sorted, live)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].addr < sorted[j].addr })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.addr+heap.Addr(prev.layout.Size) > cur.addr {
			return fmt.Errorf("blocks overlap: %s (%s) and %s (%s)",
				prev.addr, prev.layout, cur.addr, cur.layout)
		}
	}
	return nil
}
