package main

import (
	"errors"
	"fmt"

	"github.com/YangchenYe323/kheap/heap"
	"github.com/YangchenYe323/kheap/heap/alloc"
	"github.com/spf13/cobra"
)

var (
	fragHeapSize  uint64
	fragBlockSize uint64
)

func init() {
	cmd := newFragCmd()
	cmd.Flags().Uint64Var(&fragHeapSize, "heap-size", 65536,
		"Heap region size in bytes")
	cmd.Flags().Uint64Var(&fragBlockSize, "block-size", 128,
		"Block size used to carve the heap")
	rootCmd.AddCommand(cmd)
}

func newFragCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frag",
		Short: "Demonstrate free-list fragmentation",
		Long: `The frag command fills a heap with equal blocks through the free-list
strategy, frees every other block, and dumps the resulting free-region list.
Freed regions are never merged with their neighbors, so the heap ends up with
plenty of free bytes but no region large enough for a block twice the carve
size. A probe allocation demonstrates the failure.

Example:
  heapctl frag
  heapctl frag --heap-size 262144 --block-size 512
  heapctl frag --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFrag()
		},
	}
	return cmd
}

// FragReport is the dump of a deliberately fragmented free list.
type FragReport struct {
	HeapSize    uint64
	BlockSize   uint64
	Allocated   int
	Freed       int
	FreeBytes   uint64
	LargestSpan uint64
	ProbeSize   uint64
	ProbeFailed bool
	Spans       []FragSpan
	Stats       alloc.Stats
}

// FragSpan is one free region, in list walk order.
type FragSpan struct {
	Addr string
	Size uint64
}

func runFrag() error {
	if fragBlockSize == 0 {
		return fmt.Errorf("block-size must be positive")
	}

	region, err := heap.MapRegion(fragHeapSize)
	if err != nil {
		return err
	}
	defer region.Release()

	fl := alloc.NewFreeList()
	fl.Init(region)

	layout, err := heap.NewLayout(fragBlockSize, 8)
	if err != nil {
		return err
	}

	// Carve the whole heap into equal blocks.
	var addrs []heap.Addr
	for {
		addr, err := fl.Allocate(layout)
		if errors.Is(err, alloc.ErrHeapExhausted) {
			break
		}
		if err != nil {
			return fmt.Errorf("carving block %d: %w", len(addrs), err)
		}
		addrs = append(addrs, addr)
	}
	if len(addrs) < 2 {
		return fmt.Errorf("heap of %d fits only %d blocks of %d; nothing to fragment",
			region.Size(), len(addrs), fragBlockSize)
	}

	// Checkerboard: free every other block.
	freed := 0
	for i := 1; i < len(addrs); i += 2 {
		fl.Deallocate(addrs[i], layout)
		freed++
	}

	spans := fl.FreeSpans()
	largest := uint64(0)
	for _, sp := range spans {
		if sp.Size > largest {
			largest = sp.Size
		}
	}

	// No single span can hold twice the largest, only merging could.
	probe := heap.MustLayout(largest*2, 8)
	_, probeErr := fl.Allocate(probe)

	report := FragReport{
		HeapSize:    region.Size(),
		BlockSize:   fragBlockSize,
		Allocated:   len(addrs),
		Freed:       freed,
		FreeBytes:   fl.FreeBytes(),
		LargestSpan: largest,
		ProbeSize:   probe.Size,
		ProbeFailed: probeErr != nil,
		Spans:       make([]FragSpan, 0, len(spans)),
		Stats:       fl.Stats(),
	}
	for _, sp := range spans {
		report.Spans = append(report.Spans, FragSpan{Addr: sp.Addr.String(), Size: sp.Size})
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("\nFragmentation demo: %s heap, %s blocks\n",
		formatBytes(int64(report.HeapSize)), formatBytes(int64(report.BlockSize)))
	printInfo("  Allocated %s blocks, freed %s (every other)\n\n",
		formatNumber(int64(report.Allocated)), formatNumber(int64(report.Freed)))

	printInfo("Free regions (walk order):\n")
	limit := len(report.Spans)
	if !verbose && limit > 16 {
		limit = 16
	}
	printInfo("  %-5s %-18s %s\n", "#", "address", "size")
	for i := 0; i < limit; i++ {
		printInfo("  %-5d %-18s %s\n", i, report.Spans[i].Addr,
			formatNumber(int64(report.Spans[i].Size)))
	}
	if limit < len(report.Spans) {
		printInfo("  ... (%d more)\n", len(report.Spans)-limit)
	}

	printInfo("\n  Total free: %s in %s regions (largest %s)\n",
		formatBytes(int64(report.FreeBytes)),
		formatNumber(int64(len(report.Spans))),
		formatBytes(int64(report.LargestSpan)))
	if report.ProbeFailed {
		printInfo("  Probe allocation of %s: heap exhausted, as fragmentation predicts\n",
			formatBytes(int64(report.ProbeSize)))
	} else {
		printInfo("  Probe allocation of %s: unexpectedly succeeded\n",
			formatBytes(int64(report.ProbeSize)))
	}
	printVerbose("  Counters: %s\n", report.Stats)
	return nil
}
