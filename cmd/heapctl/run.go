package main

import (
	"fmt"
	"os"

	"github.com/YangchenYe323/kheap/heap"
	"github.com/YangchenYe323/kheap/heap/alloc"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workload.yaml>",
		Short: "Replay a recorded allocation workload",
		Long: `The run command replays a YAML allocation trace step by step against a
fresh heap. Blocks are named, filled with byte patterns on allocation, and
verified on free, so a trace doubles as a regression check for a specific
allocation sequence. Steps that are supposed to exhaust the heap declare
"expect: fail".

A workload file looks like:

  strategy: freelist
  heapSize: 4096
  steps:
    - op: alloc
      id: a
      size: 1000
    - op: free
      id: a

Example:
  heapctl run workload.yaml
  heapctl run workload.yaml -v
  heapctl run workload.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkload(args)
		},
	}
	return cmd
}

type workloadFile struct {
	Strategy string         `yaml:"strategy"`
	HeapSize uint64         `yaml:"heapSize"`
	Steps    []workloadStep `yaml:"steps"`
}

type workloadStep struct {
	Op     string `yaml:"op"`
	ID     string `yaml:"id"`
	Size   uint64 `yaml:"size"`
	Align  uint64 `yaml:"align"`
	Expect string `yaml:"expect"`
}

// RunReport summarizes a replayed workload.
type RunReport struct {
	File     string
	Strategy string
	HeapSize uint64
	Steps    int
	Live     int
	Stats    alloc.Stats
}

func runWorkload(args []string) error {
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var wf workloadFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&wf); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(wf.Steps) == 0 {
		return fmt.Errorf("%s: workload has no steps", path)
	}
	if wf.Strategy == "" {
		wf.Strategy = envDefaults.Strategy
	}
	if wf.HeapSize == 0 {
		wf.HeapSize = envDefaults.HeapSize
	}
	if err := validateWorkload(&wf); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	s, err := alloc.ParseStrategy(wf.Strategy)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	region, err := heap.MapRegion(wf.HeapSize)
	if err != nil {
		return err
	}
	defer region.Release()

	a := alloc.New(s)
	a.Init(region)

	printVerbose("Replaying %s: %s strategy, %s heap, %d steps\n",
		path, s, formatBytes(int64(region.Size())), len(wf.Steps))

	blocks := make(map[string]soakBlock)
	for i, step := range wf.Steps {
		n := i + 1
		switch step.Op {
		case "alloc":
			if _, ok := blocks[step.ID]; ok {
				return fmt.Errorf("step %d: block %q is already live", n, step.ID)
			}
			align := step.Align
			if align == 0 {
				align = 8
			}
			layout, err := heap.NewLayout(step.Size, align)
			if err != nil {
				return fmt.Errorf("step %d: %w", n, err)
			}
			addr, err := a.Allocate(layout)
			if err != nil {
				if step.Expect == "fail" {
					printVerbose("  %3d: alloc %-10s %s -> %v (expected)\n", n, step.ID, layout, err)
					continue
				}
				return fmt.Errorf("step %d: alloc %q (%s): %w", n, step.ID, layout, err)
			}
			if step.Expect == "fail" {
				return fmt.Errorf("step %d: alloc %q (%s) succeeded at %s but the trace expects failure",
					n, step.ID, layout, addr)
			}
			if uint64(addr)%layout.Align != 0 {
				return fmt.Errorf("step %d: block %s violates alignment %d", n, addr, layout.Align)
			}
			if !region.Contains(addr, layout.Size) {
				return fmt.Errorf("step %d: block %s+%d lies outside the heap", n, addr, layout.Size)
			}
			b := soakBlock{addr: addr, layout: layout, fill: byte(n)}
			if err := fillBlock(region, b); err != nil {
				return fmt.Errorf("step %d: %w", n, err)
			}
			blocks[step.ID] = b
			printVerbose("  %3d: alloc %-10s %s -> %s\n", n, step.ID, layout, addr)

		case "free":
			b, ok := blocks[step.ID]
			if !ok {
				return fmt.Errorf("step %d: free of unknown block %q", n, step.ID)
			}
			if err := checkBlock(region, b); err != nil {
				return fmt.Errorf("step %d: %w", n, err)
			}
			a.Deallocate(b.addr, b.layout)
			delete(blocks, step.ID)
			printVerbose("  %3d: free  %-10s %s\n", n, step.ID, b.addr)

		case "check":
			live := make([]soakBlock, 0, len(blocks))
			for _, b := range blocks {
				if err := checkBlock(region, b); err != nil {
					return fmt.Errorf("step %d: %w", n, err)
				}
				live = append(live, b)
			}
			if err := checkOverlaps(live); err != nil {
				return fmt.Errorf("step %d: %w", n, err)
			}
			printVerbose("  %3d: check %d live blocks OK\n", n, len(live))

		case "stats":
			if !jsonOut {
				printInfo("  %3d: stats %s\n", n, statsOf(a))
			}

		default:
			return fmt.Errorf("step %d: unknown op %q", n, step.Op)
		}
	}

	report := RunReport{
		File:     path,
		Strategy: s.String(),
		HeapSize: region.Size(),
		Steps:    len(wf.Steps),
		Live:     len(blocks),
		Stats:    statsOf(a),
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("\nWorkload %s: %d steps replayed, %d blocks still live\n",
		report.File, report.Steps, report.Live)
	printInfo("  Counters: %s\n", report.Stats)
	printInfo("OK\n")
	return nil
}

// validateWorkload rejects malformed steps before any of them runs.
func validateWorkload(wf *workloadFile) error {
	for i, step := range wf.Steps {
		n := i + 1
		switch step.Op {
		case "alloc":
			if step.ID == "" {
				return fmt.Errorf("step %d: alloc needs an id", n)
			}
			if step.Size == 0 {
				return fmt.Errorf("step %d: alloc %q needs a size", n, step.ID)
			}
			if step.Expect != "" && step.Expect != "ok" && step.Expect != "fail" {
				return fmt.Errorf("step %d: expect must be \"ok\" or \"fail\", got %q", n, step.Expect)
			}
		case "free":
			if step.ID == "" {
				return fmt.Errorf("step %d: free needs an id", n)
			}
			if step.Expect != "" {
				return fmt.Errorf("step %d: expect is only valid on alloc steps", n)
			}
		case "check", "stats":
			if step.ID != "" || step.Size != 0 || step.Align != 0 || step.Expect != "" {
				return fmt.Errorf("step %d: %s takes no parameters", n, step.Op)
			}
		default:
			return fmt.Errorf("step %d: unknown op %q", n, step.Op)
		}
	}
	return nil
}

func statsOf(a alloc.Allocator) alloc.Stats {
	if sa, ok := a.(alloc.StatsAllocator); ok {
		return sa.Stats()
	}
	return alloc.Stats{}
}
