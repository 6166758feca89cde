package main

import (
	"fmt"
	"strings"

	"github.com/YangchenYe323/kheap/heap"
	"github.com/YangchenYe323/kheap/heap/alloc"
	"github.com/spf13/cobra"
)

var (
	classesConfig string
	classesSize   uint64
	classesAlign  uint64
)

func init() {
	cmd := newClassesCmd()
	cmd.Flags().StringVar(&classesConfig, "config", "default",
		"Class ladder configuration (default, wide, narrow)")
	cmd.Flags().Uint64Var(&classesSize, "size", 0,
		"Probe: layout size to resolve against the ladder")
	cmd.Flags().Uint64Var(&classesAlign, "align", 0,
		"Probe: layout alignment (defaults to 1 when a size is given)")
	rootCmd.AddCommand(cmd)
}

func newClassesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Show a fixed-size allocator's class ladder",
		Long: `The classes command prints the block sizes of a size-class configuration
and optionally resolves a layout against it, showing which class pool would
serve the request or whether it falls through to the fallback free list.

Example:
  heapctl classes
  heapctl classes --config wide
  heapctl classes --size 100 --align 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses()
		},
	}
	return cmd
}

// ClassesReport describes one class ladder, with an optional probe result.
type ClassesReport struct {
	Config  string
	MinSize uint64
	MaxSize uint64
	Classes []uint64
	Probe   *ProbeResult
}

// ProbeResult is the ladder's answer for one layout.
type ProbeResult struct {
	Layout   string
	Class    uint64 // zero when the layout goes to the fallback
	Fallback bool
}

func runClasses() error {
	cfg, err := classConfigByName(classesConfig)
	if err != nil {
		return err
	}
	fs, err := alloc.NewFixedSizeWith(cfg)
	if err != nil {
		return err
	}

	report := ClassesReport{
		Config:  cfg.Name,
		MinSize: cfg.MinSize,
		MaxSize: cfg.MaxSize,
		Classes: fs.Classes(),
	}

	if classesSize > 0 {
		align := classesAlign
		if align == 0 {
			align = 1
		}
		layout, err := heap.NewLayout(classesSize, align)
		if err != nil {
			return err
		}
		probe := ProbeResult{Layout: layout.String()}
		if class, ok := fs.ClassFor(layout); ok {
			probe.Class = class
		} else {
			probe.Fallback = true
		}
		report.Probe = &probe
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("\nSize classes (%s): %s .. %s, %d classes\n\n",
		report.Config, formatBytes(int64(report.MinSize)),
		formatBytes(int64(report.MaxSize)), len(report.Classes))
	printInfo("  %-6s %s\n", "class", "block size")
	for i, size := range report.Classes {
		printInfo("  %-6d %s\n", i, formatBytes(int64(size)))
	}
	if report.Probe != nil {
		printInfo("\n")
		if report.Probe.Fallback {
			printInfo("Layout %s -> fallback free list (above %d)\n",
				report.Probe.Layout, report.MaxSize)
		} else {
			printInfo("Layout %s -> %d byte class\n", report.Probe.Layout, report.Probe.Class)
		}
	}
	return nil
}

func classConfigByName(name string) (alloc.ClassConfig, error) {
	switch strings.ToLower(name) {
	case "default":
		return alloc.ConfigDefault, nil
	case "wide":
		return alloc.ConfigWide, nil
	case "narrow":
		return alloc.ConfigNarrow, nil
	default:
		return alloc.ClassConfig{}, fmt.Errorf("unknown config %q (want default, wide, or narrow)", name)
	}
}
