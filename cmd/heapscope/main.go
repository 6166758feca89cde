package main

import (
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	opts := defaultOptions()

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--help", "-h":
			printHelp()
			os.Exit(0)
		case "--version":
			fmt.Printf("heapscope %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built: %s\n", date)
			os.Exit(0)
		case "--strategy", "-s":
			i++
			if i >= len(args) {
				fmt.Fprintf(os.Stderr, "Error: %s needs a value\n", arg)
				printUsage()
				os.Exit(1)
			}
			opts.Strategy = args[i]
		case "--heap-size":
			i++
			if i >= len(args) {
				fmt.Fprintf(os.Stderr, "Error: %s needs a value\n", arg)
				printUsage()
				os.Exit(1)
			}
			n, err := strconv.ParseUint(args[i], 10, 64)
			if err != nil || n == 0 {
				fmt.Fprintf(os.Stderr, "Error: bad heap size %q\n", args[i])
				os.Exit(1)
			}
			opts.HeapSize = n
		case "--seed":
			i++
			if i >= len(args) {
				fmt.Fprintf(os.Stderr, "Error: %s needs a value\n", arg)
				printUsage()
				os.Exit(1)
			}
			n, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: bad seed %q\n", args[i])
				os.Exit(1)
			}
			opts.Seed = n
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown argument %q\n", arg)
			printUsage()
			os.Exit(1)
		}
	}

	m, err := NewModel(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(), // Use alternate screen buffer
	)

	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	// Clean up resources
	if model, ok := finalModel.(Model); ok {
		if err := model.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: heapscope [options]\n")
	fmt.Fprintf(os.Stderr, "Try 'heapscope --help' for more information.\n")
}

func printHelp() {
	fmt.Println("heapscope - Interactive TUI for watching kheap allocators work")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  heapscope [options]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Runs a continuous randomized alloc/free workload against one allocation")
	fmt.Println("  strategy and visualizes the heap as it churns.")
	fmt.Println()
	fmt.Println("  Panels:")
	fmt.Println("    - Occupancy gauge (live bytes against heap size)")
	fmt.Println("    - Workload counters (live blocks, peak, exhaustions)")
	fmt.Println("    - Strategy internals: free regions, class pool depths, or bump cursor")
	fmt.Println("    - Allocator counters along the bottom")
	fmt.Println()
	fmt.Println("  Controls:")
	fmt.Println("    space       Pause/resume the workload")
	fmt.Println("    s           Single-step one batch while paused")
	fmt.Println("    tab         Cycle to the next strategy (resets the heap)")
	fmt.Println("    r           Reset the heap")
	fmt.Println("    +/-         Run faster/slower")
	fmt.Println("    ↑/k, ↓/j    Scroll the internals panel")
	fmt.Println("    ?           Show help")
	fmt.Println("    q           Quit")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -s, --strategy NAME   Strategy to start with (fixedsize, freelist, bump)")
	fmt.Println("      --heap-size N     Heap region size in bytes (default 102400)")
	fmt.Println("      --seed N          Workload random seed (default 1)")
	fmt.Println("  -h, --help            Show this help message")
	fmt.Println("      --version         Show version information")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  heapscope")
	fmt.Println("  heapscope --strategy freelist --heap-size 65536")
	fmt.Println()
	fmt.Println("For scripted workloads and benchmarks, use the 'heapctl' command instead.")
}
