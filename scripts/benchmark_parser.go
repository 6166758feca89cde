package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Allocator   string // "Bump", "FreeList", "FixedSize", "Locked"
	Workload    string // "AllocFree", "Churn", "PoolHit", ...
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// RelativeResult expresses one benchmark as a multiple of the baseline.
// The bump cursor's allocate/free pair is the cheapest operation any
// strategy can perform, so every other path is reported relative to it.
type RelativeResult struct {
	Allocator   string
	Workload    string
	NsPerOp     float64
	Multiple    float64 // NsPerOp / baseline NsPerOp
	BytesPerOp  int64
	AllocsPerOp int64
	IsBaseline  bool
}

const baselineName = "BenchmarkBump_AllocFree"

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Parse()

	// Read benchmark output
	var scanner *bufio.Scanner
	var inputF *os.File
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		inputF = f
		scanner = bufio.NewScanner(f)
	} else {
		scanner = bufio.NewScanner(os.Stdin)
	}

	// Parse benchmarks
	results := parseBenchmarks(scanner)

	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	// Express everything relative to the bump baseline
	relatives, baseline := generateRelatives(results)

	if !*quiet {
		fmt.Fprintf(os.Stderr, "Baseline: %s at %.1f ns/op\n", baseline.Name, baseline.NsPerOp)
	}

	// Generate markdown report
	report := generateMarkdownReport(relatives, baseline)

	// Write output
	if *outputFile != "" {
		err := os.WriteFile(*outputFile, []byte(report), 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			if inputF != nil {
				inputF.Close()
			}
			os.Exit(1)
		}
		if !*quiet {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
		}
	} else {
		fmt.Fprint(os.Stdout, report)
	}

	// Close input file if opened
	if inputF != nil {
		inputF.Close()
	}
}

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	// Regex to parse benchmark output lines
	// BenchmarkFreeList_Churn-8    10000    124.5 ns/op    0 B/op    0 allocs/op
	benchmarkRegex := regexp.MustCompile(
		`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+(?:B|MB)/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
	)

	for scanner.Scan() {
		line := scanner.Text()

		// Try to parse as JSON (from -json flag)
		var testEvent map[string]any
		if err := json.Unmarshal([]byte(line), &testEvent); err == nil {
			if output, ok := testEvent["Output"].(string); ok {
				line = output
			}
		}

		// Parse benchmark line
		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}

		name := matches[1]
		iterations, _ := strconv.Atoi(matches[2])
		nsPerOp, _ := strconv.ParseFloat(matches[3], 64)

		var bytesPerOp int64
		var allocsPerOp int64

		if matches[4] != "" {
			bytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
		}
		if matches[5] != "" {
			allocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}

		allocator, workload := parseBenchmarkName(name)

		results = append(results, BenchmarkResult{
			Name:        name,
			Allocator:   allocator,
			Workload:    workload,
			Iterations:  iterations,
			NsPerOp:     nsPerOp,
			BytesPerOp:  bytesPerOp,
			AllocsPerOp: allocsPerOp,
		})
	}

	return results
}

// parseBenchmarkName splits a name like BenchmarkFreeList_Churn-8 into the
// allocator ("FreeList") and the workload ("Churn").
func parseBenchmarkName(name string) (string, string) {
	// Strip the -N GOMAXPROCS suffix
	if dashIdx := strings.LastIndex(name, "-"); dashIdx > 0 {
		if _, err := strconv.Atoi(name[dashIdx+1:]); err == nil {
			name = name[:dashIdx]
		}
	}

	name = strings.TrimPrefix(name, "Benchmark")

	parts := strings.SplitN(name, "_", 2)
	if len(parts) < 2 {
		// Benchmarks without a workload suffix stand on their own
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func generateRelatives(results []BenchmarkResult) ([]RelativeResult, BenchmarkResult) {
	// Find the baseline. Fall back to the fastest parsed result when the
	// bump benchmark was filtered out of the run.
	var baseline BenchmarkResult
	found := false
	for _, r := range results {
		if strings.HasPrefix(r.Name, baselineName) {
			baseline = r
			found = true
			break
		}
	}
	if !found {
		for _, r := range results {
			if !found || r.NsPerOp < baseline.NsPerOp {
				baseline = r
				found = true
			}
		}
	}

	var relatives []RelativeResult
	for _, r := range results {
		multiple := 0.0
		if baseline.NsPerOp > 0 {
			multiple = r.NsPerOp / baseline.NsPerOp
		}
		relatives = append(relatives, RelativeResult{
			Allocator:   r.Allocator,
			Workload:    r.Workload,
			NsPerOp:     r.NsPerOp,
			Multiple:    multiple,
			BytesPerOp:  r.BytesPerOp,
			AllocsPerOp: r.AllocsPerOp,
			IsBaseline:  r.Name == baseline.Name,
		})
	}

	// Sort by allocator then workload
	sort.Slice(relatives, func(i, j int) bool {
		if relatives[i].Allocator != relatives[j].Allocator {
			return relatives[i].Allocator < relatives[j].Allocator
		}
		return relatives[i].Workload < relatives[j].Workload
	})

	return relatives, baseline
}

func generateMarkdownReport(relatives []RelativeResult, baseline BenchmarkResult) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Allocator Benchmark Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))

	// Summary statistics
	garbageFree := 0
	for _, rel := range relatives {
		if rel.AllocsPerOp == 0 {
			garbageFree++
		}
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Total benchmarks**: %d\n", len(relatives)))
	sb.WriteString(fmt.Sprintf("- **Baseline**: %s at %s ns/op\n",
		baseline.Name, formatNumber(baseline.NsPerOp)))
	sb.WriteString(fmt.Sprintf("- **Garbage-free paths**: %d of %d\n",
		garbageFree, len(relatives)))
	sb.WriteString("\n")

	// Detailed results table
	sb.WriteString("## Detailed Results\n\n")
	sb.WriteString(
		"| Allocator | Workload | ns/op | vs bump cursor | Memory (B/op) | Allocs |\n",
	)
	sb.WriteString(
		"|-----------|----------|-------|----------------|---------------|--------|\n",
	)

	for _, rel := range relatives {
		multiple := fmt.Sprintf("%.2fx", rel.Multiple)
		if rel.IsBaseline {
			multiple = "*baseline*"
		}

		// Steady-state allocator operations should not touch the Go
		// heap at all; any allocs/op is worth a look
		garbageIndicator := " ✓"
		if rel.AllocsPerOp > 0 {
			garbageIndicator = " ✗"
		}

		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s%s |\n",
			rel.Allocator,
			rel.Workload,
			formatNumber(rel.NsPerOp),
			multiple,
			formatBytes(rel.BytesPerOp),
			formatNumber(float64(rel.AllocsPerOp)),
			garbageIndicator,
		))
	}

	sb.WriteString("\n")

	// Category summaries
	sb.WriteString("## Cost by Category\n\n")

	categories := categorizeWorkloads(relatives)
	for _, category := range []string{"Fast paths", "Mixed traffic", "Fallback paths", "Concurrency"} {
		rels := categories[category]
		if len(rels) == 0 {
			continue
		}

		avgMultiple := 0.0
		for _, rel := range rels {
			avgMultiple += rel.Multiple
		}
		avgMultiple /= float64(len(rels))

		sb.WriteString(fmt.Sprintf("- **%s**: %.2fx the bump cursor on average (%d benchmarks)\n",
			category, avgMultiple, len(rels)))
	}

	sb.WriteString("\n")

	// Notes
	sb.WriteString("## Notes\n\n")
	sb.WriteString("- **vs bump cursor**: Multiple of the cheapest possible operation, the bump allocate/free pair\n")
	sb.WriteString("- **Memory / Allocs**: Go-heap traffic per operation; the allocators manage their region in place, so steady-state paths should report zero ✓\n")
	sb.WriteString("- Produce input with: go test -bench=. -benchmem ./heap/alloc/\n")

	return sb.String()
}

func categorizeWorkloads(relatives []RelativeResult) map[string][]RelativeResult {
	categories := map[string][]RelativeResult{
		"Fast paths":     {},
		"Mixed traffic":  {},
		"Fallback paths": {},
		"Concurrency":    {},
	}

	for _, rel := range relatives {
		w := strings.ToLower(rel.Workload)

		switch {
		case strings.Contains(w, "parallel"):
			categories["Concurrency"] = append(categories["Concurrency"], rel)
		case strings.Contains(w, "churn"):
			categories["Mixed traffic"] = append(categories["Mixed traffic"], rel)
		case strings.Contains(w, "oversized"):
			categories["Fallback paths"] = append(categories["Fallback paths"], rel)
		default:
			categories["Fast paths"] = append(categories["Fast paths"], rel)
		}
	}

	return categories
}

func formatNumber(n float64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.2fM", n/1000000)
	} else if n >= 1000 {
		return fmt.Sprintf("%.1fK", n/1000)
	}
	return fmt.Sprintf("%.0f", n)
}

func formatBytes(b int64) string {
	if b >= 1024*1024 {
		return fmt.Sprintf("%.2fMB", float64(b)/(1024*1024))
	} else if b >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	}
	return fmt.Sprintf("%dB", b)
}
