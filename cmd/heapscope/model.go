package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/YangchenYe323/kheap/heap"
	"github.com/YangchenYe323/kheap/heap/alloc"
)

// Options configure the workload heapscope runs.
type Options struct {
	Strategy string
	HeapSize uint64
	Seed     int64
	Tick     time.Duration
	BatchOps int
}

func defaultOptions() Options {
	return Options{
		Strategy: alloc.StrategyFixedSize.String(),
		HeapSize: heap.DefaultHeapSize,
		Seed:     1,
		Tick:     100 * time.Millisecond,
		BatchOps: 32,
	}
}

// Workload shape
const (
	maxBlockSize = 600
	minBatchOps  = 1
	maxBatchOps  = 1024
)

var workloadAligns = []uint64{1, 2, 4, 8, 16, 32, 64}

// Layout constants
const (
	headerHeight    = 2 // Title row plus a blank line
	gaugeHeight     = 2 // Occupancy bar plus a blank line
	statusBarHeight = 1
	leftPanelWidth  = 30
)

type scopeBlock struct {
	addr   heap.Addr
	layout heap.Layout
}

// Model is the main application model
type Model struct {
	opts     Options
	strategy alloc.Strategy

	region    *heap.Region
	allocator alloc.Allocator

	// Workload state
	rng         *rand.Rand
	live        []scopeBlock
	liveBytes   uint64
	peakLive    int
	totalOps    uint64
	exhaustions uint64

	paused   bool
	batchOps int

	// Scrollable internals panel (free regions, class pools, cursor)
	internals viewport.Model
	keys      KeyMap

	width  int
	height int

	// Help overlay
	showHelp bool

	// Status message for temporary feedback
	statusMessage string

	err error
}

// NewModel creates the TUI model with a freshly mapped heap.
func NewModel(opts Options) (Model, error) {
	s, err := alloc.ParseStrategy(opts.Strategy)
	if err != nil {
		return Model{}, err
	}
	if s == alloc.StrategyNull {
		return Model{}, fmt.Errorf("the null strategy fails every allocation; nothing to watch")
	}
	if opts.BatchOps < minBatchOps {
		opts.BatchOps = minBatchOps
	}

	m := Model{
		opts:      opts,
		keys:      DefaultKeyMap(),
		batchOps:  opts.BatchOps,
		internals: viewport.New(0, 0),
	}
	if err := m.attach(s); err != nil {
		return Model{}, err
	}
	return m, nil
}

// attach maps a fresh heap and binds a new allocator of the given strategy,
// releasing any previous region. The workload restarts from its seed.
func (m *Model) attach(s alloc.Strategy) error {
	if m.region != nil {
		if err := m.region.Release(); err != nil {
			return err
		}
	}
	region, err := heap.MapRegion(m.opts.HeapSize)
	if err != nil {
		return err
	}
	a := alloc.New(s)
	a.Init(region)

	m.strategy = s
	m.region = region
	m.allocator = a
	m.rng = rand.New(rand.NewSource(m.opts.Seed))
	m.live = m.live[:0]
	m.liveBytes = 0
	m.peakLive = 0
	m.totalOps = 0
	m.exhaustions = 0
	return nil
}

// Init starts the workload ticker.
func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.opts.Tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Close releases the mapped heap. Should be called when the TUI exits.
func (m *Model) Close() error {
	if m.region == nil {
		return nil
	}
	region := m.region
	m.region = nil
	return region.Release()
}

// stats returns the allocator's counters when the strategy tracks them.
func (m Model) stats() alloc.Stats {
	if sa, ok := m.allocator.(alloc.StatsAllocator); ok {
		return sa.Stats()
	}
	return alloc.Stats{}
}

// nextStrategy returns the strategy after the current one, wrapping around.
func (m Model) nextStrategy() alloc.Strategy {
	order := alloc.Strategies()
	for i, s := range order {
		if s == m.strategy {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

// Messages

type tickMsg time.Time
