package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/YangchenYe323/kheap/heap"
	"github.com/YangchenYe323/kheap/heap/alloc"
)

// Update handles all messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If help is showing, handle help keys
		if m.showHelp {
			if key.Matches(msg, m.keys.Esc) || key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Quit) {
				m.showHelp = false
			}
			// Ignore other keys when help is showing
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = true

		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			if m.paused {
				m.statusMessage = "Paused"
			} else {
				m.statusMessage = ""
			}

		case key.Matches(msg, m.keys.Step):
			if m.err == nil {
				m.step(m.batchOps)
				m.refreshInternals()
				m.statusMessage = fmt.Sprintf("Stepped %d ops", m.batchOps)
			}

		case key.Matches(msg, m.keys.Faster):
			if m.batchOps < maxBatchOps {
				m.batchOps *= 2
			}
			m.statusMessage = fmt.Sprintf("%d ops per tick", m.batchOps)

		case key.Matches(msg, m.keys.Slower):
			if m.batchOps > minBatchOps {
				m.batchOps /= 2
			}
			m.statusMessage = fmt.Sprintf("%d ops per tick", m.batchOps)

		case key.Matches(msg, m.keys.Reset):
			if err := m.attach(m.strategy); err != nil {
				m.err = err
			} else {
				m.statusMessage = "Heap reset"
			}
			m.refreshInternals()

		case key.Matches(msg, m.keys.NextStrategy):
			if err := m.attach(m.nextStrategy()); err != nil {
				m.err = err
			} else {
				m.statusMessage = fmt.Sprintf("Switched to %s", m.strategy)
			}
			m.refreshInternals()

		default:
			// Everything else scrolls the internals panel
			var cmd tea.Cmd
			m.internals, cmd = m.internals.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.sizeInternals()
		m.refreshInternals()
		return m, nil

	case tickMsg:
		if !m.paused && m.err == nil {
			m.step(m.batchOps)
		}
		m.refreshInternals()
		return m, m.tickCmd()
	}

	return m, nil
}

// step runs n random workload operations, two thirds of them allocations.
// Exhaustion frees one random block to keep the workload moving.
func (m *Model) step(n int) {
	for i := 0; i < n; i++ {
		m.totalOps++
		if len(m.live) == 0 || m.rng.Intn(3) < 2 {
			size := 1 + uint64(m.rng.Int63n(maxBlockSize))
			align := workloadAligns[m.rng.Intn(len(workloadAligns))]
			layout := heap.MustLayout(size, align)

			addr, err := m.allocator.Allocate(layout)
			if errors.Is(err, alloc.ErrHeapExhausted) {
				m.exhaustions++
				if len(m.live) > 0 {
					m.freeAt(m.rng.Intn(len(m.live)))
				}
				continue
			}
			if err != nil {
				m.err = fmt.Errorf("allocate %s: %w", layout, err)
				return
			}
			m.live = append(m.live, scopeBlock{addr: addr, layout: layout})
			m.liveBytes += layout.Size
			if len(m.live) > m.peakLive {
				m.peakLive = len(m.live)
			}
		} else {
			m.freeAt(m.rng.Intn(len(m.live)))
		}
	}
}

func (m *Model) freeAt(i int) {
	b := m.live[i]
	m.allocator.Deallocate(b.addr, b.layout)
	m.live[i] = m.live[len(m.live)-1]
	m.live = m.live[:len(m.live)-1]
	m.liveBytes -= b.layout.Size
}

// sizeInternals fits the internals viewport to the current terminal size.
func (m *Model) sizeInternals() {
	if m.width == 0 || m.height == 0 {
		return
	}
	width := m.width - leftPanelWidth - 8 // pane borders and padding
	if width < 20 {
		width = 20
	}
	height := m.height - headerHeight - gaugeHeight - statusBarHeight - 4
	if height < 3 {
		height = 3
	}
	m.internals.Width = width
	m.internals.Height = height
}

// refreshInternals regenerates the internals panel content.
func (m *Model) refreshInternals() {
	m.internals.SetContent(m.internalsContent())
}
