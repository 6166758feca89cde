package main

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TestHelper drives the model without a terminal
type TestHelper struct {
	model Model
}

// newTestHelper creates a helper around a model with a small test heap
func newTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	opts := defaultOptions()
	opts.HeapSize = 65536
	opts.Seed = 42

	m, err := NewModel(opts)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	h := &TestHelper{model: m}
	t.Cleanup(func() {
		if err := h.model.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return h
}

// SendKey simulates a special key press
func (h *TestHelper) SendKey(keyType tea.KeyType) *TestHelper {
	msg := tea.KeyMsg{Type: keyType}
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
	return h
}

// SendKeyRune simulates a character key press
func (h *TestHelper) SendKeyRune(r rune) *TestHelper {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
	return h
}

// SendWindowSize simulates a window resize
func (h *TestHelper) SendWindowSize(width, height int) *TestHelper {
	msg := tea.WindowSizeMsg{Width: width, Height: height}
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
	return h
}

// SendTick advances the workload by one tick
func (h *TestHelper) SendTick() *TestHelper {
	updated, _ := h.model.Update(tickMsg(time.Now()))
	h.model = updated.(Model)
	return h
}

// GetModel returns the current model
func (h *TestHelper) GetModel() Model {
	return h.model
}

// GetView returns the rendered view
func (h *TestHelper) GetView() string {
	return h.model.View()
}
