package main

import (
	"testing"

	"github.com/YangchenYe323/kheap/heap/alloc"
)

func TestNewModelDefaults(t *testing.T) {
	h := newTestHelper(t)
	m := h.GetModel()

	if m.strategy != alloc.StrategyFixedSize {
		t.Errorf("strategy = %v, want %v", m.strategy, alloc.StrategyFixedSize)
	}
	if m.region == nil {
		t.Fatal("model has no mapped region")
	}
	if m.region.Size() != 65536 {
		t.Errorf("region size = %d, want 65536", m.region.Size())
	}
	if m.totalOps != 0 || len(m.live) != 0 {
		t.Errorf("fresh model already ran ops: totalOps=%d live=%d", m.totalOps, len(m.live))
	}
}

func TestNewModelRejectsUnknownStrategy(t *testing.T) {
	opts := defaultOptions()
	opts.Strategy = "slab"

	if _, err := NewModel(opts); err == nil {
		t.Error("NewModel() expected error for unknown strategy, got nil")
	}
}

func TestNewModelRejectsNullStrategy(t *testing.T) {
	opts := defaultOptions()
	opts.Strategy = "null"

	if _, err := NewModel(opts); err == nil {
		t.Error("NewModel() expected error for null strategy, got nil")
	}
}

func TestNextStrategyOrder(t *testing.T) {
	h := newTestHelper(t)
	m := h.GetModel()
	start := m.strategy

	// Cycling through every strategy must visit each once and come back.
	order := alloc.Strategies()
	s := start
	seen := make(map[alloc.Strategy]bool)
	for range order {
		if seen[s] {
			t.Fatalf("strategy %v visited twice before the cycle closed", s)
		}
		seen[s] = true
		m.strategy = s
		s = m.nextStrategy()
	}
	if s != start {
		t.Errorf("cycling %d strategies ended at %v, want %v", len(order), s, start)
	}
}
