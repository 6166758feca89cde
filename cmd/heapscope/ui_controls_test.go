package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// TestHelpToggle tests toggling the help overlay with '?'
func TestHelpToggle(t *testing.T) {
	helper := newTestHelper(t)
	helper.SendWindowSize(120, 40)

	model := helper.GetModel()
	if model.showHelp {
		t.Fatal("Help should not be shown initially")
	}

	t.Log("Pressing '?' to show help")
	helper.SendKeyRune('?')

	model = helper.GetModel()
	if !model.showHelp {
		t.Error("Help should be shown after pressing '?'")
	}

	t.Log("Pressing '?' again to hide help")
	helper.SendKeyRune('?')

	model = helper.GetModel()
	if model.showHelp {
		t.Error("Help should be hidden after pressing '?' again")
	}

	t.Log("✓ Help toggle works correctly")
}

// TestHelpDismissWithEsc tests dismissing help with Esc
func TestHelpDismissWithEsc(t *testing.T) {
	helper := newTestHelper(t)
	helper.SendWindowSize(120, 40)

	t.Log("Showing help with '?'")
	helper.SendKeyRune('?')

	if !helper.GetModel().showHelp {
		t.Fatal("Help should be shown")
	}

	t.Log("Pressing Esc to dismiss help")
	helper.SendKey(tea.KeyEsc)

	if helper.GetModel().showHelp {
		t.Error("Help should be dismissed after Esc")
	}

	t.Log("✓ Help dismiss with Esc works correctly")
}

// TestHelpBlocksOtherKeys tests that help mode blocks workload key inputs
func TestHelpBlocksOtherKeys(t *testing.T) {
	helper := newTestHelper(t)
	helper.SendWindowSize(120, 40)

	t.Log("Showing help")
	helper.SendKeyRune('?')

	if !helper.GetModel().showHelp {
		t.Fatal("Help should be shown")
	}

	t.Log("Pressing 's' while help is shown (should be blocked)")
	helper.SendKeyRune('s')

	model := helper.GetModel()
	if model.totalOps != 0 {
		t.Errorf("Step should not run while help is shown, ran %d ops", model.totalOps)
	}

	t.Log("Pressing Esc, then 's' should work again")
	helper.SendKey(tea.KeyEsc)
	helper.SendKeyRune('s')

	model = helper.GetModel()
	if model.totalOps == 0 {
		t.Error("Step should run after dismissing help")
	}

	t.Log("✓ Help blocks workload keys correctly")
}

// TestQuitKey tests that 'q' returns the quit command
func TestQuitKey(t *testing.T) {
	helper := newTestHelper(t)

	t.Log("Pressing 'q' to quit")
	_, cmd := helper.GetModel().Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("Pressing 'q' should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("Pressing 'q' should return tea.Quit, got %T", cmd())
	}

	t.Log("✓ Quit key returns tea.Quit")
}

// TestQuitWhileHelpShown tests that 'q' closes the overlay instead of quitting
func TestQuitWhileHelpShown(t *testing.T) {
	helper := newTestHelper(t)
	helper.SendWindowSize(120, 40)

	t.Log("Showing help")
	helper.SendKeyRune('?')

	if !helper.GetModel().showHelp {
		t.Fatal("Help should be shown")
	}

	t.Log("Pressing 'q' while help is shown")
	helper.SendKeyRune('q')

	model := helper.GetModel()
	if model.showHelp {
		t.Error("'q' should close the help overlay")
	}

	t.Log("✓ Quit key closes help instead of exiting")
}
