package main

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	// Scrolling
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Workload control
	Pause        key.Binding
	Step         key.Binding
	Faster       key.Binding
	Slower       key.Binding
	Reset        key.Binding
	NextStrategy key.Binding

	// Commands
	Help key.Binding
	Quit key.Binding
	Esc  key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Scrolling
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),

		// Workload control
		Pause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "pause/resume"),
		),
		Step: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "single-step a batch"),
		),
		Faster: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "run faster"),
		),
		Slower: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "run slower"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset the heap"),
		),
		NextStrategy: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next strategy"),
		),

		// Commands
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// ShortHelp returns key bindings for the status bar
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Pause,
		k.NextStrategy,
		k.Help,
		k.Quit,
	}
}

// FullHelp returns all key bindings for the help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Step, k.Faster, k.Slower},
		{k.Reset, k.NextStrategy, k.Up, k.Down},
		{k.Help, k.Quit},
	}
}
