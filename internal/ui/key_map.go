package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	input   key.Binding
	csv     key.Binding
	text    key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "convert")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		input:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "enter a link")),
		csv:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "save csv")),
		text:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "save text")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.input},
		{k.csv, k.text},
		{k.restart, k.quit},
	}
}
