package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the editor shell bindings. Keys not listed here go to the
// text area.
type KeyMap struct {
	Save, SaveAs, Open key.Binding
	ToggleOutline      key.Binding
	Focus              key.Binding
	Up, Down, Jump     key.Binding
	Copy, Export, Nvim key.Binding
	Help, Quit         key.Binding
	Cancel             key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Save:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		SaveAs: key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("ctrl+w", "save as")),
		Open:   key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open")),

		ToggleOutline: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "outline")),
		Focus:         key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),

		// Only active while the outline has focus.
		Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "previous")),
		Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "next")),
		Jump: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "jump")),

		Copy:   key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy")),
		Export: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "export html")),
		Nvim:   key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "neovim")),

		Help:   key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+q", "ctrl+c"), key.WithHelp("ctrl+q", "quit")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.Open, k.ToggleOutline, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Save, k.SaveAs, k.Open},
		{k.ToggleOutline, k.Focus, k.Jump},
		{k.Copy, k.Export, k.Nvim},
		{k.Help, k.Quit, k.Cancel},
	}
}
