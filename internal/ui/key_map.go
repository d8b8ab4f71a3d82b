package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	first     key.Binding
	prev      key.Binding
	next      key.Binding
	last      key.Binding
	focus     key.Binding
	open      key.Binding
	back      key.Binding
	lowerDown key.Binding
	lowerUp   key.Binding
	upperDown key.Binding
	upperUp   key.Binding
	include   key.Binding
	export    key.Binding
	xml       key.Binding
	json      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		first:     key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first")),
		prev:      key.NewBinding(key.WithKeys("left", "h", "p"), key.WithHelp("←/h", "prev")),
		next:      key.NewBinding(key.WithKeys("right", "l", "n"), key.WithHelp("→/l", "next")),
		last:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last")),
		focus:     key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch table")),
		open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		lowerDown: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "start -1")),
		lowerUp:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "start +1")),
		upperDown: key.NewBinding(key.WithKeys("{"), key.WithHelp("{", "end -1")),
		upperUp:   key.NewBinding(key.WithKeys("}"), key.WithHelp("}", "end +1")),
		include:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "include end")),
		export:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export range")),
		xml:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "save xml")),
		json:      key.NewBinding(key.WithKeys("j"), key.WithHelp("j", "save json")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.first, k.prev, k.next, k.last},
		{k.focus, k.open, k.back},
		{k.lowerDown, k.lowerUp, k.upperDown, k.upperUp, k.include, k.export},
		{k.xml, k.json, k.quit},
	}
}
