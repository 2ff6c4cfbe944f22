package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the list view bindings.
type KeyMap struct {
	Search     key.Binding
	Blur       key.Binding
	Status     key.Binding
	PageSizeUp key.Binding
	PageSizeDn key.Binding
	PrevPage   key.Binding
	NextPage   key.Binding
	Up         key.Binding
	Down       key.Binding
	Toggle     key.Binding
	Delete     key.Binding
	Reload     key.Binding
	Yes        key.Binding
	No         key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Blur:       key.NewBinding(key.WithKeys("esc", "enter"), key.WithHelp("esc", "done")),
		Status:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "status")),
		PageSizeUp: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more per page")),
		PageSizeDn: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "fewer per page")),
		PrevPage:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "prev page")),
		NextPage:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next page")),
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
		Toggle:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "enable/disable")),
		Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Yes:        key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
		No:         key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "cancel")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
