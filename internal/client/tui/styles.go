package tui

import "github.com/charmbracelet/lipgloss"

// Styles defines styles for the list views.
type Styles struct {
	Title       lipgloss.Style
	Search      lipgloss.Style
	Tab         lipgloss.Style
	ActiveTab   lipgloss.Style
	Header      lipgloss.Style
	Row         lipgloss.Style
	SelectedRow lipgloss.Style
	Active      lipgloss.Style
	Inactive    lipgloss.Style
	Busy        lipgloss.Style
	Page        lipgloss.Style
	CurrentPage lipgloss.Style
	Footer      lipgloss.Style
	Help        lipgloss.Style
	Confirm     lipgloss.Style
	Error       lipgloss.Style
	Notice      lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() *Styles {
	highlight := lipgloss.Color("#6C50FF")
	subtle := lipgloss.Color("241")

	s := &Styles{}
	s.Title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(highlight).Padding(0, 1)
	s.Search = lipgloss.NewStyle().MarginTop(1)
	s.Tab = lipgloss.NewStyle().Foreground(subtle).Padding(0, 1)
	s.ActiveTab = lipgloss.NewStyle().Foreground(highlight).Bold(true).Underline(true).Padding(0, 1)
	s.Header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	s.Row = lipgloss.NewStyle()
	s.SelectedRow = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("57"))
	s.Active = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	s.Inactive = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	s.Busy = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	s.Page = lipgloss.NewStyle().Foreground(subtle).Padding(0, 1)
	s.CurrentPage = lipgloss.NewStyle().Foreground(highlight).Bold(true).Padding(0, 1)
	s.Footer = lipgloss.NewStyle().MarginTop(1)
	s.Help = lipgloss.NewStyle().Foreground(subtle)
	s.Confirm = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(highlight).Padding(0, 1)
	s.Error = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	s.Notice = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	return s
}
