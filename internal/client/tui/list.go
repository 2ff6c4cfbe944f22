// Package tui holds the interactive terminal list views.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/collection"
)

// Column is one table column.
type Column[T collection.Item] struct {
	Title string
	Width int
	Value func(T) string
}

// Actions are the backend operations a list offers. Delete may be nil.
type Actions struct {
	Load   func(ctx context.Context) error
	Toggle func(key string) (*collection.Confirmation, error)
	Delete func(key string) (*collection.Confirmation, error)
}

type (
	viewChangedMsg struct{}
	loadedMsg      struct{ err error }
	actionMsg      struct {
		action string
		err    error
	}
)

// ListModel is a searchable, filterable, paged table over a collection.Store.
type ListModel[T collection.Item] struct {
	ctx     context.Context
	title   string
	store   *collection.Store[T]
	columns []Column[T]
	actions Actions
	keys    KeyMap
	styles  *Styles

	search  textinput.Model
	changed chan struct{}
	view    collection.View[T]
	cursor  int
	confirm *collection.Confirmation
	busy    bool
	notice  string
	err     error
	width   int
}

// NewListModel creates a list bound to store.
func NewListModel[T collection.Item](ctx context.Context, title string, store *collection.Store[T], columns []Column[T], actions Actions) *ListModel[T] {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.Prompt = "🔍 "
	ti.CharLimit = 100

	m := &ListModel[T]{
		ctx:     ctx,
		title:   title,
		store:   store,
		columns: columns,
		actions: actions,
		keys:    DefaultKeyMap(),
		styles:  DefaultStyles(),
		search:  ti,
		changed: make(chan struct{}, 1),
		view:    store.View(),
		width:   100,
	}
	store.Subscribe(func(collection.View[T]) {
		select {
		case m.changed <- struct{}{}:
		default:
		}
	})
	return m
}

// Init starts the first load.
func (m *ListModel[T]) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitForChange())
}

func (m *ListModel[T]) load() tea.Cmd {
	if m.actions.Load == nil {
		return nil
	}
	return func() tea.Msg {
		return loadedMsg{err: m.actions.Load(m.ctx)}
	}
}

func (m *ListModel[T]) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changed:
			return viewChangedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Update handles messages.
func (m *ListModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case viewChangedMsg:
		m.sync()
		return m, m.waitForChange()
	case loadedMsg:
		m.err = msg.err
		m.sync()
		return m, nil
	case actionMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.notice = msg.action + " completed"
		}
		m.sync()
		return m, nil
	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		m.sync()
		return m, cmd
	}
	return m, nil
}

func (m *ListModel[T]) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}

	if m.confirm != nil {
		switch {
		case key.Matches(msg, m.keys.Yes):
			c := m.confirm
			m.confirm = nil
			m.busy = true
			return func() tea.Msg {
				return actionMsg{action: c.Action, err: c.Accept(m.ctx)}
			}
		case key.Matches(msg, m.keys.No):
			m.confirm.Cancel()
			m.confirm = nil
		}
		return nil
	}

	if m.search.Focused() {
		if key.Matches(msg, m.keys.Blur) {
			m.search.Blur()
			return nil
		}
		before := m.search.Value()
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if v := m.search.Value(); v != before {
			m.store.SetSearch(v)
		}
		return cmd
	}

	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Search):
		return m.search.Focus()
	case key.Matches(msg, m.keys.Status):
		m.store.SetStatus(m.view.Query.Status.Next())
		m.cursor = 0
	case key.Matches(msg, m.keys.PageSizeUp):
		m.store.SetPageSize(collection.NextPageSize(m.view.PerPage, 1))
		m.cursor = 0
	case key.Matches(msg, m.keys.PageSizeDn):
		m.store.SetPageSize(collection.NextPageSize(m.view.PerPage, -1))
		m.cursor = 0
	case key.Matches(msg, m.keys.PrevPage):
		if m.view.Page > 1 {
			m.store.SetPage(m.view.Page - 1)
			m.cursor = 0
		}
	case key.Matches(msg, m.keys.NextPage):
		if m.view.Page < m.view.TotalPages {
			m.store.SetPage(m.view.Page + 1)
			m.cursor = 0
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.view.Items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		m.ask(m.actions.Toggle)
	case key.Matches(msg, m.keys.Delete):
		m.ask(m.actions.Delete)
	case key.Matches(msg, m.keys.Reload):
		return m.load()
	}
	return nil
}

func (m *ListModel[T]) ask(request func(string) (*collection.Confirmation, error)) {
	item, ok := m.Selected()
	if !ok || request == nil || m.busy {
		return
	}
	c, err := request(item.Key())
	if err != nil {
		m.err = err
		return
	}
	m.confirm = c
}

func (m *ListModel[T]) sync() {
	m.view = m.store.View()
	if m.cursor >= len(m.view.Items) {
		m.cursor = max(len(m.view.Items)-1, 0)
	}
}

// Selected returns the row under the cursor.
func (m *ListModel[T]) Selected() (T, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Items) {
		var zero T
		return zero, false
	}
	return m.view.Items[m.cursor], true
}

// Confirming returns the pending confirmation, if any.
func (m *ListModel[T]) Confirming() *collection.Confirmation {
	return m.confirm
}

// View renders the list.
func (m *ListModel[T]) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.Title.Render(m.title))
	b.WriteString("\n")
	b.WriteString(s.Search.Render(m.search.View()))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.renderTable())
	b.WriteString(s.Footer.Render(m.renderFooter()))
	b.WriteString("\n")

	switch {
	case m.confirm != nil:
		b.WriteString(s.Confirm.Render(fmt.Sprintf("%s\n%s\n[y] %s  [n] Cancel", m.confirm.Title, m.confirm.Prompt, m.confirm.Action)))
		b.WriteString("\n")
	case m.busy:
		b.WriteString(s.Busy.Render("Working..."))
		b.WriteString("\n")
	case m.err != nil:
		b.WriteString(s.Error.Render(api.Message(m.err, "Something went wrong")))
		b.WriteString("\n")
	case m.notice != "":
		b.WriteString(s.Notice.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(s.Help.Render(m.helpLine()))
	return b.String()
}

func (m *ListModel[T]) renderTabs() string {
	var tabs []string
	for _, f := range []collection.StatusFilter{collection.StatusAll, collection.StatusActive, collection.StatusInactive} {
		label := strings.ToUpper(string(f[:1])) + string(f[1:])
		if f == m.view.Query.Status {
			tabs = append(tabs, m.styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *ListModel[T]) renderTable() string {
	var b strings.Builder

	header := make([]string, 0, len(m.columns)+1)
	for _, c := range m.columns {
		header = append(header, cell(c.Title, c.Width))
	}
	header = append(header, "Status")
	b.WriteString(m.styles.Header.Render(strings.Join(header, " ")))
	b.WriteString("\n")

	if len(m.view.Items) == 0 {
		msg := "Nothing here yet."
		if m.view.Total > 0 {
			msg = "No results match the current search or filter."
		}
		if m.view.State == collection.StateLoading {
			msg = "Loading..."
		}
		b.WriteString(m.styles.Help.Render(msg))
		b.WriteString("\n")
		return b.String()
	}

	for i, item := range m.view.Items {
		cells := make([]string, 0, len(m.columns)+1)
		for _, c := range m.columns {
			cells = append(cells, cell(c.Value(item), c.Width))
		}
		row := strings.Join(cells, " ")
		style := m.styles.Row
		if i == m.cursor {
			style = m.styles.SelectedRow
		}
		b.WriteString(style.Render(row))
		b.WriteString(" ")
		b.WriteString(m.statusCell(item))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *ListModel[T]) statusCell(item T) string {
	switch {
	case m.store.InProgress(item.Key()):
		return m.styles.Busy.Render("…")
	case item.IsActive():
		return m.styles.Active.Render("Active")
	default:
		return m.styles.Inactive.Render("Inactive")
	}
}

func (m *ListModel[T]) renderFooter() string {
	v := m.view
	from, to := 0, 0
	if v.TotalCount > 0 {
		from = (v.Page-1)*v.PerPage + 1
		to = from + len(v.Items) - 1
	}
	summary := fmt.Sprintf("Showing %d-%d of %d", from, to, v.TotalCount)
	if v.TotalCount != v.Total {
		summary += fmt.Sprintf(" (filtered from %d)", v.Total)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		summary, "   ",
		m.renderPages(), "   ",
		fmt.Sprintf("Per page: %d", v.PerPage),
	)
}

func (m *ListModel[T]) renderPages() string {
	v := m.view
	parts := make([]string, 0, len(v.Pages)+2)
	for _, p := range v.Pages {
		if p == v.Page {
			parts = append(parts, m.styles.CurrentPage.Render(fmt.Sprintf("[%d]", p)))
		} else {
			parts = append(parts, m.styles.Page.Render(fmt.Sprint(p)))
		}
	}
	if v.Ellipsis {
		parts = append(parts, m.styles.Page.Render("…"), m.styles.Page.Render(fmt.Sprint(v.TotalPages)))
	}
	return strings.Join(parts, "")
}

func (m *ListModel[T]) helpLine() string {
	if m.search.Focused() {
		return "type to search • esc: done"
	}
	bindings := []key.Binding{
		m.keys.Search, m.keys.Status, m.keys.PrevPage, m.keys.NextPage,
		m.keys.PageSizeUp, m.keys.PageSizeDn, m.keys.Toggle,
	}
	if m.actions.Delete != nil {
		bindings = append(bindings, m.keys.Delete)
	}
	bindings = append(bindings, m.keys.Reload, m.keys.Quit)

	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

func cell(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return lipgloss.NewStyle().Width(width).Render(truncate.StringWithTail(s, uint(width), "…"))
}

// Run starts an interactive program for model and blocks until it exits.
func Run(ctx context.Context, model tea.Model) error {
	_, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	return err
}
