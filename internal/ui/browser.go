package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/tablenav/internal/formatter"
	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/navigator"
	"github.com/desertthunder/tablenav/internal/paging"
	"github.com/desertthunder/tablenav/internal/shared"
)

// sink collects per-collection values set from command goroutines.
type sink[T any] struct {
	mu     sync.Mutex
	values map[string]T
}

func newSink[T any]() *sink[T] {
	return &sink[T]{values: make(map[string]T)}
}

func (s *sink[T]) put(name string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = v
}

func (s *sink[T]) take(name string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	delete(s.values, name)
	return v, ok
}

// BrowserOptions configures a [Browser].
type BrowserOptions struct {
	Collections []navigator.Descriptor
	Fetcher     navigator.Fetcher
	Refresh     navigator.RefreshPolicy
	Logger      *log.Logger
}

// Browser shows several paged collections side by side.
//
// Key presses activate the controls rendered with each page, so a key does nothing until the
// registry has bound the control of the page currently shown.
type Browser struct {
	ctx      context.Context
	fetcher  navigator.Fetcher
	registry *navigator.Registry
	panes    *Panes
	names    []string
	descs    map[string]navigator.Descriptor
	tables   map[string]table.Model
	errs     *sink[error]
	opens    *sink[bool]
	focus    int
	detail   *models.Row
	columns  []string
	status   string
	err      error
	width    int
	height   int
	help     help.Model
	keys     keyMap
	logger   *log.Logger
}

// NewBrowser registers a navigator per collection and binds each collection's details trigger.
func NewBrowser(ctx context.Context, opts BrowserOptions) (*Browser, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher", shared.ErrMissingArgument)
	}
	if len(opts.Collections) == 0 {
		return nil, fmt.Errorf("%w: no collections configured", shared.ErrMissingConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	panes := NewPanes(opts.Logger)
	b := &Browser{
		ctx:      ctx,
		fetcher:  opts.Fetcher,
		registry: navigator.NewRegistry(ctx, panes, opts.Logger),
		panes:    panes,
		descs:    make(map[string]navigator.Descriptor, len(opts.Collections)),
		tables:   make(map[string]table.Model, len(opts.Collections)),
		errs:     newSink[error](),
		opens:    newSink[bool](),
		help:     help.New(),
		keys:     newKeyMap(),
		logger:   opts.Logger.WithPrefix("browser"),
	}

	for _, desc := range opts.Collections {
		if desc.Controls == (navigator.ControlIDs{}) {
			desc.Controls = navigator.DefaultControls(desc.Name)
		}
		nav := navigator.New(desc, opts.Fetcher, panes, navigator.Options{
			Refresh: opts.Refresh,
			Logger:  opts.Logger,
			OnError: b.errs.put,
		})
		if err := b.registry.Register(nav); err != nil {
			return nil, err
		}

		name := desc.Name
		if err := b.registry.Bind(name, navigator.OpenControl(name), func() { b.opens.put(name, true) }); err != nil {
			return nil, err
		}

		b.names = append(b.names, name)
		b.descs[name] = desc
		b.tables[name] = table.New(table.WithFocused(len(b.names) == 1), table.WithHeight(10))
	}
	return b, nil
}

// Init loads the first page of every collection.
func (b *Browser) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(b.names))
	for _, name := range b.names {
		cmds = append(cmds, b.loadFirst(name))
	}
	return tea.Batch(cmds...)
}

// loadFirst renders page 0 and seeds the navigator with the page's own last index.
func (b *Browser) loadFirst(name string) tea.Cmd {
	desc := b.descs[name]
	return func() tea.Msg {
		fragment, err := b.fetcher.FetchPage(b.ctx, desc, 0)
		if err != nil {
			return pageLoadedMsg(name, err)
		}
		if err := b.panes.Render(desc.ContainerID, fragment); err != nil {
			return pageLoadedMsg(name, err)
		}

		page, ok := b.panes.Page(desc.ContainerID)
		if !ok {
			return pageLoadedMsg(name, fmt.Errorf("%w: %s sent an unreadable page", shared.ErrServerError, name))
		}
		if nav, ok := b.registry.Navigator(name); ok {
			if cursor, err := paging.NewCursorWithLast(page.Page, page.Last); err == nil {
				nav.Reset(cursor)
			}
		}
		b.registry.Rebind(name)
		return pageLoadedMsg(name, nil)
	}
}

// Update handles incoming messages and updates the model state.
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		for _, name := range b.names {
			b.syncTable(name)
		}
		return b, nil

	case tea.KeyMsg:
		if b.detail != nil {
			return b.handleDetailKeys(msg)
		}
		return b.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgPageLoaded, MsgNavigated:
			res := msg.data.(pageResult)
			b.err = res.err
			if res.err == nil {
				b.status = ""
			}
			b.syncTable(res.name)
		}
		return b, nil
	}

	return b, nil
}

func (b *Browser) focused() string {
	return b.names[b.focus]
}

func (b *Browser) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	name := b.focused()
	ids := b.descs[name].Controls

	switch {
	case key.Matches(msg, b.keys.quit):
		return b, tea.Quit
	case key.Matches(msg, b.keys.focus):
		b.moveFocus(msg.String() == "shift+tab")
		return b, nil
	case key.Matches(msg, b.keys.first):
		return b, b.activate(name, ids.First)
	case key.Matches(msg, b.keys.prev):
		return b, b.activate(name, ids.Prev)
	case key.Matches(msg, b.keys.next):
		return b, b.activate(name, ids.Next)
	case key.Matches(msg, b.keys.last):
		return b, b.activate(name, ids.Last)
	case key.Matches(msg, b.keys.open):
		b.open(name)
		return b, nil
	}

	var cmd tea.Cmd
	b.tables[name], cmd = b.tables[name].Update(msg)
	return b, cmd
}

func (b *Browser) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, b.keys.quit):
		return b, tea.Quit
	case key.Matches(msg, b.keys.back), key.Matches(msg, b.keys.open):
		b.detail = nil
	}
	return b, nil
}

func (b *Browser) moveFocus(back bool) {
	prev := b.focused()
	if back {
		b.focus = (b.focus + len(b.names) - 1) % len(b.names)
	} else {
		b.focus = (b.focus + 1) % len(b.names)
	}

	t := b.tables[prev]
	t.Blur()
	b.tables[prev] = t

	t = b.tables[b.focused()]
	t.Focus()
	b.tables[b.focused()] = t
}

// activate returns a command pressing control id of collection name, or nil when it cannot be pressed.
func (b *Browser) activate(name, id string) tea.Cmd {
	btn, ok := b.panes.button(b.descs[name].ContainerID, id)
	if !ok {
		b.status = fmt.Sprintf("%s: %s is not rendered", name, id)
		return nil
	}
	if !btn.Enabled() {
		b.status = fmt.Sprintf("%s: %s is unavailable", name, id)
		return nil
	}

	b.status = fmt.Sprintf("%s: loading...", name)
	return func() tea.Msg {
		btn.Activate()
		err, _ := b.errs.take(name)
		return navigatedMsg(name, err)
	}
}

// open presses the details trigger; its bound handler marks the collection as opened.
func (b *Browser) open(name string) {
	btn, ok := b.panes.button(b.descs[name].ContainerID, navigator.OpenControl(name))
	if !ok || !btn.Activate() {
		return
	}
	if _, opened := b.opens.take(name); !opened {
		return
	}

	page, ok := b.panes.Page(b.descs[name].ContainerID)
	if !ok {
		return
	}
	i := b.tables[name].Cursor()
	if i < 0 || i >= len(page.Rows) {
		return
	}
	row := page.Rows[i]
	b.detail = &row
	b.columns = page.Columns
}

func columnWidths(columns []string, total int) []int {
	widths := make([]int, len(columns))
	if len(columns) == 0 {
		return widths
	}
	fixed := 0
	for i, c := range columns {
		switch {
		case i == 0:
			widths[i] = max(len(c), 6)
		case i == len(columns)-1 && len(columns) > 2:
			widths[i] = max(len(c), 10)
		default:
			continue
		}
		fixed += widths[i]
	}

	flexible := len(columns) - 1
	if len(columns) > 2 {
		flexible--
	}
	if flexible > 0 {
		each := max((total-fixed-2*len(columns))/flexible, 12)
		for i := range widths {
			if widths[i] == 0 {
				widths[i] = each
			}
		}
	}
	return widths
}

// syncTable copies the rendered page of name into its table.
func (b *Browser) syncTable(name string) {
	page, ok := b.panes.Page(b.descs[name].ContainerID)
	if !ok {
		return
	}

	width := 40
	if b.width > 0 {
		width = max(b.width/len(b.names)-4, 20)
	}
	widths := columnWidths(page.Columns, width)
	cols := make([]table.Column, len(page.Columns))
	for i, c := range page.Columns {
		cols[i] = table.Column{Title: c, Width: widths[i]}
	}
	rows := make([]table.Row, len(page.Rows))
	for i, r := range page.Rows {
		rows[i] = table.Row(r.Cells)
	}

	t := b.tables[name]
	t.SetRows(nil)
	t.SetColumns(cols)
	t.SetRows(rows)
	if t.Cursor() >= len(rows) {
		t.SetCursor(max(len(rows)-1, 0))
	}
	if b.height > 0 {
		t.SetHeight(max(b.height-10, 3))
	}
	b.tables[name] = t
}

func (b *Browser) controlsLine(name string) string {
	desc := b.descs[name]
	parts := make([]string, 0, 4)
	for _, c := range []struct{ label, id string }{
		{"«", desc.Controls.First},
		{"‹", desc.Controls.Prev},
		{"›", desc.Controls.Next},
		{"»", desc.Controls.Last},
	} {
		if btn, ok := b.panes.button(desc.ContainerID, c.id); ok && btn.Enabled() {
			parts = append(parts, styles.control.Render(c.label))
		} else {
			parts = append(parts, styles.disabled.Render(c.label))
		}
	}
	return strings.Join(parts, " ")
}

// View renders the collections, or the details of the opened row.
func (b *Browser) View() string {
	if b.detail != nil {
		return b.renderDetail()
	}

	boxes := make([]string, 0, len(b.names))
	for i, name := range b.names {
		label := "loading"
		if page, ok := b.panes.Page(b.descs[name].ContainerID); ok {
			label = formatter.PageLabel(page.Page, page.Last)
		}
		title := styles.title.Render(fmt.Sprintf("%s · %s", name, label))
		body := lipgloss.JoinVertical(lipgloss.Left, title, b.tables[name].View(), b.controlsLine(name))

		style := styles.pane
		if i == b.focus {
			style = styles.focused
		}
		boxes = append(boxes, style.Render(body))
	}

	var status string
	switch {
	case b.err != nil:
		status = styles.err.Render(fmt.Sprintf("Error: %v", b.err))
	case b.status != "":
		status = styles.help.Render(b.status)
	}

	helpView := b.help.ShortHelpView([]key.Binding{b.keys.first, b.keys.prev, b.keys.next, b.keys.last, b.keys.focus, b.keys.open, b.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", lipgloss.JoinHorizontal(lipgloss.Top, boxes...), status, helpView)
}

func (b *Browser) renderDetail() string {
	var lines []string
	for i, cell := range b.detail.Cells {
		label := fmt.Sprintf("column %d", i+1)
		if i < len(b.columns) {
			label = b.columns[i]
		}
		lines = append(lines, fmt.Sprintf("%-10s %s", label+":", cell))
	}

	title := styles.title.Render(fmt.Sprintf("%s #%d", b.focused(), b.detail.ID))
	helpView := b.help.ShortHelpView([]key.Binding{b.keys.back, b.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, styles.focused.Render(strings.Join(lines, "\n")), helpView)
}
