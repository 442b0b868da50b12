package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/spyglass-dev/spyglass/internal/config"
	"github.com/spyglass-dev/spyglass/internal/grid"
)

// Session is one open snapshot: its identifier, the fetcher bound to
// it, and the tables discovered in it.
type Session struct {
	Name        string
	Fetcher     grid.Fetcher
	Descriptors []grid.TableDescriptor
	Close       func() error
}

// Opener opens a session for a named snapshot. The picker modal uses it
// to switch data sources at runtime.
type Opener func(ctx context.Context, name string) (Session, error)

// App is the search browser: one shared query input fanned out across
// every table pane of the open snapshot.
type App struct {
	ctx    context.Context
	cfg    config.Config
	opener Opener
	names  []string // available snapshots, oldest first

	session    Session
	dispatcher *grid.Dispatcher
	panes      []*pane
	paneIdx    int

	query     textinput.Model
	lastQuery string
	spin      spinner.Model

	modal    modalState
	dbCursor int

	status string
	tz     *time.Location
	width  int
	height int
}

// pane is the UI state one table owns: its descriptor, its tracker, its
// renderer, and the last page of rows it received.
type pane struct {
	desc     grid.TableDescriptor
	tracker  *grid.Tracker
	renderer grid.Renderer
	rows     []map[string]any
	rowCur   int
	colCur   int
}

type modalState string

const (
	modalNone     modalState = ""
	modalDBPicker modalState = "dbPicker"
)

func New(ctx context.Context, cfg config.Config, names []string, session Session, tz *time.Location) *App {
	if tz == nil {
		tz = time.Local
	}

	query := textinput.New()
	query.Placeholder = "search all tables"
	query.Prompt = ""
	query.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	a := &App{
		ctx:    ctx,
		cfg:    cfg,
		opener: nil,
		names:  names,
		query:  query,
		spin:   spin,
		tz:     tz,
	}
	a.attach(session)
	return a
}

// SetOpener wires the snapshot switcher; without it the picker modal
// stays disabled.
func (a *App) SetOpener(open Opener) { a.opener = open }

// attach binds the app to a session: one dispatcher for the snapshot,
// one pane per discovered table, registered in discovery order.
func (a *App) attach(s Session) {
	a.session = s
	a.dispatcher = grid.NewDispatcher(s.Name)
	a.panes = a.panes[:0]
	a.paneIdx = 0

	for _, desc := range s.Descriptors {
		p := &pane{
			desc:     desc,
			tracker:  &grid.Tracker{},
			renderer: grid.Renderer{Plan: grid.Classify(desc.Columns), Zone: func() *time.Location { return a.tz }},
		}
		a.dispatcher.Register(desc, p.tracker, a.cfg.UI.RowsPerPage)
		a.panes = append(a.panes, p)
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.spin.Tick, a.fanOut(a.dispatcher.QueryChanged("")))
}

// commands

// fanOut turns dispatched fetch requests into one command per table so
// every pane loads independently.
func (a *App) fanOut(reqs []grid.FetchRequest) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		cmds = append(cmds, a.fetchCmd(req))
	}
	return tea.Batch(cmds...)
}

func (a *App) fetchCmd(req grid.FetchRequest) tea.Cmd {
	fetcher := a.session.Fetcher
	return func() tea.Msg {
		res, err := fetcher.Fetch(a.ctx, req.Params)
		return fetchDoneMsg{source: req.Params.DataSource, table: req.Table, seq: req.Seq, res: res, err: err}
	}
}

func (a *App) openSourceCmd(name string) tea.Cmd {
	open := a.opener
	return func() tea.Msg {
		s, err := open(a.ctx, name)
		if err != nil {
			return errMsg{err}
		}
		return sourceOpenedMsg{session: s}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(m)
		return a, cmd

	case fetchDoneMsg:
		// Completions from a snapshot that is no longer open are dropped
		// outright; within the open snapshot the dispatcher discards
		// anything stale.
		if m.source != a.dispatcher.DataSource() {
			return a, nil
		}
		if !a.dispatcher.Complete(m.table, m.seq, m.res, m.err) {
			return a, nil
		}
		if m.err == nil {
			if p := a.paneByName(m.table); p != nil {
				p.rows = m.res.Data
				if p.rowCur >= len(p.rows) {
					p.rowCur = 0
				}
			}
		}

	case sourceOpenedMsg:
		if a.session.Close != nil {
			_ = a.session.Close()
		}
		a.attach(m.session)
		a.status = "opened " + m.session.Name
		return a, a.fanOut(a.dispatcher.QueryChanged(a.lastQuery))

	case errMsg:
		a.status = "error: " + m.Error()

	case tea.KeyMsg:
		return a.handleKey(m)
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.modal == modalDBPicker {
		return a.handlePickerKey(m)
	}

	switch m.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "esc":
		if a.query.Value() == "" {
			return a, tea.Quit
		}
		a.query.SetValue("")
		a.lastQuery = ""
		return a, a.fanOut(a.dispatcher.QueryChanged(""))
	case "tab":
		if len(a.panes) > 0 {
			a.paneIdx = (a.paneIdx + 1) % len(a.panes)
		}
		return a, nil
	case "shift+tab":
		if len(a.panes) > 0 {
			a.paneIdx = (a.paneIdx - 1 + len(a.panes)) % len(a.panes)
		}
		return a, nil
	case "ctrl+p":
		if a.opener == nil || len(a.names) == 0 {
			a.status = "no other snapshots"
			return a, nil
		}
		a.modal = modalDBPicker
		a.dbCursor = len(a.names) - 1 // most recent
		return a, nil
	case "up":
		if p := a.focused(); p != nil && p.rowCur > 0 {
			p.rowCur--
		}
		return a, nil
	case "down":
		if p := a.focused(); p != nil && p.rowCur < len(p.rows)-1 {
			p.rowCur++
		}
		return a, nil
	case "shift+left":
		if p := a.focused(); p != nil && p.colCur > 0 {
			p.colCur--
		}
		return a, nil
	case "shift+right":
		if p := a.focused(); p != nil && p.colCur < len(p.desc.Columns)-1 {
			p.colCur++
		}
		return a, nil
	case "pgdown":
		return a, a.page(+1)
	case "pgup":
		return a, a.page(-1)
	case "ctrl+s":
		p := a.focused()
		if p == nil {
			return a, nil
		}
		reg := a.dispatcher.Registration(p.desc.Name)
		reg.Order = reg.Order%len(p.desc.Columns) + 1
		return a, a.refetchFocused()
	case "ctrl+l":
		next := nextPageSize(a.pageSize())
		a.status = fmt.Sprintf("%d rows per page", next)
		return a, a.fanOut(a.dispatcher.LengthChanged(next, a.lastQuery))
	case "ctrl+o":
		p := a.focused()
		if p == nil {
			return a, nil
		}
		reg := a.dispatcher.Registration(p.desc.Name)
		if reg.Direction == grid.DirectionAsc {
			reg.Direction = grid.DirectionDesc
		} else {
			reg.Direction = grid.DirectionAsc
		}
		return a, a.refetchFocused()
	case "enter":
		return a, a.activateCell()
	}

	// Everything else edits the shared query; each edit fans out one
	// reload per table.
	var cmd tea.Cmd
	a.query, cmd = a.query.Update(m)
	if q := a.query.Value(); q != a.lastQuery {
		a.lastQuery = q
		return a, tea.Batch(cmd, a.fanOut(a.dispatcher.QueryChanged(q)))
	}
	return a, cmd
}

func (a *App) handlePickerKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "esc", "ctrl+p":
		a.modal = modalNone
	case "up", "k":
		if a.dbCursor > 0 {
			a.dbCursor--
		}
	case "down", "j":
		if a.dbCursor < len(a.names)-1 {
			a.dbCursor++
		}
	case "enter":
		a.modal = modalNone
		name := a.names[a.dbCursor]
		if name == a.session.Name {
			return a, nil
		}
		a.status = "opening " + name + "..."
		return a, a.openSourceCmd(name)
	case "ctrl+c":
		return a, tea.Quit
	}
	return a, nil
}

// page moves the focused pane one page forward or back and re-issues
// only that pane's fetch.
func (a *App) page(dir int) tea.Cmd {
	p := a.focused()
	if p == nil {
		return nil
	}
	reg := a.dispatcher.Registration(p.desc.Name)
	next := reg.Start + dir*reg.Length
	if next < 0 {
		next = 0
	}
	if next >= p.tracker.RowCount() {
		return nil
	}
	reg.Start = next
	return a.refetchFocused()
}

func (a *App) refetchFocused() tea.Cmd {
	p := a.focused()
	if p == nil {
		return nil
	}
	req, ok := a.dispatcher.Refetch(p.desc.Name, a.lastQuery)
	if !ok {
		return nil
	}
	return a.fetchCmd(req)
}

// activateCell copies the focused cell's raw value into the shared
// query, pivoting the whole page onto that value.
func (a *App) activateCell() tea.Cmd {
	p := a.focused()
	if p == nil || p.rowCur >= len(p.rows) {
		return nil
	}
	row := p.rows[p.rowCur]
	if p.colCur >= len(p.desc.Columns) {
		return nil
	}
	raw := p.renderer.Raw(row[p.desc.Columns[p.colCur]], p.colCur)
	if raw == "" {
		return nil
	}
	a.query.SetValue(raw)
	a.query.CursorEnd()
	a.lastQuery = raw
	return a.fanOut(a.dispatcher.QueryChanged(raw))
}

// pageSizes are the selectable page lengths, cycled in order.
var pageSizes = []int{10, 25, 50, 100}

func (a *App) pageSize() int {
	if p := a.focused(); p != nil {
		return a.dispatcher.Registration(p.desc.Name).Length
	}
	return a.cfg.UI.RowsPerPage
}

func nextPageSize(current int) int {
	for i, n := range pageSizes {
		if n == current {
			return pageSizes[(i+1)%len(pageSizes)]
		}
	}
	return pageSizes[0]
}

func (a *App) focused() *pane {
	if len(a.panes) == 0 {
		return nil
	}
	return a.panes[a.paneIdx]
}

func (a *App) paneByName(table string) *pane {
	for _, p := range a.panes {
		if p.desc.Name == table {
			return p
		}
	}
	return nil
}

// widget resolves a per-table affordance by its derived identifier:
// the count label, the loader, or the error banner.
func (a *App) widget(id string) string {
	for _, p := range a.panes {
		switch id {
		case p.desc.WidgetID(grid.WidgetLabel):
			return p.tracker.Label()
		case p.desc.WidgetID(grid.WidgetLoader):
			if p.tracker.Loading() {
				return a.spin.View()
			}
			return ""
		case p.desc.WidgetID(grid.WidgetError):
			return p.tracker.ErrorMessage()
		}
	}
	return ""
}

func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Spyglass - " + a.session.Name))
	b.WriteString("\n")
	b.WriteString("Search: " + a.query.View())
	b.WriteString("\n\n")

	for i, p := range a.panes {
		b.WriteString(a.renderPane(p, i == a.paneIdx))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("[tab] next table  [pgup/pgdn] page  [ctrl+s] sort col  [ctrl+o] sort dir  [ctrl+l] page size  [enter] search cell  [ctrl+p] snapshots  [esc] clear/quit"))
	if a.status != "" {
		b.WriteString("\n" + a.status)
	}
	if a.modal == modalDBPicker {
		b.WriteString("\n\n" + a.renderPicker())
	}
	return b.String()
}

func (a *App) renderPane(p *pane, focused bool) string {
	reg := a.dispatcher.Registration(p.desc.Name)

	header := p.desc.Name
	if focused {
		header = "▶ " + header
	} else {
		header = "  " + header
	}
	head := paneTitleStyle.Render(header) + "  " + countStyle.Render(a.widget(p.desc.WidgetID(grid.WidgetLabel))+" rows")
	if loader := a.widget(p.desc.WidgetID(grid.WidgetLoader)); loader != "" {
		head += "  " + loader
	}

	var b strings.Builder
	b.WriteString(head)
	b.WriteString("\n")

	if banner := a.widget(p.desc.WidgetID(grid.WidgetError)); banner != "" {
		b.WriteString(errorStyle.Render(banner))
		b.WriteString("\n")
		return b.String()
	}

	widths := columnWidths(p.desc.Columns)

	var cols []string
	for i, col := range p.desc.Columns {
		label := col
		if reg != nil && reg.Order == i+1 {
			if reg.Direction == grid.DirectionDesc {
				label += " ▼"
			} else {
				label += " ▲"
			}
		}
		cols = append(cols, pad(label, widths[i]))
	}
	b.WriteString(headerStyle.Render(strings.Join(cols, "  ")))
	b.WriteString("\n")

	for ri, row := range p.rows {
		var cells []string
		for ci, col := range p.desc.Columns {
			cell := p.renderer.Display(row[col], ci)
			text := pad(cell.Text, widths[ci])
			if focused && ri == p.rowCur && ci == p.colCur {
				text = selectedStyle.Render(text)
			}
			if cell.Annotation != "" {
				text += " " + annotationStyle.Render("("+cell.Annotation+")")
			}
			cells = append(cells, text)
		}
		b.WriteString(strings.Join(cells, "  "))
		b.WriteString("\n")
	}

	if reg != nil && len(p.rows) > 0 {
		b.WriteString(helpStyle.Render(fmt.Sprintf("rows %d-%d of %s", reg.Start+1, reg.Start+len(p.rows), p.tracker.Label())))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) renderPicker() string {
	out := titleStyle.Render("Open snapshot") + "\n"
	for i, name := range a.names {
		marker := " "
		if i == a.dbCursor {
			marker = "▶"
		}
		current := ""
		if name == a.session.Name {
			current = " (open)"
		}
		out += fmt.Sprintf("%s %s%s\n", marker, name, current)
	}
	out += "[enter] Open  [esc] Cancel"
	return out
}

// columnWidths gives every column at least the minimum width, widened
// to fit its own header.
func columnWidths(columns []string) []int {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = grid.MinColumnWidth
		if w := lipgloss.Width(col) + 2; w > widths[i] { // room for the sort marker
			widths[i] = w
		}
	}
	return widths
}

// pad truncates or right-pads plain text to width. Styled text is
// longer than it looks, so padding only applies to unstyled cells.
func pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w > width {
		runes := []rune(s)
		if len(runes) > width {
			return string(runes[:width-1]) + "…"
		}
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// messages
type fetchDoneMsg struct {
	source string
	table  string
	seq    uint64
	res    grid.Response
	err    error
}

type sourceOpenedMsg struct {
	session Session
}

type errMsg struct{ error }

// styles
var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Underline(true)
	paneTitleStyle  = lipgloss.NewStyle().Bold(true)
	countStyle      = lipgloss.NewStyle().Faint(true)
	headerStyle     = lipgloss.NewStyle().Underline(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	annotationStyle = lipgloss.NewStyle().Faint(true)
	selectedStyle   = lipgloss.NewStyle().Reverse(true)
	helpStyle       = lipgloss.NewStyle().Faint(true)
)
