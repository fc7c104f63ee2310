package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/factoryflow/pkg/editor"
	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/notice"
	"github.com/matzehuels/factoryflow/pkg/persist"
	"github.com/matzehuels/factoryflow/pkg/session"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
	dirtyStyle   = lipgloss.NewStyle().Foreground(colorYellow)
	kindStyles   = map[flow.Kind]lipgloss.Style{
		flow.KindFactory:   lipgloss.NewStyle().Foreground(colorBlue).Bold(true),
		flow.KindShopFloor: lipgloss.NewStyle().Foreground(colorGreen),
		flow.KindAsset:     lipgloss.NewStyle().Foreground(colorWhite),
		flow.KindRelation:  lipgloss.NewStyle().Foreground(colorGray).Italic(true),
	}
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const editHelp = "↑/↓ move  space select  c connect  enter expand  ⌫ delete  ctrl+z undo  ctrl+y redo  h direction  s save  r refresh  q quit"

// editSyncer is the part of the synchronizer the terminal editor uses.
type editSyncer interface {
	SaveOrUpdate(ctx context.Context, factoryID string, g flow.Graph) persist.Report
	Refresh(ctx context.Context, factoryID, factoryName string) (flow.Graph, persist.Report)
}

// draftSaver keeps unsaved graphs between editor runs.
type draftSaver interface {
	Save(ctx context.Context, sess *session.Session) error
	Discard(ctx context.Context, factoryID string) error
}

// =============================================================================
// EditModel - terminal flow editor
// =============================================================================

// EditModel is the bubbletea model of `factoryflow edit`. It lists the
// visible nodes as an indented tree; every key maps to an editor action.
type EditModel struct {
	ctx    context.Context
	ed     *editor.Editor
	sync   editSyncer
	drafts draftSaver
	draft  *session.Session
	guard  *persist.Guard

	cursor  int
	offset  int
	height  int
	source  string // pending connect source
	notices []notice.Notice
	frame   int
	left    bool // set once the navigation guard let the editor close
}

type (
	sagaDoneMsg struct {
		refresh bool
		graph   flow.Graph
		report  persist.Report
		before  string // fingerprint of the graph that was saved
	}
	leaveMsg struct {
		allowed bool
		report  *persist.Report
	}
	spinTickMsg struct{}
)

// treeRow is one visible node and its depth below the factory.
type treeRow struct {
	node  flow.Node
	depth int
}

// NewEditModel creates the editor model. draft carries the factory id and
// name and receives the unsaved graph after every change.
func NewEditModel(ctx context.Context, ed *editor.Editor, sync editSyncer, drafts draftSaver, draft *session.Session) *EditModel {
	return &EditModel{
		ctx:    ctx,
		ed:     ed,
		sync:   sync,
		drafts: drafts,
		draft:  draft,
		guard:  &persist.Guard{},
		height: 15,
	}
}

// Left reports whether the editor closed through the navigation guard.
func (m *EditModel) Left() bool { return m.left }

func (m *EditModel) Init() tea.Cmd {
	return nil
}

func (m *EditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-12, 5)
	case spinTickMsg:
		if m.ed.State().Busy || m.guard.Saving() {
			m.frame++
			return m, spinTick()
		}
	case sagaDoneMsg:
		m.finishSaga(msg)
	case leaveMsg:
		if msg.allowed {
			m.left = true
			return m, tea.Quit
		}
		m.notices = []notice.Notice{notice.Infof(editor.SummaryBusy, "saving before leaving")}
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *EditModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.rows()
	current := ""
	if m.cursor < len(rows) {
		current = rows[m.cursor].node.ID
	}

	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Batch(spinTick(), m.leave())
	case "esc":
		m.source = ""
	case "up", "k":
		m.moveCursor(-1, len(rows))
	case "down", "j":
		m.moveCursor(1, len(rows))
	case " ":
		if current != "" {
			m.dispatch(editor.Select{Nodes: toggled(m.ed.State().Selection.Nodes, current)})
		}
	case "c":
		switch {
		case current == "":
		case m.source == "":
			m.source = current
		default:
			m.dispatch(editor.Connect{Source: m.source, Target: current})
			m.source = ""
		}
	case "enter", "x":
		if current != "" {
			m.dispatch(editor.ToggleExpand{ID: current})
		}
	case "h":
		m.dispatch(editor.Layout{Horizontal: !m.ed.State().Horizontal})
	case "s":
		if cmd := m.startSave(); cmd != nil {
			return m, tea.Batch(spinTick(), cmd)
		}
	case "r":
		if cmd := m.startRefresh(); cmd != nil {
			return m, tea.Batch(spinTick(), cmd)
		}
	case "ctrl+y":
		m.dispatch(editor.Redo{})
	default:
		if a, ok := editor.ActionForKey(key); ok {
			m.dispatch(a)
		}
	}
	m.moveCursor(0, len(m.rows()))
	return m, nil
}

func (m *EditModel) moveCursor(delta, n int) {
	m.cursor = min(max(m.cursor+delta, 0), max(n-1, 0))
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func toggled(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	found := false
	for _, x := range ids {
		if x == id {
			found = true
			continue
		}
		out = append(out, x)
	}
	if !found {
		out = append(out, id)
	}
	return out
}

// dispatch applies a and records the draft.
func (m *EditModel) dispatch(a editor.Action) {
	m.notices = m.ed.Dispatch(m.ctx, a)
	m.checkpoint()
}

// checkpoint writes a dirty graph to the draft store and drops the draft of
// a clean one.
func (m *EditModel) checkpoint() {
	st := m.ed.State()
	var err error
	if st.Dirty() {
		m.draft.SetDraft(st.Graph)
		m.draft.Persisted = st.Persisted
		err = m.drafts.Save(m.ctx, m.draft)
	} else {
		m.draft.Draft = nil
		err = m.drafts.Discard(m.ctx, m.draft.FactoryID)
	}
	if err != nil {
		m.notices = append(m.notices, notice.Warnf("Draft not stored", "%v", err))
	}
}

// beginBusy raises the busy flag, or reports that a save is running.
func (m *EditModel) beginBusy() bool {
	if m.ed.State().Busy || m.guard.Saving() {
		m.notices = []notice.Notice{notice.Infof(editor.SummaryBusy, "a save is running")}
		return false
	}
	m.ed.Dispatch(m.ctx, editor.SetBusy{Busy: true})
	return true
}

// startSave returns the command that saves the current graph.
func (m *EditModel) startSave() tea.Cmd {
	if !m.beginBusy() {
		return nil
	}
	st := m.ed.State()
	ctx, id := m.ctx, st.FactoryID
	return func() tea.Msg {
		return sagaDoneMsg{report: m.sync.SaveOrUpdate(ctx, id, st.Graph), before: st.Graph.Fingerprint()}
	}
}

// startRefresh returns the command that rebuilds the graph from the entity
// store.
func (m *EditModel) startRefresh() tea.Cmd {
	if !m.beginBusy() {
		return nil
	}
	ctx, id, name := m.ctx, m.draft.FactoryID, m.draft.FactoryName
	return func() tea.Msg {
		g, r := m.sync.Refresh(ctx, id, name)
		return sagaDoneMsg{refresh: true, graph: g, report: r}
	}
}

func (m *EditModel) finishSaga(msg sagaDoneMsg) {
	m.ed.Dispatch(m.ctx, editor.SetBusy{Busy: false})
	st := m.ed.State()
	switch {
	case !msg.report.OK():
	case msg.refresh:
		m.ed.Dispatch(m.ctx, editor.Load{FactoryID: st.FactoryID, Graph: msg.graph})
		m.cursor, m.offset = 0, 0
	case st.Graph.Fingerprint() == msg.before:
		m.ed.Dispatch(m.ctx, editor.MarkSaved{})
	}
	m.checkpoint()
	m.notices = msg.report.Notices
}

// leave returns the command that runs the navigation guard: a dirty graph
// is saved once before the editor closes, whatever the outcome.
func (m *EditModel) leave() tea.Cmd {
	st := m.ed.State()
	if st.Busy {
		m.notices = []notice.Notice{notice.Infof(editor.SummaryBusy, "a save is running")}
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		var report *persist.Report
		allowed := m.guard.BeforeLeave(ctx, st.Dirty(), func(ctx context.Context) error {
			r := m.sync.SaveOrUpdate(ctx, st.FactoryID, st.Graph)
			report = &r
			if r.OK() {
				m.ed.Dispatch(ctx, editor.MarkSaved{})
				return m.drafts.Discard(ctx, st.FactoryID)
			}
			return r.Err
		})
		return leaveMsg{allowed: allowed, report: report}
	}
}

func spinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg { return spinTickMsg{} })
}

// rows lists the visible nodes depth first from the roots, in graph order.
func (m *EditModel) rows() []treeRow {
	g := m.ed.State().Graph.Visible()
	children := make(map[string][]string, len(g.Nodes))
	hasParent := make(map[string]bool, len(g.Nodes))
	for _, e := range g.Edges {
		children[e.Source] = append(children[e.Source], e.Target)
		hasParent[e.Target] = true
	}

	rows := make([]treeRow, 0, len(g.Nodes))
	seen := make(map[string]bool, len(g.Nodes))
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if seen[id] {
			return
		}
		seen[id] = true
		n, ok := g.Node(id)
		if !ok {
			return
		}
		rows = append(rows, treeRow{node: n, depth: depth})
		for _, c := range children[id] {
			walk(c, depth+1)
		}
	}
	for _, n := range g.Nodes {
		if !hasParent[n.ID] {
			walk(n.ID, 0)
		}
	}
	for _, n := range g.Nodes {
		walk(n.ID, 0)
	}
	return rows
}

func (m *EditModel) View() string {
	if m.left {
		return ""
	}
	st := m.ed.State()
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("%s (%s)", m.draft.FactoryName, st.FactoryID)))
	if st.Dirty() {
		b.WriteString("  " + dirtyStyle.Render("● unsaved"))
	}
	if st.Busy || m.guard.Saving() {
		b.WriteString("  " + styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)]) + " " + StyleDim.Render("saving"))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(editHelp))
	b.WriteString("\n\n")

	rows := m.rows()
	end := min(m.offset+m.height, len(rows))
	data := make([][]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		data = append(data, m.rowCells(st, i, rows[i]))
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Node", "Kind", "Id").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.offset + row
			if idx >= len(rows) {
				return lipgloss.NewStyle()
			}
			style := kindStyles[rows[idx].node.Kind()]
			if col == 3 {
				style = listDimStyle
			}
			if idx == m.cursor {
				style = style.Bold(true).Underline(col == 1)
			}
			return style
		})
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d nodes · %d edges", len(st.Graph.Nodes), len(st.Graph.Edges))))
	if m.source != "" {
		b.WriteString("  " + StyleHighlight.Render("connect from "+m.source+" → pick a target, esc cancels"))
	}
	b.WriteString("\n")

	for _, n := range m.notices {
		b.WriteString(renderNotice(n))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *EditModel) rowCells(st editor.State, i int, r treeRow) []string {
	marker := "  "
	if i == m.cursor {
		marker = "▸ "
	}
	label := strings.Repeat("  ", r.depth) + r.node.Label()
	switch {
	case st.Collapsed[r.node.ID]:
		label += " [+]"
	case len(st.Graph.OutEdges(r.node.ID)) > 0:
		label += " [-]"
	}
	if st.Selected(r.node.ID) {
		label = "* " + label
	}
	if r.node.ID == m.source {
		label = "→ " + label
	}
	return []string{marker, label, string(r.node.Kind()), r.node.ID}
}

func renderNotice(n notice.Notice) string {
	switch n.Severity {
	case notice.Success:
		return styleIconSuccess.Render(iconSuccess) + " " + n.String()
	case notice.Warn:
		return styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(n.String())
	case notice.Error:
		return styleIconError.Render(iconError) + " " + n.String()
	default:
		return styleIconInfo.Render(iconInfo) + " " + n.String()
	}
}
