package ui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"crmgrip/internal/config"
	"crmgrip/internal/domain"
	"crmgrip/internal/logic"
	"crmgrip/internal/ui/coordinator"
	"crmgrip/internal/ui/services/actionbar"
	"crmgrip/internal/ui/services/navigation"
	"crmgrip/internal/ui/services/query"
	"crmgrip/internal/ui/services/search"
	"crmgrip/internal/ui/services/selection"
	"crmgrip/internal/ui/services/sorting"
	"crmgrip/internal/ui/views"
)

// renderSubscriberID is the list view's render subscription
const renderSubscriberID = "ui:list"

// statusTTL is how long a status message stays on screen
const statusTTL = 3 * time.Second

// Model represents the UI state
type Model struct {
	core    *coordinator.Core
	config  *config.Config
	records logic.RecordStore
	log     *slog.Logger

	width  int
	height int
	help   help.Model
	keys   KeyMap

	scopes []string
	rows   []*domain.Record // filtered and sorted rows of the active scope
	header *selection.CheckboxState
	bar    *actionbar.Node
	pass   uint64

	filtering     bool
	filterInput   textinput.Model
	confirmDelete bool
	statusMessage string
	statusIsError bool
	inPagerMode   bool

	navigator *navigation.Service
	filter    *search.Service
	sorter    *sorting.Service
	rowsQuery *query.Service
	renderer  *views.Renderer
	helpOps   *HelpOps

	// Program reference for terminal management
	program *tea.Program
}

// NewModel creates a new UI model over core. Rows come from records.
func NewModel(core *coordinator.Core, records logic.RecordStore, cfg *config.Config) *Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "name, stage:funded, company:acme"
	ti.CharLimit = 64

	m := &Model{
		core:        core,
		config:      cfg,
		records:     records,
		log:         slog.Default().With("component", "ui"),
		help:        help.New(),
		keys:        DefaultKeyMap(),
		scopes:      cfg.UI.Scopes,
		header:      &selection.CheckboxState{},
		bar:         actionbar.NewNode(),
		filterInput: ti,
		navigator:   navigation.NewService(),
		filter:      search.NewService(),
		sorter:      sorting.NewService(),
		rowsQuery:   query.NewService(records),
		renderer:    views.NewRenderer(),
		helpOps:     NewHelpOps(nil),
	}
	if len(m.scopes) == 0 {
		m.scopes = domain.DefaultScopes
	}

	m.core.AttachActionBar(m.bar)
	m.core.Navigate(m.scopes[0])
	m.core.SubscribeRender(renderSubscriberID, m.renderSubscriber)

	m.filter.OnChange(func(ev search.FilterChangedEvent) {
		m.log.Debug("filter changed", "query", ev.Query)
		m.navigator.MoveToIndex(0)
	})
	m.sorter.OnChange(func(ev sorting.SortModeChangedEvent) {
		m.log.Debug("sort mode changed", "from", ev.OldMode, "to", ev.NewMode)
	})

	m.refreshRows()
	return m
}

// SetProgram sets the program reference for terminal management
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
	m.helpOps.SetProgram(p)
}

// Close drops the model's render subscription
func (m *Model) Close() {
	m.core.UnsubscribeRender(renderSubscriberID)
}

// renderSubscriber runs inside a guarded pass. It only hands a message to
// the program; the redraw happens on the program's own loop.
func (m *Model) renderSubscriber(ctx context.Context) error {
	if m.program == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		m.program.Send(renderPassMsg{})
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Init returns an initial command
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.navigator.SetViewportHeight(msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case renderPassMsg:
		// Rows may have changed under us
		m.refreshRows()
		return m, nil

	case EventMsg:
		if ev, ok := msg.Event.(domain.RenderCompletedEvent); ok {
			m.pass = ev.Pass
		}
		return m, nil

	case toastMsg:
		return m, m.setStatus(msg.text, false)

	case clearStatusMsg:
		m.statusMessage = ""
		m.statusIsError = false
		return m, nil

	case helpPagerMsg:
		if msg.err != nil {
			m.log.Warn("help pager failed", "error", msg.err)
			return m, m.setStatus(fmt.Sprintf("Help unavailable: %v", msg.err), true)
		}
		return m, nil

	case pauseRenderingMsg:
		m.inPagerMode = true
		return m, nil

	case resumeRenderingMsg:
		m.inPagerMode = false
		return m, nil
	}

	if m.filtering {
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmDelete {
		return m.handleConfirmKey(msg)
	}
	if m.filtering {
		return m.handleFilterKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.navigator.Navigate(navigation.DirectionUp)
	case key.Matches(msg, m.keys.Down):
		m.navigator.Navigate(navigation.DirectionDown)
	case key.Matches(msg, m.keys.PageUp):
		m.navigator.Navigate(navigation.DirectionPageUp)
	case key.Matches(msg, m.keys.PageDown):
		m.navigator.Navigate(navigation.DirectionPageDown)
	case key.Matches(msg, m.keys.Home):
		m.navigator.Navigate(navigation.DirectionHome)
	case key.Matches(msg, m.keys.End):
		m.navigator.Navigate(navigation.DirectionEnd)
	case key.Matches(msg, m.keys.Toggle):
		m.toggleCurrent()
	case key.Matches(msg, m.keys.SelectAll):
		m.selectAll()
	case key.Matches(msg, m.keys.Clear):
		if m.filter.GetQuery() != "" {
			m.filter.ClearSearch()
			m.refreshRows()
		} else {
			m.core.Selection.Clear(m.core.Scope())
			m.syncHeader()
		}
	case key.Matches(msg, m.keys.NextScope):
		m.switchScope(1)
	case key.Matches(msg, m.keys.PrevScope):
		m.switchScope(-1)
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filterInput.SetValue(m.filter.GetQuery())
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()
	case key.Matches(msg, m.keys.Sort):
		m.sorter.NextMode()
		m.refreshRows()
		return m, m.setStatus("Sorted by "+m.sorter.GetCurrentMode().String(), false)
	case key.Matches(msg, m.keys.Delete):
		if !m.bar.ActionEnabled(actionbar.ActionDelete) {
			return m, m.setStatus("Nothing to delete", true)
		}
		m.confirmDelete = true
	case key.Matches(msg, m.keys.Help):
		helpContent := NewHelpRenderer().RenderHelpContentPlain()
		return m, m.fetchHelpPager(helpContent)
	}
	return m, nil
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filterInput.Blur()
		m.filter.SetQuery(m.filterInput.Value())
		m.refreshRows()
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.confirmDelete = false
	switch msg.String() {
	case "y", "Y", "enter":
		return m, m.deleteSelected()
	}
	return m, nil
}

// toggleCurrent flips the row under the cursor. Disabled rows cannot be picked.
func (m *Model) toggleCurrent() {
	row := m.rowsQuery.RowAt(m.rows, m.navigator.Cursor())
	if row == nil || row.Record.Disabled {
		return
	}
	m.core.Selection.Toggle(row.Record.ID, m.core.Scope())
	m.syncHeader()
}

// selectAll acts like a click on the header checkbox
func (m *Model) selectAll() {
	out := m.core.ApplySelectAll(m.header, m.core.Scope(), m.entries())
	m.log.Debug("select all", "scope", m.core.Scope(), "action", out.Action, "targets", out.Targets, "count", out.Count)
	m.syncHeader()
}

func (m *Model) switchScope(delta int) {
	if len(m.scopes) == 0 {
		return
	}
	idx := 0
	for i, s := range m.scopes {
		if s == m.core.Scope() {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(m.scopes)) % len(m.scopes)
	m.core.Navigate(m.scopes[idx])
	m.filter.ClearSearch()
	m.navigator.MoveToIndex(0)
	m.refreshRows()
}

// deleteSelected soft-deletes the selection of the active scope and signals
// the mutation. The redraw arrives through the render pass.
func (m *Model) deleteSelected() tea.Cmd {
	scope := m.core.Scope()
	ids := m.core.Selection.Get(scope).Sorted()
	removed := m.records.SoftDelete(scope, ids...)
	m.core.Selection.Prune(scope, removed...)
	m.log.Info("soft-deleted records", "scope", scope, "count", len(removed))

	m.core.EmitDataChanged(domain.DataChanged{
		Scope:  scope,
		Source: domain.SourceActionBarDelete,
		Action: domain.ActionSoftDelete,
		Count:  len(removed),
	})
	return nil
}

// refreshRows rebuilds the visible rows of the active scope
func (m *Model) refreshRows() {
	q := m.filter.GetQuery()
	rows := m.rowsQuery.Visible(m.core.Scope(), func(r *domain.Record) bool {
		return search.MatchesFilter(r, q)
	})
	m.rows = m.sorter.SortRecords(rows)
	m.navigator.SetRows(len(m.rows))
	m.syncHeader()
}

// entries describes every row of the scope to the select-all policy. Rows
// hidden by the filter are passed as not visible.
func (m *Model) entries() []selection.VisibleRowEntry {
	return m.rowsQuery.Entries(m.core.Scope(), m.rows)
}

func (m *Model) syncHeader() selection.TriState {
	return selection.SyncHeader(m.header, m.core.Selection, m.core.Scope(), m.entries())
}

func (m *Model) setStatus(text string, isError bool) tea.Cmd {
	m.statusMessage = text
	m.statusIsError = isError
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

// fetchHelpPager returns a command that shows help using ov pager
func (m *Model) fetchHelpPager(helpContent string) tea.Cmd {
	return func() tea.Msg {
		if m.program == nil {
			return helpPagerMsg{err: fmt.Errorf("program not set")}
		}
		m.program.Send(pauseRenderingMsg{})
		err := m.helpOps.ShowHelpInPager(helpContent)
		m.program.Send(resumeRenderingMsg{})
		return helpPagerMsg{err: err}
	}
}

// View renders the model
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.inPagerMode {
		return ""
	}

	scope := m.core.Scope()
	start, end := m.navigator.Window()
	state := views.ViewState{
		Width:         m.width,
		Height:        m.height,
		Scopes:        m.scopes,
		ActiveScope:   scope,
		Rows:          m.rows,
		Selected:      m.core.Selection.Get(scope),
		Cursor:        m.navigator.Cursor(),
		WindowStart:   start,
		WindowEnd:     end,
		Header:        selection.HeaderState(m.core.Selection, scope, m.entries()),
		Bar:           m.core.Projection(scope),
		BarVisible:    m.bar.Visible(),
		FilterQuery:   m.filter.GetQuery(),
		SortMode:      m.sorter.GetCurrentMode().String(),
		StatusMessage: m.statusMessage,
		StatusIsError: m.statusIsError,
		Pass:          m.pass,
		HelpModel:     m.help,
		KeyMap:        m.keys,
	}
	if m.filtering {
		state.FilterInput = m.filterInput.View()
	}
	if m.confirmDelete {
		state.ConfirmDelete = m.core.Selection.Count(scope)
	}
	return m.renderer.Render(state)
}
