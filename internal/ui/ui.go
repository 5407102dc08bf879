package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"persona/internal/config"
	"persona/internal/roster"
	"persona/internal/seed"
	"persona/internal/task"
)

type tab int

const (
	tabTasks tab = iota
	tabCharacters
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeRename
	modeDue
	modeSearch
)

type confirmKind int

const (
	confirmClearAll confirmKind = iota
	confirmDeleteCharacter
)

type pendingConfirm struct {
	kind   confirmKind
	charID string
}

// seedMsg carries the result of the startup fetch back onto the update loop.
type seedMsg struct {
	tasks []task.Task
	err   error
}

type Deps struct {
	Tasks  *task.Manager
	Roster *roster.Roster
	// Seeder is nil when remote seeding is off.
	Seeder *seed.Client
	Logger *zap.Logger
	Now    func() time.Time
}

type Model struct {
	ctx    context.Context
	cfg    config.Config
	tasks  *task.Manager
	roster *roster.Roster
	seeder *seed.Client
	log    *zap.Logger
	now    func() time.Time

	tab     tab
	mode    mode
	input   textinput.Model
	status  string
	confirm *pendingConfirm

	query   task.Query
	listing task.Listing
	cursor  int
	editID  string

	charQuery  string
	charCursor int
	form       *charForm
}

// New builds the model and, when configured, drops the sample task into the collection.
func New(ctx context.Context, cfg config.Config, deps Deps) (Model, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	q, err := queryFromConfig(cfg)
	if err != nil {
		return Model{}, err
	}

	if cfg.Seed.SampleTask {
		if _, err := deps.Tasks.Import(ctx, []task.Task{seed.SampleTask(now())}); err != nil {
			log.Warn("sample task not saved", zap.Error(err))
		}
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		ctx:    ctx,
		cfg:    cfg,
		tasks:  deps.Tasks,
		roster: deps.Roster,
		seeder: deps.Seeder,
		log:    log,
		now:    now,
		input:  ti,
		mode:   modeList,
		query:  q,
		status: fmt.Sprintf("Press '%s' to add, '%s' for characters, '%s' to quit.", cfg.Keys.Add, cfg.Keys.Tab, cfg.Keys.Quit),
	}
	m.refresh()
	return m, nil
}

func Run(ctx context.Context, cfg config.Config, deps Deps) error {
	m, err := New(ctx, cfg, deps)
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	return err
}

func queryFromConfig(cfg config.Config) (task.Query, error) {
	q := task.DefaultQuery()
	var err error
	if cfg.DefaultFilter != "" {
		if q.Filter, err = task.ParseFilter(cfg.DefaultFilter); err != nil {
			return q, err
		}
	}
	if cfg.SortBy != "" {
		if q.SortBy, err = task.ParseSortKey(cfg.SortBy); err != nil {
			return q, err
		}
	}
	if cfg.SortOrder != "" {
		if q.Order, err = task.ParseOrder(cfg.SortOrder); err != nil {
			return q, err
		}
	}
	return q, nil
}

func (m Model) Init() tea.Cmd {
	if m.seeder == nil {
		return nil
	}
	s, ctx, limit := m.seeder, m.ctx, m.cfg.Seed.Limit
	return func() tea.Msg {
		tasks, err := s.Fetch(ctx, limit)
		return seedMsg{tasks: tasks, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.confirm != nil {
			return m.updateConfirm(msg.String())
		}
		if m.form != nil {
			return m.updateCharForm(msg.String(), msg)
		}
		if m.mode != modeList {
			return m.updateInputMode(msg.String(), msg)
		}
		return m.updateListMode(msg.String())
	case seedMsg:
		return m.applySeed(msg), nil
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) applySeed(msg seedMsg) Model {
	if msg.err != nil {
		m.log.Warn("seed fetch failed", zap.Error(msg.err))
		return m
	}
	n, err := m.tasks.Import(m.ctx, msg.tasks)
	if err != nil {
		m.log.Warn("seed tasks not saved", zap.Error(err))
	}
	m.log.Info("seed tasks merged", zap.Int("fetched", len(msg.tasks)), zap.Int("added", n))
	m.refresh()
	return m
}

func (m *Model) refresh() {
	m.listing = m.tasks.Render(m.query)
	m.cursor = clampCursor(m.cursor, len(m.listing.Tasks))
	m.charCursor = clampCursor(m.charCursor, len(m.characters()))
}

// characters is the characters tab in display order: heroes and allies, then villains.
func (m Model) characters() []roster.Character {
	g := m.roster.Groups(m.charQuery)
	return append(g.Heroes, g.Villains...)
}

func (m Model) selectedTask() (task.Task, bool) {
	if len(m.listing.Tasks) == 0 {
		return task.Task{}, false
	}
	return m.listing.Tasks[clampCursor(m.cursor, len(m.listing.Tasks))], true
}

func (m Model) selectedCharacter() (roster.Character, bool) {
	chars := m.characters()
	if len(chars) == 0 {
		return roster.Character{}, false
	}
	return chars[clampCursor(m.charCursor, len(chars))], true
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit
	case k.Tab:
		if m.tab == tabTasks {
			m.tab = tabCharacters
			m.status = "Characters"
		} else {
			m.tab = tabTasks
			m.status = "Tasks"
		}
		return m, nil
	case k.Down, "down":
		m.moveCursor(1)
		return m, nil
	case k.Up, "up":
		m.moveCursor(-1)
		return m, nil
	}
	if m.tab == tabCharacters {
		return m.updateCharacterList(key)
	}
	return m.updateTaskList(key)
}

func (m *Model) moveCursor(delta int) {
	if m.tab == tabCharacters {
		m.charCursor = clampCursor(m.charCursor+delta, len(m.characters()))
		return
	}
	m.cursor = clampCursor(m.cursor+delta, len(m.listing.Tasks))
}

func (m Model) updateTaskList(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case k.Add:
		return m.startInput(modeAdd, "", "Task title", "Add mode: type a title and press Enter"), nil
	case k.Search:
		return m.startInput(modeSearch, m.query.Search, "Search titles", "Search: type to filter, Enter to keep, Esc to clear"), nil
	case k.Toggle:
		t, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		m.report(m.tasks.ToggleDone(m.ctx, t.ID), "Toggled task")
	case k.Delete:
		t, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		m.report(m.tasks.RemoveTask(m.ctx, t.ID), fmt.Sprintf("Deleted %q", t.Title))
	case k.Edit:
		t, ok := m.selectedTask()
		if !ok {
			m.status = "No tasks to edit"
			return m, nil
		}
		m.editID = t.ID
		return m.startInput(modeRename, t.Title, "Task title", "Rename: Enter to save, Esc to cancel"), nil
	case k.Due:
		t, ok := m.selectedTask()
		if !ok {
			m.status = "No tasks to edit"
			return m, nil
		}
		m.editID = t.ID
		return m.startInput(modeDue, derefOr(t.Due, ""), "YYYY-MM-DD (empty clears)", "Due date: Enter to save, Esc to cancel"), nil
	case k.Filter:
		m.query.Filter = m.query.Filter.Next()
		m.status = "Filter: " + string(m.query.Filter)
	case k.Sort:
		m.query.SortBy = m.query.SortBy.Next()
		m.status = "Sort by " + string(m.query.SortBy)
	case k.Order:
		m.query.Order = m.query.Order.Flip()
		m.status = "Order " + string(m.query.Order)
	case k.Backend:
		target := task.KindMap
		if m.tasks.Active() == task.KindMap {
			target = task.KindArray
		}
		_, err := m.tasks.Switch(m.ctx, target)
		m.report(err, "Storage backend: "+string(target))
	case k.MarkAll:
		m.report(m.tasks.MarkAll(m.ctx), "Marked all tasks done")
	case k.ClearCompleted:
		m.report(m.tasks.RemoveCompleted(m.ctx), "Removed completed tasks")
	case k.ClearAll:
		if m.tasks.Backend().Len() == 0 {
			m.status = "No tasks"
			return m, nil
		}
		m.confirm = &pendingConfirm{kind: confirmClearAll}
		m.status = "Delete ALL tasks? y/n"
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m Model) updateCharacterList(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case k.Add:
		m.form = newCharForm()
		m.focusForm("New character: Tab to move, Enter to advance/save, Esc to cancel")
	case k.Edit:
		c, ok := m.selectedCharacter()
		if !ok {
			m.status = "No characters to edit"
			return m, nil
		}
		m.form = editCharForm(c)
		m.focusForm("Editing " + c.Name + ": Tab to move, Enter to advance/save, Esc to cancel")
	case k.Delete:
		c, ok := m.selectedCharacter()
		if !ok {
			return m, nil
		}
		m.confirm = &pendingConfirm{kind: confirmDeleteCharacter, charID: c.ID}
		m.status = fmt.Sprintf("Delete character %q? y/n", c.Name)
	case k.Search:
		return m.startInput(modeSearch, m.charQuery, "Search name or alias", "Search: type to filter, Enter to keep, Esc to clear"), nil
	}
	return m, nil
}

func (m Model) startInput(md mode, value, placeholder, status string) Model {
	m.mode = md
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Placeholder = placeholder
	m.input.Focus()
	m.status = status
	return m
}

func (m *Model) endInput() {
	m.mode = modeList
	m.editID = ""
	m.input.SetValue("")
	m.input.Blur()
}

func (m Model) updateInputMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		if m.mode == modeSearch {
			m.setSearch("")
		}
		m.endInput()
		m.status = "Cancelled"
		m.refresh()
		return m, nil
	case m.cfg.Keys.Confirm:
		return m.submitInput(), nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeSearch {
		m.setSearch(m.input.Value())
		m.refresh()
	}
	return m, cmd
}

func (m *Model) setSearch(v string) {
	if m.tab == tabCharacters {
		m.charQuery = v
		return
	}
	m.query.Search = v
}

func (m Model) submitInput() Model {
	value := m.input.Value()
	switch m.mode {
	case modeAdd:
		t, err := m.tasks.Add(m.ctx, value)
		if errors.Is(err, task.ErrEmptyTitle) {
			m.status = "Title cannot be empty"
			return m
		}
		if err != nil {
			m.status = fmt.Sprintf("save failed: %v", err)
		} else {
			m.status = "Added task"
			m.refresh()
			m.cursor = indexOfTask(m.listing.Tasks, t.ID, m.cursor)
		}
	case modeRename:
		err := m.tasks.Rename(m.ctx, m.editID, value)
		if errors.Is(err, task.ErrEmptyTitle) {
			m.status = "Title cannot be empty; rename ignored"
		} else {
			m.report(err, "Renamed task")
		}
	case modeDue:
		err := m.tasks.SetDue(m.ctx, m.editID, value)
		if errors.Is(err, task.ErrInvalidDue) {
			m.status = "Due date must be YYYY-MM-DD"
			return m
		}
		m.report(err, "Due date saved")
	case modeSearch:
		m.setSearch(value)
		m.status = "Search: " + emptyPlaceholder(value)
	}
	m.endInput()
	m.refresh()
	return m
}

func (m *Model) focusForm(status string) {
	m.input.SetValue(m.form.currentValue())
	m.input.CursorEnd()
	m.input.Placeholder = m.form.currentLabel()
	m.input.Focus()
	m.status = status
}

func (m Model) updateCharForm(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(formFields())
	switch key {
	case m.cfg.Keys.Cancel:
		m.form = nil
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Edit cancelled"
		return m, nil
	case "tab", "down":
		m.form.setCurrentValue(m.input.Value())
		m.form.index = wrapIndex(m.form.index+1, n)
		m.focusForm(m.formPrompt())
		return m, nil
	case "shift+tab", "up":
		m.form.setCurrentValue(m.input.Value())
		m.form.index = wrapIndex(m.form.index-1, n)
		m.focusForm(m.formPrompt())
		return m, nil
	case m.cfg.Keys.Confirm:
		m.form.setCurrentValue(m.input.Value())
		if m.form.index >= n-1 {
			return m.saveCharForm(), nil
		}
		m.form.index++
		m.focusForm(m.formPrompt())
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) formPrompt() string {
	return fmt.Sprintf("Editing %s (field %d of %d). Enter to advance, Esc to cancel.",
		m.form.currentLabel(), m.form.index+1, len(formFields()))
}

func (m Model) saveCharForm() Model {
	d, err := m.form.draft()
	if err == nil {
		if m.form.editID == "" {
			_, err = m.roster.Add(m.ctx, d)
		} else {
			_, err = m.roster.Update(m.ctx, m.form.editID, d)
		}
	}
	switch {
	case errors.Is(err, roster.ErrNameRequired):
		m.form.index = 0
		m.focusForm("Name is required")
		return m
	case errors.Is(err, roster.ErrInvalidRole):
		m.status = "Role must be Hero, Villain or Ally"
		return m
	case err != nil:
		m.status = fmt.Sprintf("save failed: %v", err)
		return m
	}
	if m.form.editID == "" {
		m.status = "Added character"
	} else {
		m.status = "Character saved"
	}
	m.form = nil
	m.input.SetValue("")
	m.input.Blur()
	m.refresh()
	return m
}

func (m Model) updateConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.confirm = nil
		m.status = "Cancelled"
		return m, nil
	case "y", "Y":
		p := m.confirm
		m.confirm = nil
		switch p.kind {
		case confirmClearAll:
			m.report(m.tasks.ClearAll(m.ctx), "Deleted all tasks")
		case confirmDeleteCharacter:
			m.report(m.roster.Delete(m.ctx, p.charID), "Deleted character")
		}
		m.refresh()
		return m, nil
	default:
		return m, nil
	}
}

// report sets the status line to ok, or to the error if the operation failed.
func (m *Model) report(err error, ok string) {
	if err != nil {
		m.log.Error("operation failed", zap.Error(err))
		m.status = fmt.Sprintf("failed: %v", err)
		return
	}
	m.status = ok
}

func indexOfTask(ts []task.Task, id string, fallback int) int {
	for i, t := range ts {
		if t.ID == id {
			return i
		}
	}
	return clampCursor(fallback, len(ts))
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
