// Package ui is the interactive terminal front-end of the task list.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasktracker/internal/output"
	"tasktracker/internal/service"
	"tasktracker/internal/tasklist"
)

// Title is shown in the header.
const Title = "Task Tracker"

// syncedMsg reports a finished SyncAuth or Refresh.
type syncedMsg struct{ err error }

type addedMsg struct {
	task service.Task
	err  error
}

type deletedMsg struct {
	id  string
	err error
}

type countMsg struct {
	n   int
	err error
}

// Model is the Bubble Tea model of the task list screen.
type Model struct {
	ctx     context.Context
	store   *tasklist.Store
	counter *tasklist.Counter
	keys    keyMap
	help    help.Model
	spinner spinner.Model
	form    *addForm

	cursor int
	count  int
	err    error
	width  int
}

// New returns the task list screen over store.
func New(ctx context.Context, store *tasklist.Store) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorBlue)

	return Model{
		ctx:     ctx,
		store:   store,
		counter: tasklist.NewCounter(store),
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		width:   80,
	}
}

// Init syncs with the sign-in status and starts the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.syncCmd())
}

// Update handles messages for the task list screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case syncedMsg:
		m.err = msg.err
		m.clampCursor()
		return m, m.countCmd()

	case addedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.cursor = m.store.Len() - 1
		}
		return m, m.countCmd()

	case deletedMsg:
		m.err = msg.err
		m.clampCursor()
		return m, m.countCmd()

	case countMsg:
		m.count = msg.n
		if msg.err != nil {
			m.err = msg.err
		}
		return m, nil

	case submitMsg:
		m.form = nil
		return m, m.addCmd(msg.task)

	case cancelFormMsg:
		m.form = nil
		if m.store.ShowAddForm() {
			m.store.ToggleAddForm()
		}
		return m, nil
	}

	if m.form != nil {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, m.form.Update(msg)
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(k)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.store.Len()-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Add):
		if !m.store.SignedIn() {
			m.err = tasklist.ErrSignedOut
			return m, nil
		}
		if m.store.Loading() {
			return m, nil
		}
		if m.store.ToggleAddForm() {
			m.form = newAddForm(m.width)
			return m, m.form.Init()
		}
		m.form = nil

	case key.Matches(msg, m.keys.Delete):
		if task, ok := m.selected(); ok && !m.store.Loading() {
			return m, m.deleteCmd(task.ID)
		}

	case key.Matches(msg, m.keys.Toggle):
		if task, ok := m.selected(); ok {
			m.store.ToggleReminder(task.ID)
		}

	case key.Matches(msg, m.keys.Refresh):
		if m.store.Loading() {
			return m, nil
		}
		m.err = nil
		m.counter.Invalidate()
		return m, m.refreshCmd()
	}
	return m, nil
}

func (m Model) selected() (service.Task, bool) {
	tasks := m.store.Tasks()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return service.Task{}, false
	}
	return tasks[m.cursor], true
}

func (m *Model) clampCursor() {
	if n := m.store.Len(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) syncCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.store.SyncAuth(m.ctx)
		return syncedMsg{err: err}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return syncedMsg{err: m.store.Refresh(m.ctx)}
	}
}

func (m Model) addCmd(task service.NewTask) tea.Cmd {
	return func() tea.Msg {
		created, err := m.store.Add(m.ctx, task)
		return addedMsg{task: created, err: err}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{id: id, err: m.store.Delete(m.ctx, id)}
	}
}

func (m Model) countCmd() tea.Cmd {
	return func() tea.Msg {
		n, err := m.counter.Get(m.ctx)
		return countMsg{n: n, err: err}
	}
}

// View renders the task list screen.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(countStyle.Render(output.CountLine(m.count)))
	b.WriteString("\n\n")

	if m.store.Loading() {
		b.WriteString(m.spinner.View() + " Loading...\n\n")
	}
	if m.form != nil {
		b.WriteString(m.form.View())
		b.WriteString("\n\n")
	}

	tasks := m.store.Tasks()
	if len(tasks) == 0 {
		b.WriteString(output.EmptyList + "\n")
	}
	for i, t := range tasks {
		b.WriteString(m.taskView(t, i == m.cursor))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(errorText(m.err)))
		b.WriteString("\n")
	}
	b.WriteString(m.help.ShortHelpView(m.keys.help()))
	return b.String()
}

func (m Model) headerView() string {
	title := titleStyle.Render(Title)
	var button string
	switch {
	case !m.store.SignedIn():
		button = helpStyle.Render("run: tasktracker login")
	case m.store.ShowAddForm():
		button = closeButtonStyle.Render("Close")
	default:
		button = addButtonStyle.Render("Add")
	}
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(button)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + button
}

func (m Model) taskView(t service.Task, selected bool) string {
	text := t.Text
	if selected {
		text = selectedStyle.Render(text)
	}
	line := text
	if t.Day != "" {
		line += "\n" + dayStyle.Render(t.Day)
	}
	if t.Reminder {
		return reminderStyle.Render(line)
	}
	return taskStyle.Render(line)
}

func errorText(err error) string {
	if errors.Is(err, tasklist.ErrSignedOut) {
		return "Not signed in (run: tasktracker login)"
	}
	return fmt.Sprintf("Error: %v", err)
}

// Run starts the interactive program and blocks until the user quits.
func Run(ctx context.Context, store *tasklist.Store, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(New(ctx, store), opts...).Run()
	return err
}
