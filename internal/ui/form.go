package ui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"tasktracker/internal/service"
)

// submitMsg carries the task entered in the add form.
type submitMsg struct {
	task service.NewTask
}

// cancelFormMsg is sent when the add form is aborted.
type cancelFormMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	text     string
	day      string
	reminder bool
}

// addForm is the "Add Task" form.
type addForm struct {
	form  *huh.Form
	fb    *formBindings
	width int
}

func newAddForm(width int) *addForm {
	f := &addForm{fb: &formBindings{}, width: width}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Task").
				Placeholder("Add Task").
				Value(&f.fb.text).
				Validate(validateText),
			huh.NewInput().
				Title("Day & Time").
				Placeholder("Add Day & Time").
				Value(&f.fb.day),
			huh.NewConfirm().
				Title("Set Reminder").
				Value(&f.fb.reminder),
		),
	).WithWidth(formWidth(width)).WithShowHelp(false)
	return f
}

func (f *addForm) Init() tea.Cmd {
	return f.form.Init()
}

// Update forwards msg to the form and reports submission or cancellation.
func (f *addForm) Update(msg tea.Msg) tea.Cmd {
	mdl, cmd := f.form.Update(msg)
	if hf, ok := mdl.(*huh.Form); ok {
		f.form = hf
	}

	switch f.form.State {
	case huh.StateCompleted:
		task := service.NewTask{
			Text:     strings.TrimSpace(f.fb.text),
			Day:      strings.TrimSpace(f.fb.day),
			Reminder: f.fb.reminder,
		}
		return func() tea.Msg { return submitMsg{task: task} }
	case huh.StateAborted:
		return func() tea.Msg { return cancelFormMsg{} }
	}
	return cmd
}

func (f *addForm) View() string {
	return f.form.View()
}

func validateText(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("please add a task")
	}
	return nil
}

func formWidth(w int) int {
	w -= 4
	if w < 30 {
		w = 30
	}
	if w > 80 {
		w = 80
	}
	return w
}
