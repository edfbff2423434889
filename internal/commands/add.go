package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasktracker/internal/exitcode"
	"tasktracker/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	day      string
	reminder bool
}

// SetFields sets the day and reminder (for testing).
func (c *AddCmd) SetFields(day string, reminder bool) {
	c.day = day
	c.reminder = reminder
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "tasktracker add [--day <day>] [--reminder] <text...>"
}
func (c *AddCmd) NeedsStore() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.day, "day", "", "")
	fs.StringVar(&c.day, "d", "", "")
	fs.BoolVar(&c.reminder, "reminder", false, "")
	fs.BoolVar(&c.reminder, "r", false, "")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		fmt.Fprintln(errOut, "error: text required")
		return exitcode.UserError
	}

	task, err := env.Store.Add(ctx, service.NewTask{
		Text:     text,
		Day:      strings.TrimSpace(c.day),
		Reminder: c.reminder,
	})
	if err != nil {
		return reportError(errOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintln(out, task.ID)
	}
	return exitcode.Success
}
