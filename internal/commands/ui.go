package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasktracker/internal/exitcode"
	"tasktracker/internal/ui"
)

func init() {
	Register(&UICmd{})
}

// UICmd implements the ui command.
type UICmd struct{}

func (c *UICmd) Name() string       { return "ui" }
func (c *UICmd) Aliases() []string  { return []string{"tui"} }
func (c *UICmd) Synopsis() string   { return "Interactive task list" }
func (c *UICmd) Usage() string      { return "tasktracker ui [common flags]" }
func (c *UICmd) NeedsStore() bool   { return true }
func (c *UICmd) OwnsTerminal() bool { return true }

func (c *UICmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UICmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if err := ui.Run(ctx, env.Store); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
