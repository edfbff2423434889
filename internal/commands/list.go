package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasktracker/internal/exitcode"
	"tasktracker/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `tasktracker` (no args) and `tasktracker list`.
type ListCmd struct {
	withCount bool
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "tasktracker list [--count]" }
func (c *ListCmd) NeedsStore() bool  { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.withCount, "count", false, "")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	store := env.Store
	if !store.SignedIn() && !env.Config.Quiet {
		fmt.Fprintln(errOut, signInHint)
	}

	if err := store.Refresh(ctx); err != nil {
		return reportError(errOut, err)
	}

	tasks := store.Tasks()
	if c.withCount {
		fmt.Fprintln(out, output.CountLine(len(tasks)))
	}
	if len(tasks) == 0 && env.Config.Quiet {
		return exitcode.Success
	}
	output.FormatTasks(out, tasks)
	return exitcode.Success
}
