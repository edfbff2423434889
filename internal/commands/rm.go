package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasktracker/internal/exitcode"
	"tasktracker/internal/tasklist"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	byID bool
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "tasktracker rm [--id] <number|id>" }
func (c *RmCmd) NeedsStore() bool  { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.byID, "id", false, "")
}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args, c.byID)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	store := env.Store
	if !store.SignedIn() {
		return reportError(errOut, tasklist.ErrSignedOut)
	}

	// Ids go to the remote store as given; numbers refer to the current list.
	id := ref.ID
	if id == "" {
		if err := store.Refresh(ctx); err != nil {
			return reportError(errOut, err)
		}
		task, err := ref.Resolve(store.Tasks())
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		id = task.ID
	}

	if err := store.Delete(ctx, id); err != nil {
		return reportError(errOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
