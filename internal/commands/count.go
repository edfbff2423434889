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
	Register(&CountCmd{})
}

// CountCmd implements the count command.
type CountCmd struct {
	number bool
}

func (c *CountCmd) Name() string      { return "count" }
func (c *CountCmd) Aliases() []string { return nil }
func (c *CountCmd) Synopsis() string  { return "Print the number of tasks" }
func (c *CountCmd) Usage() string     { return "tasktracker count [--number]" }
func (c *CountCmd) NeedsStore() bool  { return true }

func (c *CountCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.number, "number", false, "")
	fs.BoolVar(&c.number, "n", false, "")
}

func (c *CountCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	if !env.Store.SignedIn() && !env.Config.Quiet {
		fmt.Fprintln(errOut, signInHint)
	}

	n, err := env.Store.Count(ctx)
	if err != nil {
		return reportError(errOut, err)
	}

	if c.number {
		fmt.Fprintln(out, n)
	} else {
		fmt.Fprintln(out, output.CountLine(n))
	}
	return exitcode.Success
}
