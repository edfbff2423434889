package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasktracker/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasktracker help" }
func (c *HelpCmd) NeedsStore() bool  { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasktracker                                       List tasks
  tasktracker list [common flags] [--count]
  tasktracker add [common flags] [--day <day>] [--reminder] <text...>
  tasktracker rm [common flags] [--id] <number|id>
  tasktracker count [common flags] [--number]
  tasktracker ui [common flags]                     Interactive task list
  tasktracker login [common flags] [backend flags]
  tasktracker logout [common flags]
  tasktracker help
  tasktracker version

Login flags:
  near:    --account <id> [--network <name>] [--key-file <path>]
  google:  [--list <task-list-id>]
  local:   --account <name>

Common flags:
  --config <dir>      Override config directory
  --backend <name>    Task store: near, google or local
  --quiet             Suppress informational output
  --debug             Print debug logs to stderr
`
