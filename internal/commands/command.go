// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"tasktracker/internal/auth"
	"tasktracker/internal/config"
	"tasktracker/internal/logging"
	"tasktracker/internal/tasklist"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsStore returns true if the command works on the task list.
	// Commands like help, version, login, logout return false.
	NeedsStore() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// env.Config is always provided; env.Store is nil unless NeedsStore
	// returns true.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// TerminalOwner is implemented by commands that take over the terminal
// while they run. Their log output is kept off stderr.
type TerminalOwner interface {
	OwnsTerminal() bool
}

// KeyringOpener opens the credential store for a configuration.
type KeyringOpener func(cfg *config.Config) (*auth.Keyring, error)

// Env is what the dispatcher hands to a command.
type Env struct {
	Config *config.Config
	Log    *log.Logger

	// Store is the session's task list, set for commands that need it.
	Store *tasklist.Store

	openKeyring KeyringOpener
	keyringOnce sync.Once
	keyring     *auth.Keyring
	keyringErr  error
}

// NewEnv returns an Env. The keyring is opened on first use with open.
func NewEnv(cfg *config.Config, logger *log.Logger, open KeyringOpener) *Env {
	if logger == nil {
		logger = logging.Discard()
	}
	if open == nil {
		open = auth.Open
	}
	return &Env{Config: cfg, Log: logger, openKeyring: open}
}

// Keyring returns the credential store, opening it on first call.
func (e *Env) Keyring() (*auth.Keyring, error) {
	e.keyringOnce.Do(func() {
		e.keyring, e.keyringErr = e.openKeyring(e.Config)
	})
	return e.keyring, e.keyringErr
}
