// Package cli parses the command line and runs commands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"tasktracker/internal/auth"
	"tasktracker/internal/commands"
	"tasktracker/internal/config"
	"tasktracker/internal/exitcode"
	"tasktracker/internal/logging"
	"tasktracker/internal/service"
	"tasktracker/internal/tasklist"
)

// ServiceFactory creates the remote task store for a session.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config, sess *auth.Session, logger *log.Logger) (service.Service, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
	keyring  commands.KeyringOpener
}

// NewDispatcher creates a new dispatcher with the given registry, service
// factory and keyring opener. A nil opener uses the system keyring.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory, keyring commands.KeyringOpener) *Dispatcher {
	if keyring == nil {
		keyring = auth.Open
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
		keyring:  keyring,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		if s := d.registry.Suggest(cmdName); s != "" {
			fmt.Fprintf(errOut, "did you mean: %s\n", s)
		}
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configDir string
	backend   string
	quiet     bool
	debug     bool
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	var common commonFlags
	fs.StringVar(&common.configDir, "config", "", "")
	fs.StringVar(&common.backend, "backend", "", "")
	fs.BoolVar(&common.quiet, "quiet", false, "")
	fs.BoolVar(&common.debug, "debug", false, "")

	// Register command-specific flags
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return reportFlagError(errOut, err)
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.Load(common.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = common.quiet
	cfg.Debug = common.debug
	if common.backend != "" {
		cfg.Backend = common.backend
	}

	logger, closeLog, err := commandLogger(cmd, cfg, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	defer closeLog()

	env := commands.NewEnv(cfg, logger, d.keyring)
	logger.Debug("dispatching", "command", cmd.Name(), "backend", cfg.BackendName(), "config", cfg.Dir)

	if cmd.NeedsStore() {
		store, closeStore, code := d.openStore(ctx, env, errOut)
		if code != exitcode.Success {
			return code
		}
		defer closeStore()
		env.Store = store
	}

	return cmd.Run(ctx, env, positionalArgs, out, errOut)
}

// commandLogger returns the logger for cmd. Commands that own the terminal
// log to the config directory's log file with --debug and nowhere otherwise.
func commandLogger(cmd commands.Command, cfg *config.Config, errOut io.Writer) (*log.Logger, func(), error) {
	opts := logging.Options{Level: cfg.Log.Level, Debug: cfg.Debug}

	owner, ok := cmd.(commands.TerminalOwner)
	if !ok || !owner.OwnsTerminal() {
		return logging.New(errOut, opts), func() {}, nil
	}
	if !cfg.Debug {
		return logging.Discard(), func() {}, nil
	}

	if err := cfg.EnsureDir(); err != nil {
		return nil, nil, fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	opts.ReportTimestamp = true
	return logging.New(f, opts), func() { f.Close() }, nil
}

// openStore loads the session and builds the task list store over the
// configured backend.
func (d *Dispatcher) openStore(ctx context.Context, env *commands.Env, errOut io.Writer) (*tasklist.Store, func(), int) {
	cfg := env.Config

	k, err := env.Keyring()
	if err != nil {
		fmt.Fprintf(errOut, "error: auth error: %s\n", err)
		return nil, nil, exitcode.AuthError
	}
	sess, err := auth.LoadSession(k, cfg.BackendName())
	if err != nil {
		fmt.Fprintf(errOut, "error: auth error: %s\n", err)
		return nil, nil, exitcode.AuthError
	}
	env.Log.Debug("session loaded", "signed_in", sess.IsSignedIn(), "account", sess.AccountID())

	if d.factory == nil {
		fmt.Fprintln(errOut, "error: no backend configured")
		return nil, nil, exitcode.BackendError
	}
	svc, err := d.factory(ctx, cfg, sess, env.Log)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			fmt.Fprintf(errOut, "error: auth error: %s\n", err)
			return nil, nil, exitcode.AuthError
		}
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return nil, nil, exitcode.BackendError
	}

	closeStore := func() {}
	if c, ok := svc.(io.Closer); ok {
		closeStore = func() {
			if err := c.Close(); err != nil {
				env.Log.Warn("closing backend", "err", err)
			}
		}
	}

	store := tasklist.New(svc, sess,
		tasklist.WithLogger(env.Log),
		tasklist.WithErrorHandler(func(err error) {
			env.Log.Debug("task store error", "err", err)
		}),
	)
	return store, closeStore, exitcode.Success
}

// reportFlagError prints a flag parsing error in the CLI's own wording.
func reportFlagError(errOut io.Writer, err error) int {
	errStr := err.Error()

	// Check for missing flag value
	if strings.Contains(errStr, "needs a value") || strings.Contains(errStr, "flag needs an argument") {
		// Extract flag name
		parts := strings.Split(errStr, ":")
		if len(parts) > 1 {
			flagPart := strings.TrimSpace(parts[len(parts)-1])
			fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagPart)
			return exitcode.UserError
		}
	}

	// Check for unknown flag
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
		return exitcode.UserError
	}

	fmt.Fprintf(errOut, "error: %s\n", errStr)
	return exitcode.UserError
}
