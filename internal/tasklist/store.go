// Package tasklist keeps the session's view of the signed-in account's tasks
// in sync with the remote task store.
//
// The Store owns the task collection. Add and Delete reach the remote store
// first and change local state only after their own call succeeds; Refresh
// replaces the collection with what the remote store reports. Every change
// produces a new slice, so snapshots returned by Tasks are never mutated.
package tasklist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"tasktracker/internal/auth"
	"tasktracker/internal/logging"
	"tasktracker/internal/service"
)

var (
	// ErrSignedOut is returned by remote operations when no account is signed in.
	ErrSignedOut = errors.New("not signed in")

	// ErrMissingID is returned when the remote store creates a task without
	// reporting its identifier.
	ErrMissingID = errors.New("remote store returned no task id")

	// ErrDuplicateID is returned when the remote store reports an identifier
	// that is already in the local collection.
	ErrDuplicateID = errors.New("duplicate task id")
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug and warning output.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithErrorHandler sets a callback that receives every remote-call failure.
// Front-ends use it to show a non-fatal notification.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Store) {
		s.onError = fn
	}
}

// Store is the task list of the current session.
// All methods are safe for concurrent use.
type Store struct {
	svc     service.Service
	status  auth.Status
	log     *log.Logger
	onError func(error)

	// opMu serializes remote mutations and refreshes so overlapping calls
	// cannot interleave their local updates.
	opMu sync.Mutex

	mu          sync.RWMutex
	tasks       []service.Task
	loading     bool
	showAddForm bool
	observed    bool // whether lastSignIn holds an observation
	lastSignIn  bool
	version     uint64
}

// New creates a store over the remote store svc, gated by status.
func New(svc service.Service, status auth.Status, opts ...Option) *Store {
	s := &Store{
		svc:    svc,
		status: status,
		log:    logging.Discard(),
		tasks:  []service.Task{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tasks returns a snapshot of the collection in display order.
func (s *Store) Tasks() []service.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]service.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Task returns the task with the given id.
func (s *Store) Task(id string) (service.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

// Len returns the number of tasks in the collection.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Loading reports whether an add or delete call is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// ShowAddForm reports whether the add form is open.
func (s *Store) ShowAddForm() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showAddForm
}

// ToggleAddForm opens or closes the add form and returns the new state.
func (s *Store) ToggleAddForm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showAddForm = !s.showAddForm
	return s.showAddForm
}

// Version increases every time the collection changes.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SignedIn reports the current sign-in status.
func (s *Store) SignedIn() bool {
	return s.status != nil && s.status.IsSignedIn()
}

// AccountID returns the signed-in account, or "".
func (s *Store) AccountID() string {
	if !s.SignedIn() {
		return ""
	}
	return s.status.AccountID()
}

// SyncAuth refreshes the collection when the sign-in status differs from the
// last one observed, and does nothing otherwise. The first call always
// refreshes. Returns whether a refresh ran.
func (s *Store) SyncAuth(ctx context.Context) (bool, error) {
	signedIn := s.SignedIn()

	s.mu.Lock()
	changed := !s.observed || s.lastSignIn != signedIn
	s.observed = true
	s.lastSignIn = signedIn
	s.mu.Unlock()

	if !changed {
		return false, nil
	}
	s.log.Debug("sign-in status changed", "signed_in", signedIn)
	return true, s.Refresh(ctx)
}

// Refresh replaces the collection with the remote store's tasks for the
// signed-in account. When signed out the collection becomes empty and no
// remote call is made. On failure the collection is left unchanged.
// Refresh waits for an in-flight add or delete to finish, so a listing never
// overtakes the local update of a mutation it already reflects.
func (s *Store) Refresh(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if !s.SignedIn() {
		s.replace([]service.Task{})
		return nil
	}

	account := s.status.AccountID()
	s.log.Debug("fetching tasks", "account", account)

	remote, err := s.svc.ListTasks(ctx, account)
	if err != nil {
		return s.fail(fmt.Errorf("list tasks: %w", err))
	}

	tasks := make([]service.Task, 0, len(remote))
	seen := make(map[string]bool, len(remote))
	for _, t := range remote {
		if seen[t.ID] {
			s.log.Warn("remote store returned a duplicate task id", "id", t.ID)
			continue
		}
		seen[t.ID] = true
		tasks = append(tasks, t)
	}
	s.replace(tasks)
	return nil
}

// Add creates a task in the remote store and appends it, with the
// identifier the remote store assigned, once the call succeeds. The add form
// is closed when the call starts.
func (s *Store) Add(ctx context.Context, candidate service.NewTask) (service.Task, error) {
	if !s.SignedIn() {
		return service.Task{}, s.fail(ErrSignedOut)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.loading = true
	s.showAddForm = false
	s.mu.Unlock()

	s.log.Debug("creating task", "text", candidate.Text, "day", candidate.Day)
	id, err := s.svc.CreateTask(ctx, candidate)

	task, err := s.finishAdd(candidate, id, err)
	if err != nil {
		return service.Task{}, s.fail(err)
	}
	return task, nil
}

func (s *Store) finishAdd(candidate service.NewTask, id string, callErr error) (service.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if callErr != nil {
		return service.Task{}, fmt.Errorf("create task: %w", callErr)
	}
	if id == "" {
		return service.Task{}, ErrMissingID
	}
	for _, t := range s.tasks {
		if t.ID == id {
			return service.Task{}, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
	}

	task := candidate.WithID(id)
	next := make([]service.Task, len(s.tasks), len(s.tasks)+1)
	copy(next, s.tasks)
	s.tasks = append(next, task)
	s.version++
	return task, nil
}

// Delete removes a task from the remote store and, once the call succeeds,
// every task with that id from the collection. On failure the collection is
// left unchanged.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !s.SignedIn() {
		return s.fail(ErrSignedOut)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	s.log.Debug("deleting task", "id", id)
	err := s.svc.DeleteTask(ctx, id)

	s.mu.Lock()
	s.loading = false
	if err == nil {
		next := make([]service.Task, 0, len(s.tasks))
		for _, t := range s.tasks {
			if t.ID != id {
				next = append(next, t)
			}
		}
		s.tasks = next
		s.version++
	}
	s.mu.Unlock()

	if err != nil {
		return s.fail(fmt.Errorf("delete task %s: %w", id, err))
	}
	return nil
}

// ToggleReminder flips the reminder of the task with the given id. The
// change is local to this session. Returns whether a task matched.
func (s *Store) ToggleReminder(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	next := make([]service.Task, len(s.tasks))
	for i, t := range s.tasks {
		if t.ID == id {
			t.Reminder = !t.Reminder
			found = true
		}
		next[i] = t
	}
	if found {
		s.tasks = next
		s.version++
	}
	return found
}

// Count asks the remote store how many tasks the signed-in account has.
// Signed out, the count is zero and no remote call is made.
func (s *Store) Count(ctx context.Context) (int, error) {
	if !s.SignedIn() {
		return 0, nil
	}
	n, err := s.svc.CountTasks(ctx, s.status.AccountID())
	if err != nil {
		return 0, s.fail(fmt.Errorf("count tasks: %w", err))
	}
	return n, nil
}

func (s *Store) replace(tasks []service.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
	s.version++
}

// fail logs err and hands it to the error handler. It must be called
// without s.mu held.
func (s *Store) fail(err error) error {
	s.log.Debug("remote call failed", "err", err)
	if s.onError != nil {
		s.onError(err)
	}
	return err
}
