// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"tasktracker/internal/service"
)

// FakeService is an in-memory implementation of service.Service for testing.
// Tasks are kept per account; mutations act on Signer's tasks, the way a
// contract acts on the transaction signer.
type FakeService struct {
	mu     sync.RWMutex
	tasks  map[string][]service.Task // accountID -> tasks
	nextID int

	// Signer is the account create and delete act on.
	Signer string

	// ReturnID overrides the identifier reported by CreateTask when set.
	// Use it to simulate a store that reports no or a colliding id.
	ReturnID *string

	// OnCreate and OnDelete run before the call mutates anything.
	OnCreate func()
	OnDelete func()

	// Error injection for testing
	CreateTaskErr error
	DeleteTaskErr error
	ListTasksErr  error
	CountTasksErr error

	// Call counters
	CreateCalls int
	DeleteCalls int
	ListCalls   int
	CountCalls  int
}

// NewFakeService creates an empty FakeService acting for signer.
func NewFakeService(signer string) *FakeService {
	return &FakeService{
		tasks:  make(map[string][]service.Task),
		Signer: signer,
	}
}

// AddTask seeds a task for an account.
func (f *FakeService) AddTask(accountID string, task service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[accountID] = append(f.tasks[accountID], task)
}

// Stored returns a copy of an account's tasks.
func (f *FakeService) Stored(accountID string) []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Task, len(f.tasks[accountID]))
	copy(out, f.tasks[accountID])
	return out
}

// Calls returns the total number of remote calls made.
func (f *FakeService) Calls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.CreateCalls + f.DeleteCalls + f.ListCalls + f.CountCalls
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, task service.NewTask) (string, error) {
	if f.OnCreate != nil {
		f.OnCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.CreateTaskErr != nil {
		return "", f.CreateTaskErr
	}

	f.nextID++
	id := fmt.Sprintf("t%d", f.nextID)
	f.tasks[f.Signer] = append(f.tasks[f.Signer], task.WithID(id))
	if f.ReturnID != nil {
		return *f.ReturnID, nil
	}
	return id, nil
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, taskID string) error {
	if f.OnDelete != nil {
		f.OnDelete()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}

	tasks := f.tasks[f.Signer]
	for i, t := range tasks {
		if t.ID == taskID {
			f.tasks[f.Signer] = append(tasks[:i:i], tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: task %s", service.ErrNotFound, taskID)
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, accountID string) ([]service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	out := make([]service.Task, len(f.tasks[accountID]))
	copy(out, f.tasks[accountID])
	return out, nil
}

// CountTasks implements service.Service.
func (f *FakeService) CountTasks(ctx context.Context, accountID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CountCalls++
	if f.CountTasksErr != nil {
		return 0, f.CountTasksErr
	}
	return len(f.tasks[accountID]), nil
}

// StaticStatus is an auth.Status with a settable account.
type StaticStatus struct {
	mu      sync.RWMutex
	account string
}

// SignedInAs returns a status signed in as account.
func SignedInAs(account string) *StaticStatus {
	return &StaticStatus{account: account}
}

// SignedOut returns a signed-out status.
func SignedOut() *StaticStatus {
	return &StaticStatus{}
}

// SetAccount signs in as account, or out when account is "".
func (s *StaticStatus) SetAccount(account string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = account
}

// IsSignedIn implements auth.Status.
func (s *StaticStatus) IsSignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account != ""
}

// AccountID implements auth.Status.
func (s *StaticStatus) AccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}
