// Package service defines the backend-agnostic interface for the remote task store.
package service

import "context"

// Service defines the remote procedures of the account-scoped task store.
// Every call is bound to the signed-in account of the backend that
// implements it. Commands and the task list store never import a backend
// SDK directly.
type Service interface {
	// CreateTask creates a task for the signed-in account (create_task).
	// Returns the identifier assigned by the remote store.
	CreateTask(ctx context.Context, task NewTask) (string, error)

	// DeleteTask deletes the signed-in account's task by ID (delete_task_by_id).
	DeleteTask(ctx context.Context, taskID string) error

	// ListTasks returns the tasks stored for an account, in store order
	// (get_user_tasks).
	ListTasks(ctx context.Context, accountID string) ([]Task, error)

	// CountTasks returns the number of tasks stored for an account
	// (get_user_total_task).
	CountTasks(ctx context.Context, accountID string) (int, error)
}
