// Package local implements service.Service on a SQLite database that
// behaves like the task contract: every account owns an ordered task
// vector, ids are uuid v4 strings assigned on create, and mutations act on
// the signing account's tasks only.
package local

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"tasktracker/internal/service"
)

// Store implements service.Service using a local SQLite database.
type Store struct {
	db     *sqlx.DB
	signer string
}

type taskRow struct {
	ID       string `db:"id"`
	Text     string `db:"text"`
	Day      string `db:"day"`
	Reminder bool   `db:"reminder"`
}

// Open opens (or creates) the database at dbPath, enables WAL mode, and
// runs any pending schema migrations. signer is the account that create
// and delete act on; it may be empty for a read-only store.
func Open(dbPath, signer string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// :memory: databases exist per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db, signer: signer}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// CreateTask implements service.Service.
func (s *Store) CreateTask(ctx context.Context, task service.NewTask) (string, error) {
	if s.signer == "" {
		return "", fmt.Errorf("%w: no local account (run: tasktracker login)", service.ErrUnauthorized)
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, account_id, text, day, reminder, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, s.signer, task.Text, task.Day, task.Reminder, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("creating task: %w", err)
	}
	return id, nil
}

// DeleteTask implements service.Service. Only the signer's tasks can be
// deleted; any other id is reported as not found.
func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	if s.signer == "" {
		return fmt.Errorf("%w: no local account (run: tasktracker login)", service.ErrUnauthorized)
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND account_id = ?", taskID, s.signer)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", taskID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: task %s", service.ErrNotFound, taskID)
	}
	return nil
}

// ListTasks implements service.Service.
func (s *Store) ListTasks(ctx context.Context, accountID string) ([]service.Task, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, text, day, reminder FROM tasks
		WHERE account_id = ?
		ORDER BY seq`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	tasks := make([]service.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, service.Task(r))
	}
	return tasks, nil
}

// CountTasks implements service.Service.
func (s *Store) CountTasks(ctx context.Context, accountID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM tasks WHERE account_id = ?", accountID)
	if err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return n, nil
}
