// Package googletasks implements the service.Service interface using Google Tasks API.
//
// The signed-in account names the task list that holds the tasks. Text maps
// to the task title; day and reminder are kept in the notes field.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tasktracker/internal/config"
	"tasktracker/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks requested per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"
)

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc    *tasks.Service
	listID string
}

// OAuthConfig reads the OAuth client credentials file configured in cfg.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", cfg.OAuthClientPath(), err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth client file: %w", err)
	}
	return oauthConfig, nil
}

// New creates a Google Tasks client for the token obtained by login.
// listID selects the task list; empty means the default list.
func New(ctx context.Context, cfg *config.Config, token *oauth2.Token, listID string) (*Client, error) {
	if token == nil {
		return nil, fmt.Errorf("%w: no google token (run: tasktracker login)", service.ErrUnauthorized)
	}

	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	// Token source refreshes the access token as needed
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token))
	return NewWithHTTPClient(ctx, httpClient, listID)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// Extra options, such as option.WithEndpoint, are passed to the API client.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, listID string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if listID == "" {
		listID = DefaultListID
	}
	return &Client{svc: svc, listID: listID}, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, task service.NewTask) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	created, err := c.svc.Tasks.Insert(c.listID, &tasks.Task{
		Title: task.Text,
		Notes: EncodeNotes(task.Day, task.Reminder),
	}).Context(ctx).Do()
	if err != nil {
		return "", wrapError(err)
	}
	return created.Id, nil
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	err := c.svc.Tasks.Delete(c.listID, taskID).Context(ctx).Do()
	return wrapError(err)
}

// ListTasks implements service.Service. accountID is the list to read.
func (c *Client) ListTasks(ctx context.Context, accountID string) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	listID := accountID
	if listID == "" {
		listID = c.listID
	}

	result := []service.Task{}
	err := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(false).
		ShowDeleted(false).
		ShowHidden(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				day, reminder := DecodeNotes(t.Notes)
				result = append(result, service.Task{
					ID:       t.Id,
					Text:     t.Title,
					Day:      day,
					Reminder: reminder,
				})
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// CountTasks implements service.Service. The Tasks API has no count call,
// so the list is read in full.
func (c *Client) CountTasks(ctx context.Context, accountID string) (int, error) {
	list, err := c.ListTasks(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

const (
	dayPrefix    = "day: "
	reminderLine = "reminder: true"
)

// EncodeNotes renders day and reminder as task notes.
func EncodeNotes(day string, reminder bool) string {
	var lines []string
	if day = strings.TrimSpace(day); day != "" {
		lines = append(lines, dayPrefix+day)
	}
	if reminder {
		lines = append(lines, reminderLine)
	}
	return strings.Join(lines, "\n")
}

// DecodeNotes extracts day and reminder from task notes. Other lines are
// ignored, so notes edited in another client still parse.
func DecodeNotes(notes string) (day string, reminder bool) {
	for _, line := range strings.Split(notes, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, dayPrefix) && day == "":
			day = strings.TrimSpace(strings.TrimPrefix(line, dayPrefix))
		case strings.EqualFold(line, reminderLine):
			reminder = true
		}
	}
	return day, reminder
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: token expired or revoked (run: tasktracker login)", service.ErrUnauthorized)
		case http.StatusNotFound:
			return service.ErrNotFound
		}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: token expired or revoked (run: tasktracker login)", service.ErrUnauthorized)
	}

	return err
}
