package service

// Task represents a single task record as the remote store reports it.
type Task struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Day      string `json:"day"`
	Reminder bool   `json:"reminder"`
}

// NewTask holds the fields of a task that has not been created yet.
// The identifier is always assigned by the remote store.
type NewTask struct {
	Text     string `json:"text"`
	Day      string `json:"day"`
	Reminder bool   `json:"reminder"`
}

// WithID returns the task built from the candidate and a store-assigned ID.
func (n NewTask) WithID(id string) Task {
	return Task{
		ID:       id,
		Text:     n.Text,
		Day:      n.Day,
		Reminder: n.Reminder,
	}
}
