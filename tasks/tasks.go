package tasks

import "context"

// Action names the change to apply to a search index entry
type Action string

const (
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Task types
type TaskType string

const (
	TypeUpdateIndex TaskType = "search:update"
)

// Default queue name
const QueueSearch = "search"

// Request is the payload handed to the task queue once a transaction commits
type Request struct {
	Action     Action `json:"action"`
	Identifier string `json:"identifier"`
}

// Handle submits index tasks to an asynchronous queue
type Handle interface {
	// SubmitAsync enqueues the action for the identifier and returns without
	// waiting for the task to run
	SubmitAsync(ctx context.Context, action Action, identifier string) error
}

// HandleFunc adapts a function to the Handle interface
type HandleFunc func(ctx context.Context, action Action, identifier string) error

func (f HandleFunc) SubmitAsync(ctx context.Context, action Action, identifier string) error {
	return f(ctx, action, identifier)
}
