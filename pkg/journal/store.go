package journal

import (
	"time"
)

// Entry is the recorded outcome of one workflow invocation. It never holds
// a group snapshot.
type Entry struct {
	ID          string        `json:"id"`
	OperationID string        `json:"op_id"`
	Operation   string        `json:"operation"`
	Group       string        `json:"group"`
	Success     bool          `json:"success"`
	State       string        `json:"state"`
	Reason      string        `json:"reason,omitempty"`
	Duration    time.Duration `json:"duration"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Store defines the interface for journal storage
type Store interface {
	// Append records e, assigning an ID when empty
	Append(e *Entry) error

	// List returns up to limit entries, newest first. limit <= 0 means all.
	List(limit int) ([]*Entry, error)

	// ListByGroup is List restricted to one group name
	ListByGroup(group string, limit int) ([]*Entry, error)

	Close() error
}
