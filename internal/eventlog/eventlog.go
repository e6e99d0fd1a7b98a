// Package eventlog journals export job lifecycle events and optionally fans
// terminal events out to NATS for other services. The journal is an audit
// trail; job state itself lives with the job manager.
package eventlog

import (
	"context"
	"time"
)

// Event types recorded over a job's lifetime.
const (
	TypeSubmitted = "submitted"
	TypeStarted   = "started"
	TypeProgress  = "progress"
	TypeCompleted = "completed"
	TypeFailed    = "failed"
)

// Event is one journal entry for an export job.
type Event struct {
	ID        int64          `json:"id"`
	JobID     string         `json:"job_id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Store appends and reads journal entries.
type Store interface {
	Append(ctx context.Context, jobID, eventType string, fields map[string]any) error
	ByJob(ctx context.Context, jobID string) ([]Event, error)
	Close() error
}

// Publisher fans an event out to an external channel. Implementations must
// be non-blocking best-effort; publish failures never affect job state.
type Publisher interface {
	Publish(jobID, eventType string, fields map[string]any)
}

// NoopPublisher is the Publisher used when no external channel is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(string, string, map[string]any) {}
