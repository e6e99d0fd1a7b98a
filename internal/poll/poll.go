// Package poll waits for export jobs to reach a terminal state.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkfeather/bookbinder/internal/jobs"
)

// ErrTimeout is returned when a job is still live at the polling ceiling.
// It says nothing about the job itself: the export may well complete later.
var ErrTimeout = errors.New("polling ceiling reached before job finished")

// StatusReader reads job snapshots, typically over the wire.
type StatusReader interface {
	Snapshot(ctx context.Context, jobID string) (*jobs.Job, error)
}

// Poller repeatedly reads a job's status until it is terminal.
type Poller struct {
	Reader   StatusReader
	Interval time.Duration
	Ceiling  time.Duration
}

// New creates a Poller with the given reader and default timing
// (1s interval, 2 minute ceiling).
func New(reader StatusReader) *Poller {
	return &Poller{
		Reader:   reader,
		Interval: time.Second,
		Ceiling:  2 * time.Minute,
	}
}

// Wait polls until the job reaches completed or failed, the ceiling
// elapses, or ctx is cancelled. A failed job is a successful poll: the
// terminal snapshot is returned with a nil error, and the caller inspects
// Status and Error on the job itself.
func (p *Poller) Wait(ctx context.Context, jobID string) (*jobs.Job, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ceiling := p.Ceiling
	if ceiling <= 0 {
		ceiling = 2 * time.Minute
	}

	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		snap, err := p.Reader.Snapshot(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("poll job %s: %w", jobID, err)
		}
		if snap.Status.Terminal() {
			return snap, nil
		}
		slog.Debug("Job still in flight", "job_id", jobID, "status", snap.Status, "progress", snap.Progress)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("job %s: %w", jobID, ErrTimeout)
		case <-tick.C:
		}
	}
}
