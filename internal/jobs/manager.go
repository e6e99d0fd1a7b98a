// Package jobs owns the export job state machine: submission, background
// execution, progress reporting, and terminal-state storage.
//
// Each job record has exactly one writer: the worker goroutine executing it.
// Every other access goes through copy-out snapshot reads, so polling is
// always a plain read and observed progress is monotonically non-decreasing.
package jobs

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkfeather/bookbinder/internal/book"
	"github.com/inkfeather/bookbinder/internal/compose"
	"github.com/inkfeather/bookbinder/internal/delivery"
	"github.com/inkfeather/bookbinder/internal/errors"
	"github.com/inkfeather/bookbinder/internal/eventlog"
	"github.com/inkfeather/bookbinder/internal/metrics"
	"github.com/inkfeather/bookbinder/internal/render"
)

// Manager runs export jobs on a bounded queue with a fixed worker pool.
type Manager struct {
	queue   chan *Job
	workers int

	// Terminal job records are retained for the life of the process so
	// that polls of finished jobs keep answering with the same snapshot.
	// Artifact retention is the sweeper's concern, not this map's.
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string // submission order, for listing

	stopChan chan struct{}
	wg       sync.WaitGroup

	source   book.Source
	registry *render.Registry
	store    *delivery.Store

	journal   eventlog.Store
	publisher eventlog.Publisher
	recorder  metrics.Recorder
}

// NewManager creates a Manager. Source, registry, and store are required;
// journal, publisher, and recorder are injected via the setters.
func NewManager(queueSize, workers int, source book.Source, registry *render.Registry, store *delivery.Store) *Manager {
	if queueSize <= 0 {
		queueSize = 100
	}
	if workers <= 0 {
		workers = 2
	}
	if source == nil || registry == nil || store == nil {
		panic("jobs.NewManager: source, registry, and store are required")
	}
	return &Manager{
		queue:     make(chan *Job, queueSize),
		workers:   workers,
		jobs:      make(map[string]*Job),
		stopChan:  make(chan struct{}),
		source:    source,
		registry:  registry,
		store:     store,
		publisher: eventlog.NoopPublisher{},
		recorder:  metrics.NoopRecorder{},
	}
}

// SetJournal injects the lifecycle event journal (optional).
func (m *Manager) SetJournal(s eventlog.Store) {
	if s != nil {
		m.journal = s
	}
}

// SetPublisher injects an external event publisher (optional).
func (m *Manager) SetPublisher(p eventlog.Publisher) {
	if p != nil {
		m.publisher = p
	}
}

// SetRecorder injects a metrics recorder (optional).
func (m *Manager) SetRecorder(r metrics.Recorder) {
	if r != nil {
		m.recorder = r
	}
}

// Start launches the worker pool.
func (m *Manager) Start(ctx context.Context) {
	slog.Info("Starting export workers", "workers", m.workers, "queue_size", cap(m.queue))
	for i := range m.workers {
		m.wg.Add(1)
		go m.worker(ctx, fmt.Sprintf("worker-%d", i))
	}
}

// Stop shuts the pool down. In-flight jobs run to completion or failure;
// nobody needs to be polling for that to happen.
func (m *Manager) Stop(_ context.Context) {
	close(m.stopChan)
	m.wg.Wait()
}

// QueueDepth returns the number of jobs waiting for a worker.
func (m *Manager) QueueDepth() int {
	return len(m.queue)
}

// Submit validates the configuration, creates a pending job, and enqueues
// it for background execution. Validation and project-existence failures
// are returned synchronously and leave no job record behind.
func (m *Manager) Submit(ctx context.Context, projectID string, cfg compose.Config) (*Job, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := m.registry.Validate(cfg.Format); err != nil {
		return nil, err
	}
	if _, err := m.source.Project(ctx, projectID); err != nil {
		return nil, err
	}

	job := &Job{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Format:    cfg.Format,
		Status:    StatusPending,
		Progress:  progressSubmitted,
		CreatedAt: time.Now().UTC(),
		config:    cfg,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	m.mu.Unlock()

	select {
	case m.queue <- job:
	default:
		// Queue full: drop the record again, the submission never happened.
		// Other submissions may have appended to m.order since this one,
		// so the rollback must remove this job's id, not the newest entry.
		m.mu.Lock()
		delete(m.jobs, job.ID)
		for i := len(m.order) - 1; i >= 0; i-- {
			if m.order[i] == job.ID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		return nil, stderrors.New("export queue is full")
	}

	m.recorder.SetQueueDepth(len(m.queue))
	m.emit(ctx, job.ID, eventlog.TypeSubmitted, map[string]any{"project_id": projectID, "format": cfg.Format})
	slog.Info("Export job submitted", "job_id", job.ID, "project_id", projectID, "format", cfg.Format)
	snap, _ := m.Snapshot(job.ID)
	return snap, nil
}

// Snapshot returns a copy of a job record. Reads of terminal jobs are
// idempotent: the same fields come back every time.
func (m *Manager) Snapshot(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	cp := *j
	return &cp, true
}

// List returns up to limit job snapshots, newest first.
func (m *Manager) List(limit int) []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.order) {
		limit = len(m.order)
	}
	out := make([]*Job, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.jobs[m.order[i]]
		out = append(out, &cp)
	}
	return out
}

func (m *Manager) worker(ctx context.Context, workerID string) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case job := <-m.queue:
			if job != nil {
				m.recorder.SetQueueDepth(len(m.queue))
				m.process(ctx, job, workerID)
			}
		}
	}
}

// process executes one job. It is the job's single writer from here on.
// Renderer and composition failures are converted to the failed state at
// this boundary; they never escape to other jobs or to pollers.
func (m *Manager) process(ctx context.Context, job *Job, workerID string) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Export job panicked", "job_id", job.ID, "worker", workerID, "panic", r)
			m.fail(ctx, job, errors.New(errors.CategoryInternal, fmt.Sprintf("panic: %v", r)))
		}
	}()

	m.transition(job, func(j *Job) {
		now := time.Now().UTC()
		j.Status = StatusProcessing
		j.StartedAt = &now
		j.Progress = progressStarted
	})
	m.emit(ctx, job.ID, eventlog.TypeStarted, map[string]any{"worker": workerID})
	slog.Info("Export job started", "job_id", job.ID, "worker", workerID, "format", job.Format)

	// Composition re-fetches content; the submission-time read must not be
	// reused or the export could go stale.
	doc, err := m.composeStage(ctx, job)
	if err != nil {
		m.fail(ctx, job, err)
		return
	}
	m.setProgress(ctx, job, progressComposed)

	data, err := m.renderStage(job, doc)
	if err != nil {
		m.fail(ctx, job, err)
		return
	}
	m.setProgress(ctx, job, progressRendered)

	fileName := render.FileName(doc.Title, m.registry.Extension(job.Format))
	if err := m.store.Put(ctx, job.ID, fileName, data); err != nil {
		m.fail(ctx, job, errors.Wrap(err, errors.CategoryDelivery, "store artifact"))
		return
	}

	m.transition(job, func(j *Job) {
		now := time.Now().UTC()
		j.Status = StatusCompleted
		j.Progress = progressPersisted
		j.FileName = fileName
		j.FileSize = int64(len(data))
		j.CompletedAt = &now
	})
	m.emit(ctx, job.ID, eventlog.TypeCompleted, map[string]any{"file_name": fileName, "file_size": len(data)})
	m.recorder.ObserveExportDuration(job.Format, time.Since(start))
	m.recorder.IncExportOutcome(job.Format, string(StatusCompleted))
	slog.Info("Export job completed", "job_id", job.ID, "file_name", fileName, "file_size", len(data), "duration", time.Since(start))
}

func (m *Manager) composeStage(ctx context.Context, job *Job) (*compose.Document, error) {
	stageStart := time.Now()
	defer func() { m.recorder.ObserveStageDuration("compose", time.Since(stageStart)) }()

	project, err := m.source.Project(ctx, job.ProjectID)
	if err != nil {
		return nil, err
	}
	chapters, err := m.source.Chapters(ctx, job.ProjectID)
	if err != nil {
		return nil, err
	}
	return compose.Compose(project, chapters, job.config)
}

func (m *Manager) renderStage(job *Job, doc *compose.Document) ([]byte, error) {
	stageStart := time.Now()
	defer func() { m.recorder.ObserveStageDuration("render", time.Since(stageStart)) }()

	renderer, err := m.registry.Renderer(job.Format)
	if err != nil {
		return nil, err
	}
	return renderer.Render(doc)
}

// fail moves a job to the failed terminal state with a sanitized message.
func (m *Manager) fail(ctx context.Context, job *Job, err error) {
	msg := errors.UserMessage(err)
	m.transition(job, func(j *Job) {
		now := time.Now().UTC()
		j.Status = StatusFailed
		j.Error = msg
		j.CompletedAt = &now
	})
	m.emit(ctx, job.ID, eventlog.TypeFailed, map[string]any{"error": msg})
	m.recorder.IncExportOutcome(job.Format, string(StatusFailed))
	slog.Warn("Export job failed", "job_id", job.ID, "format", job.Format, "error", err)
}

// setProgress advances the progress milestone. Progress never moves
// backwards even if stages are reordered.
func (m *Manager) setProgress(ctx context.Context, job *Job, p int) {
	m.transition(job, func(j *Job) {
		if p > j.Progress {
			j.Progress = p
		}
	})
	m.emit(ctx, job.ID, eventlog.TypeProgress, map[string]any{"progress": p})
}

func (m *Manager) transition(job *Job, mutate func(*Job)) {
	m.mu.Lock()
	mutate(job)
	m.mu.Unlock()
}

// emit journals an event and fans it out. Both are best-effort.
func (m *Manager) emit(ctx context.Context, jobID, eventType string, fields map[string]any) {
	if m.journal != nil {
		if err := m.journal.Append(ctx, jobID, eventType, fields); err != nil {
			slog.Warn("Failed to journal export event", "job_id", jobID, "type", eventType, "error", err)
		}
	}
	m.publisher.Publish(jobID, eventType, fields)
}

// Events returns a job's journal trail, or nil when no journal is configured.
func (m *Manager) Events(ctx context.Context, jobID string) ([]eventlog.Event, error) {
	if m.journal == nil {
		return nil, nil
	}
	return m.journal.ByJob(ctx, jobID)
}
