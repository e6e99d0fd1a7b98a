package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/inkfeather/bookbinder/internal/metrics"
)

// Sweeper periodically evicts artifacts older than the retention window.
type Sweeper struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
	scheduler gocron.Scheduler
	recorder  metrics.Recorder
}

// NewSweeper creates a retention sweeper. A zero interval defaults to one
// hour; recorder may be nil.
func NewSweeper(store *Store, retention, interval time.Duration, recorder metrics.Recorder) (*Sweeper, error) {
	if interval <= 0 {
		interval = time.Hour
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create sweep scheduler: %w", err)
	}
	return &Sweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		scheduler: scheduler,
		recorder:  recorder,
	}, nil
}

// Start schedules the sweep and begins running it.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.sweep, ctx),
		gocron.WithName("artifact-retention-sweep"),
	)
	if err != nil {
		return fmt.Errorf("schedule retention sweep: %w", err)
	}
	s.scheduler.Start()
	slog.Info("Artifact retention sweeper started", "retention", s.retention, "interval", s.interval)
	return nil
}

// Stop shuts the scheduler down.
func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.store.SweepOlderThan(ctx, s.retention)
	if err != nil {
		slog.Error("Artifact retention sweep failed", "error", err)
		return
	}
	for range removed {
		s.recorder.IncArtifactEvicted()
	}
	if removed > 0 {
		slog.Info("Artifact retention sweep completed", "evicted", removed)
	}
}
