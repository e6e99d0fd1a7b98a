// Package daemon assembles the export pipeline into a long-running
// service: manuscript library, renderer registry, job manager, artifact
// store with retention sweep, event journal, and the HTTP API.
package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inkfeather/bookbinder/internal/api"
	"github.com/inkfeather/bookbinder/internal/book"
	"github.com/inkfeather/bookbinder/internal/config"
	"github.com/inkfeather/bookbinder/internal/delivery"
	"github.com/inkfeather/bookbinder/internal/eventlog"
	"github.com/inkfeather/bookbinder/internal/jobs"
	"github.com/inkfeather/bookbinder/internal/metrics"
	"github.com/inkfeather/bookbinder/internal/render"
)

// Daemon owns the lifecycle of every component. Start brings them up in
// dependency order; Stop tears them down in reverse.
type Daemon struct {
	cfg        *config.Config
	configPath string

	registry  *render.Registry
	store     *delivery.Store
	manager   *jobs.Manager
	sweeper   *delivery.Sweeper
	journal   eventlog.Store
	publisher eventlog.Publisher
	server    *api.Server
	watcher   *config.Watcher
}

// New builds a Daemon from configuration. configPath may be empty, in
// which case no config watcher is started.
func New(cfg *config.Config, configPath string) (*Daemon, error) {
	d := &Daemon{cfg: cfg, configPath: configPath}

	library, err := book.NewLibrary(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("open manuscript library: %w", err)
	}

	d.registry = render.NewRegistry()
	d.applyFormatAvailability(cfg)

	d.store, err = delivery.NewStore(cfg.Artifacts.Path)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	recorder := metrics.NewPrometheusRecorder(nil)

	d.manager = jobs.NewManager(cfg.Exports.QueueSize, cfg.Exports.Workers, library, d.registry, d.store)
	d.manager.SetRecorder(recorder)

	if cfg.Events.DBPath != "" {
		journal, err := eventlog.NewSQLiteStore(cfg.Events.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open event journal: %w", err)
		}
		d.journal = journal
		d.manager.SetJournal(journal)
	}

	if cfg.Events.NATSURL != "" {
		pub, err := eventlog.NewNATSPublisher(cfg.Events.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect event publisher: %w", err)
		}
		d.publisher = pub
		d.manager.SetPublisher(pub)
	}

	if retention := cfg.Artifacts.RetentionDuration(); retention > 0 {
		d.sweeper, err = delivery.NewSweeper(d.store, retention, cfg.Artifacts.SweepIntervalDuration(), recorder)
		if err != nil {
			return nil, fmt.Errorf("create retention sweeper: %w", err)
		}
	}

	d.server = api.NewServer(cfg.Server.Addr, d.manager, library, d.registry, d.store, recorder)

	if configPath != "" {
		d.watcher, err = config.NewWatcher(configPath, d.applyFormatAvailability)
		if err != nil {
			return nil, fmt.Errorf("create config watcher: %w", err)
		}
	}

	return d, nil
}

// applyFormatAvailability is the hot-reload surface: only format
// enablement changes take effect from a reloaded config.
func (d *Daemon) applyFormatAvailability(cfg *config.Config) {
	disabled := make(map[string]bool, len(cfg.Formats.Disabled))
	for _, id := range cfg.Formats.Disabled {
		disabled[id] = true
	}
	for _, f := range render.NewRegistry().Formats() {
		if !f.Available {
			// epub and pdf stay catalogued but unavailable regardless.
			continue
		}
		d.registry.SetAvailable(f.ID, !disabled[f.ID])
		if disabled[f.ID] {
			slog.Info("Format disabled by configuration", "format", f.ID)
		}
	}
}

// Start runs the daemon until the HTTP listener stops or ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.manager.Start(ctx)
	if d.sweeper != nil {
		if err := d.sweeper.Start(ctx); err != nil {
			return err
		}
	}
	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			return err
		}
	}
	return d.server.Start()
}

// Stop shuts everything down, draining HTTP first so no request observes
// a half-stopped pipeline.
func (d *Daemon) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, d.cfg.Server.ShutdownTimeoutDuration())
	defer cancel()

	var firstErr error
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		firstErr = err
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	d.manager.Stop(ctx)
	if d.sweeper != nil {
		if err := d.sweeper.Stop(); err != nil {
			slog.Warn("Error stopping retention sweeper", "error", err)
		}
	}
	if d.publisher != nil {
		if c, ok := d.publisher.(*eventlog.NATSPublisher); ok {
			c.Close()
		}
	}
	if d.journal != nil {
		if err := d.journal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	slog.Info("Daemon stopped")
	return firstErr
}
