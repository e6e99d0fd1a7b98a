package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/inkfeather/bookbinder/internal/client"
	"github.com/inkfeather/bookbinder/internal/compose"
	"github.com/inkfeather/bookbinder/internal/config"
	"github.com/inkfeather/bookbinder/internal/daemon"
	"github.com/inkfeather/bookbinder/internal/jobs"
	"github.com/inkfeather/bookbinder/internal/poll"
	"github.com/inkfeather/bookbinder/internal/version"
)

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:""`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print version and exit"`

	Serve struct {
	} `cmd:"" help:"Run the export daemon"`

	Init struct {
		Path  string `arg:"" optional:"" help:"Configuration file to create" default:"bookbinder.yaml"`
		Force bool   `help:"Overwrite an existing configuration file"`
	} `cmd:"" help:"Write an example configuration file"`

	Export struct {
		Project  string   `arg:"" help:"Project id to export"`
		Format   string   `short:"f" help:"Output format" default:"text"`
		Front    []string `help:"Front matter toggles to enable (e.g. include_title_page)"`
		Back     []string `help:"Back matter toggles to enable (e.g. include_author_bio)"`
		Output   string   `short:"o" help:"Directory to save the artifact in" default:"."`
		Server   string   `short:"s" help:"Daemon base URL" default:"http://localhost:8080"`
		Timeout  string   `help:"Polling ceiling" default:"2m"`
		Interval string   `help:"Polling interval" default:"1s"`
	} `cmd:"" help:"Export a manuscript and wait for the artifact"`

	Preview struct {
		Project string `arg:"" help:"Project id to preview"`
		Server  string `short:"s" help:"Daemon base URL" default:"http://localhost:8080"`
	} `cmd:"" help:"Show composition statistics without exporting"`

	Formats struct {
		Server string `short:"s" help:"Daemon base URL" default:"http://localhost:8080"`
	} `cmd:"" help:"List output formats"`
}

func main() {
	ctx := kong.Parse(&CLI, kong.Vars{"version": version.Version})

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	var err error
	switch ctx.Command() {
	case "serve":
		err = runServe()
	case "init", "init <path>":
		err = config.Init(CLI.Init.Path, CLI.Init.Force)
	case "export <project>":
		err = runExport()
	case "preview <project>":
		err = runPreview()
	case "formats":
		err = runFormats()
	}
	if err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if lvl := parseLevel(cfg.Logging.Level); !CLI.Verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg, CLI.Config)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("daemon error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping daemon")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return d.Stop(stopCtx)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runExport() error {
	ctx := context.Background()
	c := client.New(CLI.Export.Server)

	cfg := compose.Config{Format: CLI.Export.Format}
	if len(CLI.Export.Front) > 0 {
		cfg.FrontMatter = make(map[string]bool, len(CLI.Export.Front))
		for _, name := range CLI.Export.Front {
			cfg.FrontMatter[name] = true
		}
	}
	if len(CLI.Export.Back) > 0 {
		cfg.BackMatter = make(map[string]bool, len(CLI.Export.Back))
		for _, name := range CLI.Export.Back {
			cfg.BackMatter[name] = true
		}
	}

	job, err := c.SubmitExport(ctx, CLI.Export.Project, cfg)
	if err != nil {
		return err
	}
	slog.Info("Export submitted", "job_id", job.ID, "format", job.Format)

	p := poll.New(c)
	if d, derr := time.ParseDuration(CLI.Export.Timeout); derr == nil {
		p.Ceiling = d
	}
	if d, derr := time.ParseDuration(CLI.Export.Interval); derr == nil {
		p.Interval = d
	}

	done, err := p.Wait(ctx, job.ID)
	if err != nil {
		return err
	}
	if done.Status == jobs.StatusFailed {
		return fmt.Errorf("export failed: %s", done.Error)
	}

	art, err := c.Download(ctx, job.ID)
	if err != nil {
		return err
	}
	outPath := filepath.Join(CLI.Export.Output, art.FileName)
	if err := os.WriteFile(outPath, art.Data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	fmt.Printf("Saved %s (%d bytes)\n", outPath, len(art.Data))
	return nil
}

func runPreview() error {
	c := client.New(CLI.Preview.Server)
	p, err := c.Preview(context.Background(), CLI.Preview.Project, nil)
	if err != nil {
		return err
	}
	fmt.Printf("%s by %s\n", p.Title, p.Author)
	fmt.Printf("  chapters:      %d\n", p.ChapterCount)
	fmt.Printf("  words:         %d\n", p.TotalWords)
	fmt.Printf("  pages (est.):  %d\n", p.EstimatedPages)
	fmt.Printf("  reading time:  %d min\n", p.ReadingTimeMinutes)
	return nil
}

func runFormats() error {
	c := client.New(CLI.Formats.Server)
	formats, err := c.Formats(context.Background())
	if err != nil {
		return err
	}
	for _, f := range formats {
		status := "available"
		if !f.Available {
			status = "unavailable"
		}
		fmt.Printf("%-10s %-12s %s\n", f.ID, status, f.Description)
	}
	return nil
}
