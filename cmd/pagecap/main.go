// pagecap captures a paginated on-screen document page by page, removes
// near-identical frames, and assembles the survivors into a PDF.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/pagecap/pagecap/internal/capture"
	"github.com/pagecap/pagecap/internal/config"
	"github.com/pagecap/pagecap/internal/pipeline"
	"github.com/pagecap/pagecap/internal/screen"
)

// Exit codes: 0 full completion, 1 fatal failure, 2 capture stopped early
// (stall or page ceiling) with the rest of the pipeline completed.
const (
	exitOK      = 0
	exitFailure = 1
	exitPartial = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath   = flag.String("config", "config.json", "path to JSON configuration")
		title        = flag.String("title", "", "book title (overrides config)")
		pages        = flag.Int("pages", 0, "number of pages to capture (overrides config)")
		delay        = flag.Int("delay", 0, "seconds to wait after each page turn (overrides config)")
		output       = flag.String("output", "", "output folder (overrides config)")
		skipCapture  = flag.Bool("skip-screenshots", false, "skip the capture step")
		skipDedup    = flag.Bool("skip-duplicates", false, "skip duplicate removal")
		skipConvert  = flag.Bool("skip-convert", false, "skip PNG to JPEG conversion")
		skipAssemble = flag.Bool("skip-assemble", false, "skip PDF assembly")
		noBackup     = flag.Bool("no-backup", false, "delete duplicates without a backup copy")
		dryRun       = flag.Bool("dry-run", false, "report decisions without writing or deleting anything")
		verbose      = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return exitFailure
	}
	if *title != "" {
		cfg.BookTitle = *title
	}
	if *pages > 0 {
		cfg.NumPages = *pages
	}
	if *delay > 0 {
		cfg.PageDelay = *delay
	}
	if *output != "" {
		cfg.OutputFolder = *output
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := screen.New()
	go func() {
		<-ctx.Done()
		src.Cancel()
	}()

	if !*skipCapture && !*dryRun && cfg.StartDelay > 0 {
		slog.Info("bring the reader to the foreground on its first page",
			"starting_in_seconds", cfg.StartDelay)
		select {
		case <-time.After(time.Duration(cfg.StartDelay) * time.Second):
		case <-ctx.Done():
			slog.Info("cancelled before capture started")
			return exitFailure
		}
	}

	p := pipeline.New(cfg, src)
	state, err := p.Run(ctx, pipeline.Options{
		SkipCapture:  *skipCapture,
		SkipDedup:    *skipDedup,
		SkipConvert:  *skipConvert,
		SkipAssemble: *skipAssemble,
		NoBackup:     *noBackup,
		DryRun:       *dryRun,
	})
	if err != nil {
		slog.Error("pipeline failed", "error", err)
		return exitFailure
	}

	switch state.CaptureReason {
	case capture.ReasonStalledDuplicate, capture.ReasonPageLimitReached:
		slog.Info("run complete with early capture stop", "capture", state.CaptureReason)
		return exitPartial
	}
	slog.Info("run complete")
	return exitOK
}
