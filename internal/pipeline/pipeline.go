// Package pipeline sequences capture, duplicate removal, conversion, and
// assembly into one run with explicit, typed step results.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/pagecap/pagecap/internal/assemble"
	"github.com/pagecap/pagecap/internal/backup"
	"github.com/pagecap/pagecap/internal/capture"
	"github.com/pagecap/pagecap/internal/config"
	"github.com/pagecap/pagecap/internal/convert"
	"github.com/pagecap/pagecap/internal/dedup"
	apperr "github.com/pagecap/pagecap/internal/errors"
	"github.com/pagecap/pagecap/internal/imaging"
)

// Status of one pipeline step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// StepResult records how one step ended.
type StepResult struct {
	Name   string
	Status Status
	Err    error
}

// State is the run-wide record of one invocation. Every step that ran,
// skipped, or failed appears in Steps in execution order.
type State struct {
	DryRun        bool
	Steps         []StepResult
	CaptureReason capture.Reason
}

// Step is one unit of the pipeline.
type Step struct {
	Name string
	Skip bool
	Run  func(ctx context.Context) error
}

// Options select which steps run and how destructive they may be.
type Options struct {
	SkipCapture  bool
	SkipDedup    bool
	SkipConvert  bool
	SkipAssemble bool
	NoBackup     bool
	DryRun       bool
}

// Pipeline wires the components for one run.
type Pipeline struct {
	cfg    config.Config
	source capture.Source
}

func New(cfg config.Config, source capture.Source) *Pipeline {
	return &Pipeline{cfg: cfg, source: source}
}

// Run executes the configured steps in order, stopping at the first
// failure. The returned state is valid even when an error is returned.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*State, error) {
	state := &State{DryRun: opts.DryRun}

	steps := []Step{
		{Name: "capture", Skip: opts.SkipCapture, Run: func(ctx context.Context) error {
			return p.runCapture(ctx, state, opts)
		}},
		{Name: "dedup", Skip: opts.SkipDedup, Run: func(ctx context.Context) error {
			return p.runDedup(opts)
		}},
		{Name: "convert", Skip: opts.SkipConvert, Run: func(ctx context.Context) error {
			return p.runConvert(opts)
		}},
		{Name: "assemble", Skip: opts.SkipAssemble, Run: func(ctx context.Context) error {
			return p.runAssemble(opts)
		}},
	}

	err := runSteps(ctx, state, steps)
	return state, err
}

func runSteps(ctx context.Context, state *State, steps []Step) error {
	for _, s := range steps {
		if s.Skip {
			slog.Info("step skipped", "step", s.Name)
			state.Steps = append(state.Steps, StepResult{Name: s.Name, Status: StatusSkipped})
			continue
		}
		slog.Info("step starting", "step", s.Name, "dry_run", state.DryRun)
		if err := s.Run(ctx); err != nil {
			wrapped := apperr.Wrapf(err, apperr.CodePipelineStep, "step %s failed", s.Name)
			state.Steps = append(state.Steps, StepResult{Name: s.Name, Status: StatusFailed, Err: wrapped})
			return wrapped
		}
		state.Steps = append(state.Steps, StepResult{Name: s.Name, Status: StatusOK})
	}
	return nil
}

func (p *Pipeline) runCapture(ctx context.Context, state *State, opts Options) error {
	if opts.DryRun {
		slog.Info("dry run: would capture pages",
			"dir", p.cfg.PagesDir(),
			"max_pages", p.cfg.NumPages,
			"page_delay", p.cfg.PageDelay)
		return nil
	}

	loop := capture.New(p.source, capture.Options{
		OutDir:    p.cfg.PagesDir(),
		Threshold: p.cfg.SimilarityThreshold,
		MaxPages:  p.cfg.NumPages,
		PageDelay: time.Duration(p.cfg.PageDelay) * time.Second,
	})
	res, err := loop.Run(ctx)
	if err != nil {
		return err
	}
	state.CaptureReason = res.Reason
	slog.Info("capture finished", "reason", res.Reason, "pages", res.PagesCaptured)

	// A stall or page limit still leaves usable pages on disk; only a
	// blown error budget or a cancellation aborts the run.
	switch res.Reason {
	case capture.ReasonTooManyErrors, capture.ReasonUserCancelled:
		return apperr.Newf(apperr.CodeCaptureFailed, "capture terminated: %s", res.Reason)
	}
	return nil
}

func (p *Pipeline) runDedup(opts Options) error {
	dir := p.cfg.PagesDir()
	paths, err := imaging.ListPNGs(dir)
	if err != nil {
		if opts.DryRun && os.IsNotExist(err) {
			slog.Info("dry run: pages directory not present yet", "dir", dir)
			return nil
		}
		return err
	}

	report, err := dedup.Scan(paths, p.cfg.SimilarityThreshold)
	if err != nil {
		return err
	}
	slog.Info("scan complete",
		"scanned", report.Scanned,
		"groups", len(report.Groups),
		"redundant", report.RedundantCount(),
		"undecidable", len(report.Undecidable))

	mgr := backup.NewManager(dir)
	res, err := mgr.Apply(report.RedundantPaths(), backup.Options{
		DisableBackup: opts.NoBackup,
		DryRun:        opts.DryRun,
	})
	if err != nil {
		return err
	}
	if res.DryRun {
		slog.Info("dry run: would delete redundant pages", "count", len(res.Deleted))
		return nil
	}
	if err := res.PartialFailure(); err != nil {
		// Per-file failures are reported, not fatal to the run.
		slog.Warn("some deletions failed", "failed", len(res.Failed), "error", err)
	}
	slog.Info("redundant pages removed", "deleted", len(res.Deleted), "backup", res.BackupDir)
	return nil
}

func (p *Pipeline) runConvert(opts Options) error {
	report, err := convert.Directory(p.cfg.PagesDir(), p.cfg.JPEGDir(), p.cfg.JPGQuality, opts.DryRun)
	if err != nil {
		if opts.DryRun && os.IsNotExist(err) {
			slog.Info("dry run: pages directory not present yet", "dir", p.cfg.PagesDir())
			return nil
		}
		return err
	}
	slog.Info("conversion finished",
		"converted", len(report.Outputs),
		"failed", len(report.Failed),
		"dry_run", report.DryRun)
	return nil
}

func (p *Pipeline) runAssemble(opts Options) error {
	src := p.cfg.JPEGDir()
	if opts.SkipConvert {
		src = p.cfg.PagesDir()
	}
	report, err := assemble.Build(src, p.cfg.PDFPath(), p.cfg.PagesPerPDF, opts.DryRun)
	if err != nil {
		if opts.DryRun && os.IsNotExist(err) {
			slog.Info("dry run: image directory not present yet", "dir", src)
			return nil
		}
		return err
	}
	slog.Info("assembly finished",
		"pages", report.Pages,
		"outputs", report.Outputs,
		"dry_run", report.DryRun)
	return nil
}
