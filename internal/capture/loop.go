// Package capture drives page-by-page acquisition of an on-screen document.
// The loop persists every frame it obtains, scores each against the previous
// frame, and terminates on stall, error budget exhaustion, page limits, or
// user cancellation.
package capture

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperr "github.com/pagecap/pagecap/internal/errors"
	"github.com/pagecap/pagecap/internal/imaging"
)

// Termination and safety bounds.
const (
	// MaxConsecutiveDuplicates is the stall run-length: this many
	// near-identical frames in a row signal the document has no more
	// pages to turn to.
	MaxConsecutiveDuplicates = 10

	// MaxConsecutiveErrors is the error budget before the loop gives up.
	MaxConsecutiveErrors = 3

	// HardPageCeiling bounds total work when stall detection fails to
	// engage.
	HardPageCeiling = 2000
)

// Reason states why a capture session terminated.
type Reason string

const (
	ReasonCompleted        Reason = "completed"
	ReasonStalledDuplicate Reason = "stalled_duplicate"
	ReasonTooManyErrors    Reason = "too_many_errors"
	ReasonPageLimitReached Reason = "page_limit_reached"
	ReasonUserCancelled    Reason = "user_cancelled"
)

// Source is the input-simulation collaborator: it takes raw screen images,
// sends page-turn gestures, and exposes the user's abort signal.
type Source interface {
	CaptureFrame(ctx context.Context) (image.Image, error)
	AdvancePage(ctx context.Context) error
	Cancelled() bool
}

// FrameRecord identifies one persisted frame. Sequence indices are
// contiguous starting at 1 and are the sole basis for ordering.
type FrameRecord struct {
	Index      int
	Path       string
	CapturedAt time.Time
}

// Result is the outcome of one capture session. No state survives into a
// later invocation.
type Result struct {
	Reason        Reason
	PagesCaptured int
	Frames        []FrameRecord
}

// Options configure one capture session.
type Options struct {
	OutDir    string
	Threshold float64
	MaxPages  int
	PageDelay time.Duration
}

// Loop is the capture state machine.
type Loop struct {
	source Source
	opts   Options

	// wait accommodates application redraw latency between the page-turn
	// gesture and the next capture; injectable so tests run at full speed.
	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time
}

// New creates a capture loop over the given source.
func New(source Source, opts Options) *Loop {
	return &Loop{source: source, opts: opts, wait: sleep, now: time.Now}
}

// Run executes the session until a terminal state is reached. Every
// successfully persisted frame counts toward PagesCaptured, duplicates
// included; the terminating duplicate run is part of the total.
func (l *Loop) Run(ctx context.Context) (*Result, error) {
	if err := os.MkdirAll(l.opts.OutDir, 0o755); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeCaptureFailed, "create output directory")
	}
	limit := effectivePageLimit(l.opts.MaxPages)

	res := &Result{}
	var prev *image.Gray
	dupRun := 0
	errRun := 0

	// fail charges one iteration failure against the error budget and
	// reports whether the budget is exhausted.
	fail := func(stage string, err error) bool {
		errRun++
		slog.Warn("capture iteration failed", "stage", stage, "page", res.PagesCaptured+1, "consecutive", errRun, "error", err)
		return errRun >= MaxConsecutiveErrors
	}

	for {
		if l.source.Cancelled() || ctx.Err() != nil {
			res.Reason = ReasonUserCancelled
			return res, nil
		}

		frame, err := l.source.CaptureFrame(ctx)
		if err != nil {
			if fail("capture", err) {
				res.Reason = ReasonTooManyErrors
				return res, nil
			}
			if err := l.wait(ctx, l.opts.PageDelay); err != nil {
				res.Reason = ReasonUserCancelled
				return res, nil
			}
			continue
		}

		idx := res.PagesCaptured + 1
		path := filepath.Join(l.opts.OutDir, FrameName(idx))
		if err := writePNG(path, frame); err != nil {
			if fail("persist", err) {
				res.Reason = ReasonTooManyErrors
				return res, nil
			}
			if err := l.wait(ctx, l.opts.PageDelay); err != nil {
				res.Reason = ReasonUserCancelled
				return res, nil
			}
			continue
		}

		res.PagesCaptured++
		res.Frames = append(res.Frames, FrameRecord{Index: idx, Path: path, CapturedAt: l.now()})
		slog.Debug("captured page", "page", idx, "path", path)

		norm := imaging.Normalize(frame)
		if prev != nil {
			score, err := imaging.Compare(prev, norm)
			if err != nil {
				// Frames come from one display, so this is unexpected;
				// score it as fresh content rather than charging the
				// error budget.
				slog.Warn("frame comparison failed", "page", idx, "error", err)
				score = 0
			}
			if score >= l.opts.Threshold {
				dupRun++
			} else {
				dupRun = 0
			}
			if dupRun >= MaxConsecutiveDuplicates {
				slog.Info("capture stalled on repeated frames", "page", idx, "duplicates", dupRun)
				res.Reason = ReasonStalledDuplicate
				return res, nil
			}
		}
		prev = norm

		if res.PagesCaptured >= limit {
			res.Reason = limitReason(l.opts.MaxPages)
			return res, nil
		}

		if err := l.source.AdvancePage(ctx); err != nil {
			if fail("advance", err) {
				res.Reason = ReasonTooManyErrors
				return res, nil
			}
			if err := l.wait(ctx, l.opts.PageDelay); err != nil {
				res.Reason = ReasonUserCancelled
				return res, nil
			}
			continue
		}

		errRun = 0

		if err := l.wait(ctx, l.opts.PageDelay); err != nil {
			res.Reason = ReasonUserCancelled
			return res, nil
		}
	}
}

// FrameName returns the canonical frame filename for a 1-based sequence
// index, zero-padded to four digits and widening beyond 9999.
func FrameName(index int) string {
	return fmt.Sprintf("page_%04d.png", index)
}

// effectivePageLimit clamps the configured page count to the safety
// ceiling; zero or negative means uncapped up to the ceiling.
func effectivePageLimit(maxPages int) int {
	if maxPages <= 0 || maxPages > HardPageCeiling {
		return HardPageCeiling
	}
	return maxPages
}

// limitReason distinguishes finishing the requested page count from hitting
// the safety ceiling.
func limitReason(maxPages int) Reason {
	if maxPages > 0 && maxPages <= HardPageCeiling {
		return ReasonCompleted
	}
	return ReasonPageLimitReached
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return apperr.Wrapf(err, apperr.CodeCaptureFailed, "create %s", path)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return apperr.Wrapf(err, apperr.CodeCaptureFailed, "encode %s", path)
	}
	if err := f.Close(); err != nil {
		return apperr.Wrapf(err, apperr.CodeCaptureFailed, "close %s", path)
	}
	return nil
}

// sleep blocks for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
