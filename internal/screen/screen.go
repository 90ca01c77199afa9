// Package screen implements the capture source against the local machine:
// frames come from the primary display, page turns are simulated through
// the platform's input tooling.
package screen

import (
	"context"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/kbinani/screenshot"

	apperr "github.com/pagecap/pagecap/internal/errors"
)

// method is one way of turning a page; methods are tried in order until one
// succeeds, since readers differ in which keys they honor.
type method struct {
	name string
	send func(ctx context.Context) error
}

// Source captures the primary display and simulates page-turn input.
type Source struct {
	display   int
	methods   []method
	cancelled atomic.Bool
}

// New returns a source bound to the primary display.
func New() *Source {
	return &Source{methods: pageTurnMethods()}
}

// CaptureFrame grabs the current contents of the display.
func (s *Source) CaptureFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if screenshot.NumActiveDisplays() == 0 {
		return nil, apperr.New(apperr.CodeCaptureFailed, "no active displays")
	}
	bounds := screenshot.GetDisplayBounds(s.display)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeCaptureFailed, "capture display")
	}
	return img, nil
}

// AdvancePage sends a page-turn gesture, falling back through the
// platform's methods until one works.
func (s *Source) AdvancePage(ctx context.Context) error {
	var lastErr error
	for _, m := range s.methods {
		if err := m.send(ctx); err != nil {
			slog.Debug("page turn method failed", "method", m.name, "error", err)
			lastErr = err
			continue
		}
		return nil
	}
	return apperr.Wrap(lastErr, apperr.CodeCaptureFailed, "all page-turn methods failed")
}

// Cancel flags the session for cooperative termination; the capture loop
// polls it at iteration boundaries.
func (s *Source) Cancel() { s.cancelled.Store(true) }

// Cancelled reports whether the user aborted the session.
func (s *Source) Cancelled() bool { return s.cancelled.Load() }
