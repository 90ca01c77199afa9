package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pagecap/pagecap/internal/config"
	apperr "github.com/pagecap/pagecap/internal/errors"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.OutputFolder = t.TempDir()
	cfg.BookTitle = "Book"
	cfg.PDFOutputFolder = t.TempDir()
	cfg.JPGQuality = 90
	return cfg
}

func writeUniformPNG(t *testing.T, path string, v uint8) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// seedPages writes page_0001..page_0003 where the first two are identical.
func seedPages(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeUniformPNG(t, filepath.Join(dir, "page_0001.png"), 60)
	writeUniformPNG(t, filepath.Join(dir, "page_0002.png"), 60)
	writeUniformPNG(t, filepath.Join(dir, "page_0003.png"), 200)
}

func backupDirs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "backup_duplicates_") {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs
}

// cancelledSource aborts capture before the first frame.
type cancelledSource struct{}

func (cancelledSource) CaptureFrame(context.Context) (image.Image, error) { return nil, nil }
func (cancelledSource) AdvancePage(context.Context) error                 { return nil }
func (cancelledSource) Cancelled() bool                                   { return true }

func TestRunStepsStopsOnFirstFailure(t *testing.T) {
	var ran []string
	state := &State{}
	steps := []Step{
		{Name: "one", Run: func(context.Context) error { ran = append(ran, "one"); return nil }},
		{Name: "two", Run: func(context.Context) error { ran = append(ran, "two"); return fmt.Errorf("boom") }},
		{Name: "three", Run: func(context.Context) error { ran = append(ran, "three"); return nil }},
	}

	err := runSteps(context.Background(), state, steps)
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperr.IsCode(err, apperr.CodePipelineStep) {
		t.Errorf("error code = %v, want %v", apperr.CodeOf(err), apperr.CodePipelineStep)
	}
	if len(ran) != 2 || ran[1] != "two" {
		t.Errorf("ran = %v, want one then two only", ran)
	}
	if len(state.Steps) != 2 {
		t.Fatalf("Steps = %v, want 2 entries", state.Steps)
	}
	if state.Steps[0].Status != StatusOK || state.Steps[1].Status != StatusFailed {
		t.Errorf("statuses = %v/%v, want ok/failed", state.Steps[0].Status, state.Steps[1].Status)
	}
}

func TestRunStepsSkip(t *testing.T) {
	state := &State{}
	steps := []Step{
		{Name: "one", Run: func(context.Context) error { return nil }},
		{Name: "two", Skip: true, Run: func(context.Context) error {
			t.Error("skipped step must not run")
			return nil
		}},
		{Name: "three", Run: func(context.Context) error { return nil }},
	}

	if err := runSteps(context.Background(), state, steps); err != nil {
		t.Fatal(err)
	}
	want := []Status{StatusOK, StatusSkipped, StatusOK}
	for i, w := range want {
		if state.Steps[i].Status != w {
			t.Errorf("Steps[%d].Status = %v, want %v", i, state.Steps[i].Status, w)
		}
	}
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	seedPages(t, cfg.PagesDir())

	p := New(cfg, nil)
	state, err := p.Run(context.Background(), Options{SkipCapture: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range state.Steps[1:] {
		if s.Status != StatusOK {
			t.Errorf("step %s status = %v, want ok", s.Name, s.Status)
		}
	}

	// The redundant page is gone, its keeper and the distinct page remain.
	if _, err := os.Stat(filepath.Join(cfg.PagesDir(), "page_0002.png")); !os.IsNotExist(err) {
		t.Errorf("page_0002.png should be deleted, stat err = %v", err)
	}
	for _, name := range []string{"page_0001.png", "page_0003.png"} {
		if _, err := os.Stat(filepath.Join(cfg.PagesDir(), name)); err != nil {
			t.Errorf("%s should survive: %v", name, err)
		}
	}

	// The deleted page was backed up first.
	backups := backupDirs(t, cfg.PagesDir())
	if len(backups) != 1 {
		t.Fatalf("backup dirs = %v, want exactly one", backups)
	}
	saved := filepath.Join(cfg.PagesDir(), backups[0], "page_0002.png")
	if _, err := os.Stat(saved); err != nil {
		t.Errorf("backup copy missing: %v", err)
	}

	// Surviving pages were converted and assembled.
	for _, name := range []string{"page_0001.jpg", "page_0003.jpg"} {
		if _, err := os.Stat(filepath.Join(cfg.JPEGDir(), name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	info, err := os.Stat(cfg.PDFPath())
	if err != nil {
		t.Fatalf("assembled document missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("assembled document is empty")
	}
}

func TestRunDryRunMutatesNothing(t *testing.T) {
	cfg := testConfig(t)
	seedPages(t, cfg.PagesDir())

	p := New(cfg, nil)
	state, err := p.Run(context.Background(), Options{SkipCapture: true, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if !state.DryRun {
		t.Error("state should be marked dry-run")
	}

	entries, err := os.ReadDir(cfg.PagesDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("pages dir has %d entries after dry run, want the 3 seeded pages", len(entries))
	}
	if dirs := backupDirs(t, cfg.PagesDir()); len(dirs) != 0 {
		t.Errorf("backup dirs created during dry run: %v", dirs)
	}
	if _, err := os.Stat(cfg.JPEGDir()); !os.IsNotExist(err) {
		t.Errorf("jpg dir should not exist after dry run, stat err = %v", err)
	}
	if _, err := os.Stat(cfg.PDFPath()); !os.IsNotExist(err) {
		t.Errorf("document should not exist after dry run, stat err = %v", err)
	}
}

func TestRunCaptureFailureStopsPipeline(t *testing.T) {
	cfg := testConfig(t)

	p := New(cfg, cancelledSource{})
	state, err := p.Run(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error from aborted capture")
	}
	if !apperr.IsCode(err, apperr.CodePipelineStep) {
		t.Errorf("error code = %v, want %v", apperr.CodeOf(err), apperr.CodePipelineStep)
	}
	if !apperr.IsCode(err, apperr.CodeCaptureFailed) {
		t.Errorf("cause chain should carry %v", apperr.CodeCaptureFailed)
	}
	if len(state.Steps) != 1 || state.Steps[0].Name != "capture" || state.Steps[0].Status != StatusFailed {
		t.Errorf("Steps = %+v, want a single failed capture entry", state.Steps)
	}
}

func TestRunAllStepsSkipped(t *testing.T) {
	cfg := testConfig(t)

	p := New(cfg, nil)
	state, err := p.Run(context.Background(), Options{
		SkipCapture:  true,
		SkipDedup:    true,
		SkipConvert:  true,
		SkipAssemble: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Steps) != 4 {
		t.Fatalf("Steps = %v, want 4 entries", state.Steps)
	}
	for _, s := range state.Steps {
		if s.Status != StatusSkipped {
			t.Errorf("step %s status = %v, want skipped", s.Name, s.Status)
		}
	}
}
