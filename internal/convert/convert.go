// Package convert turns captured PNG pages into white-backed JPEGs.
package convert

import (
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pagecap/pagecap/internal/imaging"
)

// Failed records a single file that could not be converted.
type Failed struct {
	Path string
	Err  error
}

// Report lists the outcome of one conversion pass.
type Report struct {
	DryRun  bool
	Outputs []string
	Failed  []Failed
}

// Directory converts every PNG in srcDir into dstDir at the given JPEG
// quality. A per-file decode failure is recorded and skipped; it never
// aborts the batch. Dry-run reports the planned outputs without writing.
func Directory(srcDir, dstDir string, quality int, dryRun bool) (*Report, error) {
	files, err := imaging.ListPNGs(srcDir)
	if err != nil {
		return nil, err
	}

	report := &Report{DryRun: dryRun}
	if len(files) == 0 {
		return report, nil
	}
	if !dryRun {
		if err := os.MkdirAll(dstDir, 0o755); err != nil {
			return nil, err
		}
	}

	for _, src := range files {
		dst := filepath.Join(dstDir, jpegName(src))
		if dryRun {
			report.Outputs = append(report.Outputs, dst)
			continue
		}
		if err := convertFile(src, dst, quality); err != nil {
			slog.Warn("conversion failed", "path", src, "error", err)
			report.Failed = append(report.Failed, Failed{Path: src, Err: err})
			continue
		}
		report.Outputs = append(report.Outputs, dst)
	}
	return report, nil
}

func jpegName(src string) string {
	base := filepath.Base(src)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".jpg"
}

func convertFile(src, dst string, quality int) error {
	img, err := imaging.Load(src)
	if err != nil {
		return err
	}
	flat := imaging.FlattenRGBA(img)

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, flat, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		os.Remove(dst)
		return err
	}
	return f.Close()
}
