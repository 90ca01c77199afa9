// Package assemble packages page images into PDF documents.
package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	apperr "github.com/pagecap/pagecap/internal/errors"
	"github.com/pagecap/pagecap/internal/imaging"
)

// Report describes the documents produced by one assembly pass.
type Report struct {
	DryRun  bool
	Pages   int
	Outputs []string
}

// Build assembles the images in srcDir into one PDF at outPath, or into
// numbered parts of pagesPerPDF pages each when pagesPerPDF > 0. Dry-run
// reports the planned outputs without writing.
func Build(srcDir, outPath string, pagesPerPDF int, dryRun bool) (*Report, error) {
	files, err := imaging.ListByExt(srcDir, ".jpg", ".jpeg", ".png")
	if err != nil {
		return nil, err
	}

	report := &Report{DryRun: dryRun, Pages: len(files)}
	if len(files) == 0 {
		return report, nil
	}

	batches := chunk(files, pagesPerPDF)
	for i, batch := range batches {
		out := partName(outPath, i+1, len(batches))
		report.Outputs = append(report.Outputs, out)
		if dryRun {
			continue
		}
		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, apperr.Wrapf(err, apperr.CodePipelineStep, "create %s", dir)
			}
		}
		if err := api.ImportImagesFile(batch, out, nil, nil); err != nil {
			return nil, apperr.Wrapf(err, apperr.CodePipelineStep, "assemble %s", out)
		}
	}
	return report, nil
}

// chunk splits files into batches of size n; n <= 0 keeps one batch.
func chunk(files []string, n int) [][]string {
	if n <= 0 || n >= len(files) {
		return [][]string{files}
	}
	var batches [][]string
	for len(files) > 0 {
		end := min(n, len(files))
		batches = append(batches, files[:end])
		files = files[end:]
	}
	return batches
}

// partName numbers multi-part outputs: book.pdf becomes book_part01.pdf.
func partName(outPath string, part, total int) string {
	if total <= 1 {
		return outPath
	}
	ext := filepath.Ext(outPath)
	return fmt.Sprintf("%s_part%02d%s", strings.TrimSuffix(outPath, ext), part, ext)
}
