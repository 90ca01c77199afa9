// Package dedup groups visually near-identical page images under a
// similarity threshold. Scanning never deletes; deletion is a separate,
// explicit step owned by the backup manager.
package dedup

import (
	"image"
	"log/slog"

	"github.com/corona10/goimagehash"

	apperr "github.com/pagecap/pagecap/internal/errors"
	"github.com/pagecap/pagecap/internal/imaging"
)

const (
	// prefilterMaxDistance is the pHash Hamming distance beyond which two
	// images cannot plausibly clear a high dedup threshold; the SSIM pass
	// is skipped for those pairs.
	prefilterMaxDistance = 16

	// prefilterMinThreshold guards the fast path: below this threshold even
	// visually unrelated images may legitimately score as duplicates, so
	// every pair gets the full SSIM pass.
	prefilterMinThreshold = 0.9
)

// Group is a non-empty ordered set of near-identical images. The keeper is
// the earliest member in natural sort order; the rest are redundant.
type Group struct {
	Keeper    string
	Redundant []string
}

// Size returns the number of images in the group, keeper included.
func (g *Group) Size() int { return 1 + len(g.Redundant) }

// Undecidable records an image that could not be decoded and was excluded
// from grouping.
type Undecidable struct {
	Path string
	Err  error
}

// Report is the outcome of one scan.
type Report struct {
	Scanned     int
	Groups      []Group
	Undecidable []Undecidable
}

// RedundantPaths returns every non-keeper path across all groups, in group
// order.
func (r *Report) RedundantPaths() []string {
	var paths []string
	for _, g := range r.Groups {
		paths = append(paths, g.Redundant...)
	}
	return paths
}

// RedundantCount returns the number of images eligible for deletion.
func (r *Report) RedundantCount() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Redundant)
	}
	return n
}

type keeper struct {
	group int
	img   *image.Gray
	hash  *goimagehash.ImageHash
}

// Scan groups images by visual similarity. Each image is compared against
// the keeper of every existing group, joining the first whose keeper scores
// at or above the threshold; otherwise it starts a new group. This bounds
// cost to O(n*g) instead of all-pairs.
func Scan(paths []string, threshold float64) (*Report, error) {
	if threshold < 0 || threshold > 1 {
		return nil, apperr.Newf(apperr.CodeInvalidThreshold, "threshold %v outside [0,1]", threshold)
	}

	sorted := make([]string, len(paths))
	copy(sorted, paths)
	imaging.SortNatural(sorted)

	report := &Report{Scanned: len(sorted)}
	prefilter := threshold >= prefilterMinThreshold
	var keepers []keeper

	for _, path := range sorted {
		img, err := imaging.LoadNormalized(path)
		if err != nil {
			slog.Warn("undecidable image excluded from grouping", "path", path, "error", err)
			report.Undecidable = append(report.Undecidable, Undecidable{Path: path, Err: err})
			continue
		}

		hash, err := goimagehash.PerceptionHash(img)
		if err != nil {
			hash = nil
		}

		joined := false
		for i := range keepers {
			k := &keepers[i]
			if prefilter && hash != nil && k.hash != nil {
				if d, err := k.hash.Distance(hash); err == nil && d > prefilterMaxDistance {
					continue
				}
			}
			score, err := imaging.Compare(k.img, img)
			if err != nil {
				// Normalized images share dimensions, so this is unexpected.
				slog.Warn("comparison failed", "keeper", report.Groups[k.group].Keeper, "path", path, "error", err)
				continue
			}
			if score >= threshold {
				report.Groups[k.group].Redundant = append(report.Groups[k.group].Redundant, path)
				joined = true
				break
			}
		}
		if !joined {
			report.Groups = append(report.Groups, Group{Keeper: path})
			keepers = append(keepers, keeper{group: len(report.Groups) - 1, img: img, hash: hash})
		}
	}

	return report, nil
}
