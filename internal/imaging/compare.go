// Package imaging provides image normalization and structural similarity
// scoring for near-duplicate page detection.
package imaging

import (
	"image"
	"image/draw"

	apperr "github.com/pagecap/pagecap/internal/errors"
)

// SSIM stabilization constants for 8-bit dynamic range.
const (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)

	ssimWindow = 8
)

// Compare scores the structural similarity of two images of equal pixel
// dimensions. Returns a value in [0,1] where 1.0 means visually identical.
// Both operands are composited onto an opaque white background first, so a
// transparent pixel and a white pixel score as identical. Compare never
// resamples; differing dimensions are the caller's problem.
func Compare(a, b image.Image) (float64, error) {
	aw, ah := a.Bounds().Dx(), a.Bounds().Dy()
	bw, bh := b.Bounds().Dx(), b.Bounds().Dy()
	if aw != bw || ah != bh {
		return 0, apperr.Newf(apperr.CodeDimensionMismatch, "cannot compare %dx%d against %dx%d", aw, ah, bw, bh)
	}

	ga := grayOverWhite(a)
	gb := grayOverWhite(b)

	var total float64
	var windows int
	for y := 0; y < ah; y += ssimWindow {
		for x := 0; x < aw; x += ssimWindow {
			w := min(ssimWindow, aw-x)
			h := min(ssimWindow, ah-y)
			total += windowSSIM(ga, gb, x, y, w, h)
			windows++
		}
	}
	if windows == 0 {
		return 0, apperr.New(apperr.CodeDimensionMismatch, "cannot compare empty images")
	}

	score := total / float64(windows)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}

// windowSSIM computes the SSIM index for one local window.
func windowSSIM(a, b *image.Gray, x0, y0, w, h int) float64 {
	n := float64(w * h)

	var sumA, sumB float64
	for y := y0; y < y0+h; y++ {
		rowA := a.Pix[y*a.Stride+x0 : y*a.Stride+x0+w]
		rowB := b.Pix[y*b.Stride+x0 : y*b.Stride+x0+w]
		for i := 0; i < w; i++ {
			sumA += float64(rowA[i])
			sumB += float64(rowB[i])
		}
	}
	meanA := sumA / n
	meanB := sumB / n

	var varA, varB, cov float64
	for y := y0; y < y0+h; y++ {
		rowA := a.Pix[y*a.Stride+x0 : y*a.Stride+x0+w]
		rowB := b.Pix[y*b.Stride+x0 : y*b.Stride+x0+w]
		for i := 0; i < w; i++ {
			da := float64(rowA[i]) - meanA
			db := float64(rowB[i]) - meanB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	varA /= n
	varB /= n
	cov /= n

	num := (2*meanA*meanB + ssimC1) * (2*cov + ssimC2)
	den := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)
	return num / den
}

// FlattenRGBA composites an image onto an opaque white background.
func FlattenRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

func grayOverWhite(img image.Image) *image.Gray {
	flat := FlattenRGBA(img)
	gray := image.NewGray(flat.Bounds())
	draw.Draw(gray, gray.Bounds(), flat, image.Point{}, draw.Src)
	return gray
}
