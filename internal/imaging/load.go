package imaging

import (
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	apperr "github.com/pagecap/pagecap/internal/errors"
)

// CompareSize is the edge length images are normalized to before scoring.
// Downscaling suppresses subpixel rendering noise between captures of the
// same page.
const CompareSize = 256

// Load decodes an image file.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.CodeImageDecode, "open %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.CodeImageDecode, "decode %s", path)
	}
	return img, nil
}

// Normalize prepares an image for comparison: composite onto white,
// Lanczos-downscale to CompareSize, convert to grayscale.
func Normalize(img image.Image) *image.Gray {
	flat := FlattenRGBA(img)
	resized := resize.Resize(CompareSize, CompareSize, flat, resize.Lanczos3)
	return grayOverWhite(resized)
}

// LoadNormalized loads an image and normalizes it for comparison.
func LoadNormalized(path string) (*image.Gray, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Normalize(img), nil
}

// ListByExt returns files in dir with one of the given extensions
// (case-insensitive), in natural sort order.
func ListByExt(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, want := range exts {
			if strings.EqualFold(ext, want) {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	SortNatural(files)
	return files, nil
}

// ListPNGs returns the PNG files in dir in natural sort order.
func ListPNGs(dir string) ([]string, error) {
	return ListByExt(dir, ".png")
}
