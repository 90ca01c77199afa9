// Package config handles run configuration: a strict structure with named,
// range-validated fields, loaded once and passed by value into each
// component. No component reads ambient global state.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	apperr "github.com/pagecap/pagecap/internal/errors"
)

// Config describes one pipeline run.
type Config struct {
	OutputFolder        string  `json:"output_folder"`
	BookTitle           string  `json:"book_title"`
	PageDelay           int     `json:"page_delay"` // seconds between page turn and next capture
	NumPages            int     `json:"num_pages"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	JPGQuality          int     `json:"jpg_quality"`
	StartDelay          int     `json:"start_delay"` // seconds before capture begins
	PDFOutputFolder     string  `json:"pdf_output_folder"`
	PDFFilename         string  `json:"pdf_filename"`
	PagesPerPDF         int     `json:"pages_per_pdf"` // 0 = single document
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		OutputFolder:        filepath.Join(home, "Documents"),
		BookTitle:           "KindleBook",
		PageDelay:           2,
		NumPages:            100,
		SimilarityThreshold: 0.99,
		JPGQuality:          95,
		StartDelay:          5,
	}
}

// Load reads a JSON config file over the defaults and validates the result.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return cfg, apperr.Wrapf(err, apperr.CodeConfigInvalid, "read %s", path)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, apperr.Wrapf(err, apperr.CodeConfigInvalid, "parse %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks every field range once at load time.
func (c Config) Validate() error {
	if c.BookTitle == "" {
		return apperr.New(apperr.CodeConfigInvalid, "book_title must not be empty")
	}
	if c.OutputFolder == "" {
		return apperr.New(apperr.CodeConfigInvalid, "output_folder must not be empty")
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return apperr.Newf(apperr.CodeConfigInvalid, "similarity_threshold %v outside [0,1]", c.SimilarityThreshold)
	}
	if c.NumPages < 1 || c.NumPages > 2000 {
		return apperr.Newf(apperr.CodeConfigInvalid, "num_pages %d outside [1,2000]", c.NumPages)
	}
	if c.PageDelay < 1 || c.PageDelay > 10 {
		return apperr.Newf(apperr.CodeConfigInvalid, "page_delay %d outside [1,10]", c.PageDelay)
	}
	if c.JPGQuality < 1 || c.JPGQuality > 100 {
		return apperr.Newf(apperr.CodeConfigInvalid, "jpg_quality %d outside [1,100]", c.JPGQuality)
	}
	if c.StartDelay < 0 || c.StartDelay > 60 {
		return apperr.Newf(apperr.CodeConfigInvalid, "start_delay %d outside [0,60]", c.StartDelay)
	}
	if c.PagesPerPDF < 0 {
		return apperr.Newf(apperr.CodeConfigInvalid, "pages_per_pdf %d must not be negative", c.PagesPerPDF)
	}
	return nil
}

// PagesDir returns the directory where captured pages are stored.
func (c Config) PagesDir() string {
	return filepath.Join(c.OutputFolder, c.BookTitle)
}

// JPEGDir returns the directory for converted JPEG pages.
func (c Config) JPEGDir() string {
	return filepath.Join(c.PagesDir(), "jpg")
}

// PDFPath returns the output path of the assembled document.
func (c Config) PDFPath() string {
	name := c.PDFFilename
	if name == "" {
		name = c.BookTitle + ".pdf"
	}
	if c.PDFOutputFolder != "" {
		return filepath.Join(c.PDFOutputFolder, name)
	}
	return name
}
