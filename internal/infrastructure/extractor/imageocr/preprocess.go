package imageocr

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// preprocess writes a cleaned-up copy of the image (grayscale, boosted
// contrast, light sharpening) for recognition. Preprocessing is an
// accuracy aid, never a gate: on any failure the caller falls back to
// the original file. The returned cleanup removes the transient copy.
func preprocess(path string) (string, func(), error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", nil, err
	}

	img = imaging.Grayscale(img)
	img = imaging.AdjustContrast(img, 20)
	img = imaging.Sharpen(img, 1.0)

	tmp, err := os.CreateTemp("", "ocr-pre-*.png")
	if err != nil {
		return "", nil, err
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", nil, err
	}

	if err := imaging.Save(img, tmpPath, imaging.PNGCompressionLevel(0)); err != nil {
		_ = os.Remove(tmpPath)
		return "", nil, err
	}

	cleanup := func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("preprocess_cleanup_failed", "path", filepath.Base(tmpPath), "error", err)
		}
	}
	return tmpPath, cleanup, nil
}
