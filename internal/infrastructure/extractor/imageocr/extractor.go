// Package imageocr recognizes text in raster images with the tesseract
// CLI. Images are preprocessed before recognition; a confidence estimate
// is derived from tesseract's TSV output when enabled.
package imageocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

type Config struct {
	Binary      string // binary name or absolute path; empty -> "tesseract"
	Language    string // default "eng"
	TessdataDir string
	PSM         int // page segmentation mode; 0 leaves tesseract's default
	Confidence  bool
}

// ProgressFunc receives coarse recognition progress (0-100). Purely an
// observability hook; never required for correctness.
type ProgressFunc func(percent int)

type Extractor struct {
	cfg        Config
	runner     Runner
	onProgress ProgressFunc
}

func New(cfg Config, onProgress ProgressFunc) *Extractor {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if onProgress == nil {
		onProgress = func(int) {}
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, onProgress: onProgress}
}

// NewWithRunner is used by tests to stub the tesseract invocation.
func NewWithRunner(cfg Config, runner Runner, onProgress ProgressFunc) *Extractor {
	e := New(cfg, onProgress)
	e.runner = runner
	return e
}

func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	e.onProgress(0)

	recognizePath := path
	if prePath, cleanup, err := preprocess(path); err != nil {
		slog.Warn("image_preprocess_failed", "error", err)
	} else {
		recognizePath = prePath
		defer cleanup()
	}
	e.onProgress(25)

	text, err := e.recognize(ctx, recognizePath)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	e.onProgress(90)

	if e.cfg.Confidence {
		if conf, err := e.meanConfidence(ctx, recognizePath); err == nil {
			slog.Info("image_ocr_confidence", "confidence", conf)
		} else {
			slog.Warn("image_ocr_confidence_failed", "error", err)
		}
	}

	e.onProgress(100)
	return text, nil
}

func (e *Extractor) recognize(ctx context.Context, path string) (string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Binary, e.args(path)...)
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// meanConfidence runs tesseract in TSV mode and averages per-word
// confidence into 0..1.
func (e *Extractor) meanConfidence(ctx context.Context, path string) (float64, error) {
	out, _, err := e.runner.Run(ctx, e.cfg.Binary, append(e.args(path), "tsv")...)
	if err != nil {
		return 0, err
	}

	var sum, n float64
	for i, line := range strings.Split(string(out), "\n") {
		if i == 0 || line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		conf := cols[len(cols)-2]
		if conf == "" || conf == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(conf, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / n / 100.0, nil
}

func (e *Extractor) args(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.Language}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}
