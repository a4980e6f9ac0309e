package domain

import (
	"errors"
	"fmt"
)

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")

	// Ingestion error taxonomy. Every failure inside a run is converted
	// into a persisted failed status; these kinds survive in ocr_error
	// messages and in synchronous retry rejections.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrDownloadFailed    = errors.New("file download failed")
	ErrEmptyExtraction   = errors.New("no readable text extracted")
	ErrAlreadyProcessing = errors.New("ingestion already in progress")
	ErrFileMissing       = errors.New("resource file not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
