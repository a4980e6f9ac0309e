// Package extractor routes a stored file to a format-specific text
// extraction backend based on its declared MIME type. The declared type
// is trusted; file bytes are never sniffed.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/brainquest/learning-platform/internal/core/domain"
	"github.com/brainquest/learning-platform/internal/core/ports"
)

// Format is the closed set of supported input formats, resolved once at
// the router boundary from the declared MIME type.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatImage
	FormatPlainText
)

func ResolveFormat(mimeType string) Format {
	switch {
	case mimeType == "application/pdf":
		return FormatPDF
	case strings.HasPrefix(mimeType, "image/"):
		return FormatImage
	case mimeType == "text/plain":
		return FormatPlainText
	default:
		return FormatUnsupported
	}
}

// Backend extracts text from a local file.
type Backend interface {
	ExtractFile(ctx context.Context, path string) (string, error)
}

type Router struct {
	fetcher ports.RemoteFetcher
	pdf     Backend
	image   Backend
	text    Backend
}

func NewRouter(fetcher ports.RemoteFetcher, pdf, image, text Backend) *Router {
	return &Router{
		fetcher: fetcher,
		pdf:     pdf,
		image:   image,
		text:    text,
	}
}

// Extract materializes the locator as a local file, dispatches it to the
// backend for its format and enforces the minimum-output check. Transient
// artifacts are cleaned up on every exit path.
func (r *Router) Extract(ctx context.Context, locator, mimeType string) (string, error) {
	format := ResolveFormat(mimeType)
	if format == FormatUnsupported {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("mime type %q", mimeType))
	}

	path, cleanup, err := r.fetcher.Fetch(ctx, locator, mimeType)
	if err != nil {
		return "", err
	}
	defer cleanup()

	var raw string
	switch format {
	case FormatPDF:
		raw, err = r.pdf.ExtractFile(ctx, path)
	case FormatImage:
		raw, err = r.image.ExtractFile(ctx, path)
	case FormatPlainText:
		raw, err = r.text.ExtractFile(ctx, path)
	default:
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("mime type %q", mimeType))
	}
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(raw)
	if len(text) < domain.MinExtractionChars {
		return "", domain.WrapError(domain.ErrEmptyExtraction, "extract text",
			fmt.Errorf("backend produced %d characters; file may be image-only or blank", len(text)))
	}
	return text, nil
}
