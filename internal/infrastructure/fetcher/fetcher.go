// Package fetcher materializes a storage locator as a local file for
// the extraction backends. Remote locators are downloaded into a
// transient copy owned exclusively by the calling extraction run.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brainquest/learning-platform/internal/core/domain"
)

const (
	// DefaultTimeout bounds the whole remote download.
	DefaultTimeout = 60 * time.Second

	userAgent = "BrainQuest-OCR-Service/1.0"
)

type Fetcher struct {
	client *http.Client
}

func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

func noopCleanup() {}

// Fetch returns a local path for the locator. Local paths are
// stat-checked and returned as-is with a no-op cleanup; http(s) locators
// are downloaded into a temp file removed by the returned cleanup.
// Network and HTTP failures surface as domain.ErrDownloadFailed,
// distinct from extraction errors.
func (f *Fetcher) Fetch(ctx context.Context, locator, mimeType string) (string, func(), error) {
	if !strings.HasPrefix(locator, "http://") && !strings.HasPrefix(locator, "https://") {
		if _, err := os.Stat(locator); err != nil {
			return "", nil, domain.WrapError(domain.ErrFileMissing, "fetch local file", err)
		}
		return locator, noopCleanup, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrDownloadFailed, "build download request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrDownloadFailed, "download file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, domain.WrapError(domain.ErrDownloadFailed, "download file",
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	tmp, err := os.CreateTemp("", "ocr-*"+extensionForMimeType(mimeType))
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrDownloadFailed, "create temp file", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", nil, domain.WrapError(domain.ErrDownloadFailed, "write temp file", err)
	}

	slog.Debug("remote_file_downloaded", "bytes", written, "mime_type", mimeType)

	cleanup := func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("temp_file_cleanup_failed", "error", err)
		}
	}
	return tmpPath, cleanup, nil
}

// extensionForMimeType picks the transient copy's extension from the
// declared MIME type so downstream tools see a familiar suffix.
func extensionForMimeType(mimeType string) string {
	switch mimeType {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "text/plain":
		return ".txt"
	default:
		return ".bin"
	}
}
