package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brainquest/learning-platform/internal/core/domain"
	"github.com/brainquest/learning-platform/internal/core/ports"
)

// terminalWriteTimeout bounds the status write that ends a run. The write
// uses a context detached from the run deadline: a timed-out or cancelled
// run must still reach a terminal status, or the row stays locked in
// processing and retry is rejected forever.
const terminalWriteTimeout = 10 * time.Second

// IngestResourceUseCase drives the ocr_status lifecycle of a resource:
// pending → processing → {completed, failed}, failed → processing on
// explicit retry. One execution of ProcessByID is one ingestion run.
type IngestResourceUseCase struct {
	repo      ports.ResourceRepository
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	queue     ports.MessageQueue
}

func NewIngestResourceUseCase(
	repo ports.ResourceRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	queue ports.MessageQueue,
) *IngestResourceUseCase {
	return &IngestResourceUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		queue:     queue,
	}
}

// ProcessByID runs the extraction pipeline for one resource. Every
// failure inside the run, panics included, is converted into a persisted
// failed status; nothing propagates back to the uploader. The returned
// error is for the worker's logging/metrics only.
func (uc *IngestResourceUseCase) ProcessByID(ctx context.Context, resourceID string) error {
	res, err := uc.repo.GetByID(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("fetch resource by id: %w", err)
	}

	// The processing status acts as the per-resource lock: the
	// conditional update refuses to start a second concurrent run.
	if err := uc.repo.MarkProcessing(ctx, resourceID); err != nil {
		if domain.IsKind(err, domain.ErrAlreadyProcessing) {
			slog.Warn("ingestion_run_skipped", "resource_id", resourceID, "reason", "already_processing")
			return err
		}
		return fmt.Errorf("set status=processing: %w", err)
	}

	text, runErr := uc.runExtraction(ctx, res)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()

	if runErr != nil {
		if failErr := uc.repo.MarkFailed(writeCtx, resourceID, runErr.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", runErr, failErr)
		}
		return runErr
	}

	if err := uc.repo.MarkCompleted(writeCtx, resourceID, text); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}

	slog.Info("ingestion_run_completed", "resource_id", resourceID, "text_chars", len(text))
	return nil
}

// runExtraction isolates the external-I/O-bound step and contains panics
// from extraction backends so a corrupt file can never take down the
// worker or leave the resource stuck in processing.
func (uc *IngestResourceUseCase) runExtraction(ctx context.Context, res *domain.Resource) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction backend panic: %v", r)
		}
	}()

	locator := res.StorageKey
	if !res.IsRemote() {
		locator = uc.storage.Path(res.StorageKey)
	}

	text, err = uc.extractor.Extract(ctx, locator, res.MimeType)
	if err != nil {
		return "", err
	}
	return text, nil
}

// Retry re-schedules ingestion for a resource. Unlike run-internal
// failures, rejections here propagate synchronously: the caller learns
// whether the retry was scheduled, not how it eventually ends.
func (uc *IngestResourceUseCase) Retry(ctx context.Context, resourceID string) error {
	res, err := uc.repo.GetByID(ctx, resourceID)
	if err != nil {
		return err
	}
	if res.IsDeleted {
		return domain.WrapError(domain.ErrResourceNotFound, "retry ingestion", fmt.Errorf("resource %s is deleted", resourceID))
	}
	if res.OCRStatus == domain.StatusProcessing {
		return domain.WrapError(domain.ErrAlreadyProcessing, "retry ingestion", fmt.Errorf("resource %s", resourceID))
	}
	if !res.IsRemote() {
		if err := uc.storage.Exists(ctx, res.StorageKey); err != nil {
			return domain.WrapError(domain.ErrFileMissing, "retry ingestion", err)
		}
	}

	if err := uc.queue.PublishIngestionRequested(ctx, resourceID); err != nil {
		return fmt.Errorf("schedule ingestion retry: %w", err)
	}
	slog.Info("ingestion_retry_scheduled", "resource_id", resourceID, "previous_status", string(res.OCRStatus))
	return nil
}
