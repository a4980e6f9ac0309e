package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brainquest/learning-platform/internal/core/domain"
	"github.com/brainquest/learning-platform/internal/core/ports"
)

type UploadResourceUseCase struct {
	repo    ports.ResourceRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewUploadResourceUseCase(
	repo ports.ResourceRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *UploadResourceUseCase {
	return &UploadResourceUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload stores the file, creates the resource record with a pending OCR
// status and schedules exactly one ingestion run. It never waits for the
// run: the caller gets the pending record back immediately.
func (uc *UploadResourceUseCase) Upload(ctx context.Context, in ports.UploadInput, body io.Reader) (*domain.Resource, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload resource", fmt.Errorf("title is required"))
	}
	if strings.TrimSpace(in.Filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload resource", fmt.Errorf("filename is required"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(in.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	res := &domain.Resource{
		ID:               id,
		Title:            in.Title,
		Description:      in.Description,
		OriginalFilename: in.Filename,
		StorageKey:       storageKey,
		MimeType:         in.MimeType,
		FileKind:         domain.KindForMimeType(in.MimeType),
		FileSize:         in.Size,
		OCRStatus:        domain.StatusPending,
		UploadedBy:       in.UploadedBy,
		Subject:          in.Subject,
		Tags:             normalizeTags(in.Tags),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.repo.Create(ctx, res); err != nil {
		return nil, fmt.Errorf("create resource record: %w", err)
	}

	if err := uc.queue.PublishIngestionRequested(ctx, res.ID); err != nil {
		return nil, fmt.Errorf("schedule ingestion: %w", err)
	}

	return res, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "resource.bin"
	}
	return base
}
