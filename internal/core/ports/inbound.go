package ports

import (
	"context"
	"io"

	"github.com/brainquest/learning-platform/internal/core/domain"
)

// UploadInput carries the metadata the upload middleware supplies
// alongside the file body.
type UploadInput struct {
	Title       string
	Description string
	Filename    string
	MimeType    string
	Size        int64
	UploadedBy  string
	Subject     string
	Tags        []string
}

// ResourceIngestor is the inbound contract for resource upload.
type ResourceIngestor interface {
	Upload(ctx context.Context, in UploadInput, body io.Reader) (*domain.Resource, error)
}

// IngestionRunner executes one ingestion run for a resource, from
// processing to a terminal status. Errors inside the run are persisted,
// never propagated to the original uploader.
type IngestionRunner interface {
	ProcessByID(ctx context.Context, resourceID string) error
	// Retry re-schedules ingestion for a failed resource. Rejections
	// (deleted, missing file, already processing) propagate
	// synchronously to the caller.
	Retry(ctx context.Context, resourceID string) error
}

// ResourceReader is the inbound read model for resource metadata/state.
type ResourceReader interface {
	GetByID(ctx context.Context, id string) (*domain.Resource, error)
	List(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, int64, error)
}

// ResourceRemover deletes resources; soft by default, permanent on request.
type ResourceRemover interface {
	Delete(ctx context.Context, id string, permanent bool) error
}

// QuizService generates and persists quizzes from extracted text.
type QuizService interface {
	GenerateForResource(ctx context.Context, resourceID string, opts domain.GenerationOptions) (*domain.Quiz, error)
	ListByResource(ctx context.Context, resourceID string) ([]domain.Quiz, error)
}
