package ports

import (
	"context"
	"io"

	"github.com/brainquest/learning-platform/internal/core/domain"
)

// ResourceRepository persists and reads resource state. Status writes are
// unconditional field sets; MarkProcessing is the single conditional write
// implementing the one-run-per-resource lock.
type ResourceRepository interface {
	Create(ctx context.Context, res *domain.Resource) error
	GetByID(ctx context.Context, id string) (*domain.Resource, error)
	List(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error)
	Count(ctx context.Context, filter domain.ResourceFilter) (int64, error)

	// MarkProcessing transitions to processing only when no run is in
	// flight. Returns domain.ErrAlreadyProcessing when the row is live
	// but already processing.
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, extractedText string) error
	MarkFailed(ctx context.Context, id, message string) error

	SoftDelete(ctx context.Context, id string) error
	DeletePermanently(ctx context.Context, id string) error
	AttachQuiz(ctx context.Context, resourceID, quizID string) error
}

// QuizRepository persists generated quizzes.
type QuizRepository interface {
	Create(ctx context.Context, quiz *domain.Quiz) error
	GetByID(ctx context.Context, id string) (*domain.Quiz, error)
	ListByResource(ctx context.Context, resourceID string) ([]domain.Quiz, error)
}

// ObjectStorage stores uploaded source files. Reads go through Path:
// the extraction backends open files directly.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Exists(ctx context.Context, key string) error
	Remove(ctx context.Context, key string) error
	// Path resolves a storage key to a local filesystem path for
	// backends that read files directly.
	Path(key string) string
}

// MessageQueue schedules ingestion runs detached from the HTTP cycle.
type MessageQueue interface {
	PublishIngestionRequested(ctx context.Context, resourceID string) error
	SubscribeIngestionRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor routes a stored file to the right extraction backend and
// returns normalized text.
type TextExtractor interface {
	Extract(ctx context.Context, locator, mimeType string) (string, error)
}

// RemoteFetcher materializes a storage locator as a local file. The
// cleanup func must be called on every exit path; for already-local
// locators it is a no-op.
type RemoteFetcher interface {
	Fetch(ctx context.Context, locator, mimeType string) (localPath string, cleanup func(), err error)
}

// QuestionGenerator is the external AI collaborator. Returned questions
// are raw; validation happens in the retry wrapper.
type QuestionGenerator interface {
	Generate(ctx context.Context, text string, opts domain.GenerationOptions) ([]domain.Question, error)
}
