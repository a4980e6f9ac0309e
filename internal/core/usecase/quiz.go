package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brainquest/learning-platform/internal/core/domain"
	"github.com/brainquest/learning-platform/internal/core/ports"
)

type QuizConfig struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
	// NumQuestions is the question count used when the request does not
	// specify one.
	NumQuestions int
}

func (c QuizConfig) withDefaults() QuizConfig {
	out := c
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 2
	}
	if out.RetryBaseDelay <= 0 {
		out.RetryBaseDelay = time.Second
	}
	if out.NumQuestions <= 0 {
		out.NumQuestions = 10
	}
	return out
}

// GenerateQuizUseCase turns extracted text into a persisted quiz. It
// shares the ingestion pipeline's best-effort pattern but runs in the
// request path: quiz generation is always an explicit, separate trigger
// that requires a completed extraction.
type GenerateQuizUseCase struct {
	resources ports.ResourceRepository
	quizzes   ports.QuizRepository
	generator ports.QuestionGenerator
	cfg       QuizConfig
}

func NewGenerateQuizUseCase(
	resources ports.ResourceRepository,
	quizzes ports.QuizRepository,
	generator ports.QuestionGenerator,
	cfg QuizConfig,
) *GenerateQuizUseCase {
	return &GenerateQuizUseCase{
		resources: resources,
		quizzes:   quizzes,
		generator: generator,
		cfg:       cfg.withDefaults(),
	}
}

func (uc *GenerateQuizUseCase) GenerateForResource(ctx context.Context, resourceID string, opts domain.GenerationOptions) (*domain.Quiz, error) {
	res, err := uc.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if res.IsDeleted {
		return nil, domain.WrapError(domain.ErrResourceNotFound, "generate quiz", fmt.Errorf("resource %s is deleted", resourceID))
	}
	if res.OCRStatus != domain.StatusCompleted || res.ExtractedText == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate quiz",
			fmt.Errorf("resource text extraction is not completed (status=%s)", res.OCRStatus))
	}
	if !domain.SufficientForQuiz(res.ExtractedText) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate quiz",
			fmt.Errorf("extracted text is too short to generate a meaningful quiz"))
	}

	if opts.Subject == "" {
		opts.Subject = res.Subject
	}
	if opts.NumQuestions <= 0 {
		opts.NumQuestions = uc.cfg.NumQuestions
	}
	questions, err := uc.generateWithRetry(ctx, res.ExtractedText, opts.WithDefaults())
	if err != nil {
		return nil, err
	}

	quiz := &domain.Quiz{
		ID:         uuid.NewString(),
		ResourceID: res.ID,
		Title:      fmt.Sprintf("Quiz: %s", res.Title),
		Questions:  questions,
		CreatedAt:  time.Now().UTC(),
	}
	if err := uc.quizzes.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("save quiz: %w", err)
	}
	if err := uc.resources.AttachQuiz(ctx, res.ID, quiz.ID); err != nil {
		return nil, fmt.Errorf("attach quiz to resource: %w", err)
	}
	return quiz, nil
}

// generateWithRetry calls the external generator up to MaxAttempts times
// with linear backoff (attempt × base delay) between attempts. A batch
// containing a single invalid question counts as a failed attempt; the
// wrapper never accepts a partially valid batch.
func (uc *GenerateQuizUseCase) generateWithRetry(ctx context.Context, text string, opts domain.GenerationOptions) ([]domain.Question, error) {
	var lastErr error

	for attempt := 1; attempt <= uc.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			break
		}

		questions, err := uc.attempt(ctx, text, opts)
		if err == nil && len(questions) > 0 {
			return questions, nil
		}
		if err != nil {
			lastErr = err
			slog.Warn("quiz_generation_attempt_failed",
				"attempt", attempt,
				"max_attempts", uc.cfg.MaxAttempts,
				"error", err,
			)
		}

		if attempt < uc.cfg.MaxAttempts {
			wait := time.Duration(attempt) * uc.cfg.RetryBaseDelay
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("failed to generate quiz after multiple attempts")
}

func (uc *GenerateQuizUseCase) attempt(ctx context.Context, text string, opts domain.GenerationOptions) ([]domain.Question, error) {
	questions, err := uc.generator.Generate(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	if err := domain.NormalizeQuestions(questions); err != nil {
		return nil, fmt.Errorf("parse generated questions: %w", err)
	}
	return questions, nil
}

func (uc *GenerateQuizUseCase) ListByResource(ctx context.Context, resourceID string) ([]domain.Quiz, error) {
	res, err := uc.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if res.IsDeleted {
		return nil, domain.WrapError(domain.ErrResourceNotFound, "list quizzes", fmt.Errorf("resource %s is deleted", resourceID))
	}
	return uc.quizzes.ListByResource(ctx, resourceID)
}
