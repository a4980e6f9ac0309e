package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/brainquest/learning-platform/internal/core/domain"
)

type quizRepoFake struct {
	created   *domain.Quiz
	createErr error
	quizzes   []domain.Quiz
	listErr   error
}

func (f *quizRepoFake) Create(_ context.Context, quiz *domain.Quiz) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = quiz
	return nil
}

func (f *quizRepoFake) GetByID(context.Context, string) (*domain.Quiz, error) {
	return nil, domain.WrapError(domain.ErrQuizNotFound, "get quiz", errors.New("not found"))
}

func (f *quizRepoFake) ListByResource(context.Context, string) ([]domain.Quiz, error) {
	return f.quizzes, f.listErr
}

// generatorFake returns one canned result per call, in order. Calls past
// the end of the script reuse the last entry.
type generatorFake struct {
	script   []generatorResult
	calls    int
	lastOpts domain.GenerationOptions
}

type generatorResult struct {
	questions []domain.Question
	err       error
}

func (f *generatorFake) Generate(_ context.Context, _ string, opts domain.GenerationOptions) ([]domain.Question, error) {
	f.lastOpts = opts
	idx := f.calls
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	f.calls++
	out := f.script[idx]
	return out.questions, out.err
}

func validQuestions() []domain.Question {
	return []domain.Question{
		{
			Type:          domain.QuestionMultipleChoice,
			Question:      "What is photosynthesis?",
			Options:       []string{"A process", "A plant", "A cell", "A molecule"},
			CorrectAnswer: "A process",
		},
		{
			Type:          domain.QuestionTrueFalse,
			Question:      "Plants produce oxygen.",
			CorrectAnswer: "true",
		},
	}
}

func completedResource() *domain.Resource {
	words := strings.Repeat("photosynthesis converts light energy into chemical energy ", 12)
	return &domain.Resource{
		ID:            "res-1",
		Title:         "Biology chapter 3",
		Subject:       "biology",
		OCRStatus:     domain.StatusCompleted,
		ExtractedText: words,
	}
}

func newQuizUC(repo *resourceRepoFake, quizzes *quizRepoFake, gen *generatorFake, maxAttempts int) *GenerateQuizUseCase {
	return NewGenerateQuizUseCase(repo, quizzes, gen, QuizConfig{
		MaxAttempts:    maxAttempts,
		RetryBaseDelay: time.Millisecond,
	})
}

func TestGenerateForResourcePersistsQuizOnFirstAttempt(t *testing.T) {
	repo := &resourceRepoFake{res: completedResource()}
	quizzes := &quizRepoFake{}
	gen := &generatorFake{script: []generatorResult{{questions: validQuestions()}}}
	uc := newQuizUC(repo, quizzes, gen, 2)

	quiz, err := uc.GenerateForResource(context.Background(), "res-1", domain.GenerationOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected exactly one generator call, got %d", gen.calls)
	}
	if quizzes.created == nil || quizzes.created.ID != quiz.ID {
		t.Fatal("expected quiz persisted")
	}
	if quiz.Title != "Quiz: Biology chapter 3" {
		t.Fatalf("unexpected quiz title %q", quiz.Title)
	}
	if repo.attachedQuiz != quiz.ID {
		t.Fatalf("expected quiz id attached to resource, got %q", repo.attachedQuiz)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
}

func TestGenerateForResourceAppliesConfiguredQuestionCount(t *testing.T) {
	repo := &resourceRepoFake{res: completedResource()}
	gen := &generatorFake{script: []generatorResult{{questions: validQuestions()}}}
	uc := NewGenerateQuizUseCase(repo, &quizRepoFake{}, gen, QuizConfig{
		MaxAttempts:    1,
		RetryBaseDelay: time.Millisecond,
		NumQuestions:   4,
	})

	if _, err := uc.GenerateForResource(context.Background(), "res-1", domain.GenerationOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.lastOpts.NumQuestions != 4 {
		t.Fatalf("expected configured question count 4, got %d", gen.lastOpts.NumQuestions)
	}

	// An explicit request count wins over the configured default.
	if _, err := uc.GenerateForResource(context.Background(), "res-1", domain.GenerationOptions{NumQuestions: 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.lastOpts.NumQuestions != 7 {
		t.Fatalf("expected request count 7, got %d", gen.lastOpts.NumQuestions)
	}
}

func TestGenerateForResourceRetriesThenSucceeds(t *testing.T) {
	repo := &resourceRepoFake{res: completedResource()}
	gen := &generatorFake{script: []generatorResult{
		{err: errors.New("model overloaded")},
		{err: errors.New("model overloaded")},
		{questions: validQuestions()},
	}}
	uc := newQuizUC(repo, &quizRepoFake{}, gen, 3)

	quiz, err := uc.GenerateForResource(context.Background(), "res-1", domain.GenerationOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", gen.calls)
	}
	if len(quiz.Questions) == 0 {
		t.Fatal("expected questions on eventual success")
	}
}

func TestGenerateForResourceExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	repo := &resourceRepoFake{res: completedResource()}
	gen := &generatorFake{script: []generatorResult{
		{err: errors.New("first failure")},
		{err: errors.New("second failure")},
	}}
	quizzes := &quizRepoFake{}
	uc := newQuizUC(repo, quizzes, gen, 2)

	_, err := uc.GenerateForResource(context.Background(), "res-1", domain.GenerationOptions{})
	if err == nil {
		t.Fatal("expected error after exhausted attempts")
	}
	if gen.calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", gen.calls)
	}
	if !strings.Contains(err.Error(), "second failure") {
		t.Fatalf("expected last error surfaced, got %v", err)
	}
	if quizzes.created != nil {
		t.Fatal("no quiz must be persisted on failure")
	}
}

func TestGenerateForResourceRejectsInvalidQuestionBatch(t *testing.T) {
	repo := &resourceRepoFake{res: completedResource()}
	bad := validQuestions()
	bad[1].CorrectAnswer = ""
	gen := &generatorFake{script: []generatorResult{{questions: bad}}}
	uc := newQuizUC(repo, &quizRepoFake{}, gen, 1)

	_, err := uc.GenerateForResource(context.Background(), "res-1", domain.GenerationOptions{})
	if err == nil {
		t.Fatal("expected error for batch with an invalid question")
	}
	if !strings.Contains(err.Error(), "missing correct answer") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateForResourceRequiresCompletedExtraction(t *testing.T) {
	res := completedResource()
	res.OCRStatus = domain.StatusProcessing
	uc := newQuizUC(&resourceRepoFake{res: res}, &quizRepoFake{}, &generatorFake{script: []generatorResult{{}}}, 2)

	_, err := uc.GenerateForResource(context.Background(), "res-1", domain.GenerationOptions{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGenerateForResourceRejectsInsufficientText(t *testing.T) {
	res := completedResource()
	res.ExtractedText = "short text but completed"
	gen := &generatorFake{script: []generatorResult{{questions: validQuestions()}}}
	uc := newQuizUC(&resourceRepoFake{res: res}, &quizRepoFake{}, gen, 2)

	_, err := uc.GenerateForResource(context.Background(), "res-1", domain.GenerationOptions{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for insufficient text, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatal("generator must not be called when text is insufficient")
	}
}

func TestGenerateForResourceRejectsDeletedResource(t *testing.T) {
	res := completedResource()
	res.IsDeleted = true
	uc := newQuizUC(&resourceRepoFake{res: res}, &quizRepoFake{}, &generatorFake{script: []generatorResult{{}}}, 2)

	_, err := uc.GenerateForResource(context.Background(), "res-1", domain.GenerationOptions{})
	if !domain.IsKind(err, domain.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestListByResourceHidesSoftDeletedResource(t *testing.T) {
	res := completedResource()
	res.IsDeleted = true
	quizzes := &quizRepoFake{quizzes: []domain.Quiz{{ID: "quiz-1", ResourceID: "res-1"}}}
	uc := newQuizUC(&resourceRepoFake{res: res}, quizzes, &generatorFake{script: []generatorResult{{}}}, 2)

	_, err := uc.ListByResource(context.Background(), "res-1")
	if !domain.IsKind(err, domain.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound for deleted resource, got %v", err)
	}
}

func TestListByResourceChecksResourceExists(t *testing.T) {
	repo := &resourceRepoFake{getErr: domain.WrapError(domain.ErrResourceNotFound, "get resource", errors.New("missing"))}
	uc := newQuizUC(repo, &quizRepoFake{}, &generatorFake{script: []generatorResult{{}}}, 2)

	_, err := uc.ListByResource(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}
