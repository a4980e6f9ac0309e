package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brainquest/learning-platform/internal/config"
	"github.com/brainquest/learning-platform/internal/core/domain"
	"github.com/brainquest/learning-platform/internal/core/ports"
)

type ingestorFake struct {
	lastInput ports.UploadInput
	err       error
}

func (f *ingestorFake) Upload(_ context.Context, in ports.UploadInput, body io.Reader) (*domain.Resource, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &domain.Resource{
		ID:               "res-1",
		Title:            in.Title,
		OriginalFilename: in.Filename,
		MimeType:         in.MimeType,
		FileKind:         domain.KindForMimeType(in.MimeType),
		OCRStatus:        domain.StatusPending,
		UploadedBy:       in.UploadedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

type runnerFake struct {
	retryErr error
	retried  []string
}

func (f *runnerFake) ProcessByID(context.Context, string) error { return nil }

func (f *runnerFake) Retry(_ context.Context, id string) error {
	if f.retryErr != nil {
		return f.retryErr
	}
	f.retried = append(f.retried, id)
	return nil
}

type readerFake struct {
	res     *domain.Resource
	getErr  error
	items   []domain.Resource
	total   int64
	listErr error
}

func (f *readerFake) GetByID(context.Context, string) (*domain.Resource, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.res, nil
}

func (f *readerFake) List(context.Context, domain.ResourceFilter) ([]domain.Resource, int64, error) {
	return f.items, f.total, f.listErr
}

type removerFake struct {
	err       error
	deleted   []string
	permanent []bool
}

func (f *removerFake) Delete(_ context.Context, id string, permanent bool) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	f.permanent = append(f.permanent, permanent)
	return nil
}

type quizServiceFake struct {
	quiz    *domain.Quiz
	genErr  error
	quizzes []domain.Quiz
	listErr error
	opts    domain.GenerationOptions
}

func (f *quizServiceFake) GenerateForResource(_ context.Context, _ string, opts domain.GenerationOptions) (*domain.Quiz, error) {
	f.opts = opts
	return f.quiz, f.genErr
}

func (f *quizServiceFake) ListByResource(context.Context, string) ([]domain.Quiz, error) {
	return f.quizzes, f.listErr
}

type routerFakes struct {
	ingestor *ingestorFake
	runner   *runnerFake
	reader   *readerFake
	remover  *removerFake
	quizzes  *quizServiceFake
}

func newTestRouter(f routerFakes) http.Handler {
	if f.ingestor == nil {
		f.ingestor = &ingestorFake{}
	}
	if f.runner == nil {
		f.runner = &runnerFake{}
	}
	if f.reader == nil {
		f.reader = &readerFake{}
	}
	if f.remover == nil {
		f.remover = &removerFake{}
	}
	if f.quizzes == nil {
		f.quizzes = &quizServiceFake{}
	}
	return NewRouter(config.Config{MaxUploadMB: 25}, f.ingestor, f.runner, f.reader, f.remover, f.quizzes, nil).Handler()
}

func multipartUpload(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(routerFakes{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestUploadResourceReturnsCreated(t *testing.T) {
	ingestor := &ingestorFake{}
	handler := newTestRouter(routerFakes{ingestor: ingestor})

	body, contentType := multipartUpload(t, map[string]string{
		"title":   "Bio notes",
		"subject": "biology",
		"tags":    "exam, chapter3",
	}, "notes.pdf", "%PDF-1.4")
	req := httptest.NewRequest(http.MethodPost, "/v1/resources", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-Id", "user-7")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["ocr_status"] != "pending" {
		t.Fatalf("expected pending status in response, got %v", payload["ocr_status"])
	}

	if ingestor.lastInput.UploadedBy != "user-7" {
		t.Fatalf("expected uploader from header, got %q", ingestor.lastInput.UploadedBy)
	}
	if got := ingestor.lastInput.Tags; len(got) != 2 || got[0] != "exam" || got[1] != "chapter3" {
		t.Fatalf("unexpected tags %v", got)
	}
}

func TestUploadResourceWithoutFile(t *testing.T) {
	handler := newTestRouter(routerFakes{})
	req := httptest.NewRequest(http.MethodPost, "/v1/resources", strings.NewReader("not multipart"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestOCRStatusEndpoint(t *testing.T) {
	reader := &readerFake{res: &domain.Resource{
		ID:            "res-1",
		OCRStatus:     domain.StatusCompleted,
		ExtractedText: "some extracted text",
	}}
	handler := newTestRouter(routerFakes{reader: reader})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/resources/res-1/ocr-status", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload struct {
		OCRStatus        string `json:"ocr_status"`
		HasExtractedText bool   `json:"has_extracted_text"`
		TextLength       int    `json:"text_length"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.OCRStatus != "completed" || !payload.HasExtractedText || payload.TextLength != len("some extracted text") {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestOCRStatusNotFound(t *testing.T) {
	reader := &readerFake{getErr: domain.WrapError(domain.ErrResourceNotFound, "get resource", errors.New("missing"))}
	handler := newTestRouter(routerFakes{reader: reader})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/resources/missing/ocr-status", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestRetryOCRAccepted(t *testing.T) {
	runner := &runnerFake{}
	handler := newTestRouter(routerFakes{runner: runner})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/resources/res-1/retry-ocr", nil))

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	if len(runner.retried) != 1 || runner.retried[0] != "res-1" {
		t.Fatalf("expected retry scheduled for res-1, got %v", runner.retried)
	}

	var payload map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["resource_id"] != "res-1" {
		t.Fatalf("unexpected payload %v", payload)
	}
	// Scheduling does not change the status; the response must not claim one.
	if _, ok := payload["ocr_status"]; ok {
		t.Fatal("retry response must not report a status it did not write")
	}
}

func TestRetryOCRConflictWhileProcessing(t *testing.T) {
	runner := &runnerFake{
		retryErr: domain.WrapError(domain.ErrAlreadyProcessing, "retry ingestion", errors.New("res-1")),
	}
	handler := newTestRouter(routerFakes{runner: runner})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/resources/res-1/retry-ocr", nil))

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestRetryOCRMissingFileIsBadRequest(t *testing.T) {
	runner := &runnerFake{
		retryErr: domain.WrapError(domain.ErrFileMissing, "retry ingestion", errors.New("stat failed")),
	}
	handler := newTestRouter(routerFakes{runner: runner})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/resources/res-1/retry-ocr", nil))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestDeleteResourcePermanentFlag(t *testing.T) {
	remover := &removerFake{}
	handler := newTestRouter(routerFakes{remover: remover})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/resources/res-1?permanent=true", nil))

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(remover.permanent) != 1 || !remover.permanent[0] {
		t.Fatalf("expected permanent delete, got %v", remover.permanent)
	}
}

func TestGenerateQuizEndpoint(t *testing.T) {
	quizzes := &quizServiceFake{quiz: &domain.Quiz{ID: "quiz-1", ResourceID: "res-1", Title: "Quiz: Notes"}}
	handler := newTestRouter(routerFakes{quizzes: quizzes})

	body := strings.NewReader(`{"num_questions":5,"difficulty":"hard","question_types":["true-false"]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/resources/res-1/quiz", body)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if quizzes.opts.NumQuestions != 5 || quizzes.opts.Difficulty != "hard" {
		t.Fatalf("unexpected options %+v", quizzes.opts)
	}
	if len(quizzes.opts.QuestionTypes) != 1 || quizzes.opts.QuestionTypes[0] != domain.QuestionTrueFalse {
		t.Fatalf("unexpected question types %v", quizzes.opts.QuestionTypes)
	}
}

func TestGenerateQuizWithoutBody(t *testing.T) {
	quizzes := &quizServiceFake{quiz: &domain.Quiz{ID: "quiz-1"}}
	handler := newTestRouter(routerFakes{quizzes: quizzes})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/resources/res-1/quiz", nil))

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201 for empty body, got %d: %s", res.Code, res.Body.String())
	}
}

func TestGenerateQuizInsufficientText(t *testing.T) {
	quizzes := &quizServiceFake{
		genErr: domain.WrapError(domain.ErrInvalidInput, "generate quiz", errors.New("extracted text is too short")),
	}
	handler := newTestRouter(routerFakes{quizzes: quizzes})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/resources/res-1/quiz", nil))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestListQuizzesEmpty(t *testing.T) {
	handler := newTestRouter(routerFakes{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/resources/res-1/quizzes", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload struct {
		Quizzes []domain.Quiz `json:"quizzes"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Quizzes == nil {
		t.Fatal("expected empty array, not null")
	}
}

func TestListResourcesPassesFilters(t *testing.T) {
	handler := newTestRouter(routerFakes{reader: &readerFake{total: 7}})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/resources?ocr_status=failed&page=2&limit=5", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload struct {
		Items []domain.Resource `json:"items"`
		Total int64             `json:"total"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Total != 7 || payload.Items == nil {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(routerFakes{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPut, "/v1/resources/res-1", nil))

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	rt := NewRouter(
		config.Config{APIRateLimitRPS: 1, APIRateLimitBurst: 1},
		&ingestorFake{}, &runnerFake{}, &readerFake{res: &domain.Resource{ID: "res-1"}}, &removerFake{}, &quizServiceFake{},
		nil,
	)
	handler := rt.Handler()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/resources/res-1", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/resources/res-1", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") != "1" {
		t.Fatal("expected Retry-After header")
	}
}
