package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/brainquest/learning-platform/internal/core/domain"
	"github.com/brainquest/learning-platform/internal/core/ports"
)

const userIDHeader = "X-User-Id"

func (rt *Router) uploadResource(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(rt.cfg.MaxUploadMB) << 20
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	in := ports.UploadInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Filename:    fileHeader.Filename,
		MimeType:    fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		UploadedBy:  strings.TrimSpace(r.Header.Get(userIDHeader)),
		Subject:     r.FormValue("subject"),
		Tags:        splitTags(r.FormValue("tags")),
	}
	if in.Title == "" {
		in.Title = fileHeader.Filename
	}

	res, err := rt.ingest.Upload(r.Context(), in, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         res.ID,
		"title":      res.Title,
		"file_kind":  res.FileKind,
		"ocr_status": res.OCRStatus,
	})
}

func (rt *Router) listResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ResourceFilter{
		OCRStatus:  domain.OCRStatus(q.Get("ocr_status")),
		FileKind:   domain.FileKind(q.Get("file_kind")),
		Subject:    q.Get("subject"),
		UploadedBy: q.Get("uploaded_by"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}

	items, total, err := rt.reader.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []domain.Resource{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

func (rt *Router) getResource(w http.ResponseWriter, r *http.Request, id string) {
	res, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ocrStatus is the polling endpoint uploaders watch after the
// fire-and-forget upload.
func (rt *Router) ocrStatus(w http.ResponseWriter, r *http.Request, id string) {
	res, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id":        res.ID,
		"ocr_status":         res.OCRStatus,
		"ocr_error":          res.OCRError,
		"has_extracted_text": res.ExtractedText != "",
		"text_length":        len(res.ExtractedText),
	})
}

// retryOCR answers 202 once the retry is scheduled; the ocr-status
// endpoint is the place to watch the run itself.
func (rt *Router) retryOCR(w http.ResponseWriter, r *http.Request, id string) {
	if err := rt.runner.Retry(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"resource_id": id,
	})
}

func (rt *Router) deleteResource(w http.ResponseWriter, r *http.Request, id string) {
	permanent := r.URL.Query().Get("permanent") == "true"
	if err := rt.remover.Delete(r.Context(), id, permanent); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type generateQuizRequest struct {
	NumQuestions  int      `json:"num_questions"`
	Difficulty    string   `json:"difficulty"`
	QuestionTypes []string `json:"question_types"`
	Subject       string   `json:"subject"`
	Focus         string   `json:"focus"`
}

func (rt *Router) generateQuiz(w http.ResponseWriter, r *http.Request, id string) {
	var req generateQuizRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	opts := domain.GenerationOptions{
		NumQuestions: req.NumQuestions,
		Difficulty:   req.Difficulty,
		Subject:      req.Subject,
		Focus:        req.Focus,
	}
	for _, qt := range req.QuestionTypes {
		opts.QuestionTypes = append(opts.QuestionTypes, domain.QuestionType(qt))
	}

	quiz, err := rt.quizzes.GenerateForResource(r.Context(), id, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (rt *Router) listQuizzes(w http.ResponseWriter, r *http.Request, id string) {
	quizzes, err := rt.quizzes.ListByResource(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id": id,
		"quizzes":     quizzes,
	})
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
