package domain

import (
	"strings"
	"time"
)

type OCRStatus string

const (
	StatusPending    OCRStatus = "pending"
	StatusProcessing OCRStatus = "processing"
	StatusCompleted  OCRStatus = "completed"
	StatusFailed     OCRStatus = "failed"
)

// CanTransitionTo enforces the forward-only lifecycle:
// pending → processing → {completed, failed}, with failed → processing
// as the only back-edge (explicit retry).
func (s OCRStatus) CanTransitionTo(next OCRStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	case StatusFailed:
		return next == StatusProcessing
	default:
		return false
	}
}

type FileKind string

const (
	FileKindPDF      FileKind = "pdf"
	FileKindImage    FileKind = "image"
	FileKindDocument FileKind = "document"
)

func KindForMimeType(mimeType string) FileKind {
	switch {
	case mimeType == "application/pdf":
		return FileKindPDF
	case strings.HasPrefix(mimeType, "image/"):
		return FileKindImage
	default:
		return FileKindDocument
	}
}

// Resource is a single uploaded document under processing. The ingestion
// run holds only the id and storage key while running; the persisted row
// is the source of truth.
type Resource struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	OriginalFilename string     `json:"original_filename"`
	StorageKey       string     `json:"storage_key"`
	MimeType         string     `json:"mime_type"`
	FileKind         FileKind   `json:"file_kind"`
	FileSize         int64      `json:"file_size"`
	ExtractedText    string     `json:"extracted_text,omitempty"`
	OCRStatus        OCRStatus  `json:"ocr_status"`
	OCRError         string     `json:"ocr_error,omitempty"`
	IsProcessed      bool       `json:"is_processed"`
	IsDeleted        bool       `json:"is_deleted"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
	UploadedBy       string     `json:"uploaded_by"`
	Subject          string     `json:"subject,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	QuizGenerated    bool       `json:"quiz_generated"`
	QuizIDs          []string   `json:"quiz_ids,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsRemote reports whether the storage key points at object storage
// reachable over HTTP rather than a local storage key.
func (r *Resource) IsRemote() bool {
	return strings.HasPrefix(r.StorageKey, "http://") || strings.HasPrefix(r.StorageKey, "https://")
}

// MinExtractionChars is the backend output sanity threshold. Below it an
// extraction run fails with ErrEmptyExtraction.
const MinExtractionChars = 10

// Quiz sufficiency thresholds. Distinct from MinExtractionChars: a
// completed extraction may still carry too little text to generate a
// meaningful quiz from.
const (
	MinQuizTextChars = 100
	MinQuizTextWords = 50
)

// SufficientForQuiz is the advisory predicate gating quiz generation.
// It is never an extraction failure.
func SufficientForQuiz(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < MinQuizTextChars {
		return false
	}
	return len(strings.Fields(trimmed)) >= MinQuizTextWords
}

type ResourceFilter struct {
	OCRStatus  OCRStatus
	FileKind   FileKind
	Subject    string
	UploadedBy string
	Page       int
	Limit      int
}
