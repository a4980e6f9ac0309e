package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/brainquest/learning-platform/internal/core/domain"
)

type ResourceRepository struct {
	db *sql.DB
}

func NewResourceRepository(db *sql.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ResourceRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS resources (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	original_filename TEXT NOT NULL,
	storage_key TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	file_kind TEXT NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0,
	extracted_text TEXT NOT NULL DEFAULT '',
	ocr_status TEXT NOT NULL,
	ocr_error TEXT NOT NULL DEFAULT '',
	is_processed BOOLEAN NOT NULL DEFAULT FALSE,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at TIMESTAMPTZ,
	uploaded_by TEXT NOT NULL DEFAULT '',
	subject TEXT NOT NULL DEFAULT '',
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	quiz_generated BOOLEAN NOT NULL DEFAULT FALSE,
	quiz_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_resources_ocr_status ON resources(ocr_status);
CREATE INDEX IF NOT EXISTS idx_resources_is_deleted ON resources(is_deleted);
CREATE INDEX IF NOT EXISTS idx_resources_uploaded_by_created_at ON resources(uploaded_by, created_at DESC);

CREATE TABLE IF NOT EXISTS quizzes (
	id TEXT PRIMARY KEY,
	resource_id TEXT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	questions JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quizzes_resource_id ON quizzes(resource_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const resourceColumns = `id, title, description, original_filename, storage_key, mime_type, file_kind, file_size,
extracted_text, ocr_status, ocr_error, is_processed, is_deleted, deleted_at, uploaded_by, subject, tags,
quiz_generated, quiz_ids, created_at, updated_at`

func (r *ResourceRepository) Create(ctx context.Context, res *domain.Resource) error {
	tagsJSON, err := json.Marshal(orEmpty(res.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	quizIDsJSON, err := json.Marshal(orEmpty(res.QuizIDs))
	if err != nil {
		return fmt.Errorf("marshal quiz ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO resources (`+resourceColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
`,
		res.ID, res.Title, res.Description, res.OriginalFilename, res.StorageKey, res.MimeType,
		string(res.FileKind), res.FileSize, res.ExtractedText, string(res.OCRStatus), res.OCRError,
		res.IsProcessed, res.IsDeleted, res.DeletedAt, res.UploadedBy, res.Subject, tagsJSON,
		res.QuizGenerated, quizIDsJSON, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

func (r *ResourceRepository) GetByID(ctx context.Context, id string) (*domain.Resource, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+resourceColumns+`
FROM resources
WHERE id = $1
`, id)

	res, err := scanResource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrResourceNotFound, "get resource", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return res, nil
}

// MarkProcessing is the run-start gate: the WHERE clause refuses the
// transition when another run already holds the processing status, so at
// most one ingestion run per resource is ever in flight.
func (r *ResourceRepository) MarkProcessing(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE resources
SET ocr_status = $2, ocr_error = '', updated_at = $3
WHERE id = $1 AND is_deleted = FALSE AND ocr_status <> $2
`, id, string(domain.StatusProcessing), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark processing rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Disambiguate: a live row in processing means the lock is held;
	// anything else means the resource is gone or deleted.
	var status string
	err = r.db.QueryRowContext(ctx,
		`SELECT ocr_status FROM resources WHERE id = $1 AND is_deleted = FALSE`, id,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrResourceNotFound, "mark processing", fmt.Errorf("id %s", id))
	}
	if err != nil {
		return fmt.Errorf("mark processing status check: %w", err)
	}
	return domain.WrapError(domain.ErrAlreadyProcessing, "mark processing", fmt.Errorf("id %s", id))
}

func (r *ResourceRepository) MarkCompleted(ctx context.Context, id, extractedText string) error {
	return r.exec(ctx, "mark completed", `
UPDATE resources
SET extracted_text = $2, ocr_status = $3, ocr_error = '', is_processed = TRUE, updated_at = $4
WHERE id = $1
`, id, extractedText, string(domain.StatusCompleted), time.Now().UTC())
}

// MarkFailed leaves extracted_text untouched: stale text from an earlier
// successful run stays readable while the error is surfaced.
func (r *ResourceRepository) MarkFailed(ctx context.Context, id, message string) error {
	return r.exec(ctx, "mark failed", `
UPDATE resources
SET ocr_status = $2, ocr_error = $3, updated_at = $4
WHERE id = $1
`, id, string(domain.StatusFailed), message, time.Now().UTC())
}

func (r *ResourceRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.exec(ctx, "soft delete", `
UPDATE resources
SET is_deleted = TRUE, deleted_at = $2, updated_at = $2
WHERE id = $1 AND is_deleted = FALSE
`, id, now)
}

func (r *ResourceRepository) DeletePermanently(ctx context.Context, id string) error {
	return r.exec(ctx, "permanent delete", `DELETE FROM resources WHERE id = $1`, id)
}

func (r *ResourceRepository) AttachQuiz(ctx context.Context, resourceID, quizID string) error {
	return r.exec(ctx, "attach quiz", `
UPDATE resources
SET quiz_generated = TRUE, quiz_ids = quiz_ids || to_jsonb($2::text), updated_at = $3
WHERE id = $1
`, resourceID, quizID, time.Now().UTC())
}

func (r *ResourceRepository) List(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error) {
	where, args := buildResourceFilter(filter)

	query := `SELECT ` + resourceColumns + ` FROM resources ` + where +
		` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		offset := 0
		if filter.Page > 1 {
			offset = (filter.Page - 1) * filter.Limit
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []domain.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	return out, nil
}

func (r *ResourceRepository) Count(ctx context.Context, filter domain.ResourceFilter) (int64, error) {
	where, args := buildResourceFilter(filter)

	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources `+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count resources: %w", err)
	}
	return total, nil
}

// buildResourceFilter always excludes soft-deleted rows.
func buildResourceFilter(filter domain.ResourceFilter) (string, []any) {
	clauses := []string{"is_deleted = FALSE"}
	var args []any

	add := func(column string, value string) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.OCRStatus != "" {
		add("ocr_status", string(filter.OCRStatus))
	}
	if filter.FileKind != "" {
		add("file_kind", string(filter.FileKind))
	}
	if filter.Subject != "" {
		add("subject", filter.Subject)
	}
	if filter.UploadedBy != "" {
		add("uploaded_by", filter.UploadedBy)
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (r *ResourceRepository) exec(ctx context.Context, operation, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrResourceNotFound, operation, errors.New("no rows affected"))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*domain.Resource, error) {
	var res domain.Resource
	var fileKind, status string
	var deletedAt sql.NullTime
	var tagsRaw, quizIDsRaw []byte

	err := row.Scan(
		&res.ID, &res.Title, &res.Description, &res.OriginalFilename, &res.StorageKey, &res.MimeType,
		&fileKind, &res.FileSize, &res.ExtractedText, &status, &res.OCRError, &res.IsProcessed,
		&res.IsDeleted, &deletedAt, &res.UploadedBy, &res.Subject, &tagsRaw,
		&res.QuizGenerated, &quizIDsRaw, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan resource: %w", err)
	}

	if err := json.Unmarshal(tagsRaw, &res.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(quizIDsRaw, &res.QuizIDs); err != nil {
		return nil, fmt.Errorf("unmarshal quiz ids: %w", err)
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		res.DeletedAt = &t
	}
	res.FileKind = domain.FileKind(fileKind)
	res.OCRStatus = domain.OCRStatus(status)
	return &res, nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
