package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brainquest/learning-platform/internal/core/domain"
)

type QuizRepository struct {
	db *sql.DB
}

func NewQuizRepository(db *sql.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) Create(ctx context.Context, quiz *domain.Quiz) error {
	questionsJSON, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO quizzes (id, resource_id, title, questions, created_at)
VALUES ($1,$2,$3,$4,$5)
`, quiz.ID, quiz.ResourceID, quiz.Title, questionsJSON, quiz.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (r *QuizRepository) GetByID(ctx context.Context, id string) (*domain.Quiz, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, resource_id, title, questions, created_at
FROM quizzes
WHERE id = $1
`, id)

	quiz, err := scanQuiz(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrQuizNotFound, "get quiz", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return quiz, nil
}

func (r *QuizRepository) ListByResource(ctx context.Context, resourceID string) ([]domain.Quiz, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, resource_id, title, questions, created_at
FROM quizzes
WHERE resource_id = $1
ORDER BY created_at DESC
`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}
	return out, nil
}

func scanQuiz(row rowScanner) (*domain.Quiz, error) {
	var quiz domain.Quiz
	var questionsRaw []byte

	err := row.Scan(&quiz.ID, &quiz.ResourceID, &quiz.Title, &questionsRaw, &quiz.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan quiz: %w", err)
	}

	if err := json.Unmarshal(questionsRaw, &quiz.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return &quiz, nil
}
