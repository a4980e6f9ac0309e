package domain

import (
	"fmt"
	"strings"
	"time"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionTrueFalse      QuestionType = "true-false"
	QuestionShortAnswer    QuestionType = "short-answer"
)

type Question struct {
	Type              QuestionType `json:"type"`
	Question          string       `json:"question"`
	Options           []string     `json:"options,omitempty"`
	CorrectAnswer     string       `json:"correctAnswer"`
	AcceptableAnswers []string     `json:"acceptableAnswers,omitempty"`
	Explanation       string       `json:"explanation,omitempty"`
	Difficulty        string       `json:"difficulty,omitempty"`
	Points            int          `json:"points,omitempty"`
}

// Normalize validates required fields and fills defaults. index is the
// question's position within the generated batch, used for error messages.
func (q *Question) Normalize(index int) error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("question %d: missing question text", index+1)
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		return fmt.Errorf("question %d: missing correct answer", index+1)
	}
	switch q.Type {
	case QuestionMultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d: multiple choice must have at least 2 options", index+1)
		}
	case QuestionTrueFalse:
	case QuestionShortAnswer:
		if len(q.AcceptableAnswers) == 0 {
			q.AcceptableAnswers = []string{q.CorrectAnswer}
		}
	default:
		return fmt.Errorf("question %d: unknown question type %q", index+1, q.Type)
	}
	if q.Difficulty == "" {
		q.Difficulty = "medium"
	}
	if q.Points <= 0 {
		q.Points = 1
	}
	return nil
}

// NormalizeQuestions validates a generated batch in place. One bad
// question rejects the whole batch; partial batches are never accepted.
func NormalizeQuestions(questions []Question) error {
	for i := range questions {
		if err := questions[i].Normalize(i); err != nil {
			return err
		}
	}
	return nil
}

type GenerationOptions struct {
	NumQuestions  int
	Difficulty    string
	QuestionTypes []QuestionType
	Subject       string
	Focus         string
}

func (o GenerationOptions) WithDefaults() GenerationOptions {
	out := o
	if out.NumQuestions <= 0 {
		out.NumQuestions = 10
	}
	if out.Difficulty == "" {
		out.Difficulty = "mixed"
	}
	if len(out.QuestionTypes) == 0 {
		out.QuestionTypes = []QuestionType{QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer}
	}
	return out
}

type Quiz struct {
	ID         string     `json:"id"`
	ResourceID string     `json:"resource_id"`
	Title      string     `json:"title"`
	Questions  []Question `json:"questions"`
	CreatedAt  time.Time  `json:"created_at"`
}
