package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brainquest/learning-platform/internal/core/domain"
)

// parseQuestions decodes the model response, tolerating markdown code
// fences around the JSON body.
func parseQuestions(raw string) ([]domain.Question, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.ReplaceAll(clean, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var payload struct {
		Questions []domain.Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return nil, fmt.Errorf("parse generator response: %w", err)
	}
	if payload.Questions == nil {
		return nil, fmt.Errorf("parse generator response: missing questions array")
	}
	return payload.Questions, nil
}
