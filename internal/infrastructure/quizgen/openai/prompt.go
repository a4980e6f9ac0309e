package openai

import (
	"fmt"
	"math"
	"strings"

	"github.com/brainquest/learning-platform/internal/core/domain"
)

// maxSourceChars caps the source text passed to the model.
const maxSourceChars = 6000

func buildPrompt(text string, opts domain.GenerationOptions) string {
	source := text
	truncated := ""
	if len(source) > maxSourceChars {
		source = source[:maxSourceChars]
		truncated = " ...(truncated)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert educational content creator. Generate %d high-quality quiz questions based on the following text.\n\n", opts.NumQuestions)
	fmt.Fprintf(&b, "SOURCE TEXT:\n%s%s\n\n", source, truncated)
	if opts.Subject != "" {
		fmt.Fprintf(&b, "SUBJECT: %s\n", opts.Subject)
	}
	if opts.Focus != "" {
		fmt.Fprintf(&b, "FOCUS AREA: %s\n", opts.Focus)
	}
	fmt.Fprintf(&b, `
REQUIREMENTS:
1. Create exactly %d questions
2. %s
3. %s
4. Each question must be clear, unambiguous, and based on the source text
5. For multiple-choice: provide 4 options with exactly one correct answer
6. For true-false: create clear statements
7. For short-answer: questions should have concise, specific answers

FORMAT YOUR RESPONSE AS JSON:
{
  "questions": [
    {
      "type": "multiple-choice" | "true-false" | "short-answer",
      "question": "Question text here",
      "options": ["A", "B", "C", "D"],
      "correctAnswer": "The correct answer",
      "acceptableAnswers": ["answer1", "answer2"],
      "explanation": "Brief explanation of the correct answer",
      "difficulty": "easy" | "medium" | "hard",
      "points": 1
    }
  ]
}

IMPORTANT: Return ONLY the JSON, no additional text or markdown formatting.`,
		opts.NumQuestions,
		difficultyInstructions(opts.Difficulty, opts.NumQuestions),
		typeInstructions(opts.QuestionTypes),
	)
	return b.String()
}

func difficultyInstructions(difficulty string, numQuestions int) string {
	if difficulty != "mixed" {
		return fmt.Sprintf("All questions should be %s difficulty", difficulty)
	}
	easy := int(math.Ceil(float64(numQuestions) * 0.3))
	medium := int(math.Ceil(float64(numQuestions) * 0.5))
	hard := numQuestions - easy - medium
	if hard < 0 {
		hard = 0
	}
	return fmt.Sprintf("Distribute difficulty: %d easy, %d medium, %d hard questions", easy, medium, hard)
}

func typeInstructions(types []domain.QuestionType) string {
	if len(types) == 1 {
		return fmt.Sprintf("All questions should be %s type", types[0])
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return "Use a mix of question types: " + strings.Join(names, ", ")
}
