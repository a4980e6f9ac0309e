// Package openai generates quiz questions from extracted text via the
// OpenAI chat completions API. The client performs a single attempt per
// call; bounded retries with backoff live in the quiz use case.
package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/brainquest/learning-platform/internal/core/domain"
)

const systemPrompt = "You are an expert educational content creator who generates high-quality quiz questions."

type Client struct {
	api   *openai.Client
	model string
}

func New(apiKey, model string) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{
		api:   openai.NewClient(apiKey),
		model: model,
	}
}

func (c *Client) Generate(ctx context.Context, text string, opts domain.GenerationOptions) ([]domain.Question, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(text, opts)},
		},
		Temperature: 0.7,
		MaxTokens:   4000,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	questions, err := parseQuestions(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return questions, nil
}
