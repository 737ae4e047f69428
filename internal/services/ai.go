package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// TaskGenerator turns free-form text into task contents.
type TaskGenerator interface {
	GenerateTaskContents(ctx context.Context, text string) ([]string, error)
}

type AIService struct {
	client *openai.Client
	model  string
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
	}
}

// GenerateTaskContents asks the chat model to split text into short actionable tasks
func (s *AIService) GenerateTaskContents(ctx context.Context, text string) ([]string, error) {
	if s.client == nil {
		return nil, errors.New("OpenAI client not initialized")
	}

	prompt := fmt.Sprintf(`You extract actionable to-do items from text.

Text:
%s

Return a JSON array of strings, one per task, for example ["buy milk", "call the plumber"].

Rules:
- Each task must be between 3 and 128 characters
- Return at most 10 tasks
- Return [] when the text contains no tasks
- Return JSON only, without any explanation`, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	return parseTaskContents(resp.Choices[0].Message.Content)
}

// parseTaskContents decodes the model reply, tolerating a fenced code block around the JSON.
func parseTaskContents(content string) ([]string, error) {
	body := strings.TrimSpace(content)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	var tasks []string
	if err := json.Unmarshal([]byte(body), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}
	return tasks, nil
}
