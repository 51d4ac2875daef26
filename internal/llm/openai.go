package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"triagemd/pkg"
)

// OpenAIClient calls the OpenAI API for classification and generation.
// Temperature 0 keeps the branch verdicts as deterministic as the API allows.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIClient constructs an OpenAI-backed collaborator.
func NewOpenAIClient(apiKey, model string, temperature float32) *OpenAIClient {
	return &OpenAIClient{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
	}
}

// Invoke renders the template for kind, appends the node-scoped conversation
// window, and returns the model's reply. Errors are returned as-is; the
// navigator treats any failure as a collaborator failure and mutates nothing.
func (c *OpenAIClient) Invoke(ctx context.Context, kind pkg.PromptKind, contextText string, window []pkg.Turn) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(window)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: render(kind, contextText),
	})
	for _, t := range window {
		role := openai.ChatMessageRoleUser
		if t.Speaker == pkg.SpeakerAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}
