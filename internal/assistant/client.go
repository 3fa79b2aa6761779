// Package assistant answers free-form finance questions through an
// OpenAI-compatible chat completion endpoint, grounding each answer in the
// asking user's own budgets and expenses.
package assistant

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoReply is returned when the model produces no choices.
var ErrNoReply = errors.New("assistant: empty completion")

type Client struct {
	api   *openai.Client
	model string
}

// NewClient builds a client against an OpenAI-compatible router. baseURL
// should include the /v1 path segment.
func NewClient(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}
}

// Chat sends the user's message with the given system context and returns the
// model's reply.
func (c *Client) Chat(ctx context.Context, systemContext, message string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   512,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemContext},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoReply
	}
	return resp.Choices[0].Message.Content, nil
}
