package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jadenj13/opsagent/internals/chat"
)

const (
	DefaultModel     = anthropic.ModelClaude4Sonnet20250514
	DefaultMaxTokens = 1024
)

type Client struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

type Option func(*Client)

func WithModel(model anthropic.Model) Option {
	return func(c *Client) { c.model = model }
}

func WithMaxTokens(n int64) Option {
	return func(c *Client) { c.maxTokens = n }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete makes a single model call and unwraps the response's content
// blocks into canonical messages, one assistant message per non-empty text
// block. Tool-use or other block types are skipped.
func (c *Client) Complete(ctx context.Context, system string, messages []chat.Message) ([]chat.Message, error) {
	apiMessages, err := toAPIMessages(messages)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: apiMessages,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic api: %w", err)
	}

	var out []chat.Message
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			out = append(out, chat.Assistant(block.Text))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("anthropic returned no text content")
	}
	return out, nil
}

func toAPIMessages(messages []chat.Message) ([]anthropic.MessageParam, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case chat.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			// User and system history both travel as user turns; the API
			// merges consecutive same-role turns.
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out, nil
}
