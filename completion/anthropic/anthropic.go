// Package anthropic adapts the Anthropic Messages API to the completion
// interface.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// Config configures the completer.
type Config struct {
	// Model is the Anthropic model name (default: claude-sonnet-4-0).
	Model string

	// MaxTokens caps the completion length (default: 1024).
	MaxTokens int64
}

// Completer calls the Anthropic Messages API.
type Completer struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New creates a completer over an existing Anthropic client.
func New(client *anthropic.Client, cfg Config) *Completer {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-0"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &Completer{
		client:    client,
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
	}
}

func (c *Completer) params(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
}

// Complete returns the full completion in one call.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, c.params(prompt))
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	return messageText(resp), nil
}

// Stream delivers chunks through onChunk and returns the accumulated
// reply.
func (c *Completer) Stream(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(prompt))
	defer stream.Close()

	// Accumulate the message from events
	message := anthropic.Message{}

	for stream.Next() {
		event := stream.Current()

		if err := message.Accumulate(event); err != nil {
			// Accumulation errors are non-fatal; keep streaming.
			continue
		}

		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				onChunk(delta.Text)
			}
		}
	}

	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("anthropic stream error: %w", err)
	}

	return messageText(&message), nil
}

// messageText concatenates a response's text blocks.
func messageText(msg *anthropic.Message) string {
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text
}
