// Package ai generates release descriptions and release type suggestions with a text completion model.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// DefaultModel is the completion model used when none is configured
const DefaultModel = string(anthropic.ModelClaudeSonnet4_0)

const defaultMaxOutputTokens = 512

var ErrEmptyCompletion error = fmt.Errorf("completion contained no text")

// Completer is a stateless, single-turn text completion service
type Completer interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
}

// AnthropicCompleter implements Completer with the Anthropic Messages API
type AnthropicCompleter struct {
	client          anthropic.Client
	maxOutputTokens int64
}

// NewAnthropicCompleter creates a Completer that sends each prompt as a single user message
func NewAnthropicCompleter(client anthropic.Client) *AnthropicCompleter {
	return &AnthropicCompleter{
		client:          client,
		maxOutputTokens: defaultMaxOutputTokens,
	}
}

func (ac *AnthropicCompleter) Complete(ctx context.Context, model string, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: ac.maxOutputTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	response, err := ac.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return sb.String(), nil
}
