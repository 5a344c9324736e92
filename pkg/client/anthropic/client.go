// Package anthropic implements the model backend on the Anthropic API.
package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kaiwadev/kaiwa/pkg/chat"
	"github.com/kaiwadev/kaiwa/pkg/engine"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 8192
	// Minimum thinking budget accepted by the API is 1024.
	thinkingBudgetTokens = 2048
)

// Client talks to Claude models. It implements engine.Backend.
type Client struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// New creates an Anthropic backend. The API key comes from
// ANTHROPIC_API_KEY.
func New(model string, maxTokens int) (*Client, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	if model == "" {
		model = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Invoke sends the conversation context to Claude and returns the model
// turn plus token usage.
func (c *Client) Invoke(ctx context.Context, req engine.Request) (chat.Turn, engine.Usage, error) {
	params := anthropic.MessageNewParams{
		MaxTokens: int64(c.maxTokens),
		Messages:  toAnthropicMessages(req.Turns),
		Model:     anthropic.Model(c.model),
		System:    systemBlocks(req.SystemInstruction, req.Summary),
	}

	if req.Thinking {
		params.Thinking = anthropic.ThinkingConfigParamUnion{
			OfEnabled: &anthropic.ThinkingConfigEnabledParam{
				BudgetTokens: int64(thinkingBudgetTokens),
			},
		}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return chat.Turn{}, engine.Usage{}, fmt.Errorf("anthropic API error: %w", err)
	}
	if len(msg.Content) == 0 {
		return chat.Turn{}, engine.Usage{}, fmt.Errorf("no content in Anthropic response")
	}

	var content strings.Builder
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content.WriteString(variant.Text)
		case anthropic.ThinkingBlock, anthropic.RedactedThinkingBlock:
			// Thinking is not part of the conversation record.
			continue
		}
	}

	usage := engine.Usage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	return chat.NewTextTurn(chat.RoleModel, content.String()), usage, nil
}

// Summarize condenses history through a dedicated summarization request.
func (c *Client) Summarize(ctx context.Context, existingSummary string, turns []chat.Turn) (string, error) {
	system, user := engine.SummaryPrompt(existingSummary, turns)

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		MaxTokens: int64(c.maxTokens),
		Model:     anthropic.Model(c.model),
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var summary strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			summary.WriteString(text.Text)
		}
	}
	if summary.Len() == 0 {
		return "", fmt.Errorf("empty summary from Anthropic")
	}
	return summary.String(), nil
}

// systemBlocks assembles the system prompt from the instruction and the
// running summary of folded history.
func systemBlocks(instruction, summary string) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if instruction != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: instruction})
	}
	if summary != "" {
		blocks = append(blocks, anthropic.TextBlockParam{
			Text: "Summary of the conversation so far:\n" + summary,
		})
	}
	return blocks
}

func toAnthropicMessages(turns []chat.Turn) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case chat.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(userBlocks(t)...))
		case chat.RoleModel:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text())))
		}
	}
	return messages
}

// userBlocks converts a user turn's parts. Images go as base64 blocks,
// other files are inlined as labeled text.
func userBlocks(t chat.Turn) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range t.Parts {
		if p.File == nil {
			if p.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(p.Text))
			}
			continue
		}
		if strings.HasPrefix(p.File.MediaType, "image/") {
			blocks = append(blocks, anthropic.NewImageBlockBase64(
				p.File.MediaType, base64.StdEncoding.EncodeToString(p.File.Data)))
			continue
		}
		blocks = append(blocks, anthropic.NewTextBlock(
			fmt.Sprintf("Attached file %s (%s):\n%s", p.File.Name, p.File.MediaType, string(p.File.Data))))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, anthropic.NewTextBlock(t.Text()))
	}
	return blocks
}
