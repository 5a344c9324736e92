// Package openai implements the model backend on the OpenAI chat
// completions API.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/kaiwadev/kaiwa/pkg/chat"
	"github.com/kaiwadev/kaiwa/pkg/engine"
)

const (
	defaultModel     = "gpt-4o"
	defaultMaxTokens = 8192
)

// Client talks to OpenAI chat models. It implements engine.Backend.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// New creates an OpenAI backend. The API key comes from OPENAI_API_KEY;
// OPENAI_BASE_URL overrides the endpoint for Azure and compatible
// servers.
func New(model string, maxTokens int) (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

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

// Invoke sends the conversation context and returns the model turn plus
// token usage. OpenAI has no separate thinking switch; reasoning models
// think on their own, so the flag is accepted and ignored.
func (c *Client) Invoke(ctx context.Context, req engine.Request) (chat.Turn, engine.Usage, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, openai.SystemMessage(req.SystemInstruction))
	}
	if req.Summary != "" {
		messages = append(messages, openai.SystemMessage(
			"Summary of the conversation so far:\n"+req.Summary))
	}
	for _, t := range req.Turns {
		switch t.Role {
		case chat.RoleUser:
			messages = append(messages, openai.UserMessage(renderTurnText(t)))
		case chat.RoleModel:
			messages = append(messages, openai.AssistantMessage(t.Text()))
		case chat.RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Text()))
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               shared.ChatModel(c.model),
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return chat.Turn{}, engine.Usage{}, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return chat.Turn{}, engine.Usage{}, fmt.Errorf("no response from OpenAI")
	}

	usage := engine.Usage{
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
	}
	return chat.NewTextTurn(chat.RoleModel, completion.Choices[0].Message.Content), usage, nil
}

// Summarize condenses history through a dedicated summarization request.
func (c *Client) Summarize(ctx context.Context, existingSummary string, turns []chat.Turn) (string, error) {
	system, user := engine.SummaryPrompt(existingSummary, turns)

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:               shared.ChatModel(c.model),
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty summary from OpenAI")
	}
	return completion.Choices[0].Message.Content, nil
}

// renderTurnText flattens a turn into text, inlining file attachments.
// The completions API takes plain text here, so binary attachments are
// described rather than embedded.
func renderTurnText(t chat.Turn) string {
	text := t.Text()
	for _, p := range t.Parts {
		if p.File == nil {
			continue
		}
		if isTextLike(p.File.MediaType) {
			text += fmt.Sprintf("\n\nAttached file %s (%s):\n%s",
				p.File.Name, p.File.MediaType, string(p.File.Data))
		} else {
			text += fmt.Sprintf("\n\n(attached binary file %s, %s, %d bytes)",
				p.File.Name, p.File.MediaType, len(p.File.Data))
		}
	}
	return text
}

func isTextLike(mediaType string) bool {
	switch {
	case len(mediaType) >= 5 && mediaType[:5] == "text/":
		return true
	case mediaType == "application/json", mediaType == "application/xml",
		mediaType == "application/x-yaml", mediaType == "application/javascript":
		return true
	}
	return false
}
