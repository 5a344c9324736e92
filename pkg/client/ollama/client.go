// Package ollama implements the model backend on a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/kaiwadev/kaiwa/pkg/chat"
	"github.com/kaiwadev/kaiwa/pkg/engine"
)

const defaultMaxTokens = 4096

// Client talks to a local Ollama server. It implements engine.Backend.
type Client struct {
	client    *api.Client
	model     string
	maxTokens int
}

// New creates an Ollama backend. The server address comes from
// OLLAMA_HOST (default http://localhost:11434).
func New(model string, maxTokens int) (*Client, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	if model == "" {
		return nil, fmt.Errorf("ollama backend requires a model name")
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Invoke sends the conversation context and returns the model turn plus
// token usage taken from the response metrics.
func (c *Client) Invoke(ctx context.Context, req engine.Request) (chat.Turn, engine.Usage, error) {
	messages := make([]api.Message, 0, len(req.Turns)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.SystemInstruction})
	}
	if req.Summary != "" {
		messages = append(messages, api.Message{
			Role:    "system",
			Content: "Summary of the conversation so far:\n" + req.Summary,
		})
	}
	for _, t := range req.Turns {
		switch t.Role {
		case chat.RoleUser:
			messages = append(messages, api.Message{Role: "user", Content: renderTurnText(t)})
		case chat.RoleModel:
			messages = append(messages, api.Message{Role: "assistant", Content: t.Text()})
		case chat.RoleSystem:
			messages = append(messages, api.Message{Role: "system", Content: t.Text()})
		}
	}

	content, usage, err := c.chat(ctx, messages, req.Thinking)
	if err != nil {
		return chat.Turn{}, engine.Usage{}, err
	}
	return chat.NewTextTurn(chat.RoleModel, content), usage, nil
}

// Summarize condenses history through a dedicated summarization request.
func (c *Client) Summarize(ctx context.Context, existingSummary string, turns []chat.Turn) (string, error) {
	system, user := engine.SummaryPrompt(existingSummary, turns)
	messages := []api.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	summary, _, err := c.chat(ctx, messages, false)
	if err != nil {
		return "", err
	}
	if summary == "" {
		return "", fmt.Errorf("empty summary from Ollama")
	}
	return summary, nil
}

func (c *Client) chat(ctx context.Context, messages []api.Message, thinking bool) (string, engine.Usage, error) {
	chatRequest := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Options: map[string]any{
			"temperature": 0.1,
			"num_predict": c.maxTokens,
		},
	}
	if thinking && isThinkingCapableModel(c.model) {
		chatRequest.Think = &thinking
	}

	var content strings.Builder
	var usage engine.Usage
	err := c.client.Chat(ctx, chatRequest, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			usage.InputTokens = resp.Metrics.PromptEvalCount
			usage.OutputTokens = resp.Metrics.EvalCount
		}
		return nil
	})
	if err != nil {
		return "", engine.Usage{}, fmt.Errorf("ollama chat error: %w", err)
	}
	return content.String(), usage, nil
}

// isThinkingCapableModel reports whether the model accepts the think
// parameter. Ollama rejects it for models without thinking support.
func isThinkingCapableModel(model string) bool {
	base := strings.ToLower(model)
	for _, family := range []string{"gpt-oss", "deepseek-r1", "qwen3", "magistral"} {
		if strings.HasPrefix(base, family) {
			return true
		}
	}
	return false
}

// renderTurnText flattens a turn into text, inlining text attachments
// and describing binary ones.
func renderTurnText(t chat.Turn) string {
	text := t.Text()
	for _, p := range t.Parts {
		if p.File == nil {
			continue
		}
		if strings.HasPrefix(p.File.MediaType, "text/") {
			text += fmt.Sprintf("\n\nAttached file %s (%s):\n%s",
				p.File.Name, p.File.MediaType, string(p.File.Data))
		} else {
			text += fmt.Sprintf("\n\n(attached binary file %s, %s, %d bytes)",
				p.File.Name, p.File.MediaType, len(p.File.Data))
		}
	}
	return text
}
