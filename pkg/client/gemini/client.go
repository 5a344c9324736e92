// Package gemini implements the model backend on the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/kaiwadev/kaiwa/pkg/chat"
	"github.com/kaiwadev/kaiwa/pkg/engine"
)

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 8192
)

// Client talks to Gemini models. It implements engine.Backend.
type Client struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// New creates a Gemini backend. The API key comes from GEMINI_API_KEY.
func New(model string, maxTokens int) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = defaultModel
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
// token usage.
func (c *Client) Invoke(ctx context.Context, req engine.Request) (chat.Turn, engine.Usage, error) {
	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, t := range req.Turns {
		switch t.Role {
		case chat.RoleUser:
			contents = append(contents, genai.NewContentFromParts(userParts(t), genai.RoleUser))
		case chat.RoleModel:
			contents = append(contents, genai.NewContentFromText(t.Text(), genai.RoleModel))
		}
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
	}
	if system := systemText(req.SystemInstruction, req.Summary); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.Thinking {
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return chat.Turn{}, engine.Usage{}, fmt.Errorf("Gemini API call failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return chat.Turn{}, engine.Usage{}, fmt.Errorf("no response from Gemini")
	}
	text := resp.Text()
	if text == "" {
		return chat.Turn{}, engine.Usage{}, fmt.Errorf("empty response from Gemini")
	}

	var usage engine.Usage
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return chat.NewTextTurn(chat.RoleModel, text), usage, nil
}

// Summarize condenses history through a dedicated summarization request.
func (c *Client) Summarize(ctx context.Context, existingSummary string, turns []chat.Turn) (string, error) {
	system, user := engine.SummaryPrompt(existingSummary, turns)

	config := &genai.GenerateContentConfig{
		MaxOutputTokens:   int32(c.maxTokens),
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty summary from Gemini")
	}
	return text, nil
}

func systemText(instruction, summary string) string {
	var parts []string
	if instruction != "" {
		parts = append(parts, instruction)
	}
	if summary != "" {
		parts = append(parts, "Summary of the conversation so far:\n"+summary)
	}
	return strings.Join(parts, "\n\n")
}

// userParts converts a user turn's parts. Images travel as inline bytes;
// other files are inlined as labeled text.
func userParts(t chat.Turn) []*genai.Part {
	var parts []*genai.Part
	for _, p := range t.Parts {
		if p.File == nil {
			if p.Text != "" {
				parts = append(parts, &genai.Part{Text: p.Text})
			}
			continue
		}
		if strings.HasPrefix(p.File.MediaType, "image/") {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: p.File.MediaType, Data: p.File.Data},
			})
			continue
		}
		parts = append(parts, &genai.Part{
			Text: fmt.Sprintf("Attached file %s (%s):\n%s", p.File.Name, p.File.MediaType, string(p.File.Data)),
		})
	}
	if len(parts) == 0 {
		parts = append(parts, &genai.Part{Text: t.Text()})
	}
	return parts
}
