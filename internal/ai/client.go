// Package ai wraps the external generative-model provider. Every call is a
// single attempt with no retries; failures surface verbatim to the caller.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/uniflow/uniflow/internal/files"
	"github.com/uniflow/uniflow/pkg/config"
)

// ErrNotConfigured is returned by NewClient when no provider credential is
// set. Callers degrade to CRUD-only operation rather than failing startup.
var ErrNotConfigured = errors.New("model provider credential not configured")

type Client struct {
	api            *openai.Client
	model          string
	grounding      bool
	maxPromptChars int
}

func NewClient(cfg *config.AIConfig) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	maxChars := cfg.MaxPromptChars
	if maxChars <= 0 {
		maxChars = 400000
	}

	return &Client{
		api:            openai.NewClient(cfg.APIKey),
		model:          cfg.Model,
		grounding:      cfg.EnableGrounding,
		maxPromptChars: maxChars,
	}, nil
}

// GenerateDraft produces the full replacement document for one iteration.
// Image attachments route through the provider's vision path; the grounding
// flag switches to the web-search model variant.
func (c *Client) GenerateDraft(ctx context.Context, req DraftRequest) (string, error) {
	prompt := ComposePrompt(req, time.Now())
	if len(prompt) > c.maxPromptChars {
		// Recompose without the current document; instruction and
		// attachments take priority when the window is tight.
		req.CurrentContent = ""
		prompt = ComposePrompt(req, time.Now())
		if len(prompt) > c.maxPromptChars {
			prompt = prompt[:c.maxPromptChars]
		}
	}

	model := c.model
	if req.Grounded && c.grounding {
		model = groundedModel(c.model)
	}

	var images []files.Attachment
	for _, att := range req.Attachments {
		if att.IsImage() {
			images = append(images, att)
		}
	}

	content, err := c.complete(ctx, model, prompt, images)
	if err != nil {
		return "", err
	}
	return stripMarkdownFences(content), nil
}

func (c *Client) complete(ctx context.Context, model, prompt string, images []files.Attachment) (string, error) {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}

	if len(images) > 0 {
		parts := []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
		}
		for _, img := range images {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", img.ContentType, img.Base64),
				},
			})
		}
		msg = openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: []openai.ChatCompletionMessage{msg},
	})
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// completeJSON runs a JSON-mode request against the base model. The search
// variants do not support response_format, so grounding never applies here.
func (c *Client) completeJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// groundedModel maps a base model to its web-search variant.
func groundedModel(model string) string {
	if strings.HasSuffix(model, "-search-preview") {
		return model
	}
	return model + "-search-preview"
}

// stripMarkdownFences removes a wrapping ```markdown block when the provider
// fences its response.
func stripMarkdownFences(content string) string {
	content = strings.TrimSpace(content)

	switch {
	case strings.HasPrefix(content, "```markdown"):
		content = strings.TrimSpace(strings.TrimPrefix(content, "```markdown"))
	case strings.HasPrefix(content, "```md"):
		content = strings.TrimSpace(strings.TrimPrefix(content, "```md"))
	case strings.HasPrefix(content, "```"):
		content = strings.TrimSpace(strings.TrimPrefix(content, "```"))
	}

	if strings.HasSuffix(content, "```") {
		content = strings.TrimSpace(strings.TrimSuffix(content, "```"))
	}

	return content
}
