// Package advisory is the client boundary to the language-model advisory
// service. It produces primary validation verdicts, per-role cross-validation
// feedback, and qualitative review findings for code artifacts. The service
// is treated as an opaque, possibly-unreliable remote dependency.
package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v5"

	"github.com/joescharf/cq/internal/models"
)

// ErrMalformedResponse marks an advisory reply that was not valid structured
// data. It is fatal for that specific call and never retried.
var ErrMalformedResponse = errors.New("malformed advisory response")

// Validator is the capability consumed by the checkpoint orchestrator.
// Tests and offline runs substitute fakes.
type Validator interface {
	// Validate performs the primary, stage-specific validation of content.
	Validate(ctx context.Context, stage string, content, extra map[string]any) (*models.ValidationResult, error)
	// CrossValidate solicits feedback on content from one role's perspective.
	CrossValidate(ctx context.Context, role models.Role, content, extra map[string]any) (*models.RoleFeedback, error)
}

// Reviewer produces qualitative review findings for a code artifact.
type Reviewer interface {
	ReviewCode(ctx context.Context, code string, files []string) ([]models.ReviewFinding, error)
}

// Client wraps the Anthropic API as the advisory service.
type Client struct {
	api        *anthropic.Client
	model      anthropic.Model
	maxRetries uint
}

// NewClient creates an advisory client with the given API key and model.
// An empty key falls back to the SDK's environment-based configuration.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:        &client,
		model:      anthropic.Model(model),
		maxRetries: 3,
	}
}

// Validate asks the advisory service for the primary validation verdict.
func (c *Client) Validate(ctx context.Context, stage string, content, extra map[string]any) (*models.ValidationResult, error) {
	systemPrompt, userPrompt, err := buildValidatePrompt(stage, content, extra)
	if err != nil {
		return nil, err
	}

	text, err := c.complete(ctx, systemPrompt, userPrompt, 2048)
	if err != nil {
		return nil, err
	}

	var result models.ValidationResult
	if err := parseResponse(text, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CrossValidate asks the advisory service for one role's feedback.
func (c *Client) CrossValidate(ctx context.Context, role models.Role, content, extra map[string]any) (*models.RoleFeedback, error) {
	systemPrompt, userPrompt, err := buildCrossValidatePrompt(role, content, extra)
	if err != nil {
		return nil, err
	}

	text, err := c.complete(ctx, systemPrompt, userPrompt, 2048)
	if err != nil {
		return nil, err
	}

	var feedback models.RoleFeedback
	if err := parseResponse(text, &feedback); err != nil {
		return nil, err
	}
	return &feedback, nil
}

// ReviewCode asks the advisory service for qualitative findings on code.
func (c *Client) ReviewCode(ctx context.Context, code string, files []string) ([]models.ReviewFinding, error) {
	systemPrompt, userPrompt := buildReviewPrompt(code, files)

	text, err := c.complete(ctx, systemPrompt, userPrompt, 4096)
	if err != nil {
		return nil, err
	}

	var findings []models.ReviewFinding
	if err := parseResponse(text, &findings); err != nil {
		return nil, err
	}
	return findings, nil
}

// complete sends one prompt pair and returns the text block of the reply.
// Transient transport failures are retried with bounded exponential backoff.
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (string, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 500 * time.Millisecond
	expo.MaxInterval = 5 * time.Second

	msg, err := backoff.Retry(ctx, func() (*anthropic.Message, error) {
		return c.api.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     c.model,
			MaxTokens: maxTokens,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(c.maxRetries))
	if err != nil {
		return "", fmt.Errorf("advisory request: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text content in reply", ErrMalformedResponse)
}

// parseResponse strips markdown fencing if present and unmarshals the reply.
func parseResponse(text string, v any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
