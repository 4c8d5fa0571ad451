// Package assistant wraps the Gemini API for answering document questions.
package assistant

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrNoCredential is returned by New when no API key is configured.
var ErrNoCredential = errors.New("credential not configured")

// Client generates answers via the Gemini API. It exposes two methods:
// GenerateRich builds a prompt with retrieved document context, while
// GenerateSimple asks the model directly. Both instruct the model to emit
// the configured failure marker verbatim when it cannot ground an answer,
// which is what the query resolver matches on to advance tiers.
type Client struct {
	client        *genai.Client
	richModel     string
	fastModel     string
	failureMarker string
}

// New connects to the Gemini API. An empty apiKey is an ordinary
// construction failure (ErrNoCredential), not a panic or a special case.
func New(ctx context.Context, apiKey, richModel, fastModel, failureMarker string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoCredential
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to Gemini API: %w", err)
	}

	return &Client{
		client:        client,
		richModel:     richModel,
		fastModel:     fastModel,
		failureMarker: failureMarker,
	}, nil
}

// FailureMarker returns the phrase the model emits for ungrounded answers.
func (c *Client) FailureMarker() string {
	return c.failureMarker
}

// GenerateRich produces an answer using retrieved document context and the
// caller's role.
func (c *Client) GenerateRich(ctx context.Context, question, docContext, callerRole string) (string, error) {
	prompt := BuildRichPrompt(question, docContext, callerRole)
	return c.generate(ctx, c.richModel, prompt)
}

// GenerateSimple produces an answer from the question alone, without
// retrieved context. Used as the lighter second attempt.
func (c *Client) GenerateSimple(ctx context.Context, question, callerRole string) (string, error) {
	prompt := BuildSimplePrompt(question, callerRole)
	return c.generate(ctx, c.fastModel, prompt)
}

func (c *Client) generate(ctx context.Context, model, prompt string) (string, error) {
	temp := float32(0.4)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: BuildSystemInstruction(c.failureMarker)}},
		},
		Temperature: &temp,
	}

	result, err := c.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: prompt}},
		}},
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if result == nil {
		return "", fmt.Errorf("gemini returned nil result")
	}

	return result.Text(), nil
}
