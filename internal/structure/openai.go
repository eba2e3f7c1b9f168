// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structure

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/menu-engine/pkg/types"
)

// OpenAI calls an OpenAI-compatible chat completions API in JSON mode.
type OpenAI struct {
	Model       string
	Temperature float64

	client *openai.Client
}

// NewOpenAI builds an OpenAI backend. cfg.BaseURL points it at any
// compatible server.
func NewOpenAI(cfg types.ExtractionConfig, client *http.Client) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if client != nil {
		oc.HTTPClient = client
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{Model: model, Temperature: cfg.Temperature, client: openai.NewClientWithConfig(oc)}
}

// Name returns the backend identifier.
func (o *OpenAI) Name() string { return "openai" }

// Generate sends prompt as a single user message and returns the reply.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.Model,
		Temperature: float32(o.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", classifyStatus("OpenAI API", openAIStatus(err), err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: OpenAI returned no choices", errMalformed)
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// classifyStatus wraps err with the sentinel matching an HTTP status. A zero
// status means the call never got a response.
func classifyStatus(service string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %v: %w", service, err, types.ErrRateLimited)
	case status >= 500:
		return fmt.Errorf("%s: %v: %w", service, err, types.ErrUpstreamUnavailable)
	default:
		return fmt.Errorf("%s: %w", service, err)
	}
}
