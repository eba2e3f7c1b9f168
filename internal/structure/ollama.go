// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/pdiddy/menu-engine/pkg/types"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

// Ollama calls a local Ollama server with JSON output forced.
type Ollama struct {
	Model       string
	Temperature float64

	client *api.Client
}

// NewOllama builds an Ollama backend. cfg.BaseURL defaults to the local
// server address.
func NewOllama(cfg types.ExtractionConfig, client *http.Client) (*Ollama, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = defaultOllamaURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL %q: %w", raw, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	return &Ollama{Model: model, Temperature: cfg.Temperature, client: api.NewClient(u, client)}, nil
}

// Name returns the backend identifier.
func (o *Ollama) Name() string { return "ollama" }

// Generate runs a non-streaming generation and returns the full response.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   o.Model,
		Prompt:  prompt,
		Format:  json.RawMessage(`"json"`),
		Stream:  &stream,
		Options: map[string]any{"temperature": o.Temperature},
	}

	var sb strings.Builder
	err := o.client.Generate(ctx, req, func(r api.GenerateResponse) error {
		sb.WriteString(r.Response)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", classifyStatus("Ollama", statusErr.StatusCode, err)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("Ollama: %w", err)
		}
		return "", fmt.Errorf("Ollama: %v: %w", err, types.ErrUpstreamUnavailable)
	}
	return sb.String(), nil
}
