// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recognize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/menu-engine/internal/httputil"
	"github.com/pdiddy/menu-engine/pkg/types"
)

// visionAPIURL is the Cloud Vision annotate endpoint. Package-level var for
// test substitution.
var visionAPIURL = "https://vision.googleapis.com/v1/images:annotate"

// Vision recognizes text with Google Cloud Vision TEXT_DETECTION.
type Vision struct {
	Client    *http.Client
	APIKey    string
	BaseURL   string
	Languages []string
}

// NewVision builds a Vision recognizer from configuration.
func NewVision(cfg types.RecognitionConfig, client *http.Client) *Vision {
	return &Vision{Client: client, APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Languages: cfg.Languages}
}

// Name returns the recognizer identifier.
func (v *Vision) Name() string { return "google_vision" }

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image struct {
		Content string `json:"content"`
	} `json:"image"`
	Features     []visionFeature     `json:"features"`
	ImageContext *visionImageContext `json:"imageContext,omitempty"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionImageContext struct {
	LanguageHints []string `json:"languageHints,omitempty"`
}

type visionResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// Recognize sends the image inline and returns the detected text. An image
// with no text returns an empty string and no error.
func (v *Vision) Recognize(ctx context.Context, image []byte) (string, error) {
	ir := visionImageRequest{Features: []visionFeature{{Type: "TEXT_DETECTION"}}}
	ir.Image.Content = base64.StdEncoding.EncodeToString(image)
	if len(v.Languages) > 0 {
		ir.ImageContext = &visionImageContext{LanguageHints: v.Languages}
	}

	body, err := json.Marshal(visionRequest{Requests: []visionImageRequest{ir}})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := v.BaseURL
	if endpoint == "" {
		endpoint = visionAPIURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(v.APIKey), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, v.Client, req, 1)
	if err != nil {
		return "", fmt.Errorf("calling Vision API: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp, "Vision API"); err != nil {
		return "", err
	}

	var vr visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return "", fmt.Errorf("decoding Vision response: %w", err)
	}
	if len(vr.Responses) == 0 {
		return "", nil
	}
	r := vr.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return "", fmt.Errorf("Vision API error %d: %s", r.Error.Code, r.Error.Message)
	}
	if r.FullTextAnnotation != nil && r.FullTextAnnotation.Text != "" {
		return r.FullTextAnnotation.Text, nil
	}
	if len(r.TextAnnotations) > 0 {
		return r.TextAnnotations[0].Description, nil
	}
	return "", nil
}
