// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tesseract recognizes menu text locally with Tesseract through
// gosseract. It needs the tesseract and leptonica shared libraries at
// build and run time.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes text with a fresh gosseract client per image. Clients
// are not safe for concurrent use, so concurrent calls each get their own.
type Engine struct {
	Languages []string

	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract-backed recognizer. Languages use Tesseract
// codes such as "eng" or "hin".
func New(languages []string) *Engine {
	return &Engine{Languages: languages, clientFactory: gosseract.NewClient}
}

// Name returns the recognizer identifier.
func (e *Engine) Name() string { return "tesseract" }

// Recognize runs OCR on image. Tesseract is not interruptible, so ctx is
// only checked before the call starts.
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(e.Languages) > 0 {
		if err := c.SetLanguage(e.Languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("set page segmentation: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
