// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
)

// Request-fatal conditions. Callers match them with errors.Is.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrNotFound             = errors.New("restaurant not found")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrRateLimited          = fmt.Errorf("%w: rate limited", ErrUpstreamUnavailable)
	ErrNoMenuPhotos         = errors.New("no menu photos found")
	ErrNoTextRecognized     = errors.New("no text recognized from any menu photo")
	ErrNoStructureExtracted = errors.New("no structured menu extracted from any text chunk")
	ErrCacheMiss            = errors.New("cache miss")
)

// Stage names used in timings, warnings, and StageError.
const (
	StagePhotos      = "photos"
	StageRecognition = "recognition"
	StageChunking    = "chunking"
	StageExtraction  = "extraction"
	StageMerge       = "merge"
	StageTotal       = "total"
)

// StageError reports that a stage produced no usable output. Reasons holds
// one diagnostic line per failed sub-task.
type StageError struct {
	Stage   string
	Err     error
	Reasons []string
}

func (e *StageError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v (%s)", e.Stage, e.Err, strings.Join(e.Reasons, "; "))
}

func (e *StageError) Unwrap() error { return e.Err }

// ErrorKind classifies a per-asset or per-chunk failure.
type ErrorKind string

const (
	KindDownload     ErrorKind = "download"
	KindInvalidImage ErrorKind = "invalid_image"
	KindRecognition  ErrorKind = "recognition"
	KindEmptyText    ErrorKind = "empty_text"
	KindUpstream     ErrorKind = "upstream"
	KindRateLimited  ErrorKind = "rate_limited"
	KindMalformed    ErrorKind = "malformed_response"
	KindTimeout      ErrorKind = "timeout"
	KindCancelled    ErrorKind = "cancelled"
)
