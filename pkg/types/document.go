// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RestaurantMeta describes the place the photos were taken from.
type RestaurantMeta struct {
	Name    string  `json:"name" yaml:"name"`
	Address string  `json:"address,omitempty" yaml:"address,omitempty"`
	Rating  float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	Reviews int     `json:"reviews,omitempty" yaml:"reviews,omitempty"`
	Phone   string  `json:"phone,omitempty" yaml:"phone,omitempty"`

	// DataID is the photo source's identifier for the place.
	DataID string `json:"dataId,omitempty" yaml:"data_id,omitempty"`
}

// Timings holds per-stage wall time in milliseconds, keyed by Stage* names.
type Timings map[string]int64

// Document sources reported in Meta.Source.
const (
	SourceFresh   = "fresh"
	SourceDurable = "durable"
	SourceCache   = "cache"
)

// Meta carries diagnostics for a pipeline run.
type Meta struct {
	ItemsCount int     `json:"itemsCount" yaml:"items_count"`
	Timings    Timings `json:"timings" yaml:"timings"`

	// Source reports which tier answered the request.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Sources lists the photo URLs that contributed recognized text.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`

	ImagesProcessed   int `json:"imagesProcessed" yaml:"images_processed"`
	ImagesFailed      int `json:"imagesFailed" yaml:"images_failed"`
	OCRChars          int `json:"ocrChars" yaml:"ocr_chars"`
	Chunks            int `json:"chunks" yaml:"chunks"`
	ChunksFailed      int `json:"chunksFailed" yaml:"chunks_failed"`
	DuplicatesDropped int `json:"duplicatesDropped" yaml:"duplicates_dropped"`

	RunID       string    `json:"runId,omitempty" yaml:"run_id,omitempty"`
	ExtractedAt time.Time `json:"extractedAt" yaml:"extracted_at"`
}

// MenuDocument is the merged result of one extraction. It is the unit stored
// in both cache tiers and returned to callers.
type MenuDocument struct {
	Request    ExtractionRequest `json:"request" yaml:"request"`
	Restaurant RestaurantMeta    `json:"restaurant" yaml:"restaurant"`
	Menu       Menu              `json:"menu" yaml:"menu"`
	Meta       Meta              `json:"meta" yaml:"meta"`

	// Warnings describes partial failures absorbed during the run.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Empty reports whether the document holds no line items. Empty documents
// are never cached.
func (d *MenuDocument) Empty() bool {
	return d == nil || d.Meta.ItemsCount == 0
}

// SimpleResult is the recognized-text-only output of the first three stages.
type SimpleResult struct {
	Request    ExtractionRequest   `json:"request" yaml:"request"`
	Restaurant RestaurantMeta      `json:"restaurant" yaml:"restaurant"`
	Text       string              `json:"text" yaml:"text"`
	Chunks     []TextChunk         `json:"chunks" yaml:"chunks"`
	Results    []RecognitionResult `json:"results" yaml:"results"`
	Meta       Meta                `json:"meta" yaml:"meta"`
	Warnings   []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}
