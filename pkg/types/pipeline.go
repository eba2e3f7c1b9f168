// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PhotoAsset is one image reference from the photo source. Rank is the
// source-given order and decides output order downstream.
type PhotoAsset struct {
	URL  string `json:"url" yaml:"url"`
	Rank int    `json:"rank" yaml:"rank"`
}

// PhotoSet is what the photo source returns for a restaurant.
type PhotoSet struct {
	Restaurant RestaurantMeta
	Assets     []PhotoAsset
}

// RecognitionResult is the outcome of downloading and recognizing one asset.
// Exactly one is produced per submitted asset.
type RecognitionResult struct {
	AssetRank int       `json:"assetRank" yaml:"asset_rank"`
	URL       string    `json:"url" yaml:"url"`
	Text      string    `json:"text,omitempty" yaml:"text,omitempty"`
	OK        bool      `json:"ok" yaml:"ok"`
	ErrorKind ErrorKind `json:"errorKind,omitempty" yaml:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	LatencyMs int64     `json:"latencyMs" yaml:"latency_ms"`
}

// TextChunk is a contiguous slice of the joined recognized text.
type TextChunk struct {
	Index int    `json:"index" yaml:"index"`
	Text  string `json:"text" yaml:"text"`
}

// ExtractionFragment is the structured output for one chunk.
type ExtractionFragment struct {
	ChunkIndex int       `json:"chunkIndex" yaml:"chunk_index"`
	Menu       Menu      `json:"partialMenu" yaml:"partial_menu"`
	OK         bool      `json:"ok" yaml:"ok"`
	ErrorKind  ErrorKind `json:"errorKind,omitempty" yaml:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	LatencyMs  int64     `json:"latencyMs" yaml:"latency_ms"`
}
