// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Defaults shared by config loading and the components that accept zero values.
const (
	DefaultMaxAssets     = 10
	DefaultMaxChunkChars = 5000
	DefaultSeparator     = "\n\n---\n\n"
	DefaultFastTTL       = time.Hour
	DefaultDurableTTL    = 30 * 24 * time.Hour
	DefaultCallTimeout   = 30 * time.Second
	DefaultUserAgent     = "menu-engine/0.1"
	DefaultAddr          = ":8080"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single upstream call. A call that exceeds it is a
	// per-asset or per-chunk timeout, not a request failure.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// PhotosConfig holds settings for the photo source.
type PhotosConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL overrides the photo search endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey authenticates against the photo search API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxAssets caps how many photos are recognized per request (default 10).
	MaxAssets int `json:"max_assets" yaml:"max_assets"`

	// RatePerSecond paces photo search calls. Zero disables pacing.
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`
}

// RecognitionBackend identifies the text recognition engine.
type RecognitionBackend string

const (
	RecognitionVision    RecognitionBackend = "vision"
	RecognitionTesseract RecognitionBackend = "tesseract"
)

// RecognitionConfig holds settings for the recognition stage.
type RecognitionConfig struct {
	HTTPConfig `yaml:",inline"`

	// Backend selects the engine: vision or tesseract.
	Backend RecognitionBackend `json:"backend" yaml:"backend"`

	// APIKey authenticates against the cloud vision API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the vision endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Concurrency caps in-flight assets. Zero means one worker per asset.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Languages are recognition language hints (e.g. "eng", "hin").
	Languages []string `json:"languages,omitempty" yaml:"languages,omitempty"`

	// MinImageBytes rejects downloads smaller than this. Zero disables the check.
	MinImageBytes int64 `json:"min_image_bytes" yaml:"min_image_bytes"`
}

// ChunkingConfig holds settings for the chunker.
type ChunkingConfig struct {
	// MaxChunkChars is the chunk size in characters (default 5000).
	MaxChunkChars int `json:"max_chunk_chars" yaml:"max_chunk_chars"`

	// Separator is placed between texts from different photos.
	Separator string `json:"separator" yaml:"separator"`
}

// ExtractionBackend identifies the structuring model provider.
type ExtractionBackend string

const (
	ExtractionGemini ExtractionBackend = "gemini"
	ExtractionOpenAI ExtractionBackend = "openai"
	ExtractionOllama ExtractionBackend = "ollama"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the model identifier (e.g. "gemini-2.0-flash").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed calls (default 1).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ExtractionConfig holds settings for the structuring stage.
type ExtractionConfig struct {
	AIConfig   `yaml:",inline"`
	HTTPConfig `yaml:",inline"`

	// Backend selects the provider: gemini, openai, or ollama.
	Backend ExtractionBackend `json:"backend" yaml:"backend"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Concurrency caps in-flight chunks. Zero means one worker per chunk.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Taxonomy lists the categories the model is asked to fill.
	Taxonomy Taxonomy `json:"taxonomy,omitempty" yaml:"taxonomy,omitempty"`

	// StrictTaxonomy drops items whose labels fall outside Taxonomy.
	StrictTaxonomy bool `json:"strict_taxonomy" yaml:"strict_taxonomy"`
}

// DurableDriver identifies the durable tier backend.
type DurableDriver string

const (
	DriverSQLite   DurableDriver = "sqlite"
	DriverPostgres DurableDriver = "postgres"
	DriverMongo    DurableDriver = "mongo"
)

// CacheConfig holds settings for both cache tiers.
type CacheConfig struct {
	FastTTL    time.Duration `json:"fast_ttl" yaml:"fast_ttl"`
	DurableTTL time.Duration `json:"durable_ttl" yaml:"durable_ttl"`

	// RedisURL selects the Redis fast tier. Empty uses an in-process map.
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`

	DurableDriver DurableDriver `json:"durable_driver" yaml:"durable_driver"`

	// DurableDSN is a file path for sqlite or a connection URI otherwise.
	DurableDSN string `json:"durable_dsn" yaml:"durable_dsn"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	Addr        string   `json:"addr" yaml:"addr"`
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`

	// JWTSecret guards DELETE /menus. Empty leaves it open.
	JWTSecret string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`
}

// Config is the full application configuration.
type Config struct {
	Photos      PhotosConfig      `json:"photos" yaml:"photos"`
	Recognition RecognitionConfig `json:"recognition" yaml:"recognition"`
	Chunking    ChunkingConfig    `json:"chunking" yaml:"chunking"`
	Extraction  ExtractionConfig  `json:"extraction" yaml:"extraction"`
	Cache       CacheConfig       `json:"cache" yaml:"cache"`
	Server      ServerConfig      `json:"server" yaml:"server"`
}
