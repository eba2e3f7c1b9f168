// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config assembles types.Config from a config file, MENU_ENGINE_*
// environment variables, command flags, and the .secrets/ directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/menu-engine/internal/secrets"
	"github.com/pdiddy/menu-engine/pkg/types"
)

const (
	// EnvPrefix is prepended to every environment override.
	EnvPrefix = "MENU_ENGINE"

	configName = "menu-engine"
)

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", types.DefaultCallTimeout)
	v.SetDefault("http.user_agent", types.DefaultUserAgent)

	v.SetDefault("photos.base_url", "")
	v.SetDefault("photos.api_key", "")
	v.SetDefault("photos.max_assets", types.DefaultMaxAssets)
	v.SetDefault("photos.rate_per_second", 0.0)

	v.SetDefault("recognition.backend", string(types.RecognitionVision))
	v.SetDefault("recognition.api_key", "")
	v.SetDefault("recognition.base_url", "")
	v.SetDefault("recognition.concurrency", 0)
	v.SetDefault("recognition.languages", []string{})
	v.SetDefault("recognition.min_image_bytes", 0)

	v.SetDefault("chunking.max_chunk_chars", types.DefaultMaxChunkChars)
	v.SetDefault("chunking.separator", types.DefaultSeparator)

	v.SetDefault("extraction.backend", string(types.ExtractionGemini))
	v.SetDefault("extraction.model", "")
	v.SetDefault("extraction.api_key", "")
	v.SetDefault("extraction.base_url", "")
	v.SetDefault("extraction.concurrency", 0)
	v.SetDefault("extraction.max_retries", 1)
	v.SetDefault("extraction.temperature", 0.2)
	v.SetDefault("extraction.strict_taxonomy", false)

	v.SetDefault("cache.fast_ttl", types.DefaultFastTTL)
	v.SetDefault("cache.durable_ttl", types.DefaultDurableTTL)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.durable_driver", string(types.DriverSQLite))
	v.SetDefault("cache.durable_dsn", "")

	v.SetDefault("server.addr", types.DefaultAddr)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.jwt_secret", "")
}

// Init points v at the config file and environment. cfgFile overrides the
// search of ./menu-engine.yaml and ~/.config/menu-engine/. A .env file in
// the working directory is loaded unless MENU_ENGINE_ENV is "production".
// It returns the config file used, or "" when none was found.
func Init(v *viper.Viper, cfgFile string) (string, error) {
	if os.Getenv(EnvPrefix+"_ENV") != "production" {
		_ = godotenv.Load()
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return "", nil
		}
		return "", fmt.Errorf("reading config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load builds the configuration from v. Empty credentials fall back to the
// matching file in keys (see package secrets).
func Load(v *viper.Viper, keys map[string]string) (types.Config, error) {
	httpCfg := types.HTTPConfig{
		Timeout:   v.GetDuration("http.timeout"),
		UserAgent: v.GetString("http.user_agent"),
	}

	var cfg types.Config
	cfg.Photos = types.PhotosConfig{
		HTTPConfig:    httpCfg,
		BaseURL:       v.GetString("photos.base_url"),
		APIKey:        secrets.Fallback(v.GetString("photos.api_key"), keys, secrets.SerpAPIKey),
		MaxAssets:     v.GetInt("photos.max_assets"),
		RatePerSecond: v.GetFloat64("photos.rate_per_second"),
	}

	cfg.Recognition = types.RecognitionConfig{
		HTTPConfig:    httpCfg,
		Backend:       types.RecognitionBackend(strings.ToLower(v.GetString("recognition.backend"))),
		APIKey:        secrets.Fallback(v.GetString("recognition.api_key"), keys, secrets.VisionAPIKey),
		BaseURL:       v.GetString("recognition.base_url"),
		Concurrency:   v.GetInt("recognition.concurrency"),
		Languages:     v.GetStringSlice("recognition.languages"),
		MinImageBytes: v.GetInt64("recognition.min_image_bytes"),
	}
	switch cfg.Recognition.Backend {
	case types.RecognitionVision, types.RecognitionTesseract:
	default:
		return types.Config{}, fmt.Errorf("recognition.backend: unknown backend %q", cfg.Recognition.Backend)
	}

	cfg.Chunking = types.ChunkingConfig{
		MaxChunkChars: v.GetInt("chunking.max_chunk_chars"),
		Separator:     v.GetString("chunking.separator"),
	}
	if cfg.Chunking.MaxChunkChars <= 0 {
		return types.Config{}, fmt.Errorf("chunking.max_chunk_chars must be positive, got %d", cfg.Chunking.MaxChunkChars)
	}

	backend := types.ExtractionBackend(strings.ToLower(v.GetString("extraction.backend")))
	var keyName string
	switch backend {
	case types.ExtractionGemini:
		keyName = secrets.GeminiAPIKey
	case types.ExtractionOpenAI:
		keyName = secrets.OpenAIAPIKey
	case types.ExtractionOllama:
	default:
		return types.Config{}, fmt.Errorf("extraction.backend: unknown backend %q", backend)
	}
	cfg.Extraction = types.ExtractionConfig{
		AIConfig: types.AIConfig{
			Model:      v.GetString("extraction.model"),
			APIKey:     secrets.Fallback(v.GetString("extraction.api_key"), keys, keyName),
			MaxRetries: v.GetInt("extraction.max_retries"),
		},
		HTTPConfig:     httpCfg,
		Backend:        backend,
		BaseURL:        v.GetString("extraction.base_url"),
		Concurrency:    v.GetInt("extraction.concurrency"),
		Temperature:    v.GetFloat64("extraction.temperature"),
		StrictTaxonomy: v.GetBool("extraction.strict_taxonomy"),
	}
	if v.IsSet("extraction.taxonomy") {
		if err := v.UnmarshalKey("extraction.taxonomy", &cfg.Extraction.Taxonomy); err != nil {
			return types.Config{}, fmt.Errorf("extraction.taxonomy: %w", err)
		}
	}
	if len(cfg.Extraction.Taxonomy) == 0 {
		cfg.Extraction.Taxonomy = types.DefaultTaxonomy()
	}

	cfg.Cache = types.CacheConfig{
		FastTTL:       v.GetDuration("cache.fast_ttl"),
		DurableTTL:    v.GetDuration("cache.durable_ttl"),
		RedisURL:      v.GetString("cache.redis_url"),
		DurableDriver: types.DurableDriver(strings.ToLower(v.GetString("cache.durable_driver"))),
		DurableDSN:    secrets.Fallback(v.GetString("cache.durable_dsn"), keys, secrets.DurableStoreDSN),
	}
	if err := checkTTLs(cfg.Cache.FastTTL, cfg.Cache.DurableTTL); err != nil {
		return types.Config{}, err
	}

	cfg.Server = types.ServerConfig{
		Addr:        v.GetString("server.addr"),
		CORSOrigins: v.GetStringSlice("server.cors_origins"),
		JWTSecret:   secrets.Fallback(v.GetString("server.jwt_secret"), keys, secrets.JWTSecret),
	}
	return cfg, nil
}

// checkTTLs keeps fast-tier entries from outliving durable ones.
func checkTTLs(fast, durable time.Duration) error {
	if fast <= 0 || durable <= 0 {
		return fmt.Errorf("cache TTLs must be positive (fast %s, durable %s)", fast, durable)
	}
	if fast > durable {
		return fmt.Errorf("cache.fast_ttl %s exceeds cache.durable_ttl %s", fast, durable)
	}
	return nil
}
