package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Engine tunables
	ChunkSize           int
	MinSimilarity       float64
	MergeSimilarity     float64
	DedupSimilarity     float64
	RelevanceSimilarity float64
	WindowSize          int
	TopNTakeaways       int
	MaxConcurrency      int

	// LLM
	AnthropicAPIKey string
	LLMModel        string
	LLMTimeout      time.Duration

	// Artifacts
	OutputDir string

	// Service mode
	Port            string
	PapersummAPIKey string
	WorkerCount     int
	MaxQueueSize    int
	MaxUploadBytes  int64
	JobTTL          time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

// fileConfig is the optional YAML tunables file. Only engine knobs live
// here; secrets and service wiring stay in the environment.
type fileConfig struct {
	ChunkSize           int     `yaml:"chunk_size"`
	MinSimilarity       float64 `yaml:"min_similarity"`
	MergeSimilarity     float64 `yaml:"merge_similarity"`
	DedupSimilarity     float64 `yaml:"dedup_similarity"`
	RelevanceSimilarity float64 `yaml:"relevance_similarity"`
	WindowSize          int     `yaml:"window_size"`
	TopNTakeaways       int     `yaml:"top_n_takeaways"`
	MaxConcurrency      int     `yaml:"max_concurrency"`
	LLMModel            string  `yaml:"llm_model"`
}

// Load builds the configuration. Precedence: environment over config file
// over built-in defaults. filePath may be empty, in which case
// PAPERSUMM_CONFIG is consulted; a missing file is not an error.
func Load(filePath string) (Config, error) {
	fc := fileConfig{
		ChunkSize:           15000,
		MinSimilarity:       0.15,
		MergeSimilarity:     0.60,
		DedupSimilarity:     0.80,
		RelevanceSimilarity: 0.15,
		WindowSize:          4000,
		TopNTakeaways:       6,
		MaxConcurrency:      5,
		LLMModel:            "claude-sonnet-4-5-20250929",
	}

	if filePath == "" {
		filePath = os.Getenv("PAPERSUMM_CONFIG")
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", filePath, err)
		}
	}

	cfg := Config{
		ChunkSize:           envInt("CHUNK_SIZE", fc.ChunkSize),
		MinSimilarity:       envFloat("MIN_SIMILARITY", fc.MinSimilarity),
		MergeSimilarity:     envFloat("MERGE_SIMILARITY", fc.MergeSimilarity),
		DedupSimilarity:     envFloat("DEDUP_SIMILARITY", fc.DedupSimilarity),
		RelevanceSimilarity: envFloat("RELEVANCE_SIMILARITY", fc.RelevanceSimilarity),
		WindowSize:          envInt("WINDOW_SIZE", fc.WindowSize),
		TopNTakeaways:       envInt("TOP_N_TAKEAWAYS", fc.TopNTakeaways),
		MaxConcurrency:      envInt("MAX_CONCURRENCY", fc.MaxConcurrency),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		LLMModel:        envOr("LLM_MODEL", fc.LLMModel),
		LLMTimeout:      envDuration("LLM_TIMEOUT", 120*time.Second),

		OutputDir: envOr("OUTPUT_DIR", "."),

		Port:            envOr("PORT", "8090"),
		PapersummAPIKey: os.Getenv("PAPERSUMM_API_KEY"),
		WorkerCount:     envInt("WORKER_COUNT", 4),
		MaxQueueSize:    envInt("MAX_QUEUE_SIZE", 100),
		MaxUploadBytes:  envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		JobTTL:          envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 15000
	}
	if cfg.MinSimilarity <= 0 || cfg.MinSimilarity > 1 {
		cfg.MinSimilarity = 0.15
	}
	if cfg.MergeSimilarity <= 0 || cfg.MergeSimilarity > 1 {
		cfg.MergeSimilarity = 0.60
	}
	if cfg.DedupSimilarity <= 0 || cfg.DedupSimilarity > 1 {
		cfg.DedupSimilarity = 0.80
	}
	if cfg.RelevanceSimilarity <= 0 || cfg.RelevanceSimilarity > 1 {
		cfg.RelevanceSimilarity = 0.15
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 4000
	}
	if cfg.TopNTakeaways <= 0 {
		cfg.TopNTakeaways = 6
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 5
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg, nil
}

// Validate checks requirements common to all modes.
func (c Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	return nil
}

// ValidateServe checks additional requirements for service mode.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.PapersummAPIKey == "" {
		return fmt.Errorf("PAPERSUMM_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
