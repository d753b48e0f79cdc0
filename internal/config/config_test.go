package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PAPERSUMM_CONFIG", "")
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("MIN_SIMILARITY", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkSize != 15000 {
		t.Errorf("ChunkSize = %d, want 15000", cfg.ChunkSize)
	}
	if cfg.MinSimilarity != 0.15 {
		t.Errorf("MinSimilarity = %v, want 0.15", cfg.MinSimilarity)
	}
	if cfg.RelevanceSimilarity != 0.15 {
		t.Errorf("RelevanceSimilarity = %v, want 0.15", cfg.RelevanceSimilarity)
	}
	if cfg.TopNTakeaways != 6 {
		t.Errorf("TopNTakeaways = %d, want 6", cfg.TopNTakeaways)
	}
	if cfg.LLMTimeout != 120*time.Second {
		t.Errorf("LLMTimeout = %v, want 2m", cfg.LLMTimeout)
	}
	if cfg.Port != "8090" {
		t.Errorf("Port = %q, want 8090", cfg.Port)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "papersumm.yaml")
	yaml := "chunk_size: 9000\nmin_similarity: 0.25\nllm_model: from-file\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	// Env beats file for the same key.
	t.Setenv("CHUNK_SIZE", "4000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkSize != 4000 {
		t.Errorf("env should win over file: ChunkSize = %d, want 4000", cfg.ChunkSize)
	}
	if cfg.MinSimilarity != 0.25 {
		t.Errorf("file should win over default: MinSimilarity = %v, want 0.25", cfg.MinSimilarity)
	}
	if cfg.LLMModel != "from-file" {
		t.Errorf("LLMModel = %q, want from-file", cfg.LLMModel)
	}
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing config file should not error, got %v", err)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("chunk_size: [not an int"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed config file should error")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("MIN_SIMILARITY", "7.5")
	t.Setenv("CHUNK_SIZE", "-10")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MinSimilarity != 0.15 {
		t.Errorf("out-of-range MinSimilarity should fall back, got %v", cfg.MinSimilarity)
	}
	if cfg.ChunkSize != 15000 {
		t.Errorf("non-positive ChunkSize should fall back, got %d", cfg.ChunkSize)
	}
}

func TestValidate(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err == nil {
		t.Error("missing ANTHROPIC_API_KEY should fail validation")
	}
	cfg.AnthropicAPIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := cfg.ValidateServe(); err == nil {
		t.Error("missing PAPERSUMM_API_KEY should fail serve validation")
	}
	cfg.PapersummAPIKey = "secret"
	if err := cfg.ValidateServe(); err != nil {
		t.Errorf("ValidateServe: %v", err)
	}
}
