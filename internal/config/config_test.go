package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// clearEnv pins the override variables so the host environment cannot leak
// into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"DISCORD_WEBHOOK", "ARXIV_URL", "LLAMA_BIN", "LLM_MODEL_PATH", "SEED", "MAX_TOKENS", "CTX"} {
		t.Setenv(name, "")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config_test_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	tmpfile.Close()
	return tmpfile.Name()
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
schedule: "0 9 * * *"
source:
  url: https://arxiv.org/list/astro-ph.CO/new
  sections: ["New submissions"]
  timeout: 10s
selector:
  strategy: keyword
  limit: 8
publisher:
  title: Cosmology digest
  discord:
    webhook_url: https://discord.example/api/webhooks/1/abc
    chunk_size: 1500
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Schedule != "0 9 * * *" {
		t.Errorf("Expected schedule '0 9 * * *', got '%s'", cfg.Schedule)
	}
	if cfg.Source.URL != "https://arxiv.org/list/astro-ph.CO/new" {
		t.Errorf("Expected source url to be kept, got '%s'", cfg.Source.URL)
	}
	if diff := cmp.Diff([]string{"New submissions"}, cfg.Source.Sections); diff != "" {
		t.Errorf("Sections mismatch (-want +got):\n%s", diff)
	}
	if cfg.Source.Timeout != 10*time.Second {
		t.Errorf("Expected source timeout 10s, got %v", cfg.Source.Timeout)
	}
	if cfg.Selector.Strategy != "keyword" || cfg.Selector.Limit != 8 {
		t.Errorf("Expected keyword strategy with limit 8, got %s/%d", cfg.Selector.Strategy, cfg.Selector.Limit)
	}
	if cfg.Publisher.Discord.WebhookURL != "https://discord.example/api/webhooks/1/abc" {
		t.Errorf("Expected webhook url to be kept, got '%s'", cfg.Publisher.Discord.WebhookURL)
	}
	if cfg.Publisher.Discord.ChunkSize != 1500 {
		t.Errorf("Expected chunk size 1500, got %d", cfg.Publisher.Discord.ChunkSize)
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Source.URL != "https://arxiv.org/list/astro-ph.GA/new" {
		t.Errorf("Expected default source url, got '%s'", cfg.Source.URL)
	}
	if cfg.Source.Format != "html" {
		t.Errorf("Expected default format 'html', got '%s'", cfg.Source.Format)
	}
	if cfg.Source.Timeout != 30*time.Second {
		t.Errorf("Expected default source timeout 30s, got %v", cfg.Source.Timeout)
	}
	if cfg.Selector.Strategy != "model" {
		t.Errorf("Expected default strategy 'model', got '%s'", cfg.Selector.Strategy)
	}
	if cfg.Selector.Limit != 5 {
		t.Errorf("Expected default limit 5, got %d", cfg.Selector.Limit)
	}
	if cfg.Selector.MinIndices != 3 {
		t.Errorf("Expected default min_indices 3, got %d", cfg.Selector.MinIndices)
	}
	if len(cfg.Selector.Keywords) != len(DefaultKeywords) {
		t.Errorf("Expected %d default keywords, got %d", len(DefaultKeywords), len(cfg.Selector.Keywords))
	}

	wantSelect := GenerateConfig{MaxTokens: 30, ContextSize: 4096, Temperature: 0.1, Timeout: 120 * time.Second}
	if diff := cmp.Diff(wantSelect, cfg.Selector.Model); diff != "" {
		t.Errorf("Selector model defaults mismatch (-want +got):\n%s", diff)
	}
	wantSummary := GenerateConfig{MaxTokens: 2048, ContextSize: 8192, Temperature: 0.4, RepeatPenalty: 1.1, Timeout: 15 * time.Minute}
	if diff := cmp.Diff(wantSummary, cfg.Summarizer.Generate); diff != "" {
		t.Errorf("Summarizer defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.Summarizer.TitleChars != 150 || cfg.Summarizer.AbstractChars != 500 {
		t.Errorf("Expected caps 150/500, got %d/%d", cfg.Summarizer.TitleChars, cfg.Summarizer.AbstractChars)
	}

	if cfg.Generator.Type != "llama-cli" {
		t.Errorf("Expected default generator 'llama-cli', got '%s'", cfg.Generator.Type)
	}
	if cfg.Generator.Seed != 42 {
		t.Errorf("Expected default seed 42, got %d", cfg.Generator.Seed)
	}

	if cfg.Publisher.Discord.WebhookURL != "" {
		t.Errorf("Expected no default webhook, got '%s'", cfg.Publisher.Discord.WebhookURL)
	}
	if cfg.Publisher.Discord.ChunkSize != 1900 {
		t.Errorf("Expected default chunk size 1900, got %d", cfg.Publisher.Discord.ChunkSize)
	}
	if cfg.Publisher.Discord.Timeout != 20*time.Second {
		t.Errorf("Expected default webhook timeout 20s, got %v", cfg.Publisher.Discord.Timeout)
	}
	if cfg.Publisher.Discord.SuppressEmbeds == nil || !*cfg.Publisher.Discord.SuppressEmbeds {
		t.Errorf("Expected embeds to be suppressed by default")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_WEBHOOK", "https://discord.example/hook")
	t.Setenv("LLAMA_BIN", "/opt/llama/llama-cli")
	t.Setenv("LLM_MODEL_PATH", "/models/test.gguf")
	t.Setenv("SEED", "7")
	t.Setenv("MAX_TOKENS", "1200")
	t.Setenv("CTX", "4096")

	path := writeTempConfig(t, `
generator:
  binary: ./ignored
  seed: 1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Publisher.Discord.WebhookURL != "https://discord.example/hook" {
		t.Errorf("Expected webhook from env, got '%s'", cfg.Publisher.Discord.WebhookURL)
	}
	if cfg.Generator.Binary != "/opt/llama/llama-cli" {
		t.Errorf("Expected binary from env, got '%s'", cfg.Generator.Binary)
	}
	if cfg.Generator.ModelPath != "/models/test.gguf" {
		t.Errorf("Expected model path from env, got '%s'", cfg.Generator.ModelPath)
	}
	if cfg.Generator.Seed != 7 {
		t.Errorf("Expected seed 7, got %d", cfg.Generator.Seed)
	}
	if cfg.Summarizer.Generate.MaxTokens != 1200 || cfg.Summarizer.Generate.ContextSize != 4096 {
		t.Errorf("Expected 1200/4096, got %d/%d", cfg.Summarizer.Generate.MaxTokens, cfg.Summarizer.Generate.ContextSize)
	}
}

func TestInvalidEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEED", "forty-two")

	_, err := Load("")
	if err == nil {
		t.Fatal("Expected error for invalid SEED")
	}
	if !strings.Contains(err.Error(), "invalid SEED") {
		t.Errorf("Expected 'invalid SEED' error, got: %v", err)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "unknown format",
			config:  "source:\n  format: atom\n",
			wantErr: "unsupported source format",
		},
		{
			name:    "unknown strategy",
			config:  "selector:\n  strategy: random\n",
			wantErr: "unsupported selector strategy",
		},
		{
			name:    "negative limit",
			config:  "selector:\n  limit: -1\n",
			wantErr: "selector.limit must be positive",
		},
		{
			name:    "bad keyword",
			config:  "selector:\n  keywords: [\"(unclosed\"]\n",
			wantErr: "invalid selector keyword",
		},
		{
			name:    "openai without base url",
			config:  "generator:\n  type: openai\n",
			wantErr: "generator.base_url is required",
		},
		{
			name:    "unknown generator",
			config:  "generator:\n  type: ollama\n",
			wantErr: "unsupported generator type",
		},
		{
			name:    "negative title cap",
			config:  "summarizer:\n  title_chars: -5\n",
			wantErr: "title_chars and abstract_chars must be positive",
		},
		{
			name:    "negative abstract cap",
			config:  "summarizer:\n  abstract_chars: -1\n",
			wantErr: "title_chars and abstract_chars must be positive",
		},
		{
			name:    "output budget exceeds context",
			config:  "summarizer:\n  generate:\n    max_tokens: 9000\n    context_size: 8192\n",
			wantErr: "must be below context_size",
		},
		{
			name:    "chunk size above discord limit",
			config:  "publisher:\n  discord:\n    chunk_size: 2500\n",
			wantErr: "chunk_size must be between",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeTempConfig(t, tt.config))
			if err == nil {
				t.Fatalf("Expected validation error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("Expected 'failed to read' error, got: %v", err)
	}
}

func TestParseError(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeTempConfig(t, "selector: [unterminated"))
	if err == nil {
		t.Fatal("Expected parse error")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("Expected 'failed to parse' error, got: %v", err)
	}
}

func TestEnvVarExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_INTERESTS", "dwarf galaxies")

	cfg, err := Load(writeTempConfig(t, `
selector:
  interests: ${TEST_INTERESTS}
publisher:
  discord:
    webhook_url: ${UNSET_WEBHOOK_FOR_TEST}
`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Selector.Interests != "dwarf galaxies" {
		t.Errorf("Expected expanded interests, got '%s'", cfg.Selector.Interests)
	}
	if cfg.Publisher.Discord.WebhookURL != "" {
		t.Errorf("Expected unexpanded webhook placeholder to be dropped, got '%s'", cfg.Publisher.Discord.WebhookURL)
	}
}
