package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Schedule   string           `yaml:"schedule"`
	RunOnStart bool             `yaml:"run_on_start"`
	LogLevel   string           `yaml:"log_level"`
	Source     SourceConfig     `yaml:"source"`
	Selector   SelectorConfig   `yaml:"selector"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Publisher  PublisherConfig  `yaml:"publisher"`
}

type SourceConfig struct {
	URL       string        `yaml:"url"`
	Format    string        `yaml:"format"` // html or rss
	BaseURL   string        `yaml:"base_url"`
	Archive   string        `yaml:"archive"`
	Sections  []string      `yaml:"sections"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

type SelectorConfig struct {
	Strategy   string         `yaml:"strategy"` // model, keyword or positional
	Limit      int            `yaml:"limit"`
	MinIndices int            `yaml:"min_indices"`
	Interests  string         `yaml:"interests"`
	Keywords   []string       `yaml:"keywords"`
	Categories []string       `yaml:"categories"`
	Model      GenerateConfig `yaml:"model"`
}

type SummarizerConfig struct {
	TitleChars    int            `yaml:"title_chars"`
	AbstractChars int            `yaml:"abstract_chars"`
	SystemPrompt  string         `yaml:"system_prompt"`
	Generate      GenerateConfig `yaml:"generate"`
}

// GenerateConfig holds the per-call budgets handed to the generator.
type GenerateConfig struct {
	MaxTokens     int           `yaml:"max_tokens"`
	ContextSize   int           `yaml:"context_size"`
	Temperature   float64       `yaml:"temperature"`
	RepeatPenalty float64       `yaml:"repeat_penalty"`
	Timeout       time.Duration `yaml:"timeout"`
}

type GeneratorConfig struct {
	Type      string   `yaml:"type"` // llama-cli or openai
	Binary    string   `yaml:"binary"`
	ModelPath string   `yaml:"model_path"`
	GPULayers int      `yaml:"gpu_layers"`
	ExtraArgs []string `yaml:"extra_args"`
	Seed      int64    `yaml:"seed"`
	BaseURL   string   `yaml:"base_url"`
	Model     string   `yaml:"model"`
	APIKey    string   `yaml:"api_key"`
}

type PublisherConfig struct {
	Title   string        `yaml:"title"`
	Discord DiscordConfig `yaml:"discord"`
}

type DiscordConfig struct {
	WebhookURL     string        `yaml:"webhook_url"`
	ChunkSize      int           `yaml:"chunk_size"`
	Timeout        time.Duration `yaml:"timeout"`
	Delay          time.Duration `yaml:"delay"`
	SuppressEmbeds *bool         `yaml:"suppress_embeds"`
}

// DefaultKeywords is the case-insensitive pattern set used by the keyword tier.
var DefaultKeywords = []string{
	`\bAGN\b`,
	`active galactic nucle`,
	`outflow`,
	`feedback`,
	`photoioni[sz]ation`,
	`ionization parameter`,
	`\bcloudy\b`,
	`\bmappings\b`,
	`emission[- ]?line`,
	`\bBPT\b`,
	`metallicit`,
	`oxygen abundance`,
	`supermassive black hole`,
	`\bSMBH\b`,
	`black hole mass`,
	`co[- ]?evolution`,
	`narrow[- ]line region`,
	`\bNLR\b`,
	`broad[- ]line region`,
	`\bBLR\b`,
	`galax(y|ies)`,
	`quasar`,
	`seyfert`,
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// applyEnvOverrides lets the plain environment variables used by cron-style
// deployments win over the file.
func applyEnvOverrides(cfg *Config) error {
	if v, ok := os.LookupEnv("DISCORD_WEBHOOK"); ok && v != "" {
		cfg.Publisher.Discord.WebhookURL = v
	}
	if v, ok := os.LookupEnv("ARXIV_URL"); ok && v != "" {
		cfg.Source.URL = v
	}
	if v, ok := os.LookupEnv("LLAMA_BIN"); ok && v != "" {
		cfg.Generator.Binary = v
	}
	if v, ok := os.LookupEnv("LLM_MODEL_PATH"); ok && v != "" {
		cfg.Generator.ModelPath = v
	}
	if v, ok := os.LookupEnv("SEED"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid SEED %q: %w", v, err)
		}
		cfg.Generator.Seed = n
	}
	if v, ok := os.LookupEnv("MAX_TOKENS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid MAX_TOKENS %q: %w", v, err)
		}
		cfg.Summarizer.Generate.MaxTokens = n
	}
	if v, ok := os.LookupEnv("CTX"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid CTX %q: %w", v, err)
		}
		cfg.Summarizer.Generate.ContextSize = n
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Schedule == "" {
		cfg.Schedule = "30 1 * * 1-5"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.Source.URL == "" {
		cfg.Source.URL = "https://arxiv.org/list/astro-ph.GA/new"
	}
	if cfg.Source.Format == "" {
		cfg.Source.Format = "html"
	}
	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = "https://arxiv.org"
	}
	if cfg.Source.Archive == "" {
		cfg.Source.Archive = "astro-ph"
	}
	if cfg.Source.Sections == nil {
		cfg.Source.Sections = []string{"New submissions", "Cross submissions", "Cross-lists"}
	}
	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = "Mozilla/5.0 (compatible; arxiv-digest)"
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 30 * time.Second
	}

	if cfg.Selector.Strategy == "" {
		cfg.Selector.Strategy = "model"
	}
	if cfg.Selector.Limit == 0 {
		cfg.Selector.Limit = 5
	}
	if cfg.Selector.MinIndices == 0 {
		cfg.Selector.MinIndices = 3
	}
	if cfg.Selector.Interests == "" {
		cfg.Selector.Interests = "AGN feedback and outflows, photoionization modelling, emission-line diagnostics, " +
			"gas-phase metallicity, and supermassive black hole and galaxy co-evolution"
	}
	if cfg.Selector.Keywords == nil {
		cfg.Selector.Keywords = DefaultKeywords
	}
	m := &cfg.Selector.Model
	if m.MaxTokens == 0 {
		m.MaxTokens = 30
	}
	if m.ContextSize == 0 {
		m.ContextSize = 4096
	}
	if m.Temperature == 0 {
		m.Temperature = 0.1
	}
	if m.Timeout == 0 {
		m.Timeout = 120 * time.Second
	}

	if cfg.Summarizer.TitleChars == 0 {
		cfg.Summarizer.TitleChars = 150
	}
	if cfg.Summarizer.AbstractChars == 0 {
		cfg.Summarizer.AbstractChars = 500
	}
	g := &cfg.Summarizer.Generate
	if g.MaxTokens == 0 {
		g.MaxTokens = 2048
	}
	if g.ContextSize == 0 {
		g.ContextSize = 8192
	}
	if g.Temperature == 0 {
		g.Temperature = 0.4
	}
	if g.RepeatPenalty == 0 {
		g.RepeatPenalty = 1.1
	}
	if g.Timeout == 0 {
		g.Timeout = 15 * time.Minute
	}

	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "llama-cli"
	}
	if cfg.Generator.Binary == "" {
		cfg.Generator.Binary = "./llama.cpp/build/bin/llama-cli"
	}
	if cfg.Generator.ModelPath == "" {
		cfg.Generator.ModelPath = "models/qwen2.5-3b-instruct-q4_k_m.gguf"
	}
	if cfg.Generator.Seed == 0 {
		cfg.Generator.Seed = 42
	}

	if cfg.Publisher.Title == "" {
		cfg.Publisher.Title = "🔭 Astro-ph.GA Daily Briefing"
	}
	d := &cfg.Publisher.Discord
	if d.ChunkSize == 0 {
		d.ChunkSize = 1900
	}
	if d.Timeout == 0 {
		d.Timeout = 20 * time.Second
	}
	if d.Delay == 0 {
		d.Delay = 500 * time.Millisecond
	}
	if d.SuppressEmbeds == nil {
		suppress := true
		d.SuppressEmbeds = &suppress
	}
}

func validate(cfg *Config) error {
	switch cfg.Source.Format {
	case "html", "rss":
	default:
		return fmt.Errorf("config: unsupported source format %q (supported: html, rss)", cfg.Source.Format)
	}
	switch cfg.Selector.Strategy {
	case "model", "keyword", "positional":
	default:
		return fmt.Errorf("config: unsupported selector strategy %q (supported: model, keyword, positional)", cfg.Selector.Strategy)
	}
	if cfg.Selector.Limit < 1 {
		return fmt.Errorf("config: selector.limit must be positive, got %d", cfg.Selector.Limit)
	}
	for _, kw := range cfg.Selector.Keywords {
		if _, err := regexp.Compile(kw); err != nil {
			return fmt.Errorf("config: invalid selector keyword %q: %w", kw, err)
		}
	}
	switch cfg.Generator.Type {
	case "llama-cli":
	case "openai":
		if cfg.Generator.BaseURL == "" {
			return fmt.Errorf("config: generator.base_url is required for openai generator")
		}
	default:
		return fmt.Errorf("config: unsupported generator type %q (supported: llama-cli, openai)", cfg.Generator.Type)
	}
	if cfg.Summarizer.TitleChars < 1 || cfg.Summarizer.AbstractChars < 1 {
		return fmt.Errorf("config: summarizer.title_chars and abstract_chars must be positive, got %d/%d",
			cfg.Summarizer.TitleChars, cfg.Summarizer.AbstractChars)
	}
	if g := cfg.Summarizer.Generate; g.MaxTokens >= g.ContextSize {
		return fmt.Errorf("config: summarizer.generate.max_tokens (%d) must be below context_size (%d)", g.MaxTokens, g.ContextSize)
	}
	if n := cfg.Publisher.Discord.ChunkSize; n < 200 || n > 2000 {
		return fmt.Errorf("config: publisher.discord.chunk_size must be between 200 and 2000, got %d", n)
	}
	return nil
}

// Load reads the config file, expands environment variables, applies
// environment overrides and defaults, and validates the configuration.
// An empty path yields the defaults plus environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	// An unset ${DISCORD_WEBHOOK} means "no destination", not a literal URL.
	if envVarRegex.MatchString(cfg.Publisher.Discord.WebhookURL) {
		cfg.Publisher.Discord.WebhookURL = ""
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
