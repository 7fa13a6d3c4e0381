package model

import "time"

// Config holds every tunable of a proofvote run
type Config struct {
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	NLI          NLIConfig          `yaml:"nli" mapstructure:"nli"`
	Generation   GenerationConfig   `yaml:"generation" mapstructure:"generation"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	LaTeX        LaTeXConfig        `yaml:"latex" mapstructure:"latex"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	Stats        StatsConfig        `yaml:"stats" mapstructure:"stats"`
}

// VerificationConfig configures the NLI ensemble
type VerificationConfig struct {
	GradeThreshold  float64            `yaml:"grade_threshold" mapstructure:"grade_threshold"`
	EntailmentLabel string             `yaml:"entailment_label" mapstructure:"entailment_label"`
	Classifiers     []ClassifierConfig `yaml:"classifiers" mapstructure:"classifiers"`
}

// ClassifierConfig names one pretrained NLI model. Endpoint overrides the
// NLI base URL for this classifier.
type ClassifierConfig struct {
	ID       ClassifierID `yaml:"id" mapstructure:"id"`
	Model    string       `yaml:"model" mapstructure:"model"`
	Endpoint string       `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
}

// NLIConfig configures the inference endpoint used by classifiers
type NLIConfig struct {
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	Token             string        `yaml:"token,omitempty" mapstructure:"token"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// GenerationConfig configures the proof-generation collaborator
type GenerationConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"`
	BaseURL           string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Models            []ModelConfig `yaml:"models" mapstructure:"models"`
	Temperatures      []float64     `yaml:"temperatures" mapstructure:"temperatures"`
	MaxTokens         int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
}

// ModelConfig is one generation model; Name is used for the results directory
type ModelConfig struct {
	Name  string `yaml:"name" mapstructure:"name"`
	Model string `yaml:"model" mapstructure:"model"`
}

// CacheConfig configures the entailment score cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig sizes the verification worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LaTeXConfig configures the syntax check
type LaTeXConfig struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Command string   `yaml:"command" mapstructure:"command"`
	Args    []string `yaml:"args" mapstructure:"args"`
}

// OutputConfig configures where results are written
type OutputConfig struct {
	Root        string `yaml:"root" mapstructure:"root"`
	MetricsFile string `yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`
	Verbose     bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LoggingConfig configures zap
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// StatsConfig configures metric aggregation
type StatsConfig struct {
	BaselineIndex int `yaml:"baseline_index" mapstructure:"baseline_index"`
	// QualityPredicate selects which flag decides whether an attempt-1 record
	// is kept for clarity/descriptiveness/redundancy: "human" or "ensemble".
	QualityPredicate string `yaml:"quality_predicate" mapstructure:"quality_predicate"`
}

// DefaultConfig returns the configuration used by the published experiments
func DefaultConfig() *Config {
	return &Config{
		Verification: VerificationConfig{
			GradeThreshold:  50,
			EntailmentLabel: "entailment",
			Classifiers: []ClassifierConfig{
				{ID: "prism", Model: "Jaehun/PrismNLI-0.4B"},
				{ID: "bart", Model: "facebook/bart-large-mnli"},
				{ID: "deberta-base", Model: "MoritzLaurer/DeBERTa-v3-base-mnli"},
				{ID: "deberta-base-fever", Model: "MoritzLaurer/DeBERTa-v3-base-mnli-fever-anli"},
				{ID: "deberta-large", Model: "MoritzLaurer/DeBERTa-v3-large-mnli-fever-anli-ling-wanli"},
			},
		},
		NLI: NLIConfig{
			BaseURL:           "http://localhost:8080",
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RequestsPerSecond: 20,
			BurstSize:         5,
		},
		Generation: GenerationConfig{
			Provider: "openai",
			BaseURL:  "https://openrouter.ai/api/v1",
			Models: []ModelConfig{
				{Name: "DEEPSEEK", Model: "deepseek/deepseek-r1-0528"},
				{Name: "GPT", Model: "openai/gpt-4.1"},
				{Name: "CLAUDE", Model: "anthropic/claude-sonnet-4"},
				{Name: "LLAMA", Model: "meta-llama/llama-3.1-405b-instruct"},
				{Name: "O4", Model: "openai/o4-mini-high"},
			},
			Temperatures:      []float64{0.0, 0.4, 0.8, 1.0},
			MaxTokens:         4000,
			Timeout:           2 * time.Minute,
			MaxRetries:        3,
			RequestsPerSecond: 1,
			BurstSize:         1,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".proofvote-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		LaTeX: LaTeXConfig{
			Enabled: true,
			Command: "latexmk",
			Args:    []string{"-pdf", "-interaction=nonstopmode"},
		},
		Output: OutputConfig{
			Root: "./results",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Path:   "stderr",
		},
		Stats: StatsConfig{
			BaselineIndex:    0,
			QualityPredicate: "human",
		},
	}
}

// Roster returns the classifier identities in configured order
func (c VerificationConfig) Roster() Roster {
	roster := make(Roster, len(c.Classifiers))
	for i, classifier := range c.Classifiers {
		roster[i] = classifier.ID
	}
	return roster
}
