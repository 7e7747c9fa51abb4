// Package config provides configuration management for omoplink.
//
// This package has no I/O dependencies (no file operations, no network
// calls). Validation functions may write user-facing warnings via
// gn.Warn().
//
// # Configuration Sources
//
// Precedence (highest to lowest): CLI flags > env vars > config.yaml > defaults
//
// # Design Principles
//
// - Default config (from New()) is always valid - no validation needed
// - All mutations go through Option functions - the only way to modify Config
// - Invalid options are rejected with gn.Warn() - config remains in valid state
// - ToOptions() converts persistent fields (those in config.yaml)
// - Environment variables match ToOptions() fields exactly
//
// # Persistent vs Runtime Fields
//
// Persistent fields (in ToOptions, config.yaml, and env vars):
//   - Store: batch_size
//   - Embed: endpoint, model, dimensions, prefix, batch_size, workers,
//     max_attempts, retry_delay_ms, domains
//   - Resolve: top_k, min_similarity, exact_boost, overlap_boost, hint_penalty
//   - Score: decay, accept_threshold
//   - Eval: min_overlap
//   - Log: level, format, destination
//   - General: jobs_number
//
// Runtime-only fields (CLI flags only):
//   - Store.SourcesDir (per-command override of sources.yaml)
//   - HomeDir (set once at startup)
//
// # Environment Variables
//
// Use OMOPLINK_ prefix with underscores for nesting:
//
//	OMOPLINK_EMBED_ENDPOINT=http://localhost:11434
//	OMOPLINK_EMBED_WORKERS=8
//	OMOPLINK_SCORE_DECAY=inverse
//	OMOPLINK_JOBS_NUMBER=8
package config

import (
	"runtime"
)

// Config represents the complete omoplink configuration.
type Config struct {
	// Store contains concept graph store build settings.
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Embed contains embedding collaborator and index build settings.
	Embed EmbedConfig `mapstructure:"embed" yaml:"embed"`

	// Resolve contains hybrid resolver ranking settings.
	Resolve ResolveConfig `mapstructure:"resolve" yaml:"resolve"`

	// Score contains concept scorer settings.
	Score ScoreConfig `mapstructure:"score" yaml:"score"`

	// Eval contains evaluation harness settings.
	Eval EvalConfig `mapstructure:"eval" yaml:"eval"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of concurrent workers for parallel
	// operations (document evaluation). Defaults to the number of
	// available threads.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir determines where config, cache and logs directories
	// reside. It must be set by CLI during init, there is no default
	// value for it.
	HomeDir string
}

// StoreConfig contains concept graph store settings.
type StoreConfig struct {
	// BatchSize defines the number of records per bulk-insert
	// transaction chunk during store build. The effective rows per
	// INSERT statement is additionally capped by the SQLite bound
	// parameter limit.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// SourcesDir overrides the vocabulary directory from sources.yaml.
	// Runtime-only field set by the build command.
	SourcesDir string `mapstructure:"-" yaml:"-"`
}

// EmbedConfig contains embedding collaborator and index build settings.
type EmbedConfig struct {
	// Endpoint is the base URL of the Ollama-compatible embedding
	// service.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Model is the embedding model name. It participates in the index
	// fingerprint: changing it invalidates the cached index.
	Model string `mapstructure:"model" yaml:"model"`

	// Dimensions is the expected vector width. Every response is
	// validated against it; a mismatch aborts the operation.
	Dimensions int `mapstructure:"dimensions" yaml:"dimensions"`

	// Prefix is prepended to every text before embedding. E5-family
	// models expect "query: ". The same prefix is applied at build and
	// query time so similarities stay comparable.
	Prefix string `mapstructure:"prefix" yaml:"prefix"`

	// BatchSize is the number of concept names embedded per request.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// Workers bounds the number of concurrent embedding requests.
	// Tune to respect the rate limits of the embedding service.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// MaxAttempts bounds retries of a failed embedding request.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`

	// RetryDelayMs is the initial backoff delay in milliseconds;
	// it doubles on every attempt.
	RetryDelayMs int `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`

	// Domains restricts which concept domains get embedded.
	// Empty means all domains.
	Domains []string `mapstructure:"domains" yaml:"domains"`
}

// ResolveConfig contains hybrid resolver ranking settings.
type ResolveConfig struct {
	// TopK is the number of nearest neighbors fetched from the index.
	TopK int `mapstructure:"top_k" yaml:"top_k"`

	// MinSimilarity is the confidence floor; candidates below it are
	// dropped. An empty result is not an error.
	MinSimilarity float64 `mapstructure:"min_similarity" yaml:"min_similarity"`

	// ExactBoost multiplies confidence on an exact name match.
	ExactBoost float64 `mapstructure:"exact_boost" yaml:"exact_boost"`

	// OverlapBoost multiplies confidence on a prefix/substring match.
	OverlapBoost float64 `mapstructure:"overlap_boost" yaml:"overlap_boost"`

	// HintPenalty multiplies confidence of candidates that contradict
	// a domain or vocabulary hint. Must stay below 1.
	HintPenalty float64 `mapstructure:"hint_penalty" yaml:"hint_penalty"`
}

// ScoreConfig contains concept scorer settings.
type ScoreConfig struct {
	// Decay selects the partial-credit formula for hierarchy distance:
	// "inverse" (1/(1+d)) or "exponential" (2^-d). The chosen formula
	// is recorded in every report and must stay fixed across a run.
	Decay string `mapstructure:"decay" yaml:"decay"`

	// AcceptThreshold is the minimum concept score for a span match to
	// count as a true positive.
	AcceptThreshold float64 `mapstructure:"accept_threshold" yaml:"accept_threshold"`
}

// EvalConfig contains evaluation harness settings.
type EvalConfig struct {
	// MinOverlap is the minimum span overlap fraction (relative to the
	// shorter span) for two spans to match. 0 means any overlap counts.
	MinOverlap float64 `mapstructure:"min_overlap" yaml:"min_overlap"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json', 'text' or 'tint' (user-facing and colored).
	Format string `mapstructure:"format"      yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'
	Level string `mapstructure:"level"       yaml:"level"`
	// Destination can be a log file (to default place), STDERR or STDOUT
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New creates a Config with sensible default values.
// The returned config is always valid and ready to use.
// Default values can be overridden using Option functions via Update().
func New() *Config {
	res := &Config{
		Store: StoreConfig{
			BatchSize: 50_000,
		},
		Embed: EmbedConfig{
			Endpoint:     "http://localhost:11434",
			Model:        "e5-small-v2",
			Dimensions:   384,
			Prefix:       "query: ",
			BatchSize:    256,
			Workers:      4,
			MaxAttempts:  5,
			RetryDelayMs: 500,
		},
		Resolve: ResolveConfig{
			TopK:          30,
			MinSimilarity: 0.5,
			ExactBoost:    1.5,
			OverlapBoost:  1.2,
			HintPenalty:   0.5,
		},
		Score: ScoreConfig{
			Decay:           "inverse",
			AcceptThreshold: 0.7,
		},
		Eval: EvalConfig{
			MinOverlap: 0,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
			// for now file is rewritten every time the log starts
			Destination: "file",
		},
		JobsNumber: runtime.NumCPU(), // Default to number of CPU threads
	}

	return res
}
