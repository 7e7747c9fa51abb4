package config

import (
	"strings"
)

// Option is a function that modifies a Config.
// Options validate inputs and reject invalid values with warnings.
type Option func(*Config)

// OptStoreBatchSize sets the number of records per bulk-insert chunk
// for the store build.
func OptStoreBatchSize(i int) Option {
	return func(c *Config) {
		if isValidInt("Store Batch Size", i) {
			c.Store.BatchSize = i
		}
	}
}

// OptStoreSourcesDir overrides the vocabulary table directory from
// sources.yaml. Runtime-only field - not in ToOptions().
func OptStoreSourcesDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Sources Directory", s) {
			c.Store.SourcesDir = s
		}
	}
}

// OptEmbedEndpoint sets the base URL of the embedding service.
func OptEmbedEndpoint(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Embed Endpoint", s) {
			c.Embed.Endpoint = strings.TrimSuffix(s, "/")
		}
	}
}

// OptEmbedModel sets the embedding model name.
func OptEmbedModel(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Embed Model", s) {
			c.Embed.Model = s
		}
	}
}

// OptEmbedDimensions sets the expected embedding vector width.
func OptEmbedDimensions(i int) Option {
	return func(c *Config) {
		if isValidInt("Embed Dimensions", i) {
			c.Embed.Dimensions = i
		}
	}
}

// OptEmbedPrefix sets the text prefix applied before embedding.
// An empty prefix is valid (not every model family needs one).
func OptEmbedPrefix(s string) Option {
	return func(c *Config) {
		c.Embed.Prefix = s
	}
}

// OptEmbedBatchSize sets the number of names embedded per request.
func OptEmbedBatchSize(i int) Option {
	return func(c *Config) {
		if isValidInt("Embed Batch Size", i) {
			c.Embed.BatchSize = i
		}
	}
}

// OptEmbedWorkers bounds the number of concurrent embedding requests.
func OptEmbedWorkers(i int) Option {
	return func(c *Config) {
		if isValidInt("Embed Workers", i) {
			c.Embed.Workers = i
		}
	}
}

// OptEmbedMaxAttempts bounds retries of failed embedding requests.
func OptEmbedMaxAttempts(i int) Option {
	return func(c *Config) {
		if isValidInt("Embed Max Attempts", i) {
			c.Embed.MaxAttempts = i
		}
	}
}

// OptEmbedRetryDelayMs sets the initial retry backoff in milliseconds.
func OptEmbedRetryDelayMs(i int) Option {
	return func(c *Config) {
		if isValidInt("Embed Retry Delay", i) {
			c.Embed.RetryDelayMs = i
		}
	}
}

// OptEmbedDomains restricts which concept domains get embedded.
// Empty slice keeps the current value (all domains by default).
func OptEmbedDomains(ss []string) Option {
	return func(c *Config) {
		if len(ss) > 0 {
			c.Embed.Domains = ss
		}
	}
}

// OptResolveTopK sets the number of nearest neighbors the resolver
// fetches from the index.
func OptResolveTopK(i int) Option {
	return func(c *Config) {
		if isValidInt("Resolve TopK", i) {
			c.Resolve.TopK = i
		}
	}
}

// OptResolveMinSimilarity sets the confidence floor for candidates.
func OptResolveMinSimilarity(f float64) Option {
	return func(c *Config) {
		if isValidFraction("Resolve Min Similarity", f) {
			c.Resolve.MinSimilarity = f
		}
	}
}

// OptResolveExactBoost sets the exact name match confidence boost.
func OptResolveExactBoost(f float64) Option {
	return func(c *Config) {
		if isValidFloat("Resolve Exact Boost", f) {
			c.Resolve.ExactBoost = f
		}
	}
}

// OptResolveOverlapBoost sets the partial name match confidence boost.
func OptResolveOverlapBoost(f float64) Option {
	return func(c *Config) {
		if isValidFloat("Resolve Overlap Boost", f) {
			c.Resolve.OverlapBoost = f
		}
	}
}

// OptResolveHintPenalty sets the down-weight factor for candidates
// contradicting a domain or vocabulary hint.
func OptResolveHintPenalty(f float64) Option {
	return func(c *Config) {
		if isValidFraction("Resolve Hint Penalty", f) {
			c.Resolve.HintPenalty = f
		}
	}
}

// OptScoreDecay selects the partial-credit decay formula.
// Valid values: "inverse", "exponential".
func OptScoreDecay(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Score.Decay", s) {
			c.Score.Decay = s
		}
	}
}

// OptScoreAcceptThreshold sets the minimum concept score for a true
// positive.
func OptScoreAcceptThreshold(f float64) Option {
	return func(c *Config) {
		if isValidFraction("Score Accept Threshold", f) {
			c.Score.AcceptThreshold = f
		}
	}
}

// OptEvalMinOverlap sets the minimum span overlap fraction for a span
// match. Zero means any overlap counts.
func OptEvalMinOverlap(f float64) Option {
	return func(c *Config) {
		if f >= 0 && f <= 1 {
			c.Eval.MinOverlap = f
			return
		}
		warnInvalidFraction("Eval Min Overlap", f)
	}
}

// OptLogLevel sets the logging level.
// Valid values: "debug", "info", "warn", "error".
func OptLogLevel(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Level", s) {
			c.Log.Level = s
		}
	}
}

// OptLogFormat sets the log output format.
// Valid values: "json", "text", "tint".
func OptLogFormat(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Format", s) {
			c.Log.Format = s
		}
	}
}

// OptLogDestination sets where logs are written.
// Valid values: "file", "stderr", "stdout".
func OptLogDestination(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Destination", s) {
			c.Log.Destination = s
		}
	}
}

// OptJobsNumber sets the number of concurrent workers for parallel
// operations. Default is runtime.NumCPU().
func OptJobsNumber(i int) Option {
	return func(c *Config) {
		if isValidInt("Jobs Number", i) {
			c.JobsNumber = i
		}
	}
}

// OptHomeDir sets the home directory for config, cache, and log
// locations. Set once at startup from os.UserHomeDir().
// Runtime-only field - not in ToOptions().
func OptHomeDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Home Directory", s) {
			c.HomeDir = s
		}
	}
}
