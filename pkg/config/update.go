package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gnames/gn"
)

// Update applies a slice of Option functions to the Config.
// This is the only way to modify a Config after creation.
// Invalid options are rejected with warnings - config remains in valid state.
func (c *Config) Update(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// ToOptions converts the Config to a slice of Option functions.
// Only includes persistent fields appropriate for config.yaml.
// Excludes runtime-only fields (HomeDir, Store.SourcesDir).
// Used for round-tripping config.yaml ↔ Config conversions.
func (c *Config) ToOptions() []Option {
	var res []Option
	var s string
	var i int
	var f float64

	i = c.Store.BatchSize
	if i > 0 {
		res = append(res, OptStoreBatchSize(i))
	}

	s = c.Embed.Endpoint
	if s != "" {
		res = append(res, OptEmbedEndpoint(s))
	}
	s = c.Embed.Model
	if s != "" {
		res = append(res, OptEmbedModel(s))
	}
	i = c.Embed.Dimensions
	if i > 0 {
		res = append(res, OptEmbedDimensions(i))
	}
	res = append(res, OptEmbedPrefix(c.Embed.Prefix))
	i = c.Embed.BatchSize
	if i > 0 {
		res = append(res, OptEmbedBatchSize(i))
	}
	i = c.Embed.Workers
	if i > 0 {
		res = append(res, OptEmbedWorkers(i))
	}
	i = c.Embed.MaxAttempts
	if i > 0 {
		res = append(res, OptEmbedMaxAttempts(i))
	}
	i = c.Embed.RetryDelayMs
	if i > 0 {
		res = append(res, OptEmbedRetryDelayMs(i))
	}
	if len(c.Embed.Domains) > 0 {
		res = append(res, OptEmbedDomains(c.Embed.Domains))
	}

	i = c.Resolve.TopK
	if i > 0 {
		res = append(res, OptResolveTopK(i))
	}
	f = c.Resolve.MinSimilarity
	if f > 0 {
		res = append(res, OptResolveMinSimilarity(f))
	}
	f = c.Resolve.ExactBoost
	if f > 0 {
		res = append(res, OptResolveExactBoost(f))
	}
	f = c.Resolve.OverlapBoost
	if f > 0 {
		res = append(res, OptResolveOverlapBoost(f))
	}
	f = c.Resolve.HintPenalty
	if f > 0 {
		res = append(res, OptResolveHintPenalty(f))
	}

	s = c.Score.Decay
	if s != "" {
		res = append(res, OptScoreDecay(s))
	}
	f = c.Score.AcceptThreshold
	if f > 0 {
		res = append(res, OptScoreAcceptThreshold(f))
	}

	f = c.Eval.MinOverlap
	if f > 0 {
		res = append(res, OptEvalMinOverlap(f))
	}

	s = c.Log.Format
	if s != "" {
		res = append(res, OptLogFormat(s))
	}
	s = c.Log.Level
	if s != "" {
		res = append(res, OptLogLevel(s))
	}
	s = c.Log.Destination
	if s != "" {
		res = append(res, OptLogDestination(s))
	}

	i = c.JobsNumber
	if i > 0 {
		res = append(res, OptJobsNumber(i))
	}
	return res
}

func isValidString(name, s string) bool {
	res := s != ""
	if !res {
		gn.Warn("<em>%s</em> cannot be empty, ignoring", name)
	}
	return res
}

func isValidInt(name string, i int) bool {
	res := i > 0
	if !res {
		gn.Warn("<em>%s</em> has to be positive number, ignoring %d", name, i)
	}
	return res
}

func isValidFloat(name string, f float64) bool {
	res := f > 0
	if !res {
		gn.Warn("<em>%s</em> has to be a positive number, ignoring %v", name, f)
	}
	return res
}

func isValidFraction(name string, f float64) bool {
	res := f > 0 && f <= 1
	if !res {
		warnInvalidFraction(name, f)
	}
	return res
}

func warnInvalidFraction(name string, f float64) {
	gn.Warn("<em>%s</em> has to be within [0,1], ignoring %v", name, f)
}

func isValidEnum(name, val string) bool {
	s := struct{}{}
	data := map[string]map[string]struct{}{
		"Score.Decay":     {"inverse": s, "exponential": s},
		"Log.Level":       {"debug": s, "info": s, "warn": s, "error": s},
		"Log.Format":      {"json": s, "text": s, "tint": s},
		"Log.Destination": {"file": s, "stderr": s, "stdout": s},
	}
	vals := slices.Sorted(maps.Keys(data[name]))
	var lines []string
	for _, v := range vals {
		line := fmt.Sprintf("  * %s", v)
		lines = append(lines, line)
	}
	if _, ok := data[name][val]; ok {
		return true
	} else {
		gn.Warn(
			"<em>%s</em> does not support '%s' as a value. "+
				"Valid values are: \n%s\nIgnoring...",
			name, val, strings.Join(lines, "\n"),
		)
		return false
	}
}
