package engine

import (
	"github.com/rune-engine/rune/internal/config"
	"github.com/rune-engine/rune/internal/rerrors"
)

// ConfigUpdate is a partial update to the live configuration: nil fields are
// left unchanged. Structural fields that only take effect on the next
// Initialize — workspace_roots, cache_dir, vector_store_url, shared_cache —
// are deliberately absent; changing where the engine reads from or what it
// connects to requires a fresh Engine, not a live patch.
type ConfigUpdate struct {
	MaxFileSize     *int64
	IndexingThreads *int
	EnableSemantic  *bool
	Languages       []string
	DebounceMs      *int
	FuzzyEnabled    *bool
	FuzzyThreshold  *float64
	FuzzyMaxDist    *int
	Quantization    *config.QuantizationMode
}

// Configure applies update to a copy of the live config, validates it, and
// only commits the copy back if valid — so a bad partial update never
// corrupts the running configuration. Returns the effective config either
// way, matching the `configure` tool's "success, effective config" shape.
func (e *Engine) Configure(update ConfigUpdate) (*config.Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := *e.cfg
	if update.MaxFileSize != nil {
		next.MaxFileSize = *update.MaxFileSize
	}
	if update.IndexingThreads != nil {
		next.IndexingThreads = *update.IndexingThreads
	}
	if update.EnableSemantic != nil {
		next.EnableSemantic = *update.EnableSemantic
	}
	if update.Languages != nil {
		next.Languages = update.Languages
	}
	if update.DebounceMs != nil {
		next.Watch.DebounceMs = *update.DebounceMs
	}
	if update.FuzzyEnabled != nil {
		next.Fuzzy.Enabled = *update.FuzzyEnabled
	}
	if update.FuzzyThreshold != nil {
		next.Fuzzy.Threshold = *update.FuzzyThreshold
	}
	if update.FuzzyMaxDist != nil {
		next.Fuzzy.MaxDistance = *update.FuzzyMaxDist
	}
	if update.Quantization != nil {
		next.Vector.QuantizationMode = *update.Quantization
	}

	if err := next.Validate(); err != nil {
		return e.cfg, rerrors.ConfigError("configure rejected", err)
	}

	e.cfg = &next
	if e.searcher != nil {
		e.searcher.FuzzyEnabled = next.Fuzzy.Enabled
		e.searcher.FuzzyMaxDistance = next.Fuzzy.MaxDistance
		e.searcher.FuzzyThreshold = next.Fuzzy.Threshold
	}

	return e.cfg, nil
}
