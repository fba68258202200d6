package engine

import (
	"github.com/rune-engine/rune/internal/config"
	"github.com/rune-engine/rune/internal/store"
)

// mapQuantizationMode bridges config.QuantizationMode and
// store.QuantizationMode: independently declared string types with
// identical constant names in packages that must not import one another
// (store has no business knowing about config, and config has no business
// knowing about Qdrant). Values are string-identical today, but going
// through a mapping instead of a raw conversion means a future divergence
// fails loudly here instead of silently at the EnsureCollection call site.
func mapQuantizationMode(m config.QuantizationMode) store.QuantizationMode {
	switch m {
	case config.QuantizationNone:
		return store.QuantizationNone
	case config.QuantizationScalar:
		return store.QuantizationScalar
	case config.QuantizationBinary:
		return store.QuantizationBinary
	case config.QuantizationAsymmetric:
		return store.QuantizationAsymmetric
	default:
		return store.QuantizationScalar
	}
}
