// Package engine is the per-process orchestrator that wires together
// scanning, watching, chunking, embedding, and the three durable stores
// (metadata, text index, vector store) behind a small state machine:
// Uninitialized -> Initialized -> Running -> Stopped.
//
// Engine is the only handle callers need: internal/toolserver and cmd/rune
// both hold one Engine per workspace rather than reaching into the
// component packages directly, so there is exactly one place that knows how
// indexing, watching, caching, and search fit together.
package engine
