package models

import "time"

// Signal is one source's observation of a candidate topic at a point in time.
// Signals are transient: a collector owns the signals it produced until the
// aggregator consumes them, and they are never persisted directly.
type Signal struct {
	SourceID    string
	RawLabel    string
	ObservedAt  time.Time
	RawVolume   int64
	RawVelocity float64
	Category    string
	Description string
	Keywords    []string
	URLs        []string
	RawMetadata map[string]any
}
