// Package scheduler runs the periodic maintenance loops of the core: the
// health sweep that re-probes unreachable services and the history prune
// that bounds workflow execution retention.
package scheduler
