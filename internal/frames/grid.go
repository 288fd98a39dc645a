// Package frames implements the frame-synthesis engine: it aligns
// heterogeneous station traces onto a uniform global time grid, normalizes
// amplitudes per station, and produces a deterministic per-frame amplitude
// vector for the renderer.
//
// The engine never materializes all frames at once. Prepare trims and
// downcasts each trace exactly once; afterwards each frame's amplitude
// vector is computed on demand as the renderer advances.
package frames

import (
	"fmt"
	"math"
	"time"
)

// Grid is an evenly spaced sequence of absolute timestamps, one per output
// frame. Entries are start, start+step, ... with exactly
// ceil((end-start)/step) entries, so the grid covers [start, end).
type Grid struct {
	Start time.Time
	Step  time.Duration
	N     int
}

// GridLength computes the frame count for a window without building a grid,
// so the budget guard can reject oversized runs before any trimming work.
// A non-positive window yields zero frames.
func GridLength(duration time.Duration, stepSeconds float64) int {
	if duration <= 0 || stepSeconds <= 0 {
		return 0
	}
	return int(math.Ceil(duration.Seconds() / stepSeconds))
}

// NewGrid builds the time grid for [start, end) at the given step in
// seconds. An empty window or non-positive step is an error.
func NewGrid(start, end time.Time, stepSeconds float64) (*Grid, error) {
	if stepSeconds <= 0 {
		return nil, fmt.Errorf("time step must be positive, got %g", stepSeconds)
	}
	n := GridLength(end.Sub(start), stepSeconds)
	if n <= 0 {
		return nil, fmt.Errorf("empty time window: start %s is not before end %s", start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	}
	return &Grid{
		Start: start,
		Step:  time.Duration(stepSeconds * float64(time.Second)),
		N:     n,
	}, nil
}

// At returns the absolute timestamp of frame i.
func (g *Grid) At(i int) time.Time {
	return g.Start.Add(time.Duration(i) * g.Step)
}

// End returns the timestamp one step past the last frame.
func (g *Grid) End() time.Time {
	return g.At(g.N)
}

// Times materializes every grid entry. Frame generation itself uses At to
// avoid the allocation; Times exists for the reference-trace strip and
// tests.
func (g *Grid) Times() []time.Time {
	times := make([]time.Time, g.N)
	for i := range times {
		times[i] = g.At(i)
	}
	return times
}
