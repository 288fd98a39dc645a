// Package budget estimates the frame count and memory footprint of a render
// before any heavy work begins, so oversized runs are rejected while they
// are still cheap to abort. Estimates assume the streaming frame model: one
// single-precision value per station per frame, scaled by a fixed safety
// multiplier for image and encoder buffers.
package budget

import (
	"fmt"
	"time"

	"github.com/seisview/gmv/internal/frames"
)

// bytesPerSample is the cost of one station amplitude in one frame.
const bytesPerSample = 4

// SafetyMultiplier pads the raw estimate to account for plotting and
// encoding overhead.
const SafetyMultiplier = 1.5

// Estimate is the projected cost of a render. It is derived, never
// persisted.
type Estimate struct {
	Frames   int
	Stations int
}

// New computes the estimate for a window of the given duration sampled at
// stepSeconds per frame across the given station count. The station count
// is floored at 1 so an estimate is always meaningful.
func New(duration time.Duration, stepSeconds float64, stations int) Estimate {
	if stations < 1 {
		stations = 1
	}
	return Estimate{
		Frames:   frames.GridLength(duration, stepSeconds),
		Stations: stations,
	}
}

// MemoryMB returns the raw memory estimate in MiB, before the safety
// multiplier.
func (e Estimate) MemoryMB() float64 {
	return float64(e.Frames) * float64(e.Stations) * bytesPerSample / (1024.0 * 1024.0)
}

// ScaledMemoryMB returns the memory estimate with the safety multiplier
// applied; this is the figure compared against the configured ceiling.
func (e Estimate) ScaledMemoryMB() float64 {
	return e.MemoryMB() * SafetyMultiplier
}

// Check validates the estimate against the caller-supplied ceilings. It
// returns a descriptive error naming the exceeded limit and how to adjust,
// or nil when the run fits. An empty window (zero frames) is also rejected
// here, before any trimming work starts.
func (e Estimate) Check(maxFrames, maxMemMB int) error {
	if e.Frames <= 0 {
		return fmt.Errorf("no frames to generate for the requested time window (start >= end)")
	}
	if e.Frames > maxFrames {
		return fmt.Errorf(
			"requested %d frames which exceeds the max-frames limit (%d): reduce the time window, increase the time step, or raise --max-frames",
			e.Frames, maxFrames)
	}
	if scaled := e.ScaledMemoryMB(); scaled > float64(maxMemMB) {
		return fmt.Errorf(
			"estimated memory for frames is %.0f MiB which exceeds the max-mem limit (%d MiB): reduce the time window, increase the time step, or raise --max-mem-mb",
			scaled, maxMemMB)
	}
	return nil
}

// String renders the estimate for dry-run reporting.
func (e Estimate) String() string {
	return fmt.Sprintf("frames: %d, stations: %d, estimated memory: %.0f MiB",
		e.Frames, e.Stations, e.ScaledMemoryMB())
}
