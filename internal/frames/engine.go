package frames

import (
	"math"
	"time"

	"github.com/seisview/gmv/internal/logger"
	"github.com/seisview/gmv/internal/models"
)

// PreparedTrace is a station trace after preparation: trimmed to the
// requested window and reduced to single precision to bound peak memory.
// Prepared traces are read-only during frame generation.
type PreparedTrace struct {
	Key        string
	Start      time.Time
	SampleRate float64
	Samples    []float32
}

// SampleAt returns the amplitude at the sample index nearest to t. Times
// outside the trace's coverage return 0.0; out-of-window sampling is an
// expected, common case for stations whose recording does not span the
// full movie, not an error. No interpolation is done between samples since
// the frame step is much coarser than typical sampling rates.
func SampleAt(tr *PreparedTrace, t time.Time) float64 {
	idx := int(math.Round(t.Sub(tr.Start).Seconds() * tr.SampleRate))
	if idx < 0 || idx >= len(tr.Samples) {
		return 0.0
	}
	return float64(tr.Samples[idx])
}

// Prepared holds the per-station state the engine needs to synthesize
// frames: trimmed traces, window-global peak amplitudes, and the surviving
// station keys in first-seen order. That order fixes the layout of every
// frame vector for the whole run.
type Prepared struct {
	Keys   []string
	Traces map[string]*PreparedTrace
	Peaks  map[string]float64
}

// Prepare trims every positioned trace to [start, end], reduces it to
// single precision, and computes its window-global peak amplitude with a
// floor of 1.0 so all-quiet stations never divide by zero.
//
// Traces without a resolved position are skipped. A trace that yields zero
// samples after trimming is dropped entirely rather than rendered empty;
// a trace shorter than the window survives and simply samples to 0.0 for
// frames it does not cover. When the same station key appears more than
// once the later trace replaces the earlier one's data but the key keeps
// its first-seen position in the ordering.
//
// An empty Keys slice in the result means no station survived; the caller
// must treat that as fatal for the run.
func Prepare(traces []*models.Trace, positions map[string]models.Position, start, end time.Time) *Prepared {
	p := &Prepared{
		Traces: make(map[string]*PreparedTrace),
		Peaks:  make(map[string]float64),
	}

	for _, tr := range traces {
		key := tr.Key()
		if _, ok := positions[key]; !ok {
			logger.Debug("Dropping trace %s: no resolved position", key)
			continue
		}

		trimmed := trim(tr, start, end)
		if trimmed == nil {
			logger.Debug("Dropping trace %s: no samples inside requested window", key)
			continue
		}

		if _, exists := p.Traces[key]; !exists {
			p.Keys = append(p.Keys, key)
		}
		p.Traces[key] = trimmed
		p.Peaks[key] = peakAmplitude(trimmed.Samples)
	}

	return p
}

// trim cuts a trace to the window using nearest-sample alignment, without
// padding. Returns nil when no samples fall inside the window.
func trim(tr *models.Trace, start, end time.Time) *PreparedTrace {
	first := int(math.Round(start.Sub(tr.Start).Seconds() * tr.SampleRate))
	last := int(math.Round(end.Sub(tr.Start).Seconds() * tr.SampleRate))

	if first < 0 {
		first = 0
	}
	if last > len(tr.Samples)-1 {
		last = len(tr.Samples) - 1
	}
	if first >= len(tr.Samples) || last < first {
		return nil
	}

	samples := make([]float32, last-first+1)
	for i := range samples {
		samples[i] = float32(tr.Samples[first+i])
	}

	offset := time.Duration(float64(first) / tr.SampleRate * float64(time.Second))
	return &PreparedTrace{
		Key:        tr.Key(),
		Start:      tr.Start.Add(offset),
		SampleRate: tr.SampleRate,
		Samples:    samples,
	}
}

// peakAmplitude returns the maximum absolute sample value, floored at 1.0.
func peakAmplitude(samples []float32) float64 {
	peak := 1.0
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}

// FrameVector fills dst with each surviving station's normalized amplitude
// at time t, in the stable first-seen key order. Values sit roughly in
// [-1, 1]; they are unbounded only when a segment outside the peak
// computation window exceeds the window-global peak, which is acceptable
// since the peak is deliberately window-global rather than frame-local.
// dst is grown as needed and returned, allowing the caller to reuse one
// buffer across all frames.
func (p *Prepared) FrameVector(t time.Time, dst []float64) []float64 {
	if cap(dst) < len(p.Keys) {
		dst = make([]float64, len(p.Keys))
	}
	dst = dst[:len(p.Keys)]
	for i, key := range p.Keys {
		dst[i] = SampleAt(p.Traces[key], t) / p.Peaks[key]
	}
	return dst
}
