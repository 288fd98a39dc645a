// Package models defines the core domain entities for the gmv application.
// These models represent waveform traces, station positions, catalog
// earthquakes, and render-history records. All models include built-in
// validation to ensure data integrity throughout the application.
//
// Terminology (matching seismological convention):
//   - Trace: one station's continuous waveform recording (samples + timing).
//   - Station key: "NET.STA" network+station identifier, unique within a run.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Trace represents one continuous waveform recording from a single station.
// Samples are ordered amplitudes starting at Start and spaced 1/SampleRate
// seconds apart. A Trace is created by the waveform ingestor and is owned
// exclusively by the run that ingested it.
type Trace struct {
	Network    string    `json:"network"`     // Network code, may be empty
	Station    string    `json:"station"`     // Station code
	Location   string    `json:"location"`    // Location code, may be empty
	Channel    string    `json:"channel"`     // Channel code, may be empty
	Start      time.Time `json:"start"`       // Absolute time of sample 0
	SampleRate float64   `json:"sample_rate"` // Samples per second, > 0
	Samples    []float64 `json:"-"`           // Ordered amplitudes
}

// Key returns the station key "NET.STA". Some data carries no network code;
// those traces are keyed by bare station name so they can still match a
// 3-column coordinate table.
func (t *Trace) Key() string {
	if t.Network == "" {
		return t.Station
	}
	return t.Network + "." + t.Station
}

// End returns the absolute time of the last sample. For an empty trace
// it returns Start.
func (t *Trace) End() time.Time {
	if len(t.Samples) < 2 {
		return t.Start
	}
	span := float64(len(t.Samples)-1) / t.SampleRate
	return t.Start.Add(time.Duration(span * float64(time.Second)))
}

// Duration returns the recorded span covered by the samples.
func (t *Trace) Duration() time.Duration {
	return t.End().Sub(t.Start)
}

// Validate checks that all trace fields are valid.
func (t *Trace) Validate() error {
	if t.Station == "" {
		return errors.New("trace station code must not be empty")
	}
	if t.SampleRate <= 0 {
		return fmt.Errorf("trace %s sample rate must be positive, got %g", t.Key(), t.SampleRate)
	}
	if t.Start.IsZero() {
		return fmt.Errorf("trace %s start time must be set", t.Key())
	}
	if len(t.Samples) == 0 {
		return fmt.Errorf("trace %s must contain at least one sample", t.Key())
	}
	return nil
}
