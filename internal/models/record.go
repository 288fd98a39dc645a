package models

import (
	"errors"
	"time"
)

// Render record statuses.
const (
	StatusRendered = "rendered"
	StatusFailed   = "failed"
)

// RenderRecord captures the outcome of one batch render for one quake.
// Records are persisted so a restarted batch run can skip quakes that
// already produced a movie.
type RenderRecord struct {
	ID         string    `json:"id"`       // Unique record ID
	QuakeID    string    `json:"quake_id"` // USGS event code
	OutputPath string    `json:"output_path,omitempty"`
	Magnitude  float64   `json:"magnitude"`
	Status     string    `json:"status"`          // StatusRendered or StatusFailed
	Error      string    `json:"error,omitempty"` // Failure reason when Status == StatusFailed
	RenderedAt time.Time `json:"rendered_at"`
}

// Validate checks that all record fields are valid.
func (r *RenderRecord) Validate() error {
	if r.ID == "" {
		return errors.New("render record ID must not be empty")
	}
	if r.QuakeID == "" {
		return errors.New("render record quake ID must not be empty")
	}
	if r.Status != StatusRendered && r.Status != StatusFailed {
		return errors.New("render record status must be 'rendered' or 'failed'")
	}
	if r.Status == StatusRendered && r.OutputPath == "" {
		return errors.New("rendered record must carry an output path")
	}
	if r.RenderedAt.IsZero() {
		return errors.New("render record timestamp must be set")
	}
	return nil
}
