package models

import (
	"errors"
	"fmt"
	"time"
)

// Quake represents one earthquake from the USGS event catalog.
// Batch mode renders one ground-motion movie per Quake.
type Quake struct {
	ID        string    `json:"id"`        // USGS event code
	Time      time.Time `json:"time"`      // Origin time (UTC)
	Latitude  float64   `json:"latitude"`  // Epicenter latitude
	Longitude float64   `json:"longitude"` // Epicenter longitude
	DepthKm   float64   `json:"depth_km"`  // Hypocenter depth in km
	Magnitude float64   `json:"magnitude"`
	Place     string    `json:"place"` // Human-readable locality
	URL       string    `json:"url"`   // USGS event page
}

// Validate checks that all quake fields are valid.
func (q *Quake) Validate() error {
	if q.ID == "" {
		return errors.New("quake ID must not be empty")
	}
	if q.Time.IsZero() {
		return fmt.Errorf("quake %s origin time must be set", q.ID)
	}
	if q.Latitude < -90.0 || q.Latitude > 90.0 {
		return fmt.Errorf("quake %s latitude must be between -90 and 90", q.ID)
	}
	if q.Longitude < -180.0 || q.Longitude > 180.0 {
		return fmt.Errorf("quake %s longitude must be between -180 and 180", q.ID)
	}
	if q.Magnitude < -2.0 || q.Magnitude > 10.0 {
		return fmt.Errorf("quake %s magnitude %g is outside plausible range", q.ID, q.Magnitude)
	}
	return nil
}

// OutputName builds the batch output file stem for this quake:
// "YYYYMMDD_<label>_Magnitude<m>" with the magnitude's decimal point
// replaced by an underscore, e.g. "20160903_OKlocal_Magnitude5_8".
func (q *Quake) OutputName(label string) string {
	mag := fmt.Sprintf("%.1f", q.Magnitude)
	magStr := ""
	for _, r := range mag {
		if r == '.' {
			magStr += "_"
		} else {
			magStr += string(r)
		}
	}
	return fmt.Sprintf("%s_%s_Magnitude%s", q.Time.UTC().Format("20060102"), label, magStr)
}
