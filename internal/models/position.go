package models

import (
	"errors"
)

// Position is a station's geographic location, keyed externally by the
// same station key as its Trace.
type Position struct {
	Latitude  float64 `json:"latitude"`  // Degrees, -90..90
	Longitude float64 `json:"longitude"` // Degrees, -180..180
}

// Validate checks that the coordinates are within valid geographic ranges.
func (p Position) Validate() error {
	if p.Latitude < -90.0 || p.Latitude > 90.0 {
		return errors.New("latitude must be between -90 and 90")
	}
	if p.Longitude < -180.0 || p.Longitude > 180.0 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

// InRange reports whether the coordinates fall strictly inside the valid
// latitude/longitude ranges. Used by geometry-scale inference, which scores
// candidate scale factors by the fraction of in-range pairs they produce.
func (p Position) InRange() bool {
	return p.Latitude > -90.0 && p.Latitude < 90.0 &&
		p.Longitude > -180.0 && p.Longitude < 180.0
}

// HeaderXY is a raw coordinate pair taken from a SEG-Y trace header.
// The values are unit-less integers whose decimal scale is not recorded in
// the format; the station position resolver recovers the scale heuristically.
// X maps to longitude and Y to latitude once scaled.
type HeaderXY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
