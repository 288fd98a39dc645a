package stations

import (
	"github.com/seisview/gmv/internal/logger"
	"github.com/seisview/gmv/internal/models"
)

// scaleCandidates are the decimal scale factors tried against raw SEG-Y
// group coordinates, scanned largest first. SEG-Y records these fields as
// bare integers with no unit, so degrees versus micro-degrees (or anything
// between) has to be recovered by trial.
var scaleCandidates = []float64{1e-3, 1e-4, 1e-5, 1e-6, 1e-7, 1e-8, 1e-9}

// scaleConfidence is the in-range fraction a candidate must reach to be
// trusted.
const scaleConfidence = 0.95

// DefaultScale is assumed when no candidate reaches the confidence
// threshold. Micro-degree encoding is the most common in practice.
const DefaultScale = 1e-6

// PickScale scores each candidate scale by the fraction of coordinate pairs
// it maps into valid latitude/longitude ranges and returns the best one.
// The scan runs largest scale first and a later candidate must strictly beat
// the incumbent, so ties go to the larger scale. The second return value is
// false when no candidate reached the confidence threshold and the caller
// should fall back to DefaultScale.
//
// This is a best-effort heuristic, not an exact inverse: nothing in the
// format records the true unit, so a coordinate set that happens to fit
// several scales resolves to the largest plausible one.
func PickScale(coords []models.HeaderXY) (float64, bool) {
	if len(coords) == 0 {
		return DefaultScale, false
	}

	best := 0.0
	bestScore := -1.0
	for _, scale := range scaleCandidates {
		inRange := 0
		for _, xy := range coords {
			p := models.Position{Latitude: xy.Y * scale, Longitude: xy.X * scale}
			if p.InRange() {
				inRange++
			}
		}
		score := float64(inRange) / float64(len(coords))
		if score > bestScore {
			bestScore = score
			best = scale
		}
	}

	if bestScore >= scaleConfidence {
		return best, true
	}
	return DefaultScale, false
}

// InferPositions converts raw SEG-Y header coordinates into positions using
// a single scale factor picked across all pairs. Every key receives a
// position, in range or not, mirroring the best-effort nature of the
// source data.
func InferPositions(raw map[string]models.HeaderXY) map[string]models.Position {
	if len(raw) == 0 {
		return nil
	}

	coords := make([]models.HeaderXY, 0, len(raw))
	for _, xy := range raw {
		coords = append(coords, xy)
	}

	scale, confident := PickScale(coords)
	if !confident {
		logger.Info("Geometry scale inference inconclusive; assuming %g degrees per unit", DefaultScale)
	} else {
		logger.Debug("Geometry scale inference selected %g degrees per unit", scale)
	}

	positions := make(map[string]models.Position, len(raw))
	for key, xy := range raw {
		positions[key] = models.Position{
			Latitude:  xy.Y * scale,
			Longitude: xy.X * scale,
		}
	}
	return positions
}
