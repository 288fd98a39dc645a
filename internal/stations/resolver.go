// Package stations resolves station geographic positions from the several
// sources a run may provide: a StationXML inventory, a flat coordinate
// table, coordinates embedded in SAC trace headers, and geometry inferred
// from unit-less SEG-Y header fields.
//
// Sources are merged with an explicit precedence order and a first-source-
// wins rule: once a station key has a position, later sources never
// overwrite it.
package stations

import (
	"github.com/seisview/gmv/internal/models"
)

// Merge combines position sources in the given order. The first source that
// provides a station key wins; later sources never overwrite it. Nil source
// maps are skipped. The result is never nil.
func Merge(sources ...map[string]models.Position) map[string]models.Position {
	merged := make(map[string]models.Position)
	for _, source := range sources {
		for key, pos := range source {
			if _, exists := merged[key]; !exists {
				merged[key] = pos
			}
		}
	}
	return merged
}

// Resolve produces the station position mapping for a run. The inventory
// and coordinate-table paths are mutually exclusive alternate inputs,
// preferred in that order; header coordinates and inferred geometry fill in
// any keys the explicit sources do not cover.
func Resolve(inventoryPath, tablePath string, headerPositions map[string]models.Position, rawGeometry map[string]models.HeaderXY) (map[string]models.Position, error) {
	var explicit map[string]models.Position
	var err error

	switch {
	case inventoryPath != "":
		explicit, err = LoadInventory(inventoryPath)
	case tablePath != "":
		explicit, err = LoadTable(tablePath)
	}
	if err != nil {
		return nil, err
	}

	inferred := InferPositions(rawGeometry)

	return Merge(explicit, headerPositions, inferred), nil
}
