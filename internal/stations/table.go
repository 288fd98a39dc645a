package stations

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/seisview/gmv/internal/logger"
	"github.com/seisview/gmv/internal/models"
)

// LoadTable reads a flat coordinate table. The expected header is
// "network,station,latitude,longitude"; a 3-column "station,latitude,longitude"
// variant keyed by bare station name is also accepted. Malformed rows are
// logged and skipped.
func LoadTable(path string) (map[string]models.Position, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coordinate table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // row widths vary between the 3- and 4-column forms
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse coordinate table: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("coordinate table %s is empty", path)
	}

	positions := make(map[string]models.Position)
	for i, row := range rows {
		if i == 0 && isTableHeader(row) {
			continue
		}

		var key, latStr, lonStr string
		switch len(row) {
		case 4:
			key = strings.TrimSpace(row[0]) + "." + strings.TrimSpace(row[1])
			latStr, lonStr = row[2], row[3]
		case 3:
			key = strings.TrimSpace(row[0])
			latStr, lonStr = row[1], row[2]
		default:
			continue
		}

		lat, latErr := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if latErr != nil || lonErr != nil {
			logger.Warn("Skipping coordinate table row %d: unparseable coordinates", i+1)
			continue
		}

		pos := models.Position{Latitude: lat, Longitude: lon}
		if err := pos.Validate(); err != nil {
			logger.Warn("Skipping coordinate table row %d: %v", i+1, err)
			continue
		}
		positions[key] = pos
	}

	return positions, nil
}

// isTableHeader detects the column-name row so tables both with and without
// a header line load correctly.
func isTableHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	last := strings.ToLower(strings.TrimSpace(row[len(row)-1]))
	return last == "longitude" || last == "lon"
}
