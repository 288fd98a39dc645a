package stations

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/seisview/gmv/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestMerge_FirstSourceWins(t *testing.T) {
	explicit := map[string]models.Position{
		"OK.X34A": {Latitude: 35.0, Longitude: -97.0},
	}
	header := map[string]models.Position{
		"OK.X34A": {Latitude: 99.0, Longitude: 99.0}, // must lose
		"OK.U32A": {Latitude: 36.0, Longitude: -98.0},
	}

	merged := Merge(explicit, header, nil)

	if got := merged["OK.X34A"].Latitude; got != 35.0 {
		t.Errorf("Expected explicit source to win, got latitude %g", got)
	}
	if got := merged["OK.U32A"].Latitude; got != 36.0 {
		t.Errorf("Expected header source to fill the gap, got latitude %g", got)
	}
}

func TestLoadTable_FourColumn(t *testing.T) {
	path := writeFile(t, "stations.csv",
		"network,station,latitude,longitude\nOK,X34A,35.1,-97.2\nOK,U32A,36.5,-98.1\n")

	positions, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}

	if len(positions) != 2 {
		t.Fatalf("Expected 2 positions, got %d", len(positions))
	}
	if got := positions["OK.X34A"]; got.Latitude != 35.1 || got.Longitude != -97.2 {
		t.Errorf("Unexpected position for OK.X34A: %+v", got)
	}
}

func TestLoadTable_ThreeColumnNoHeader(t *testing.T) {
	path := writeFile(t, "stations.csv", "X34A,35.1,-97.2\nU32A,36.5,-98.1\n")

	positions, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}

	if _, ok := positions["X34A"]; !ok {
		t.Errorf("Expected bare station key X34A, got %v", positions)
	}
}

func TestLoadTable_SkipsMalformedRows(t *testing.T) {
	path := writeFile(t, "stations.csv",
		"network,station,latitude,longitude\nOK,X34A,35.1,-97.2\nOK,BAD1,not-a-number,-97.0\nOK,BAD2,123.0,-97.0\n")

	positions, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}

	if len(positions) != 1 {
		t.Errorf("Expected only the valid row to load, got %v", positions)
	}
}

func TestLoadInventory(t *testing.T) {
	path := writeFile(t, "inventory.xml", `<?xml version="1.0" encoding="UTF-8"?>
<FDSNStationXML xmlns="http://www.fdsn.org/xml/station/1" schemaVersion="1.1">
  <Network code="OK">
    <Station code="X34A">
      <Latitude>35.1</Latitude>
      <Longitude>-97.2</Longitude>
    </Station>
  </Network>
</FDSNStationXML>`)

	positions, err := LoadInventory(path)
	if err != nil {
		t.Fatalf("LoadInventory failed: %v", err)
	}
	if got := positions["OK.X34A"]; got.Latitude != 35.1 || got.Longitude != -97.2 {
		t.Errorf("Unexpected position: %+v", got)
	}
}

func TestLoadInventory_Empty(t *testing.T) {
	path := writeFile(t, "inventory.xml",
		`<FDSNStationXML xmlns="http://www.fdsn.org/xml/station/1"></FDSNStationXML>`)

	if _, err := LoadInventory(path); err == nil {
		t.Error("Expected error for inventory without stations")
	}
}

func TestPickScale_MicroDegrees(t *testing.T) {
	// Raw values recorded in micro-degrees: 1e-6 maps them into range,
	// every larger candidate overshoots.
	coords := []models.HeaderXY{
		{X: -97_200_000, Y: 35_100_000},
		{X: -98_100_000, Y: 36_500_000},
		{X: -96_800_000, Y: 34_900_000},
	}

	scale, confident := PickScale(coords)
	if !confident {
		t.Fatal("Expected a confident pick")
	}
	if scale != 1e-6 {
		t.Errorf("Expected scale 1e-6, got %g", scale)
	}
}

func TestPickScale_TiesGoToLargestScale(t *testing.T) {
	// Small raw values fit every candidate, so the largest wins.
	coords := []models.HeaderXY{
		{X: 50, Y: 40},
		{X: 60, Y: 30},
	}

	scale, confident := PickScale(coords)
	if !confident {
		t.Fatal("Expected a confident pick")
	}
	if scale != 1e-3 {
		t.Errorf("Expected tie to resolve to 1e-3, got %g", scale)
	}
}

func TestPickScale_FallsBackWhenUnconfident(t *testing.T) {
	coords := []models.HeaderXY{
		{X: 1e15, Y: 1e15}, // out of range at every candidate
	}

	scale, confident := PickScale(coords)
	if confident {
		t.Error("Expected an unconfident result")
	}
	if scale != DefaultScale {
		t.Errorf("Expected fallback to %g, got %g", DefaultScale, scale)
	}
}

func TestPickScale_NoCoords(t *testing.T) {
	scale, confident := PickScale(nil)
	if confident || scale != DefaultScale {
		t.Errorf("Expected (%g, false), got (%g, %v)", DefaultScale, scale, confident)
	}
}

func TestInferPositions(t *testing.T) {
	raw := map[string]models.HeaderXY{
		"SGY.00001": {X: -97_200_000, Y: 35_100_000},
		"SGY.00002": {X: -98_100_000, Y: 36_500_000},
	}

	positions := InferPositions(raw)
	if len(positions) != 2 {
		t.Fatalf("Expected 2 positions, got %d", len(positions))
	}
	got := positions["SGY.00001"]
	if math.Abs(got.Latitude-35.1) > 1e-9 || math.Abs(got.Longitude-(-97.2)) > 1e-9 {
		t.Errorf("Unexpected inferred position: %+v", got)
	}
}

func TestInferPositions_Empty(t *testing.T) {
	if got := InferPositions(nil); got != nil {
		t.Errorf("Expected nil for empty geometry, got %v", got)
	}
}

func TestResolve_PrecedenceAcrossSources(t *testing.T) {
	tablePath := writeFile(t, "stations.csv", "network,station,latitude,longitude\nOK,X34A,35.1,-97.2\n")

	header := map[string]models.Position{
		"OK.X34A": {Latitude: 10.0, Longitude: 10.0}, // table must win
		"OK.U32A": {Latitude: 36.5, Longitude: -98.1},
	}
	raw := map[string]models.HeaderXY{
		"SGY.00001": {X: -97_000_000, Y: 35_000_000},
	}

	positions, err := Resolve("", tablePath, header, raw)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if got := positions["OK.X34A"].Latitude; got != 35.1 {
		t.Errorf("Expected table position to win, got latitude %g", got)
	}
	if _, ok := positions["OK.U32A"]; !ok {
		t.Error("Expected header position for OK.U32A")
	}
	if _, ok := positions["SGY.00001"]; !ok {
		t.Error("Expected inferred position for SGY.00001")
	}
}
