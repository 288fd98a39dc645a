package render

import (
	"image/color"
	"testing"
	"time"

	"github.com/seisview/gmv/internal/models"
)

func TestCRFMapping(t *testing.T) {
	tests := []struct {
		quality int
		want    int
	}{
		{1, 28},
		{3, 23},
		{5, 18},
		{0, 28},  // clamped up
		{99, 18}, // clamped down
	}

	for _, tt := range tests {
		e := NewEncoder("ffmpeg", 10, tt.quality)
		if got := e.crf(); got != tt.want {
			t.Errorf("quality %d: crf = %d, want %d", tt.quality, got, tt.want)
		}
	}
}

func TestSeismicColor(t *testing.T) {
	if got := seismicColor(0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("Expected white at rest, got %+v", got)
	}
	if got := seismicColor(1); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("Expected pure red at +1, got %+v", got)
	}
	if got := seismicColor(-1); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("Expected pure blue at -1, got %+v", got)
	}
	// Out-of-range values clamp rather than wrap.
	if got := seismicColor(5); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("Expected clamp to red, got %+v", got)
	}
}

func TestPlotFrame(t *testing.T) {
	keys := []string{"OK.X34A", "OK.U32A"}
	positions := map[string]models.Position{
		"OK.X34A": {Latitude: 35.1, Longitude: -97.2},
		"OK.U32A": {Latitude: 36.5, Longitude: -98.1},
	}
	refAmps := []float64{0, 0.5, -0.5, 1}

	p := NewPlot(320, 240, keys, positions, refAmps)
	img := p.Frame(1, time.Date(2016, 9, 3, 12, 2, 34, 0, time.UTC), []float64{0.8, -0.3})

	b := img.Bounds()
	if b.Dx() != 320 || b.Dy() != 240 {
		t.Fatalf("Unexpected frame size %dx%d", b.Dx(), b.Dy())
	}

	// Both stations must land inside the map area.
	for i := range keys {
		x, y := p.px[i], p.py[i]
		if x < 0 || x >= 320 || y < 0 || y >= p.mapH {
			t.Errorf("Station %s projected outside the map area: (%d, %d)", keys[i], x, y)
		}
	}
	if p.px[0] == p.px[1] && p.py[0] == p.py[1] {
		t.Error("Distinct stations projected onto the same pixel")
	}
}

func TestPlotFrame_SingleStation(t *testing.T) {
	// A lone station has a degenerate bounding box; the fallback span must
	// still put it somewhere inside the frame.
	keys := []string{"X34A"}
	positions := map[string]models.Position{"X34A": {Latitude: 35.1, Longitude: -97.2}}

	p := NewPlot(100, 100, keys, positions, []float64{0})
	img := p.Frame(0, time.Now(), []float64{0})

	if img.Bounds().Dx() != 100 {
		t.Fatalf("Unexpected frame width %d", img.Bounds().Dx())
	}
	if p.px[0] < 0 || p.px[0] >= 100 || p.py[0] < 0 || p.py[0] >= p.mapH {
		t.Errorf("Station projected outside the frame: (%d, %d)", p.px[0], p.py[0])
	}
}
