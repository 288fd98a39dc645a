// Package render turns per-frame station amplitude vectors into images and
// encodes them into a movie with ffmpeg. It is a collaborator of the
// frame-synthesis engine: frames are plotted and written one at a time as
// the engine advances, so only a single frame image is ever in memory.
//
// The map view is a simple linear lat/lon plot with a 10% margin around the
// station bounding box; real cartographic projection is out of scope.
package render

import (
	"image"
	"image/color"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/seisview/gmv/internal/models"
)

// Layout fractions: station map on top, reference-trace strip below.
const (
	mapHeightFrac   = 0.78
	stationRadius   = 6
	stripPadding    = 8
	fallbackSpanDeg = 10.0 // bounding box span when all stations coincide
)

// Plot draws the per-frame images for one render. Station pixel positions
// are projected once at construction; per frame only the colors and the
// time cursor change.
type Plot struct {
	width  int
	height int
	mapH   int

	keys   []string
	px, py []int

	refAmps []float64 // reference station's normalized amplitude per frame
}

// NewPlot projects the surviving stations into pixel space and precomputes
// the reference-trace strip. keys fixes the station order and must match
// the order of the value vectors passed to Frame. refAmps holds one value
// per output frame.
func NewPlot(width, height int, keys []string, positions map[string]models.Position, refAmps []float64) *Plot {
	p := &Plot{
		width:   width,
		height:  height,
		mapH:    int(float64(height) * mapHeightFrac),
		keys:    keys,
		px:      make([]int, len(keys)),
		py:      make([]int, len(keys)),
		refAmps: refAmps,
	}

	minLat, maxLat := 90.0, -90.0
	minLon, maxLon := 180.0, -180.0
	for _, key := range keys {
		pos := positions[key]
		if pos.Latitude < minLat {
			minLat = pos.Latitude
		}
		if pos.Latitude > maxLat {
			maxLat = pos.Latitude
		}
		if pos.Longitude < minLon {
			minLon = pos.Longitude
		}
		if pos.Longitude > maxLon {
			maxLon = pos.Longitude
		}
	}

	latSpan := maxLat - minLat
	lonSpan := maxLon - minLon
	if latSpan <= 0 {
		latSpan = fallbackSpanDeg
	}
	if lonSpan <= 0 {
		lonSpan = fallbackSpanDeg
	}
	minLat -= latSpan * 0.1
	maxLat += latSpan * 0.1
	minLon -= lonSpan * 0.1
	maxLon += lonSpan * 0.1

	for i, key := range keys {
		pos := positions[key]
		p.px[i] = int((pos.Longitude - minLon) / (maxLon - minLon) * float64(width-1))
		p.py[i] = int((maxLat - pos.Latitude) / (maxLat - minLat) * float64(p.mapH-1))
	}

	return p
}

// Frame renders frame i: the station map colored by the normalized
// amplitudes in vals (same order as keys) over the reference strip with a
// time cursor, plus a UTC timestamp label.
func (p *Plot) Frame(i int, t time.Time, vals []float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))

	fill(img, 0, 0, p.width, p.mapH, color.RGBA{230, 230, 230, 255})
	fill(img, 0, p.mapH, p.width, p.height, color.RGBA{255, 255, 255, 255})

	for s := range p.keys {
		v := 0.0
		if s < len(vals) {
			v = vals[s]
		}
		drawStation(img, p.px[s], p.py[s], seismicColor(v))
		label := p.keys[s]
		if dot := strings.LastIndexByte(label, '.'); dot >= 0 {
			label = label[dot+1:]
		}
		drawText(img, p.px[s]+stationRadius+2, p.py[s]-2, label, color.RGBA{60, 60, 60, 255})
	}

	p.drawStrip(img, i)
	drawText(img, 6, 14, t.UTC().Format("2006-01-02 15:04:05 UTC"), color.RGBA{0, 0, 0, 255})

	return img
}

// drawStrip renders the reference station's normalized waveform across the
// bottom strip with a red cursor at the current frame.
func (p *Plot) drawStrip(img *image.RGBA, frame int) {
	top := p.mapH + stripPadding
	bottom := p.height - stripPadding
	if bottom <= top || len(p.refAmps) == 0 {
		return
	}
	mid := (top + bottom) / 2
	halfSpan := float64(bottom-top) / 2.0

	// Baseline
	for x := 0; x < p.width; x++ {
		img.SetRGBA(x, mid, color.RGBA{200, 200, 200, 255})
	}

	black := color.RGBA{0, 0, 0, 255}
	prevY := mid
	for x := 0; x < p.width; x++ {
		idx := x * len(p.refAmps) / p.width
		amp := clamp(p.refAmps[idx], -1, 1)
		y := mid - int(amp*halfSpan)
		vline(img, x, prevY, y, black)
		prevY = y
	}

	cursorX := 0
	if len(p.refAmps) > 1 {
		cursorX = frame * (p.width - 1) / (len(p.refAmps) - 1)
	}
	vline(img, cursorX, top, bottom, color.RGBA{220, 30, 30, 255})
}

// seismicColor maps a normalized amplitude in [-1, 1] onto a diverging
// blue-white-red ramp: negative swings blue, positive red, quiet white.
func seismicColor(v float64) color.RGBA {
	v = clamp(v, -1, 1)
	if v >= 0 {
		c := uint8(255 * (1 - v))
		return color.RGBA{255, c, c, 255}
	}
	c := uint8(255 * (1 + v))
	return color.RGBA{c, c, 255, 255}
}

// drawStation draws a filled circle with a dark outline.
func drawStation(img *image.RGBA, cx, cy int, fillColor color.RGBA) {
	outline := color.RGBA{20, 20, 20, 255}
	r := stationRadius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			d2 := dx*dx + dy*dy
			if d2 > r*r {
				continue
			}
			c := fillColor
			if d2 >= (r-1)*(r-1) {
				c = outline
			}
			set(img, cx+dx, cy+dy, c)
		}
	}
}

// drawText renders a small label with the fixed 7x13 bitmap face.
func drawText(img *image.RGBA, x, y int, s string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func fill(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		set(img, x, y, c)
	}
}

func set(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
