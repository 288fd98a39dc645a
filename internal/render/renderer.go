package render

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/seisview/gmv/internal/frames"
	"github.com/seisview/gmv/internal/logger"
	"github.com/seisview/gmv/internal/models"
)

// Renderer drives a full render: one PNG per grid frame into a private
// session directory, then a single ffmpeg pass into the output file. Frames
// are produced and written in a streaming fashion.
type Renderer struct {
	enc    *Encoder
	width  int
	height int
}

func NewRenderer(enc *Encoder, width, height int) *Renderer {
	return &Renderer{enc: enc, width: width, height: height}
}

// Render draws every frame on the grid from the prepared traces and encodes
// the result into outPath. The first station in prep.Keys serves as the
// reference trace for the bottom strip.
func (r *Renderer) Render(ctx context.Context, prep *frames.Prepared, positions map[string]models.Position, grid *frames.Grid, outPath string) error {
	if err := r.enc.Validate(ctx); err != nil {
		return err
	}

	sessionDir, err := os.MkdirTemp("", "gmv-frames-")
	if err != nil {
		return fmt.Errorf("create frame directory: %w", err)
	}
	defer os.RemoveAll(sessionDir)

	refAmps := referenceAmplitudes(prep, grid)
	plot := NewPlot(r.width, r.height, prep.Keys, positions, refAmps)

	started := time.Now()
	vals := make([]float64, len(prep.Keys))
	for i := 0; i < grid.N; i++ {
		t := grid.At(i)
		vals = prep.FrameVector(t, vals)
		img := plot.Frame(i, t, vals)
		if err := writePNG(filepath.Join(sessionDir, fmt.Sprintf("frame_%06d.png", i)), img); err != nil {
			return err
		}
	}
	logger.Info("drew %d frames in %s", grid.N, time.Since(started).Round(time.Millisecond))

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := r.enc.Encode(ctx, sessionDir, outPath); err != nil {
		return err
	}
	logger.Info("wrote %s", outPath)
	return nil
}

// referenceAmplitudes samples the first prepared station at every frame
// time for the waveform strip.
func referenceAmplitudes(prep *frames.Prepared, grid *frames.Grid) []float64 {
	amps := make([]float64, grid.N)
	if len(prep.Keys) == 0 {
		return amps
	}
	ref := prep.Traces[prep.Keys[0]]
	peak := prep.Peaks[prep.Keys[0]]
	for i := 0; i < grid.N; i++ {
		amps[i] = frames.SampleAt(ref, grid.At(i)) / peak
	}
	return amps
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode frame: %w", err)
	}
	return f.Close()
}
