// Package pipeline wires one complete render run together: waveform
// ingestion, station position resolution, the resource-budget guard,
// frame synthesis, and movie encoding. Batch mode calls it once per quake;
// the render command calls it once.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/seisview/gmv/internal/budget"
	"github.com/seisview/gmv/internal/config"
	"github.com/seisview/gmv/internal/frames"
	"github.com/seisview/gmv/internal/logger"
	"github.com/seisview/gmv/internal/models"
	"github.com/seisview/gmv/internal/render"
	"github.com/seisview/gmv/internal/stations"
	"github.com/seisview/gmv/internal/waveform"
)

// Options describes one render run. Zero Start/End means the window is
// derived from the earliest trace start and latest trace end.
type Options struct {
	DataRoot   string
	StationXML string
	StationCSV string
	Start      time.Time
	End        time.Time
	TimeStep   float64 // seconds between frames
	OutPath    string
	MaxFrames  int
	MaxMemMB   int
	DryRun     bool
}

// Pipeline runs renders against a fixed configuration.
type Pipeline struct {
	cfg      *config.Config
	renderer *render.Renderer
}

func New(cfg *config.Config) *Pipeline {
	enc := render.NewEncoder(cfg.Encoder.FFmpegPath, cfg.Render.FPS, cfg.Render.Quality)
	return &Pipeline{
		cfg:      cfg,
		renderer: render.NewRenderer(enc, cfg.Render.Width, cfg.Render.Height),
	}
}

// Run executes one render end to end. In dry-run mode it stops after the
// budget check and reports the estimate without drawing anything.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	result, err := waveform.Ingest(opts.DataRoot)
	if err != nil {
		return err
	}
	if len(result.Traces) == 0 {
		return fmt.Errorf("no usable waveform data under %s", opts.DataRoot)
	}

	positions, err := stations.Resolve(opts.StationXML, opts.StationCSV, result.HeaderPositions, result.RawGeometry)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		return fmt.Errorf("no station positions could be resolved; provide --station-xml or --station-csv")
	}

	start, end := window(opts, result.Traces)
	if !end.After(start) {
		return fmt.Errorf("empty time window %s .. %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	est := budget.New(end.Sub(start), opts.TimeStep, positionedStations(result.Traces, positions))
	if err := est.Check(opts.MaxFrames, opts.MaxMemMB); err != nil {
		return err
	}
	if opts.DryRun {
		logger.Info("dry run: %s", est.String())
		return nil
	}

	prep := frames.Prepare(result.Traces, positions, start, end)
	if len(prep.Keys) == 0 {
		return fmt.Errorf("no station has both a position and samples inside the window")
	}
	logger.Info("rendering %d stations from %s to %s",
		len(prep.Keys), start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))

	grid, err := frames.NewGrid(start, end, opts.TimeStep)
	if err != nil {
		return err
	}

	encodeCtx := ctx
	if p.cfg.Encoder.Timeout > 0 {
		var cancel context.CancelFunc
		encodeCtx, cancel = context.WithTimeout(ctx, p.cfg.Encoder.Timeout)
		defer cancel()
	}
	return p.renderer.Render(encodeCtx, prep, positions, grid, opts.OutPath)
}

// window returns the render window, filling unset bounds from the traces.
func window(opts Options, traces []*models.Trace) (time.Time, time.Time) {
	start, end := opts.Start, opts.End
	if start.IsZero() || end.IsZero() {
		dataStart, dataEnd := traces[0].Start, traces[0].End()
		for _, tr := range traces[1:] {
			if tr.Start.Before(dataStart) {
				dataStart = tr.Start
			}
			if tr.End().After(dataEnd) {
				dataEnd = tr.End()
			}
		}
		if start.IsZero() {
			start = dataStart
		}
		if end.IsZero() {
			end = dataEnd
		}
	}
	return start, end
}

// positionedStations counts the distinct station keys that both carry data
// and have a resolved position, which is what the budget scales with.
func positionedStations(traces []*models.Trace, positions map[string]models.Position) int {
	seen := make(map[string]bool)
	for _, tr := range traces {
		key := tr.Key()
		if _, ok := positions[key]; ok {
			seen[key] = true
		}
	}
	return len(seen)
}
