// Package batch renders a movie for every cataloged earthquake that does
// not already have one. It queries the USGS event service, skips quakes
// recorded as rendered in the history store, and runs the render pipeline
// once per remaining quake with a pause in between.
//
// An interrupt is honored between quakes, never mid-render: the current
// render finishes, its outcome is persisted, and the loop stops before the
// next one starts.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/seisview/gmv/internal/config"
	"github.com/seisview/gmv/internal/logger"
	"github.com/seisview/gmv/internal/models"
	"github.com/seisview/gmv/internal/pipeline"
	"github.com/seisview/gmv/internal/storage"
	"github.com/seisview/gmv/internal/usgs"
)

// Pipeline runs one render. *pipeline.Pipeline satisfies it; tests
// substitute fakes.
type Pipeline interface {
	Run(ctx context.Context, opts pipeline.Options) error
}

// Notifier receives batch outcomes. Nil disables notifications.
type Notifier interface {
	SendSummary(ctx context.Context, records []*models.RenderRecord) error
	SendFailure(ctx context.Context, quake models.Quake, renderErr error) error
}

// Runner drives one batch pass over the catalog.
type Runner struct {
	cfg      *config.Config
	pipe     Pipeline
	store    *storage.Storage
	catalog  *usgs.Client
	notifier Notifier

	// ReportOnly lists pending quakes without rendering anything.
	ReportOnly bool
}

func New(cfg *config.Config, pipe Pipeline, store *storage.Storage, catalog *usgs.Client, notifier Notifier) *Runner {
	return &Runner{
		cfg:      cfg,
		pipe:     pipe,
		store:    store,
		catalog:  catalog,
		notifier: notifier,
	}
}

// Run fetches the catalog, renders every pending quake, and persists each
// outcome as it happens so an interrupted batch resumes where it stopped.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.store.Load(); err != nil {
		return fmt.Errorf("failed to load render history: %w", err)
	}

	region := usgs.Region{
		MinLatitude:  r.cfg.Catalog.MinLatitude,
		MaxLatitude:  r.cfg.Catalog.MaxLatitude,
		MinLongitude: r.cfg.Catalog.MinLongitude,
		MaxLongitude: r.cfg.Catalog.MaxLongitude,
	}
	catalogStart := time.Date(r.cfg.Catalog.StartYear, time.January, 1, 0, 0, 0, 0, time.UTC)

	quakes, err := r.catalog.FetchQuakes(ctx, region, r.cfg.Catalog.MinMagnitude, catalogStart, time.Now().UTC())
	if err != nil {
		return err
	}
	logger.Info("catalog returned %d quakes since %d", len(quakes), r.cfg.Catalog.StartYear)

	var pending []models.Quake
	for _, q := range quakes {
		if r.store.IsRendered(q.ID) {
			logger.Debug("already rendered, skipping %s (%s)", q.ID, q.Place)
			continue
		}
		pending = append(pending, q)
	}
	logger.Info("%d quakes pending render", len(pending))

	if r.ReportOnly {
		for _, q := range pending {
			logger.Info("pending: %s M%.1f %s %s", q.Time.UTC().Format(time.RFC3339), q.Magnitude, q.ID, q.Place)
		}
		return nil
	}

	var processed []*models.RenderRecord
	for i, q := range pending {
		if err := ctx.Err(); err != nil {
			logger.Warn("interrupted, stopping before quake %s", q.ID)
			break
		}

		record := r.renderOne(ctx, q)
		processed = append(processed, record)

		if err := r.store.AddRecord(record); err != nil {
			logger.Error("failed to record outcome for %s: %v", q.ID, err)
		}
		if err := r.store.Rotate(); err != nil {
			logger.Error("failed to rotate render history: %v", err)
		}
		if err := r.store.Save(); err != nil {
			logger.Error("failed to save render history: %v", err)
		}

		if i < len(pending)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(r.cfg.Batch.DelayBetween):
			}
		}
	}

	rendered, failed := 0, 0
	for _, rec := range processed {
		if rec.Status == models.StatusRendered {
			rendered++
		} else {
			failed++
		}
	}
	logger.Info("batch complete: %d rendered, %d failed", rendered, failed)

	if r.notifier != nil && len(processed) > 0 {
		// The summary covers whatever was processed, interrupted or not.
		if err := r.notifier.SendSummary(context.WithoutCancel(ctx), processed); err != nil {
			logger.Error("failed to send batch summary: %v", err)
		}
	}

	return nil
}

// renderOne runs the pipeline for a single quake and returns its record.
func (r *Runner) renderOne(ctx context.Context, q models.Quake) *models.RenderRecord {
	windowStart := q.Time.Add(-r.cfg.Batch.Lead)
	windowEnd := windowStart.Add(r.cfg.Batch.Duration)
	outPath := filepath.Join(r.cfg.Batch.OutputDir, q.OutputName(r.cfg.Batch.Label)+".mp4")

	logger.Info("rendering quake %s M%.1f %s -> %s", q.ID, q.Magnitude, q.Place, outPath)

	record := &models.RenderRecord{
		ID:         uuid.New().String(),
		QuakeID:    q.ID,
		Magnitude:  q.Magnitude,
		RenderedAt: time.Now().UTC(),
	}

	// An interrupt stops the batch before the next quake, never
	// mid-render. The encoder timeout still applies inside Run.
	runCtx := context.WithoutCancel(ctx)

	err := r.pipe.Run(runCtx, pipeline.Options{
		DataRoot:   r.cfg.Data.Root,
		StationXML: r.cfg.Data.StationXML,
		StationCSV: r.cfg.Data.StationCSV,
		Start:      windowStart,
		End:        windowEnd,
		TimeStep:   r.cfg.Render.TimeStep,
		OutPath:    outPath,
		MaxFrames:  r.cfg.Render.MaxFrames,
		MaxMemMB:   r.cfg.Render.MaxMemMB,
	})
	if err != nil {
		logger.Error("render failed for %s: %v", q.ID, err)
		record.Status = models.StatusFailed
		record.Error = err.Error()
		if r.notifier != nil {
			if nerr := r.notifier.SendFailure(runCtx, q, err); nerr != nil {
				logger.Error("failed to send failure notice: %v", nerr)
			}
		}
		return record
	}

	record.Status = models.StatusRendered
	record.OutputPath = outPath
	return record
}
