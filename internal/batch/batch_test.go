package batch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/seisview/gmv/internal/config"
	"github.com/seisview/gmv/internal/models"
	"github.com/seisview/gmv/internal/pipeline"
	"github.com/seisview/gmv/internal/storage"
	"github.com/seisview/gmv/internal/usgs"
)

const feedFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "usp000early",
      "properties": {"mag": 5.8, "place": "14km NW of Pawnee, Oklahoma", "time": 1472817764000, "url": "https://example.org/early"},
      "geometry": {"type": "Point", "coordinates": [-96.9, 36.43, 4.5]}
    },
    {
      "type": "Feature",
      "id": "usp000later",
      "properties": {"mag": 4.7, "place": "10km NW of Pawnee, Oklahoma", "time": 1472904164000, "url": "https://example.org/later"},
      "geometry": {"type": "Point", "coordinates": [-96.929, 36.425, 5.6]}
    }
  ]
}`

type fakePipeline struct {
	runs  []pipeline.Options
	onRun func(ctx context.Context)
	err   error
}

func (f *fakePipeline) Run(ctx context.Context, opts pipeline.Options) error {
	f.runs = append(f.runs, opts)
	if f.onRun != nil {
		f.onRun(ctx)
	}
	return f.err
}

type fakeNotifier struct {
	summaries [][]*models.RenderRecord
	failures  []models.Quake
}

func (f *fakeNotifier) SendSummary(ctx context.Context, records []*models.RenderRecord) error {
	f.summaries = append(f.summaries, records)
	return nil
}

func (f *fakeNotifier) SendFailure(ctx context.Context, quake models.Quake, renderErr error) error {
	f.failures = append(f.failures, quake)
	return nil
}

func testSetup(t *testing.T, feed string) (*config.Config, *storage.Storage, *usgs.Client) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feed)
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Catalog.StartYear = 2016
	cfg.Catalog.MinMagnitude = 4.5
	cfg.Catalog.MinLatitude = 33.6
	cfg.Catalog.MaxLatitude = 37.0
	cfg.Catalog.MinLongitude = -103.0
	cfg.Catalog.MaxLongitude = -94.4
	cfg.Batch.Label = "OKlocal"
	cfg.Batch.OutputDir = dir
	cfg.Batch.Lead = time.Minute
	cfg.Batch.Duration = 10 * time.Minute
	cfg.Batch.DelayBetween = time.Millisecond

	store := storage.New(50, filepath.Join(dir, "history.json"), 0o644, 0o755)
	catalog := usgs.NewClient(server.URL, 5*time.Second)
	return cfg, store, catalog
}

func TestRun_RendersAllPending(t *testing.T) {
	cfg, store, catalog := testSetup(t, feedFixture)
	fake := &fakePipeline{}
	notifier := &fakeNotifier{}

	if err := New(cfg, fake, store, catalog, notifier).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(fake.runs) != 2 {
		t.Fatalf("Expected 2 renders, got %d", len(fake.runs))
	}
	// Lead shifts the window start before the origin time.
	origin := time.Date(2016, 9, 2, 12, 2, 44, 0, time.UTC)
	if want := origin.Add(-cfg.Batch.Lead); !fake.runs[0].Start.Equal(want) {
		t.Errorf("Expected window start %v, got %v", want, fake.runs[0].Start)
	}
	if want := origin.Add(-cfg.Batch.Lead).Add(cfg.Batch.Duration); !fake.runs[0].End.Equal(want) {
		t.Errorf("Expected window end %v, got %v", want, fake.runs[0].End)
	}

	for _, id := range []string{"usp000early", "usp000later"} {
		if !store.IsRendered(id) {
			t.Errorf("Expected %s recorded as rendered", id)
		}
	}
	if len(notifier.summaries) != 1 || len(notifier.summaries[0]) != 2 {
		t.Errorf("Expected one summary covering both quakes, got %+v", notifier.summaries)
	}
}

func TestRun_InterruptFinishesCurrentRender(t *testing.T) {
	cfg, store, catalog := testSetup(t, feedFixture)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &fakePipeline{}
	fake.onRun = func(runCtx context.Context) {
		// Simulates an interrupt arriving mid-render. The in-flight
		// render's context must stay alive so ffmpeg is not killed.
		cancel()
		if err := runCtx.Err(); err != nil {
			t.Errorf("Expected render context to survive the interrupt, got %v", err)
		}
	}

	if err := New(cfg, fake, store, catalog, nil).Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(fake.runs) != 1 {
		t.Fatalf("Expected the loop to stop after the in-flight render, got %d renders", len(fake.runs))
	}
	// The completed render's outcome is persisted before the loop stops.
	if !store.IsRendered("usp000early") {
		t.Error("Expected the interrupted batch to record its finished render")
	}
	if rec, _ := store.GetRecord("usp000later"); rec != nil {
		t.Errorf("Expected no record for the unstarted quake, got %+v", rec)
	}
}

func TestRun_SkipsRenderedQuakes(t *testing.T) {
	cfg, store, catalog := testSetup(t, feedFixture)
	if err := store.AddRecord(&models.RenderRecord{
		ID:         "prior",
		QuakeID:    "usp000early",
		OutputPath: "/tmp/prior.mp4",
		Magnitude:  5.8,
		Status:     models.StatusRendered,
		RenderedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("AddRecord failed: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fake := &fakePipeline{}
	if err := New(cfg, fake, store, catalog, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(fake.runs) != 1 {
		t.Fatalf("Expected only the unrendered quake to run, got %d renders", len(fake.runs))
	}
}

func TestRun_FailedRenderRecordedAndRetriedNextBatch(t *testing.T) {
	cfg, store, catalog := testSetup(t, feedFixture)
	notifier := &fakeNotifier{}
	fake := &fakePipeline{err: errors.New("encode blew up")}

	if err := New(cfg, fake, store, catalog, notifier).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rec, err := store.GetRecord("usp000early")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if rec.Status != models.StatusFailed || rec.Error == "" {
		t.Errorf("Expected a failed record with an error, got %+v", rec)
	}
	if len(notifier.failures) != 2 {
		t.Errorf("Expected a failure notice per quake, got %d", len(notifier.failures))
	}

	// Failed quakes stay pending for the next batch.
	second := &fakePipeline{}
	if err := New(cfg, second, store, catalog, nil).Run(context.Background()); err != nil {
		t.Fatalf("Second Run failed: %v", err)
	}
	if len(second.runs) != 2 {
		t.Errorf("Expected failed quakes to be retried, got %d renders", len(second.runs))
	}
}

func TestRun_ReportOnly(t *testing.T) {
	cfg, store, catalog := testSetup(t, feedFixture)
	fake := &fakePipeline{}

	runner := New(cfg, fake, store, catalog, nil)
	runner.ReportOnly = true
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(fake.runs) != 0 {
		t.Errorf("Expected no renders in report-only mode, got %d", len(fake.runs))
	}
	if recs := store.GetAllRecords(); len(recs) != 0 {
		t.Errorf("Expected no records in report-only mode, got %d", len(recs))
	}
}
