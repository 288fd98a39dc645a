package usgs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const feedFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "usp000later",
      "properties": {"mag": 4.7, "place": "10km NW of Pawnee, Oklahoma", "time": 1472904164000, "url": "https://example.org/later"},
      "geometry": {"type": "Point", "coordinates": [-96.929, 36.425, 5.6]}
    },
    {
      "type": "Feature",
      "id": "usp000early",
      "properties": {"mag": 5.8, "place": "14km NW of Pawnee, Oklahoma", "time": 1472817764000, "url": "https://example.org/early"},
      "geometry": {"type": "Point", "coordinates": [-96.9, 36.43, 4.5]}
    }
  ]
}`

func TestFetchQuakes(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, feedFixture)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	region := Region{MinLatitude: 33.6, MaxLatitude: 37.0, MinLongitude: -103.0, MaxLongitude: -94.4}
	start := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

	quakes, err := client.FetchQuakes(context.Background(), region, 4.5, start, end)
	if err != nil {
		t.Fatalf("FetchQuakes failed: %v", err)
	}

	if len(quakes) != 2 {
		t.Fatalf("Expected 2 quakes, got %d", len(quakes))
	}
	// Sorted ascending by origin time regardless of feed order.
	if quakes[0].ID != "usp000early" || quakes[1].ID != "usp000later" {
		t.Errorf("Expected time-sorted quakes, got %s then %s", quakes[0].ID, quakes[1].ID)
	}

	q := quakes[0]
	if q.Magnitude != 5.8 {
		t.Errorf("Expected magnitude 5.8, got %g", q.Magnitude)
	}
	if q.Latitude != 36.43 || q.Longitude != -96.9 || q.DepthKm != 4.5 {
		t.Errorf("Unexpected coordinates: %+v", q)
	}
	if want := time.Date(2016, 9, 2, 12, 2, 44, 0, time.UTC); !q.Time.Equal(want) {
		t.Errorf("Expected origin time %v, got %v", want, q.Time)
	}

	for _, param := range []string{
		"format=geojson",
		"minmagnitude=4.5",
		"minlatitude=33.6",
		"maxlatitude=37",
		"minlongitude=-103",
		"maxlongitude=-94.4",
		"starttime=2010-01-01T00%3A00%3A00",
	} {
		if !strings.Contains(gotQuery, param) {
			t.Errorf("Expected query to contain %q, got %q", param, gotQuery)
		}
	}
}

func TestFetchQuakes_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.FetchQuakes(context.Background(), Region{MinLatitude: 1, MaxLatitude: 2, MinLongitude: 1, MaxLongitude: 2},
		4.5, time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("Expected error for 400 response")
	}
}

func TestFetchQuakes_RetriesOn5xx(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, feedFixture)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	region := Region{MinLatitude: 33.6, MaxLatitude: 37.0, MinLongitude: -103.0, MaxLongitude: -94.4}

	quakes, err := client.FetchQuakes(context.Background(), region, 4.5,
		time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchQuakes failed after retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
	if len(quakes) != 2 {
		t.Errorf("Expected 2 quakes, got %d", len(quakes))
	}
}

func TestFetchQuakes_CancelDuringBackoff(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	client := NewClient(server.URL, 5*time.Second)
	started := time.Now()
	_, err := client.FetchQuakes(ctx, Region{MinLatitude: 1, MaxLatitude: 2, MinLongitude: 1, MaxLongitude: 2},
		4.5, time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context deadline error, got %v", err)
	}
	// The first retry delay alone is one second; expiry must cut it short.
	if elapsed := time.Since(started); elapsed > 900*time.Millisecond {
		t.Errorf("Expected backoff to end with the context, took %v", elapsed)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
	}
}
