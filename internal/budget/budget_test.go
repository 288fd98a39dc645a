package budget

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestNew_FrameCount(t *testing.T) {
	est := New(10*time.Minute, 1.0, 25)
	if est.Frames != 600 {
		t.Errorf("Expected 600 frames, got %d", est.Frames)
	}
	if est.Stations != 25 {
		t.Errorf("Expected 25 stations, got %d", est.Stations)
	}
}

func TestNew_FloorsStations(t *testing.T) {
	est := New(time.Minute, 1.0, 0)
	if est.Stations != 1 {
		t.Errorf("Expected station count floored at 1, got %d", est.Stations)
	}
}

func TestMemoryEstimate(t *testing.T) {
	// 1 MiB raw: 262144 frames x 1 station x 4 bytes.
	est := Estimate{Frames: 262144, Stations: 1}
	if got := est.MemoryMB(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Expected 1 MiB raw estimate, got %g", got)
	}
	if got := est.ScaledMemoryMB(); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("Expected 1.5 MiB scaled estimate, got %g", got)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		est       Estimate
		maxFrames int
		maxMemMB  int
		wantErr   string
	}{
		{
			name:      "within limits",
			est:       Estimate{Frames: 600, Stations: 25},
			maxFrames: 10000,
			maxMemMB:  4096,
		},
		{
			name:      "exactly at frame ceiling",
			est:       Estimate{Frames: 600, Stations: 25},
			maxFrames: 600,
			maxMemMB:  4096,
		},
		{
			name:      "frame ceiling exceeded",
			est:       Estimate{Frames: 600, Stations: 25},
			maxFrames: 100,
			maxMemMB:  4096,
			wantErr:   "max-frames",
		},
		{
			name:      "memory ceiling exceeded",
			est:       Estimate{Frames: 10000, Stations: 100000},
			maxFrames: 10000,
			maxMemMB:  1024,
			wantErr:   "max-mem",
		},
		{
			name:    "empty window",
			est:     Estimate{Frames: 0, Stations: 10},
			wantErr: "no frames",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.est.Check(tt.maxFrames, tt.maxMemMB)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Check failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestString(t *testing.T) {
	est := New(10*time.Minute, 1.0, 25)
	s := est.String()
	if !strings.Contains(s, "600") || !strings.Contains(s, "25") {
		t.Errorf("Expected frame and station counts in %q", s)
	}
}
