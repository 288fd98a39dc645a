package waveform

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestIngest_MixedDirectory(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "event1")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	good := buildSAC(binary.LittleEndian, []float32{1, 2, 3})
	if err := os.WriteFile(filepath.Join(nested, "good.sac"), good, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "garbage.sac"), []byte("not a sac file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Ingest(dir)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if res.FilesFound != 2 {
		t.Errorf("Expected 2 candidate files, got %d", res.FilesFound)
	}
	if res.FilesParsed != 1 || res.FilesSkipped != 1 {
		t.Errorf("Expected 1 parsed and 1 skipped, got %d and %d", res.FilesParsed, res.FilesSkipped)
	}
	if len(res.Traces) != 1 {
		t.Fatalf("Expected 1 trace, got %d", len(res.Traces))
	}
	if _, ok := res.HeaderPositions["OK.X34A"]; !ok {
		t.Error("Expected SAC header position to be collected")
	}
}

func TestDiscover_Deterministic(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.sac", "a.sac", "c.mseed"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("Expected 3 files, got %d", len(files))
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Errorf("Expected sorted paths, got %v", files)
		}
	}
}
