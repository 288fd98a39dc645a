// Package waveform discovers and parses local seismic waveform files into
// the uniform trace representation used by the rest of the application.
//
// Three binary format families are supported, dispatched by file extension:
//
//	SAC      (.sac)               single trace per file, may carry station
//	                              coordinates in its header
//	miniSEED (.mseed, .msd)       multiplexed fixed-length records, one trace
//	                              per station assembled from its records
//	SEG-Y    (.sgy, .segy, .seg-y) many traces per file, with unit-less
//	                              acquisition geometry in per-trace headers
//
// A file that fails to parse is reported by the caller and skipped; a bad
// file never aborts a run.
package waveform

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/seisview/gmv/internal/logger"
	"github.com/seisview/gmv/internal/models"
)

// Format identifies one of the supported waveform file formats.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatSAC
	FormatMiniSEED
	FormatSEGY
)

// String returns the conventional name of the format.
func (f Format) String() string {
	switch f {
	case FormatSAC:
		return "SAC"
	case FormatMiniSEED:
		return "miniSEED"
	case FormatSEGY:
		return "SEG-Y"
	default:
		return "unknown"
	}
}

// DetectFormat classifies a file by its extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sac":
		return FormatSAC
	case ".mseed", ".msd":
		return FormatMiniSEED
	case ".sgy", ".segy":
		return FormatSEGY
	default:
		// filepath.Ext sees ".seg-y" as "-y"; check the full suffix.
		if strings.HasSuffix(strings.ToLower(path), ".seg-y") {
			return FormatSEGY
		}
		return FormatUnknown
	}
}

// FileResult holds everything recovered from a single waveform file.
type FileResult struct {
	Traces []*models.Trace
	// Positions holds explicit station coordinates read from per-trace
	// headers (SAC stla/stlo). Empty for formats without coordinate fields.
	Positions map[string]models.Position
	// Geometry holds raw unit-less coordinate pairs from SEG-Y trace
	// headers. The decimal scale is recovered later by the station
	// position resolver.
	Geometry map[string]models.HeaderXY
}

// ParseFile parses one waveform file according to its detected format.
func ParseFile(path string) (*FileResult, error) {
	switch DetectFormat(path) {
	case FormatSAC:
		return parseSAC(path)
	case FormatMiniSEED:
		return parseMiniSEED(path)
	case FormatSEGY:
		return parseSEGY(path)
	default:
		return nil, fmt.Errorf("unrecognized waveform format: %s", path)
	}
}

// Result aggregates the successfully parsed content of a data root.
type Result struct {
	Traces          []*models.Trace
	HeaderPositions map[string]models.Position
	RawGeometry     map[string]models.HeaderXY
	FilesFound      int
	FilesParsed     int
	FilesSkipped    int
}

// Ingest discovers waveform files under root and parses each one. Files
// that fail to parse are logged and skipped. The caller decides whether an
// empty result is fatal.
func Ingest(root string) (*Result, error) {
	files, err := Discover(root)
	if err != nil {
		return nil, fmt.Errorf("waveform discovery failed: %w", err)
	}

	res := &Result{
		HeaderPositions: make(map[string]models.Position),
		RawGeometry:     make(map[string]models.HeaderXY),
		FilesFound:      len(files),
	}

	for _, path := range files {
		fr, err := ParseFile(path)
		if err != nil {
			logger.Warn("Could not read %s: %v", path, err)
			res.FilesSkipped++
			continue
		}
		res.FilesParsed++
		res.Traces = append(res.Traces, fr.Traces...)
		for key, pos := range fr.Positions {
			if _, exists := res.HeaderPositions[key]; !exists {
				res.HeaderPositions[key] = pos
			}
		}
		for key, xy := range fr.Geometry {
			if _, exists := res.RawGeometry[key]; !exists {
				res.RawGeometry[key] = xy
			}
		}
	}

	return res, nil
}
