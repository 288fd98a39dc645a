package waveform

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/seisview/gmv/internal/models"
)

// SAC binary layout: 70 float32 header words, then 40 int32 words, then
// 192 bytes of fixed-width character fields, then float32 samples.
const (
	sacHeaderSize = 632

	sacOffDelta = 0   // float word 0: sample interval in seconds
	sacOffB     = 20  // float word 5: begin offset from reference time
	sacOffStla  = 124 // float word 31: station latitude
	sacOffStlo  = 128 // float word 32: station longitude

	sacOffNzYear = 280 // int word 70: reference year
	sacOffNzJday = 284 // int word 71: reference day of year
	sacOffNzHour = 288
	sacOffNzMin  = 292
	sacOffNzSec  = 296
	sacOffNzMsec = 300
	sacOffNvhdr  = 304 // int word 76: header version, 1..6
	sacOffNpts   = 316 // int word 79: sample count

	sacOffKstnm  = 440 // station name, 8 chars
	sacOffKnetwk = 608 // network code, 8 chars
)

// sacUndef is the SAC sentinel for undefined numeric header fields.
const sacUndef = -12345

// parseSAC reads a single-trace SAC binary file. Station coordinates are
// reported when the stla/stlo header floats are defined.
func parseSAC(path string) (*FileResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read SAC file: %w", err)
	}
	if len(raw) < sacHeaderSize {
		return nil, fmt.Errorf("SAC file too short: %d bytes", len(raw))
	}

	order, err := sacByteOrder(raw)
	if err != nil {
		return nil, err
	}

	f32 := func(off int) float64 {
		return float64(math.Float32frombits(order.Uint32(raw[off : off+4])))
	}
	i32 := func(off int) int32 {
		return int32(order.Uint32(raw[off : off+4]))
	}

	delta := f32(sacOffDelta)
	if delta <= 0 {
		return nil, fmt.Errorf("SAC delta must be positive, got %g", delta)
	}

	npts := int(i32(sacOffNpts))
	if npts <= 0 {
		return nil, fmt.Errorf("SAC npts must be positive, got %d", npts)
	}
	if len(raw) < sacHeaderSize+4*npts {
		return nil, fmt.Errorf("SAC file truncated: npts=%d but only %d data bytes", npts, len(raw)-sacHeaderSize)
	}

	start, err := sacStartTime(raw, order, f32(sacOffB))
	if err != nil {
		return nil, err
	}

	samples := make([]float64, npts)
	for i := 0; i < npts; i++ {
		off := sacHeaderSize + 4*i
		samples[i] = float64(math.Float32frombits(order.Uint32(raw[off : off+4])))
	}

	tr := &models.Trace{
		Network:    sacString(raw[sacOffKnetwk : sacOffKnetwk+8]),
		Station:    sacString(raw[sacOffKstnm : sacOffKstnm+8]),
		Start:      start,
		SampleRate: 1.0 / delta,
		Samples:    samples,
	}
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SAC trace: %w", err)
	}

	res := &FileResult{Traces: []*models.Trace{tr}}

	stla, stlo := f32(sacOffStla), f32(sacOffStlo)
	if !sacFloatUndef(stla) && !sacFloatUndef(stlo) {
		pos := models.Position{Latitude: stla, Longitude: stlo}
		if pos.Validate() == nil {
			res.Positions = map[string]models.Position{tr.Key(): pos}
		}
	}

	return res, nil
}

// sacByteOrder decides endianness by sanity-checking the header version
// word, which must be in 1..6 in whichever byte order the file was written.
func sacByteOrder(raw []byte) (binary.ByteOrder, error) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		nvhdr := int32(order.Uint32(raw[sacOffNvhdr : sacOffNvhdr+4]))
		if nvhdr >= 1 && nvhdr <= 6 {
			return order, nil
		}
	}
	return nil, fmt.Errorf("not a SAC file: header version invalid in both byte orders")
}

// sacStartTime combines the nz* reference time fields with the B offset.
func sacStartTime(raw []byte, order binary.ByteOrder, b float64) (time.Time, error) {
	i32 := func(off int) int {
		return int(int32(order.Uint32(raw[off : off+4])))
	}

	year := i32(sacOffNzYear)
	jday := i32(sacOffNzJday)
	if year == sacUndef || jday == sacUndef {
		return time.Time{}, fmt.Errorf("SAC reference time undefined")
	}

	hour, min, sec, msec := i32(sacOffNzHour), i32(sacOffNzMin), i32(sacOffNzSec), i32(sacOffNzMsec)
	if hour == sacUndef {
		hour = 0
	}
	if min == sacUndef {
		min = 0
	}
	if sec == sacUndef {
		sec = 0
	}
	if msec == sacUndef {
		msec = 0
	}

	ref := time.Date(year, time.January, 1, hour, min, sec, msec*int(time.Millisecond), time.UTC)
	ref = ref.AddDate(0, 0, jday-1)
	if sacFloatUndef(b) {
		b = 0
	}
	return ref.Add(time.Duration(b * float64(time.Second))), nil
}

// sacFloatUndef reports whether a float header field carries the SAC
// undefined sentinel. The comparison is approximate because the sentinel
// round-trips through float32.
func sacFloatUndef(v float64) bool {
	return math.Abs(v-sacUndef) < 0.5
}

// sacString trims the space padding and undefined sentinel from a SAC
// character field.
func sacString(b []byte) string {
	s := strings.TrimRight(string(b), " \x00")
	if s == "-12345" {
		return ""
	}
	return s
}
