package waveform

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/seisview/gmv/internal/models"
)

// SEG-Y layout: 3200-byte textual header, 400-byte big-endian binary header,
// then traces of a 240-byte header followed by sample data.
const (
	segyTextHeaderSize   = 3200
	segyBinaryHeaderSize = 400
	segyTraceHeaderSize  = 240

	// Offsets within the binary header.
	segyOffInterval = 16 // uint16, sample interval in microseconds
	segyOffNSamples = 20 // uint16, samples per trace
	segyOffFormat   = 24 // uint16, sample format code

	// Offsets within a trace header.
	segyOffTraceSeq  = 0   // int32, trace sequence number within line
	segyOffGroupX    = 80  // int32, group (receiver) X coordinate
	segyOffGroupY    = 84  // int32, group (receiver) Y coordinate
	segyOffTraceNS   = 114 // uint16, samples in this trace
	segyOffYear      = 156 // int16
	segyOffDayOfYear = 158 // int16
	segyOffHour      = 160 // int16
	segyOffMinute    = 162 // int16
	segyOffSecond    = 164 // int16
)

// SEG-Y sample format codes handled by this parser.
const (
	segyFmtIBMFloat = 1
	segyFmtInt32    = 2
	segyFmtInt16    = 3
	segyFmtFloat32  = 5
	segyFmtInt8     = 8
)

// segyFallbackRate is assumed when the binary header carries no usable
// sample interval.
const segyFallbackRate = 100.0

// parseSEGY reads every trace of a SEG-Y file. Station keys are synthesized
// from the trace sequence number ("SGY.00001") since the format has no
// station naming. Raw group coordinates are collected for geometry-scale
// inference by the position resolver.
func parseSEGY(path string) (*FileResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read SEG-Y file: %w", err)
	}
	if len(raw) < segyTextHeaderSize+segyBinaryHeaderSize {
		return nil, fmt.Errorf("SEG-Y file too short: %d bytes", len(raw))
	}

	be := binary.BigEndian
	bin := raw[segyTextHeaderSize : segyTextHeaderSize+segyBinaryHeaderSize]

	rate := segyFallbackRate
	if interval := be.Uint16(bin[segyOffInterval : segyOffInterval+2]); interval > 0 {
		rate = 1e6 / float64(interval)
	}

	format := int(be.Uint16(bin[segyOffFormat : segyOffFormat+2]))
	bytesPer, err := segySampleSize(format)
	if err != nil {
		return nil, err
	}
	defaultNS := int(be.Uint16(bin[segyOffNSamples : segyOffNSamples+2]))

	res := &FileResult{Geometry: make(map[string]models.HeaderXY)}

	offset := segyTextHeaderSize + segyBinaryHeaderSize
	index := 0
	for offset+segyTraceHeaderSize <= len(raw) {
		hdr := raw[offset : offset+segyTraceHeaderSize]
		index++

		ns := int(be.Uint16(hdr[segyOffTraceNS : segyOffTraceNS+2]))
		if ns == 0 {
			ns = defaultNS
		}
		if ns == 0 {
			return nil, fmt.Errorf("trace %d declares no samples", index)
		}

		dataStart := offset + segyTraceHeaderSize
		dataEnd := dataStart + ns*bytesPer
		if dataEnd > len(raw) {
			return nil, fmt.Errorf("trace %d truncated: need %d bytes, have %d", index, ns*bytesPer, len(raw)-dataStart)
		}

		samples, err := segyDecode(raw[dataStart:dataEnd], format, ns)
		if err != nil {
			return nil, fmt.Errorf("trace %d: %w", index, err)
		}

		seq := int(int32(be.Uint32(hdr[segyOffTraceSeq : segyOffTraceSeq+4])))
		if seq <= 0 {
			seq = index
		}

		tr := &models.Trace{
			Network:    "SGY",
			Station:    fmt.Sprintf("%05d", seq),
			Start:      segyStartTime(hdr, be),
			SampleRate: rate,
			Samples:    samples,
		}
		if err := tr.Validate(); err != nil {
			return nil, fmt.Errorf("invalid SEG-Y trace %d: %w", index, err)
		}
		res.Traces = append(res.Traces, tr)

		res.Geometry[tr.Key()] = models.HeaderXY{
			X: float64(int32(be.Uint32(hdr[segyOffGroupX : segyOffGroupX+4]))),
			Y: float64(int32(be.Uint32(hdr[segyOffGroupY : segyOffGroupY+4]))),
		}

		offset = dataEnd
	}

	if len(res.Traces) == 0 {
		return nil, fmt.Errorf("SEG-Y file contains no traces")
	}
	return res, nil
}

// segyStartTime reads the recording time fields of a trace header, falling
// back to the Unix epoch when the header carries no usable year.
func segyStartTime(hdr []byte, be binary.ByteOrder) time.Time {
	i16 := func(off int) int {
		return int(int16(be.Uint16(hdr[off : off+2])))
	}

	year := i16(segyOffYear)
	doy := i16(segyOffDayOfYear)
	if year < 1900 || year > 2500 || doy < 1 || doy > 366 {
		return time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	t := time.Date(year, time.January, 1, i16(segyOffHour), i16(segyOffMinute), i16(segyOffSecond), 0, time.UTC)
	return t.AddDate(0, 0, doy-1)
}

// segySampleSize returns the per-sample byte width of a format code.
func segySampleSize(format int) (int, error) {
	switch format {
	case segyFmtIBMFloat, segyFmtInt32, segyFmtFloat32:
		return 4, nil
	case segyFmtInt16:
		return 2, nil
	case segyFmtInt8:
		return 1, nil
	default:
		return 0, fmt.Errorf("unsupported SEG-Y sample format %d", format)
	}
}

// segyDecode expands one trace's sample data into float64 amplitudes.
func segyDecode(data []byte, format, ns int) ([]float64, error) {
	be := binary.BigEndian
	samples := make([]float64, ns)

	switch format {
	case segyFmtIBMFloat:
		for i := range samples {
			samples[i] = ibmToFloat(be.Uint32(data[4*i : 4*i+4]))
		}
	case segyFmtInt32:
		for i := range samples {
			samples[i] = float64(int32(be.Uint32(data[4*i : 4*i+4])))
		}
	case segyFmtInt16:
		for i := range samples {
			samples[i] = float64(int16(be.Uint16(data[2*i : 2*i+2])))
		}
	case segyFmtFloat32:
		for i := range samples {
			samples[i] = float64(math.Float32frombits(be.Uint32(data[4*i : 4*i+4])))
		}
	case segyFmtInt8:
		for i := range samples {
			samples[i] = float64(int8(data[i]))
		}
	default:
		return nil, fmt.Errorf("unsupported SEG-Y sample format %d", format)
	}
	return samples, nil
}

// ibmToFloat converts an IBM System/360 hexadecimal float to float64:
// sign bit, 7-bit base-16 exponent biased by 64, 24-bit fraction.
func ibmToFloat(bits uint32) float64 {
	if bits == 0 {
		return 0
	}
	sign := 1.0
	if bits&0x80000000 != 0 {
		sign = -1.0
	}
	exponent := int((bits >> 24) & 0x7f)
	fraction := float64(bits&0x00ffffff) / float64(1<<24)
	return sign * fraction * math.Pow(16, float64(exponent-64))
}
