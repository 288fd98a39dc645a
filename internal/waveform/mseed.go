package waveform

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/seisview/gmv/internal/models"
)

// miniSEED fixed data header layout (48 bytes).
const (
	msFixedHeaderSize = 48

	msOffStation    = 8  // 5 chars
	msOffLocation   = 13 // 2 chars
	msOffChannel    = 15 // 3 chars
	msOffNetwork    = 18 // 2 chars
	msOffYear       = 20 // uint16
	msOffDay        = 22 // uint16, day of year
	msOffHour       = 24
	msOffMinute     = 25
	msOffSecond     = 26
	msOffFract      = 28 // uint16, 0.0001 s units
	msOffNumSamples = 30 // uint16
	msOffRateFactor = 32 // int16
	msOffRateMult   = 34 // int16
	msOffActivity   = 36 // activity flags
	msOffTimeCorr   = 40 // int32, 0.0001 s units
	msOffDataStart  = 44 // uint16
	msOffBlockette  = 46 // uint16, offset of first blockette
)

// miniSEED data encodings handled by this parser.
const (
	msEncInt16   = 1
	msEncInt32   = 3
	msEncFloat32 = 4
	msEncFloat64 = 5
	msEncSteim1  = 10
)

// activity flag: a time correction has already been applied to the header
// start time.
const msFlagTimeCorrApplied = 0x02

// msRecord is one decoded miniSEED record.
type msRecord struct {
	network  string
	station  string
	location string
	channel  string
	start    time.Time
	rate     float64
	samples  []float64
}

// channelID distinguishes interleaved channels within a multiplexed file.
func (r *msRecord) channelID() string {
	return r.network + "." + r.station + "." + r.location + "." + r.channel
}

// parseMiniSEED reads a miniSEED file record by record and assembles one
// trace per channel. Records are concatenated in start-time order; gaps
// between records are not filled.
func parseMiniSEED(path string) (*FileResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read miniSEED file: %w", err)
	}

	groups := make(map[string][]*msRecord)
	var order []string

	offset := 0
	for offset+msFixedHeaderSize <= len(raw) {
		rec, recLen, err := parseMSRecord(raw[offset:])
		if err != nil {
			return nil, fmt.Errorf("record at offset %d: %w", offset, err)
		}
		offset += recLen

		if len(rec.samples) == 0 {
			continue
		}
		id := rec.channelID()
		if _, exists := groups[id]; !exists {
			order = append(order, id)
		}
		groups[id] = append(groups[id], rec)
	}

	if len(groups) == 0 {
		return nil, fmt.Errorf("miniSEED file contains no data records")
	}

	res := &FileResult{}
	for _, id := range order {
		recs := groups[id]
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].start.Before(recs[j].start)
		})

		first := recs[0]
		tr := &models.Trace{
			Network:    first.network,
			Station:    first.station,
			Location:   first.location,
			Channel:    first.channel,
			Start:      first.start,
			SampleRate: first.rate,
		}
		for _, rec := range recs {
			tr.Samples = append(tr.Samples, rec.samples...)
		}
		if err := tr.Validate(); err != nil {
			return nil, fmt.Errorf("invalid miniSEED trace %s: %w", id, err)
		}
		res.Traces = append(res.Traces, tr)
	}

	return res, nil
}

// parseMSRecord decodes one record and reports its total length so the
// caller can advance to the next one.
func parseMSRecord(raw []byte) (*msRecord, int, error) {
	order, err := msByteOrder(raw)
	if err != nil {
		return nil, 0, err
	}

	nsamp := int(order.Uint16(raw[msOffNumSamples : msOffNumSamples+2]))
	rate := msSampleRate(
		int16(order.Uint16(raw[msOffRateFactor:msOffRateFactor+2])),
		int16(order.Uint16(raw[msOffRateMult:msOffRateMult+2])),
	)

	encoding, wordOrder, recLen, err := msBlockette1000(raw, order)
	if err != nil {
		return nil, 0, err
	}
	if recLen > len(raw) {
		return nil, 0, fmt.Errorf("record length %d exceeds remaining %d bytes", recLen, len(raw))
	}

	dataOrder := binary.ByteOrder(binary.BigEndian)
	if wordOrder == 0 {
		dataOrder = binary.LittleEndian
	}

	start := msStartTime(raw, order)

	rec := &msRecord{
		network:  strings.TrimSpace(string(raw[msOffNetwork : msOffNetwork+2])),
		station:  strings.TrimSpace(string(raw[msOffStation : msOffStation+5])),
		location: strings.TrimSpace(string(raw[msOffLocation : msOffLocation+2])),
		channel:  strings.TrimSpace(string(raw[msOffChannel : msOffChannel+3])),
		start:    start,
		rate:     rate,
	}

	if nsamp == 0 {
		return rec, recLen, nil
	}
	if rate <= 0 {
		return nil, 0, fmt.Errorf("record with %d samples has no valid sample rate", nsamp)
	}

	dataStart := int(order.Uint16(raw[msOffDataStart : msOffDataStart+2]))
	if dataStart < msFixedHeaderSize || dataStart >= recLen {
		return nil, 0, fmt.Errorf("data offset %d outside record of %d bytes", dataStart, recLen)
	}

	samples, err := msDecode(raw[dataStart:recLen], encoding, dataOrder, nsamp)
	if err != nil {
		return nil, 0, err
	}
	rec.samples = samples

	return rec, recLen, nil
}

// msByteOrder decides header endianness by sanity-checking the record
// start year, which must be plausible in exactly one byte order.
func msByteOrder(raw []byte) (binary.ByteOrder, error) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		year := order.Uint16(raw[msOffYear : msOffYear+2])
		if year >= 1900 && year <= 2100 {
			return order, nil
		}
	}
	return nil, fmt.Errorf("not a miniSEED record: start year invalid in both byte orders")
}

// msStartTime decodes the BTIME start, applying the header time correction
// when the activity flags say it has not been applied yet.
func msStartTime(raw []byte, order binary.ByteOrder) time.Time {
	year := int(order.Uint16(raw[msOffYear : msOffYear+2]))
	doy := int(order.Uint16(raw[msOffDay : msOffDay+2]))
	hour := int(raw[msOffHour])
	min := int(raw[msOffMinute])
	sec := int(raw[msOffSecond])
	fract := int(order.Uint16(raw[msOffFract : msOffFract+2]))

	t := time.Date(year, time.January, 1, hour, min, sec, fract*100*int(time.Microsecond), time.UTC)
	t = t.AddDate(0, 0, doy-1)

	if raw[msOffActivity]&msFlagTimeCorrApplied == 0 {
		corr := int32(order.Uint32(raw[msOffTimeCorr : msOffTimeCorr+4]))
		t = t.Add(time.Duration(corr) * 100 * time.Microsecond)
	}
	return t
}

// msSampleRate converts the factor/multiplier pair into samples per second.
// Negative values denote period instead of frequency, per the SEED manual.
func msSampleRate(factor, mult int16) float64 {
	f, m := float64(factor), float64(mult)
	switch {
	case factor > 0 && mult > 0:
		return f * m
	case factor > 0 && mult < 0:
		return -f / m
	case factor < 0 && mult > 0:
		return -m / f
	case factor < 0 && mult < 0:
		return 1.0 / (f * m)
	default:
		return 0
	}
}

// msBlockette1000 walks the blockette chain for the data-only blockette,
// which carries the encoding, sample word order, and record length.
func msBlockette1000(raw []byte, order binary.ByteOrder) (encoding, wordOrder byte, recLen int, err error) {
	off := int(order.Uint16(raw[msOffBlockette : msOffBlockette+2]))
	for off != 0 && off+8 <= len(raw) {
		btype := order.Uint16(raw[off : off+2])
		next := int(order.Uint16(raw[off+2 : off+4]))
		if btype == 1000 {
			exp := raw[off+6]
			if exp < 7 || exp > 20 {
				return 0, 0, 0, fmt.Errorf("implausible record length exponent %d", exp)
			}
			return raw[off+4], raw[off+5], 1 << exp, nil
		}
		if next <= off {
			break
		}
		off = next
	}
	return 0, 0, 0, fmt.Errorf("record has no Blockette 1000")
}

// msDecode expands the record payload into float64 samples.
func msDecode(data []byte, encoding byte, order binary.ByteOrder, nsamp int) ([]float64, error) {
	need := func(bytesPer int) error {
		if len(data) < nsamp*bytesPer {
			return fmt.Errorf("payload too short: %d bytes for %d samples", len(data), nsamp)
		}
		return nil
	}

	samples := make([]float64, nsamp)
	switch encoding {
	case msEncInt16:
		if err := need(2); err != nil {
			return nil, err
		}
		for i := range samples {
			samples[i] = float64(int16(order.Uint16(data[2*i : 2*i+2])))
		}
	case msEncInt32:
		if err := need(4); err != nil {
			return nil, err
		}
		for i := range samples {
			samples[i] = float64(int32(order.Uint32(data[4*i : 4*i+4])))
		}
	case msEncFloat32:
		if err := need(4); err != nil {
			return nil, err
		}
		for i := range samples {
			samples[i] = float64(math.Float32frombits(order.Uint32(data[4*i : 4*i+4])))
		}
	case msEncFloat64:
		if err := need(8); err != nil {
			return nil, err
		}
		for i := range samples {
			samples[i] = math.Float64frombits(order.Uint64(data[8*i : 8*i+8]))
		}
	case msEncSteim1:
		return decodeSteim1(data, order, nsamp)
	default:
		return nil, fmt.Errorf("unsupported miniSEED encoding %d", encoding)
	}
	return samples, nil
}

// decodeSteim1 expands Steim-1 compressed data: 64-byte frames of 16 words,
// where word 0 packs sixteen 2-bit codes describing how many difference
// values each following word carries. Frame 0 words 1 and 2 hold the
// forward and reverse integration constants.
func decodeSteim1(data []byte, order binary.ByteOrder, nsamp int) ([]float64, error) {
	if len(data) < 64 {
		return nil, fmt.Errorf("Steim-1 payload shorter than one frame")
	}

	var x0, xn int32
	diffs := make([]int32, 0, nsamp)

	nframes := len(data) / 64
	for f := 0; f < nframes; f++ {
		frame := data[f*64 : (f+1)*64]
		codes := order.Uint32(frame[0:4])

		for w := 1; w < 16; w++ {
			word := frame[4*w : 4*w+4]
			if f == 0 && w == 1 {
				x0 = int32(order.Uint32(word))
				continue
			}
			if f == 0 && w == 2 {
				xn = int32(order.Uint32(word))
				continue
			}

			switch (codes >> uint(30-2*w)) & 0x3 {
			case 0: // non-data word
			case 1:
				for k := 0; k < 4; k++ {
					diffs = append(diffs, int32(int8(word[k])))
				}
			case 2:
				for k := 0; k < 2; k++ {
					diffs = append(diffs, int32(int16(order.Uint16(word[2*k:2*k+2]))))
				}
			case 3:
				diffs = append(diffs, int32(order.Uint32(word)))
			}
		}
	}

	if len(diffs) < nsamp {
		return nil, fmt.Errorf("Steim-1 decode produced %d differences, need %d samples", len(diffs), nsamp)
	}

	// The first difference is redundant with the forward integration
	// constant, which becomes sample 0 directly.
	samples := make([]float64, nsamp)
	cur := x0
	samples[0] = float64(cur)
	for i := 1; i < nsamp; i++ {
		cur += diffs[i]
		samples[i] = float64(cur)
	}

	if cur != xn {
		return nil, fmt.Errorf("Steim-1 integrity check failed: last sample %d, reverse constant %d", cur, xn)
	}
	return samples, nil
}
