package frame

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrHeaderSyntax     = errors.New("frame: header line is not valid JSON")
	ErrHeaderField      = errors.New("frame: header missing mandatory field")
	ErrBinCountRange    = errors.New("frame: bin count out of range")
	ErrPayloadTruncated = errors.New("frame: stream ended inside payload")
)

// Frame is one complete wire message: one measurement window's per-bin
// counts plus the integer bin geometry, in digitizer clock ticks.
// Immutable once decoded.
type Frame struct {
	Number    int64
	BinCount  int
	BinWidth  int64
	BinOffset int64
	Counts    []uint32
}

// Limits constrains decoder memory use.
type Limits struct {
	// MaxBufferBytes caps the header reassembly buffer. Reaching it without
	// a newline triggers a lossy reset.
	MaxBufferBytes int
	// MaxBins caps the per-frame bin count a header may declare.
	MaxBins int
}

func DefaultLimits() Limits {
	return Limits{
		MaxBufferBytes: 32 * 1024,
		MaxBins:        1000,
	}
}

// wireHeader is the JSON header line. Pointer fields distinguish absent
// mandatory keys from zero values; unknown keys are ignored.
type wireHeader struct {
	FrameNumber *int64 `json:"frameNumber"`
	BinSize     *int64 `json:"binSize"`
	BinWidth    *int64 `json:"binWidth"`
	BinOffset   *int64 `json:"binOffset"`
}

// ParseHeader parses one header line (without its trailing newline) and
// validates the declared geometry against limits. Any error is non-fatal to
// the stream: the caller skips the line and keeps scanning.
func ParseHeader(line []byte, limits Limits) (Frame, error) {
	var h wireHeader
	if err := json.Unmarshal(line, &h); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrHeaderSyntax, err)
	}
	if h.FrameNumber == nil || h.BinSize == nil || h.BinWidth == nil || h.BinOffset == nil {
		return Frame{}, ErrHeaderField
	}
	if *h.BinSize < 1 || *h.BinSize > int64(limits.MaxBins) {
		return Frame{}, fmt.Errorf("%w: binSize=%d max=%d", ErrBinCountRange, *h.BinSize, limits.MaxBins)
	}
	return Frame{
		Number:    *h.FrameNumber,
		BinCount:  int(*h.BinSize),
		BinWidth:  *h.BinWidth,
		BinOffset: *h.BinOffset,
	}, nil
}

// PayloadLen returns the exact byte length of the binary payload the header
// announces: one network-order uint32 per bin.
func (f Frame) PayloadLen() int {
	return f.BinCount * 4
}

// Encode renders f as wire bytes: the JSON header line, a newline, then the
// big-endian payload. Used by the generator and by tests.
func Encode(f Frame) ([]byte, error) {
	if len(f.Counts) != f.BinCount {
		return nil, fmt.Errorf("frame: encode count mismatch: counts=%d binCount=%d", len(f.Counts), f.BinCount)
	}
	header, err := json.Marshal(map[string]int64{
		"frameNumber": f.Number,
		"binSize":     int64(f.BinCount),
		"binWidth":    f.BinWidth,
		"binOffset":   f.BinOffset,
	})
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(header)+1+f.PayloadLen())
	out = append(out, header...)
	out = append(out, '\n')
	for _, v := range f.Counts {
		out = binary.BigEndian.AppendUint32(out, v)
	}
	return out, nil
}
