package histogram

import (
	"errors"
	"fmt"
)

var ErrBinCountMismatch = errors.New("histogram: frame bin count differs from running sum")

// FrameHistogram holds one frame's 32-bit counts and its physical bin
// edges. Ephemeral: it exists only for the duration of one merge.
type FrameHistogram struct {
	BinCount int
	Edges    []float64
	Counts   []uint32
}

// NewFrameHistogram derives the physical edges for one decoded frame.
func NewFrameHistogram(binCount int, width, offset int64, counts []uint32) (FrameHistogram, error) {
	if binCount < 0 {
		return FrameHistogram{}, fmt.Errorf("histogram: negative bin count %d", binCount)
	}
	if len(counts) != binCount {
		return FrameHistogram{}, fmt.Errorf("histogram: counts length %d != bin count %d", len(counts), binCount)
	}
	return FrameHistogram{
		BinCount: binCount,
		Edges:    BinEdges(binCount, width, offset),
		Counts:   counts,
	}, nil
}

// RunningSum is the 64-bit accumulated histogram across every frame seen
// in one run. Geometry is fixed by the first frame; edges are computed once
// and never recomputed.
type RunningSum struct {
	BinCount int
	Edges    []float64
	Counts   []uint64
}

// Snapshot is a deep-copied, read-only view of the running sum, safe to
// hand across goroutines and to serialize without holding any lock.
type Snapshot struct {
	BinCount int
	Edges    []float64
	Counts   []uint64
}
