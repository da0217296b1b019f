package histogram

import (
	"fmt"
	"math"
	"sync"
)

// Accumulator owns the single running sum of one run. Merge and Snapshot
// are serialized by one exclusive lock held only for the in-memory
// mutation or copy, never across I/O.
type Accumulator struct {
	mu  sync.Mutex
	sum *RunningSum
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// MergeResult reports what one merge did to the running sum.
type MergeResult struct {
	// OverflowBins lists bins whose counter was clamped at the 64-bit
	// maximum during this merge. Non-fatal.
	OverflowBins []int
}

// Merge folds one frame's 32-bit counts into the 64-bit running sum.
// The first merge establishes the geometry; every later frame must carry
// the same bin count or the merge fails with ErrBinCountMismatch and the
// running sum is left unmodified. Additions saturate at math.MaxUint64.
func (a *Accumulator) Merge(fh FrameHistogram) (MergeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sum == nil {
		edges := make([]float64, len(fh.Edges))
		copy(edges, fh.Edges)
		a.sum = &RunningSum{
			BinCount: fh.BinCount,
			Edges:    edges,
			Counts:   make([]uint64, fh.BinCount),
		}
	} else if fh.BinCount != a.sum.BinCount {
		return MergeResult{}, fmt.Errorf("%w: got=%d want=%d", ErrBinCountMismatch, fh.BinCount, a.sum.BinCount)
	}

	var result MergeResult
	for i, v := range fh.Counts {
		add := uint64(v)
		if a.sum.Counts[i] > math.MaxUint64-add {
			a.sum.Counts[i] = math.MaxUint64
			result.OverflowBins = append(result.OverflowBins, i)
			continue
		}
		a.sum.Counts[i] += add
	}
	return result, nil
}

// Snapshot returns a deep copy of the current running sum. The second
// return is false before the first merge.
func (a *Accumulator) Snapshot() (Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sum == nil {
		return Snapshot{}, false
	}
	snap := Snapshot{
		BinCount: a.sum.BinCount,
		Edges:    make([]float64, len(a.sum.Edges)),
		Counts:   make([]uint64, len(a.sum.Counts)),
	}
	copy(snap.Edges, a.sum.Edges)
	copy(snap.Counts, a.sum.Counts)
	return snap, true
}
