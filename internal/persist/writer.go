package persist

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pixelfield/tofsink/internal/histogram"
)

// DefaultPath matches the well-known location downstream analysis reads.
const DefaultPath = "data/tof-histogram-running-sum.txt"

// Writer rewrites one snapshot file in full after every merge. Writes are
// not atomic; a concurrent reader may observe a torn file. The in-memory
// running sum stays authoritative, so a failed write is recovered by the
// next one.
type Writer struct {
	path string
}

// NewWriter binds the writer to path and creates the parent directory.
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("persist: create output directory: %w", err)
		}
	}
	return &Writer{path: path}, nil
}

func (w *Writer) Path() string {
	return w.path
}

// Write serializes snap as a full overwrite of the output file: a comment
// header, one "edge<TAB>count" line per bin with the lower edge in
// scientific notation at 9 digits of precision, then the final upper edge
// on a line of its own.
func (w *Writer) Write(snap histogram.Snapshot) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("persist: open %s: %w", w.path, err)
	}

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "# Time of Flight Histogram Data\n")
	fmt.Fprintf(bw, "# Bins: %d\n", snap.BinCount)
	fmt.Fprintf(bw, "#\n")

	for i := 0; i < snap.BinCount; i++ {
		bw.WriteString(formatEdge(snap.Edges[i]))
		bw.WriteByte('\t')
		bw.WriteString(strconv.FormatUint(snap.Counts[i], 10))
		bw.WriteByte('\n')
	}
	bw.WriteString(formatEdge(snap.Edges[snap.BinCount]))
	bw.WriteByte('\n')

	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("persist: write %s: %w", w.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("persist: close %s: %w", w.path, err)
	}
	return nil
}

func formatEdge(v float64) string {
	return strconv.FormatFloat(v, 'e', 9, 64)
}
