package histogram

// ClockPeriod is the physical duration of one digitizer TDC clock tick,
// in seconds. All bin geometry on the wire is expressed in these ticks.
const ClockPeriod = (1.5625 / 6.0) * 1e-9

// BinEdges maps integer bin geometry to physical time boundaries:
// edges[i] = (offset + i*width) * ClockPeriod for i in [0, binCount].
// Pure; callers reject a negative binCount before calling.
func BinEdges(binCount int, width, offset int64) []float64 {
	edges := make([]float64, binCount+1)
	for i := range edges {
		edges[i] = float64(offset+int64(i)*width) * ClockPeriod
	}
	return edges
}
