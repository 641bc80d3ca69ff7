package renderer

import "time"

// Stats reports the progress of the current render
type Stats struct {
	State      State         // Renderer state when the snapshot was taken
	TilesDone  int           // Tiles rendered to completion
	TilesTotal int           // Non-empty tiles in the grid
	Pixels     int64         // Pixels written to the buffer
	Samples    int64         // Paths traced
	Elapsed    time.Duration // Time since Start, frozen once the render finishes
}

// Fraction returns the share of tiles completed, in [0, 1]
func (s Stats) Fraction() float64 {
	if s.TilesTotal == 0 {
		return 0
	}
	return float64(s.TilesDone) / float64(s.TilesTotal)
}
