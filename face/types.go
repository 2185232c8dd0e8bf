package face

import "math"

// LandmarkCount is the size of a full face mesh with refined iris points.
const LandmarkCount = 478

// Point is one normalized landmark. X/Y are in [0,1], Z is depth relative to the face center.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LandmarkSet is an index-addressed landmark mesh for the primary face.
type LandmarkSet []Point

// Signals maps a blendshape name to its score.
type Signals map[string]float64

// Clone returns an independent copy.
func (s Signals) Clone() Signals {
	if s == nil {
		return nil
	}
	out := make(Signals, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Frame is one detector result.
type Frame struct {
	TimestampMs int64
	Signals     Signals
	Landmarks   LandmarkSet // nil when the detector reported no face mesh
}

// Empty reports whether the frame carries nothing usable.
func (f Frame) Empty() bool {
	return len(f.Signals) == 0 && len(f.Landmarks) == 0
}

// Round4 rounds to 4 decimal places.
func Round4(v float64) float64 { return roundTo(v, 1e4) }

// Round3 rounds to 3 decimal places.
func Round3(v float64) float64 { return roundTo(v, 1e3) }

func roundTo(v, scale float64) float64 {
	return math.Round(v*scale) / scale
}

// Rounded returns p with every coordinate rounded to 4 decimals.
func (p Point) Rounded() Point {
	return Point{X: Round4(p.X), Y: Round4(p.Y), Z: Round4(p.Z)}
}
