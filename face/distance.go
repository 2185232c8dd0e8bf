package face

import "math"

// NoseTipIndex is the mesh index used as the cheek distance reference.
const NoseTipIndex = 4

// CheekDistances returns, per region, the mean 2-D distance from the region's
// landmarks to the nose tip, rounded to 4 decimals. Larger values mean the
// cheek is pushed outward. A region with no in-range index reports 0.
// The result is nil when the nose tip itself is not covered.
func CheekDistances(lm LandmarkSet, regions []Region) map[string]float64 {
	if NoseTipIndex >= len(lm) {
		return nil
	}
	nose := lm[NoseTipIndex]
	out := make(map[string]float64, len(regions))
	for _, r := range regions {
		sum, n := 0.0, 0
		for _, idx := range r.Indices {
			if idx < 0 || idx >= len(lm) {
				continue
			}
			sum += math.Hypot(lm[idx].X-nose.X, lm[idx].Y-nose.Y)
			n++
		}
		if n == 0 {
			out[r.Name] = 0
			continue
		}
		out[r.Name] = Round4(sum / float64(n))
	}
	return out
}
