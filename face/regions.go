package face

// Region is a named set of landmark indices.
type Region struct {
	Name    string `yaml:"name"`
	Indices []int  `yaml:"indices"`
}

// DefaultRegions are the face-mesh regions recorded in snapshots.
var DefaultRegions = []Region{
	{"LEFT_EYE", []int{33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246}},
	{"RIGHT_EYE", []int{362, 382, 381, 380, 374, 373, 390, 249, 263, 466, 388, 387, 386, 385, 384, 398}},
	{"LEFT_BROW", []int{70, 63, 105, 66, 107, 55, 65, 52, 53, 46}},
	{"RIGHT_BROW", []int{300, 293, 334, 296, 336, 285, 295, 282, 283, 276}},
	{"NOSE", []int{1, 2, 5, 4, 19, 94, 164, 0, 11, 12, 13, 14, 15, 16, 17, 18}},
	{"MOUTH", []int{61, 84, 17, 314, 405, 320, 307, 375, 321, 308, 324, 318, 402, 317, 14, 87, 178, 88, 95, 185, 40, 39, 37, 0, 267, 269, 270, 409}},
	{"LEFT_CHEEK", []int{116, 123, 147, 213, 192, 214, 210, 211, 32}},
	{"RIGHT_CHEEK", []int{345, 352, 376, 433, 416, 434, 430, 431, 262}},
	{"CHIN", []int{152, 148, 176, 149, 150, 136, 172, 58, 132, 93, 234, 127, 162, 21, 54}},
	{"FOREHEAD", []int{10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288, 397, 365, 379, 378, 400, 377, 152}},
}

// Coords returns the region's points in index order, rounded to 4 decimals.
// Indices outside the landmark set are skipped, so the result may be shorter
// than the region. It is never nil.
func (r Region) Coords(lm LandmarkSet) []Point {
	out := make([]Point, 0, len(r.Indices))
	for _, idx := range r.Indices {
		if idx < 0 || idx >= len(lm) {
			continue
		}
		out = append(out, lm[idx].Rounded())
	}
	return out
}

// Center is the mean x/y of the region's in-range landmarks.
// ok is false when no index is covered.
func (r Region) Center(lm LandmarkSet) (x, y float64, ok bool) {
	n := 0
	for _, idx := range r.Indices {
		if idx < 0 || idx >= len(lm) {
			continue
		}
		x += lm[idx].X
		y += lm[idx].Y
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return x / float64(n), y / float64(n), true
}

// FindRegion looks a region up by name.
func FindRegion(regions []Region, name string) (Region, bool) {
	for _, r := range regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}
