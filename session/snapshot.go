package session

import (
	"strconv"
	"time"

	"github.com/maastricht-university/facecap/face"
)

// Input is the pipeline state a snapshot is taken from. Signals and
// Landmarks may come from different frames.
type Input struct {
	Now              time.Time
	FrameTimestampMs int64
	Signals          face.Signals
	Landmarks        face.LandmarkSet
	CheekDistances   map[string]float64
}

// Builder turns pipeline state into snapshots. It holds only static tables.
type Builder struct {
	classifier *face.Classifier
	regions    []face.Region
	raw        []face.Region
}

// NewBuilder records coordinates for regions, and raw per-index coordinates
// for raw.
func NewBuilder(c *face.Classifier, regions, raw []face.Region) *Builder {
	return &Builder{classifier: c, regions: regions, raw: raw}
}

// Build never fails. Every configured region gets an entry, empty when the
// landmark set does not cover it.
func (b *Builder) Build(in Input) Snapshot {
	snap := Snapshot{
		Timestamp:        in.Now,
		FrameTimestampMs: in.FrameTimestampMs,
		Blendshapes:      map[string]map[string]float64{},
		LandmarkRegions:  make(map[string][]face.Point, len(b.regions)),
	}

	for name, score := range in.Signals {
		g := b.classifier.GroupOf(name)
		if snap.Blendshapes[g] == nil {
			snap.Blendshapes[g] = map[string]float64{}
		}
		snap.Blendshapes[g][name] = face.Round4(score)
	}

	for _, r := range b.regions {
		snap.LandmarkRegions[r.Name] = r.Coords(in.Landmarks)
	}

	if len(in.CheekDistances) > 0 {
		snap.CheekDistances = make(map[string]float64, len(in.CheekDistances))
		for k, v := range in.CheekDistances {
			snap.CheekDistances[k] = v
		}
	}

	if len(b.raw) > 0 && len(in.Landmarks) > 0 {
		snap.RawCoords = make(map[string]map[string]face.Point, len(b.raw))
		for _, r := range b.raw {
			pts := map[string]face.Point{}
			for _, idx := range r.Indices {
				if idx < 0 || idx >= len(in.Landmarks) {
					continue
				}
				pts[strconv.Itoa(idx)] = in.Landmarks[idx].Rounded()
			}
			snap.RawCoords[r.Name] = pts
		}
	}
	return snap
}
