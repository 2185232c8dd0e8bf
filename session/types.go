package session

import (
	"time"

	"github.com/maastricht-university/facecap/face"
)

// Snapshot is one captured record of calibrated signals and landmark state.
type Snapshot struct {
	Timestamp        time.Time `json:"timestamp"`
	FrameTimestampMs int64     `json:"frame_timestamp_ms,omitempty"`
	// region -> mean distance to the nose tip
	CheekDistances map[string]float64 `json:"cheek_distances,omitempty"`
	// group -> channel -> score
	Blendshapes     map[string]map[string]float64 `json:"blendshapes"`
	LandmarkRegions map[string][]face.Point       `json:"landmark_regions"`
	// region -> landmark index -> point
	RawCoords map[string]map[string]face.Point `json:"raw_coords,omitempty"`
}

// Flat returns channel -> score across all groups.
func (s Snapshot) Flat() map[string]float64 {
	out := map[string]float64{}
	for _, items := range s.Blendshapes {
		for name, v := range items {
			out[name] = v
		}
	}
	return out
}

// Session is one recording interval. Snapshots are in capture order.
type Session struct {
	ID        string     `json:"session_id"`
	StartedAt time.Time  `json:"started_at"`
	Snapshots []Snapshot `json:"snapshots"`
}

// Paths are the files written for one session.
type Paths struct {
	JSON string
	CSV  string
}
